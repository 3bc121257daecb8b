package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"admission-gateway/internal/server"
)

func newStatsCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the metrics of a running gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			m, err := fetchMetrics(client, addr)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderMetrics(m))
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "gateway base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON")
	return cmd
}

func fetchMetrics(client *http.Client, addr string) (server.MetricsResponse, error) {
	var m server.MetricsResponse

	resp, err := client.Get(strings.TrimRight(addr, "/") + "/admin/metrics")
	if err != nil {
		return m, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return m, fmt.Errorf("fetch metrics: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return m, fmt.Errorf("decode metrics: %w", err)
	}
	return m, nil
}

func renderMetrics(m server.MetricsResponse) string {
	summary := table.NewWriter()
	summary.SetStyle(table.StyleRounded)
	summary.SetTitle("Gateway")
	summary.AppendRows([]table.Row{
		{"Requests", m.RequestCount},
		{"Errors", m.ErrorCount},
		{"Error rate", fmt.Sprintf("%.2f%%", m.ErrorRate*100)},
		{"Avg response", fmt.Sprintf("%.3fs", m.AvgResponseTime)},
		{"In flight", m.ActiveRequests},
		{"Slots", fmt.Sprintf("%d/%d", m.Concurrency.Active, m.Concurrency.Capacity)},
		{"Queued", fmt.Sprintf("%d/%d", m.Concurrency.Queued, m.Concurrency.MaxQueue)},
	})

	endpoints := table.NewWriter()
	endpoints.SetStyle(table.StyleRounded)
	endpoints.AppendHeader(table.Row{"Endpoint", "Requests", "Errors", "Avg"})
	for _, ep := range slices.Sorted(maps.Keys(m.EndpointStats)) {
		st := m.EndpointStats[ep]
		endpoints.AppendRow(table.Row{ep, st.Count, st.ErrorCount, fmt.Sprintf("%.3fs", st.AvgResponseTime)})
	}

	out := summary.Render() + "\n" + endpoints.Render() + "\n"

	if len(m.ErrorStats) > 0 {
		errs := table.NewWriter()
		errs.SetStyle(table.StyleRounded)
		errs.AppendHeader(table.Row{"Error kind", "Count"})
		for _, kind := range slices.Sorted(maps.Keys(m.ErrorStats)) {
			errs.AppendRow(table.Row{kind, m.ErrorStats[kind]})
		}
		out += errs.Render() + "\n"
	}
	return out
}
