package admission

import (
	"context"
	"sync"

	"admission-gateway/middleware/admission/domain"
)

// requestState é o estado de uma requisição compartilhado entre as camadas.
// As camadas internas anotam o desfecho; a camada de tracking lê no final.
//
// A identidade do cliente é resolvida sob demanda: caminhos isentos nunca
// chamam a KeyFunc.
type requestState struct {
	id      string // ecoado no X-Request-ID
	trackID string // chave no tracker, sempre gerada aqui

	mu          sync.Mutex
	keyFn       func() domain.Key
	key         domain.Key
	keyed       bool
	route       string
	errorKind   string
	errorDetail string
}

type stateContextKey struct{}

func withState(ctx context.Context, st *requestState) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateContextKey{}).(*requestState)
	return st
}

// RequestID devolve o id da requisição (vazio fora do pipeline).
func RequestID(ctx context.Context) string {
	if st := stateFrom(ctx); st != nil {
		return st.id
	}
	return ""
}

// ClientKey devolve a identidade do cliente, resolvendo na primeira chamada.
func ClientKey(ctx context.Context) (domain.Key, bool) {
	if st := stateFrom(ctx); st != nil {
		return st.clientKey(), true
	}
	return "", false
}

// SetRoute troca o rótulo de endpoint usado nas métricas (ex.: padrão da rota).
func SetRoute(ctx context.Context, route string) {
	st := stateFrom(ctx)
	if st == nil {
		return
	}
	st.mu.Lock()
	st.route = route
	st.mu.Unlock()
}

// SetOutcome anota o tipo de erro e um detalhe para o tracker e as métricas.
// Handlers (ex.: proxy) usam para classificar falhas do backend.
func SetOutcome(ctx context.Context, kind, detail string) {
	st := stateFrom(ctx)
	if st == nil {
		return
	}
	st.mu.Lock()
	st.errorKind = kind
	st.errorDetail = detail
	st.mu.Unlock()
}

func (st *requestState) outcome() (kind, detail string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.errorKind, st.errorDetail
}

func (st *requestState) clientKey() domain.Key {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.keyed {
		if st.keyFn != nil {
			st.key = st.keyFn()
		}
		st.keyed = true
	}
	return st.key
}

// resolvedKey não dispara a resolução; vazio se ninguém pediu a identidade.
func (st *requestState) resolvedKey() domain.Key {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.key
}

func (st *requestState) routeLabel() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.route
}
