package admission

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderProcessTime = "X-Process-Time"
	HeaderRetryAfter  = "Retry-After"

	HeaderLimitMinute     = "X-RateLimit-Limit-Minute"
	HeaderLimitHour       = "X-RateLimit-Limit-Hour"
	HeaderRemainingMinute = "X-RateLimit-Remaining-Minute"
	HeaderRemainingHour   = "X-RateLimit-Remaining-Hour"

	HeaderConcurrencyActive = "X-Concurrency-Active"
	HeaderConcurrencyQueued = "X-Concurrency-Queued"
	HeaderConcurrencyLimit  = "X-Concurrency-Limit"
	HeaderQueueTime         = "X-Queue-Time"
)
