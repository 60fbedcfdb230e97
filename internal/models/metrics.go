package models

import "time"

// BrowserMetrics is a lightweight snapshot of session instrumentation.
type BrowserMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	FetchesTotal             uint64    `json:"fetches_total"`
	FetchFailures            uint64    `json:"fetch_failures"`
	AverageFetchDurationMs   float64   `json:"average_fetch_duration_ms"`
	StaleDiscards            uint64    `json:"stale_discards"`
	CoalescedInputs          uint64    `json:"coalesced_inputs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
