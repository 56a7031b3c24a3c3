// Package analytics tracks query traffic: every lookup, search, collaboration
// query and discovery roll is published to Kafka, and the aggregator side
// consumes the stream into usage stats served at /api/v1/analytics.
package analytics

import "time"

// Operation identifies which query-engine entry point produced an event.
type Operation string

const (
	OpLookup        Operation = "lookup"
	OpSearch        Operation = "search"
	OpCollaboration Operation = "collaboration"
	OpDiscovery     Operation = "discovery"
	OpStats         Operation = "stats"
)

// QueryEvent is emitted once per query, after the response is written.
type QueryEvent struct {
	Operation  Operation         `json:"operation"`
	Predicates map[string]string `json:"predicates,omitempty"`
	Results    int               `json:"results"`
	LatencyMs  float64           `json:"latency_ms"`
	CacheHit   bool              `json:"cache_hit"`
	Status     int               `json:"status"`
	RequestID  string            `json:"request_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
