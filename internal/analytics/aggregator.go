package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/yoavkarmi/songdex/pkg/kafka"
)

// UsageStats is the aggregated view of query traffic since startup.
type UsageStats struct {
	TotalQueries     int64            `json:"total_queries"`
	ByOperation      map[string]int64 `json:"by_operation"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	EmptyResults     int64            `json:"empty_results"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     float64          `json:"p50_latency_ms"`
	P95LatencyMs     float64          `json:"p95_latency_ms"`
	P99LatencyMs     float64          `json:"p99_latency_ms"`
	TopSearches      []PredicateCount `json:"top_searches"`
	EmptySearches    []PredicateCount `json:"empty_searches"`
	QueriesPerMinute float64          `json:"queries_per_minute"`
}

// PredicateCount pairs a search's predicate signature with how often it ran.
type PredicateCount struct {
	Predicates string `json:"predicates"`
	Count      int64  `json:"count"`
}

// Aggregator consumes the query-event stream and folds it into UsageStats.
type Aggregator struct {
	mu            sync.RWMutex
	totalQueries  int64
	byOperation   map[Operation]int64
	cacheHits     int64
	cacheMisses   int64
	emptyResults  int64
	latencies     []float64
	searchCounts  map[string]int64
	emptySearches map[string]int64
	startTime     time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator. Feed it through Record, or wire
// HandleEvent into a Kafka consumer to fold the event stream.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byOperation:   make(map[Operation]int64),
		latencies:     make([]float64, 0, 10000),
		searchCounts:  make(map[string]int64),
		emptySearches: make(map[string]int64),
		startTime:     time.Now(),
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent adapts the aggregator into a kafka.MessageHandler.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode query event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one event into the running stats.
func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalQueries++
	a.byOperation[event.Operation]++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if event.Results == 0 {
		a.emptyResults++
	}
	a.latencies = append(a.latencies, event.LatencyMs)

	if event.Operation == OpSearch {
		sig := predicateSignature(event.Predicates)
		a.searchCounts[sig]++
		if event.Results == 0 {
			a.emptySearches[sig]++
		}
	}
}

// Stats computes the current aggregate view.
func (a *Aggregator) Stats() UsageStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := UsageStats{
		TotalQueries: a.totalQueries,
		ByOperation:  make(map[string]int64, len(a.byOperation)),
		CacheHits:    a.cacheHits,
		CacheMisses:  a.cacheMisses,
		EmptyResults: a.emptyResults,
	}
	for op, n := range a.byOperation {
		stats.ByOperation[string(op)] = n
	}

	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	stats.TopSearches = topN(a.searchCounts, 10)
	stats.EmptySearches = topN(a.emptySearches, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

// predicateSignature renders a predicate map as a stable "k=v k=v" string so
// equal searches aggregate under one key.
func predicateSignature(predicates map[string]string) string {
	if len(predicates) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(predicates))
	for k := range predicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sig := ""
	for i, k := range keys {
		if i > 0 {
			sig += " "
		}
		sig += fmt.Sprintf("%s=%s", k, predicates[k])
	}
	return sig
}

func percentile(sorted []float64, pct int) float64 {
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []PredicateCount {
	result := make([]PredicateCount, 0, len(counts))
	for sig, count := range counts {
		result = append(result, PredicateCount{Predicates: sig, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Predicates < result[j].Predicates
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
