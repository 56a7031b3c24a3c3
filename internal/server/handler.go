// Package server exposes the catalog query engine over HTTP. Handlers stay
// thin: parse parameters, call the engine, map errors to status codes, and
// report the query to analytics.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yoavkarmi/songdex/internal/analytics"
	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/collab"
	"github.com/yoavkarmi/songdex/internal/catalog/query"
	"github.com/yoavkarmi/songdex/internal/media"
	"github.com/yoavkarmi/songdex/internal/server/cache"
	"github.com/yoavkarmi/songdex/pkg/config"
	"github.com/yoavkarmi/songdex/pkg/errors"
	"github.com/yoavkarmi/songdex/pkg/logger"
	"github.com/yoavkarmi/songdex/pkg/metrics"
)

// queryTracker receives one event per served query. *analytics.Collector
// satisfies it.
type queryTracker interface {
	Track(analytics.QueryEvent)
}

// Handler serves the catalog API. The cache, collector, fetcher, and metrics
// are all optional; a nil value disables that concern without changing
// semantics.
type Handler struct {
	engine  *query.Engine
	cache   *cache.ResponseCache
	tracker queryTracker
	fetcher *media.Fetcher
	metrics *metrics.Metrics

	defaultLimit   int
	maxResults     int
	discoveryCount int
	discoveryMax   int

	logger *slog.Logger
}

func NewHandler(engine *query.Engine, rc *cache.ResponseCache, collector *analytics.Collector, fetcher *media.Fetcher, m *metrics.Metrics, cfg *config.Config) *Handler {
	h := &Handler{
		engine:         engine,
		cache:          rc,
		fetcher:        fetcher,
		metrics:        m,
		defaultLimit:   cfg.Search.DefaultLimit,
		maxResults:     cfg.Search.MaxResults,
		discoveryCount: cfg.Discovery.DefaultCount,
		discoveryMax:   cfg.Discovery.MaxCount,
		logger:         slog.Default().With("component", "api-handler"),
	}
	// A nil *Collector must stay a nil tracker, not a non-nil interface
	// holding a nil pointer.
	if collector != nil {
		h.tracker = collector
	}
	return h
}

// songsResponse is the envelope for song-list endpoints.
type songsResponse struct {
	Total int             `json:"total"`
	Songs []*catalog.Song `json:"songs"`
}

// ListSongs returns songs in load order, paginated with limit and offset.
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	limit, err := h.parseLimit(r, h.defaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := parseNonNegative(r, "offset", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	songs := h.engine.AllSongs(limit, offset)
	h.writeJSON(w, http.StatusOK, songsResponse{
		Total: h.engine.Store().Len(),
		Songs: songs,
	})
}

// GetSong returns one song by ID.
func (h *Handler) GetSong(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	predicates := map[string]string{"id": r.PathValue("id")}
	song, err := h.songFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		h.track(r, analytics.OpLookup, predicates, 0, false, start, errors.HTTPStatusCode(err))
		return
	}
	h.writeJSON(w, http.StatusOK, song)
	h.track(r, analytics.OpLookup, predicates, 1, false, start, http.StatusOK)
}

// SongLyrics fetches the song's lyrics markup from its upstream URL.
func (h *Handler) SongLyrics(w http.ResponseWriter, r *http.Request) {
	song, err := h.songFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.fetcher == nil {
		h.writeError(w, r, errors.New(errors.ErrUpstream, http.StatusServiceUnavailable, "media fetching is disabled"))
		return
	}
	lyrics, err := h.fetcher.Lyrics(r.Context(), song)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lyrics)
}

// SongVideo fetches YouTube metadata for the song's video.
func (h *Handler) SongVideo(w http.ResponseWriter, r *http.Request) {
	song, err := h.songFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.fetcher == nil {
		h.writeError(w, r, errors.New(errors.ErrUpstream, http.StatusServiceUnavailable, "media fetching is disabled"))
		return
	}
	info, err := h.fetcher.Video(r.Context(), song)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// Search runs a conjunctive multi-predicate search. All predicates are
// optional; none at all returns the whole catalog in ID order.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()

	q := query.Query{
		Performer:    params.Get("singer"),
		CategoryID:   params.Get("category"),
		NameContains: params.Get("name"),
		Roles:        map[catalog.Role]string{},
	}
	for _, role := range catalog.Roles {
		if v := params.Get(string(role)); v != "" {
			q.Roles[role] = v
		}
	}
	limit, err := h.parseLimit(r, h.defaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	predicates := searchPredicates(q)
	compute := func() (any, error) {
		songs, err := h.engine.Search(q)
		if err != nil {
			return nil, err
		}
		total := len(songs)
		if limit > 0 && len(songs) > limit {
			songs = songs[:limit]
		}
		return songsResponse{Total: total, Songs: songs}, nil
	}

	payload, hit, err := h.computeCached(r, analytics.OpSearch, cacheParams(predicates, limit), compute)
	if err != nil {
		h.writeError(w, r, err)
		h.track(r, analytics.OpSearch, predicates, 0, false, start, errors.HTTPStatusCode(err))
		return
	}
	h.writeRaw(w, http.StatusOK, payload)

	var resp songsResponse
	results := 0
	if json.Unmarshal(payload, &resp) == nil {
		results = resp.Total
	}
	logger.FromContext(r.Context()).Info("search completed",
		"predicates", predicates,
		"results", results,
		"cache_hit", hit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.track(r, analytics.OpSearch, predicates, results, hit, start, http.StatusOK)
}

// Categories lists every category with its song count.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":      stats.TotalCategories,
		"categories": stats.Categories,
	})
}

// CategorySongs returns the songs tagged with one category.
func (h *Handler) CategorySongs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.engine.Store().Category(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	songs := h.engine.ByCategory(id)
	h.writeJSON(w, http.StatusOK, songsResponse{Total: len(songs), Songs: songs})
}

// Artists lists performers with song counts, most recorded first.
func (h *Handler) Artists(w http.ResponseWriter, r *http.Request) {
	h.writeNames(w, r, h.engine.Performers(), nil)
}

// Contributors lists composers, lyricists, or translators depending on the
// route.
func (h *Handler) Contributors(role catalog.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := h.engine.RoleContributors(role)
		h.writeNames(w, r, names, err)
	}
}

func (h *Handler) writeNames(w http.ResponseWriter, r *http.Request, names []query.NameCount, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, lerr := h.parseLimit(r, 0)
	if lerr != nil {
		h.writeError(w, r, lerr)
		return
	}
	total := len(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"total": total, "names": names})
}

// Collaborations serves the lyricist/composer pair cache. With both names it
// resolves one pair to its songs; with one name it lists that contributor's
// pairs; with neither it lists all pairs by song count.
func (h *Handler) Collaborations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()
	lyricist := params.Get("lyricist")
	composer := params.Get("composer")

	minSongs, err := parseNonNegative(r, "min_songs", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := h.parseLimit(r, 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	predicates := map[string]string{}
	if lyricist != "" {
		predicates["lyricist"] = catalog.Key(lyricist)
	}
	if composer != "" {
		predicates["composer"] = catalog.Key(composer)
	}
	if minSongs > 0 {
		predicates["min_songs"] = strconv.Itoa(minSongs)
	}

	if lyricist != "" && composer != "" {
		resolved, err := h.engine.PairFor(lyricist, composer)
		if err != nil {
			h.writeError(w, r, err)
			h.track(r, analytics.OpCollaboration, predicates, 0, false, start, errors.HTTPStatusCode(err))
			return
		}
		h.writeJSON(w, http.StatusOK, resolved)
		h.track(r, analytics.OpCollaboration, predicates, resolved.SongCount, false, start, http.StatusOK)
		return
	}

	compute := func() (any, error) {
		var pairs []*collab.Pair
		switch {
		case lyricist != "":
			pairs = h.engine.PairsByLyricist(lyricist)
		case composer != "":
			pairs = h.engine.PairsByComposer(composer)
		default:
			pairs = h.engine.AllPairs(0)
		}
		if minSongs > 0 {
			kept := pairs[:0:0]
			for _, p := range pairs {
				if p.SongCount >= minSongs {
					kept = append(kept, p)
				}
			}
			pairs = kept
		}
		total := len(pairs)
		if limit > 0 && len(pairs) > limit {
			pairs = pairs[:limit]
		}
		return map[string]any{"total": total, "collaborations": pairs}, nil
	}

	payload, hit, err := h.computeCached(r, analytics.OpCollaboration, cacheParams(predicates, limit), compute)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, payload)

	logger.FromContext(r.Context()).Info("collaborations served",
		"predicates", predicates,
		"cache_hit", hit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.track(r, analytics.OpCollaboration, predicates, -1, hit, start, http.StatusOK)
}

// Discovery rolls a random sample of songs and contributors, optionally
// restricted to a language, each item scored for fame. Responses are never
// cached.
func (h *Handler) Discovery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := r.URL.Query()

	language := params.Get("language")
	if language == "" {
		language = query.LanguageAny
	}
	count := h.discoveryCount
	if raw := params.Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, r, errors.New(errors.ErrInvalidPredicate, http.StatusBadRequest, "count must be a positive integer"))
			return
		}
		count = parsed
	}
	if count > h.discoveryMax {
		count = h.discoveryMax
	}

	predicates := map[string]string{"language": catalog.Key(language), "count": strconv.Itoa(count)}
	result, err := h.engine.RandomDiscovery(language, count)
	if err != nil {
		h.writeError(w, r, err)
		h.track(r, analytics.OpDiscovery, predicates, 0, false, start, errors.HTTPStatusCode(err))
		return
	}
	h.writeJSON(w, http.StatusOK, result)

	logger.FromContext(r.Context()).Info("discovery rolled",
		"language", language,
		"count", count,
		"songs", len(result.Songs),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.track(r, analytics.OpDiscovery, predicates, len(result.Songs), false, start, http.StatusOK)
}

// CatalogStats reports catalog-wide totals.
func (h *Handler) CatalogStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	compute := func() (any, error) { return h.engine.Stats(), nil }
	payload, hit, err := h.computeCached(r, analytics.OpStats, "", compute)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeRaw(w, http.StatusOK, payload)
	h.track(r, analytics.OpStats, nil, 1, hit, start, http.StatusOK)
}

// CacheStats reports response-cache hit rates.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate drops all cached responses.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, errors.New(errors.ErrUpstream, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, r, errors.New(errors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) songFromPath(r *http.Request) (*catalog.Song, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return nil, errors.New(errors.ErrInvalidPredicate, http.StatusBadRequest, "song id must be an integer")
	}
	return h.engine.ByID(id)
}

// computeCached runs compute through the response cache when one is wired,
// otherwise directly.
func (h *Handler) computeCached(r *http.Request, op analytics.Operation, params string, compute func() (any, error)) ([]byte, bool, error) {
	if h.cache == nil {
		result, err := compute()
		if err != nil {
			return nil, false, err
		}
		payload, err := json.Marshal(result)
		return payload, false, err
	}
	payload, hit, err := h.cache.GetOrCompute(r.Context(), string(op), params, compute)
	if err == nil && h.metrics != nil {
		if hit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	return payload, hit, err
}

func (h *Handler) parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, errors.New(errors.ErrInvalidPredicate, http.StatusBadRequest, "limit must be a positive integer")
	}
	if parsed > h.maxResults {
		parsed = h.maxResults
	}
	return parsed, nil
}

func parseNonNegative(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, errors.Newf(errors.ErrInvalidPredicate, http.StatusBadRequest, "%s must be a non-negative integer", name)
	}
	return parsed, nil
}

// searchPredicates canonicalises a query into lowercase predicate pairs for
// cache keys and analytics.
func searchPredicates(q query.Query) map[string]string {
	predicates := map[string]string{}
	if q.Performer != "" {
		predicates["singer"] = catalog.Key(q.Performer)
	}
	if q.CategoryID != "" {
		predicates["category"] = q.CategoryID
	}
	if q.NameContains != "" {
		predicates["name"] = catalog.Key(q.NameContains)
	}
	for role, name := range q.Roles {
		predicates[string(role)] = catalog.Key(name)
	}
	return predicates
}

// cacheParams renders predicates plus limit as a stable string.
func cacheParams(predicates map[string]string, limit int) string {
	keys := make([]string, 0, len(predicates))
	for k := range predicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(predicates[k])
		b.WriteByte('&')
	}
	fmt.Fprintf(&b, "limit=%d", limit)
	return b.String()
}

// track reports one served query to metrics and the analytics collector.
// start is when the handler began work; status is the HTTP status written.
func (h *Handler) track(r *http.Request, op analytics.Operation, predicates map[string]string, results int, cacheHit bool, start time.Time, status int) {
	if results < 0 {
		results = 0
	}
	elapsed := time.Since(start)

	if h.metrics != nil {
		outcome := "ok"
		if status >= http.StatusBadRequest {
			outcome = "error"
		}
		h.metrics.QueriesTotal.WithLabelValues(string(op), outcome).Inc()
		h.metrics.QueryLatency.WithLabelValues(string(op)).Observe(elapsed.Seconds())
		h.metrics.QueryResultsCount.Observe(float64(results))
	}

	if h.tracker == nil {
		return
	}
	h.tracker.Track(analytics.QueryEvent{
		Operation:  op,
		Predicates: predicates,
		Results:    results,
		LatencyMs:  elapsed.Seconds() * 1000,
		CacheHit:   cacheHit,
		Status:     status,
		RequestID:  logger.RequestIDFromContext(r.Context()),
		Timestamp:  time.Now().UTC(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
