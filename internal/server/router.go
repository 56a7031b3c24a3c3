package server

import (
	"net/http"
	"time"

	"github.com/yoavkarmi/songdex/internal/analytics"
	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/pkg/health"
	"github.com/yoavkarmi/songdex/pkg/metrics"
	"github.com/yoavkarmi/songdex/pkg/middleware"
)

// NewRouter builds the full API handler with its middleware chain.
//
// Route table:
//
//	GET  /api/v1/songs                  → list songs (paginated)
//	GET  /api/v1/songs/{id}             → point lookup
//	GET  /api/v1/songs/{id}/lyrics      → fetch lyrics markup (upstream)
//	GET  /api/v1/songs/{id}/video       → fetch video metadata (upstream)
//	GET  /api/v1/search                 → multi-predicate search
//	GET  /api/v1/categories             → category list with counts
//	GET  /api/v1/categories/{id}/songs  → songs in one category
//	GET  /api/v1/artists                → performers with song counts
//	GET  /api/v1/composers              → composers with song counts
//	GET  /api/v1/lyricists              → lyricists with song counts
//	GET  /api/v1/translators            → translators with song counts
//	GET  /api/v1/collaborations         → lyricist×composer pairs
//	GET  /api/v1/discovery              → ranked random sample
//	GET  /api/v1/stats                  → catalog totals
//	GET  /api/v1/analytics              → aggregated query traffic
//	GET  /api/v1/cache/stats            → response-cache hit rates
//	POST /api/v1/cache/invalidate       → drop cached responses
//	GET  /health/live, /health/ready    → probes
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → CORS → Timeout → mux
func NewRouter(h *Handler, analyticsH *analytics.Handler, checker *health.Checker, m *metrics.Metrics, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/songs", h.ListSongs)
	mux.HandleFunc("GET /api/v1/songs/{id}", h.GetSong)
	mux.HandleFunc("GET /api/v1/songs/{id}/lyrics", h.SongLyrics)
	mux.HandleFunc("GET /api/v1/songs/{id}/video", h.SongVideo)

	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/categories", h.Categories)
	mux.HandleFunc("GET /api/v1/categories/{id}/songs", h.CategorySongs)

	mux.HandleFunc("GET /api/v1/artists", h.Artists)
	mux.HandleFunc("GET /api/v1/composers", h.Contributors(catalog.RoleComposer))
	mux.HandleFunc("GET /api/v1/lyricists", h.Contributors(catalog.RoleLyricist))
	mux.HandleFunc("GET /api/v1/translators", h.Contributors(catalog.RoleTranslator))

	mux.HandleFunc("GET /api/v1/collaborations", h.Collaborations)
	mux.HandleFunc("GET /api/v1/discovery", h.Discovery)
	mux.HandleFunc("GET /api/v1/stats", h.CatalogStats)

	if analyticsH != nil {
		mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	}
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(timeout)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
