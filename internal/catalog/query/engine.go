// Package query composes the store, the inverted indexes, the collaboration
// cache, and the ranking engine into the catalog's query surface: point
// lookup, filtered search, collaboration lookup, ranked random discovery,
// and stats.
package query

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/collab"
	"github.com/yoavkarmi/songdex/internal/catalog/index"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

// Engine serves every catalog query over structures built once at
// construction. All reads are lock-free; only the discovery RNG is guarded.
type Engine struct {
	store   *store.Store
	idx     *index.Set
	collabs *collab.Cache

	// languages maps a language tag to the category IDs that count as
	// that language for random discovery.
	languages map[string][]string

	rngMu  sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages sets the language tag to category-ID mapping used by
// RandomDiscovery.
func WithLanguages(languages map[string][]string) Option {
	return func(e *Engine) {
		e.languages = make(map[string][]string, len(languages))
		for tag, ids := range languages {
			e.languages[catalog.Key(tag)] = ids
		}
	}
}

// WithRandSource replaces the discovery sampling source. Tests use this to
// make sampling deterministic.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) {
		e.rng = rand.New(src)
	}
}

// New builds the indexes and the collaboration cache from the store and
// returns a ready engine. Construction cannot fail for a validated store.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: slog.Default().With("component", "query-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.idx = index.Build(st)
	e.collabs = collab.Build(st)
	return e
}

// Indexes exposes the built index set (read-only).
func (e *Engine) Indexes() *index.Set {
	return e.idx
}

// Collaborations exposes the built collaboration cache (read-only).
func (e *Engine) Collaborations() *collab.Cache {
	return e.collabs
}

// Store exposes the underlying record store (read-only).
func (e *Engine) Store() *store.Store {
	return e.store
}

// ByID returns the song with the given id.
func (e *Engine) ByID(id int64) (*catalog.Song, error) {
	return e.store.Get(id)
}

// ByPerformer returns every song by the performer, case-insensitively, in
// load order. No match yields an empty sequence, not an error.
func (e *Engine) ByPerformer(name string) []*catalog.Song {
	return e.store.Resolve(e.idx.Performer.Lookup(name))
}

// ByCategory returns every song in the category, in load order.
func (e *Engine) ByCategory(categoryID string) []*catalog.Song {
	return e.store.Resolve(e.idx.Category.Lookup(categoryID))
}

// ByRole returns every song crediting name under the given contributor
// role, in load order. An unknown role is an invalid predicate.
func (e *Engine) ByRole(role catalog.Role, name string) ([]*catalog.Song, error) {
	if !catalog.KnownRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", errors.ErrInvalidPredicate, role)
	}
	return e.store.Resolve(e.idx.Role[role].Lookup(name)), nil
}

// AllSongs returns the full collection in load order with optional
// pagination. offset past the end yields an empty slice.
func (e *Engine) AllSongs(limit, offset int) []*catalog.Song {
	songs := e.store.All()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(songs) {
		return []*catalog.Song{}
	}
	songs = songs[offset:]
	if limit > 0 && len(songs) > limit {
		songs = songs[:limit]
	}
	return songs
}

// NameCount pairs a contributor's display name with their song count.
type NameCount struct {
	Name      string `json:"name"`
	SongCount int    `json:"song_count"`
}

// Performers lists every distinct performer with song counts, sorted by
// name.
func (e *Engine) Performers() []NameCount {
	return nameCounts(e.idx.Performer)
}

// RoleContributors lists every distinct contributor for the role with song
// counts, sorted by name.
func (e *Engine) RoleContributors(role catalog.Role) ([]NameCount, error) {
	if !catalog.KnownRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", errors.ErrInvalidPredicate, role)
	}
	return nameCounts(e.idx.Role[role]), nil
}

func nameCounts(ix *index.Index) []NameCount {
	entries := ix.Entries()
	out := make([]NameCount, 0, len(entries))
	for _, entry := range entries {
		out = append(out, NameCount{Name: entry.Display, SongCount: entry.Count()})
	}
	return out
}

// AllPairs returns collaborations sorted by song count descending, ties in
// first-seen order.
func (e *Engine) AllPairs(limit int) []*collab.Pair {
	return e.collabs.All(limit)
}

// PairFor returns one directional collaboration with resolved songs.
func (e *Engine) PairFor(lyricist, composer string) (*collab.Resolved, error) {
	return e.collabs.PairFor(lyricist, composer)
}

// PairsByLyricist returns every collaboration for the lyricist side.
func (e *Engine) PairsByLyricist(name string) []*collab.Pair {
	return e.collabs.ByLyricist(name)
}

// PairsByComposer returns every collaboration for the composer side.
func (e *Engine) PairsByComposer(name string) []*collab.Pair {
	return e.collabs.ByComposer(name)
}

// Query is the conjunctive predicate set for Search. Zero-valued fields are
// not applied.
type Query struct {
	Performer    string
	CategoryID   string
	NameContains string
	Roles        map[catalog.Role]string
}

// Search intersects the candidate lists of every supplied predicate,
// smallest index first, then applies the free-text name filter. Results are
// always in ascending-ID order regardless of predicate order.
func (e *Engine) Search(q Query) ([]*catalog.Song, error) {
	for role := range q.Roles {
		if !catalog.KnownRole(role) {
			return nil, fmt.Errorf("%w: unknown role %q", errors.ErrInvalidPredicate, role)
		}
	}

	var candidateLists [][]int64
	if catalog.Key(q.Performer) != "" {
		candidateLists = append(candidateLists, e.idx.Performer.Lookup(q.Performer))
	}
	if catalog.Key(q.CategoryID) != "" {
		candidateLists = append(candidateLists, e.idx.Category.Lookup(q.CategoryID))
	}
	for _, role := range catalog.Roles {
		if name, ok := q.Roles[role]; ok && catalog.Key(name) != "" {
			candidateLists = append(candidateLists, e.idx.Role[role].Lookup(name))
		}
	}

	var ids []int64
	if len(candidateLists) == 0 {
		all := e.store.All()
		ids = make([]int64, 0, len(all))
		for _, song := range all {
			ids = append(ids, song.ID)
		}
	} else {
		ids = intersect(candidateLists)
	}

	needle := strings.ToLower(strings.TrimSpace(q.NameContains))
	songs := make([]*catalog.Song, 0, len(ids))
	for _, song := range e.store.Resolve(ids) {
		if needle != "" && !strings.Contains(strings.ToLower(song.Name), needle) {
			continue
		}
		songs = append(songs, song)
	}

	sort.Slice(songs, func(i, j int) bool { return songs[i].ID < songs[j].ID })
	return songs, nil
}

// intersect computes the conjunction of the candidate lists, iterating the
// smallest list and probing the rest as sets.
func intersect(lists [][]int64) []int64 {
	sort.Slice(lists, func(i, j int) bool { return len(lists[i]) < len(lists[j]) })
	if len(lists[0]) == 0 {
		return nil
	}

	probes := make([]map[int64]struct{}, 0, len(lists)-1)
	for _, list := range lists[1:] {
		set := make(map[int64]struct{}, len(list))
		for _, id := range list {
			set[id] = struct{}{}
		}
		probes = append(probes, set)
	}

	out := make([]int64, 0, len(lists[0]))
next:
	for _, id := range lists[0] {
		for _, set := range probes {
			if _, ok := set[id]; !ok {
				continue next
			}
		}
		out = append(out, id)
	}
	return out
}

// CategoryCount reports a category with its song count.
type CategoryCount struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SongCount int    `json:"song_count"`
}

// Stats is the catalog-wide summary.
type Stats struct {
	TotalSongs          int             `json:"total_songs"`
	TotalPerformers     int             `json:"total_artists"`
	TotalComposers      int             `json:"total_composers"`
	TotalLyricists      int             `json:"total_lyricists"`
	TotalTranslators    int             `json:"total_translators"`
	TotalCollaborations int             `json:"total_collaborations"`
	TotalCategories     int             `json:"total_categories"`
	Title               string          `json:"title,omitempty"`
	Version             string          `json:"version,omitempty"`
	Categories          []CategoryCount `json:"categories"`
}

// Stats returns totals over the loaded catalog and built structures.
func (e *Engine) Stats() Stats {
	meta := e.store.Meta()
	stats := Stats{
		TotalSongs:          e.store.Len(),
		TotalPerformers:     e.idx.Performer.Len(),
		TotalComposers:      e.idx.Role[catalog.RoleComposer].Len(),
		TotalLyricists:      e.idx.Role[catalog.RoleLyricist].Len(),
		TotalTranslators:    e.idx.Role[catalog.RoleTranslator].Len(),
		TotalCollaborations: e.collabs.Len(),
		TotalCategories:     len(e.store.Categories()),
		Title:               meta.Title,
		Version:             meta.Version,
	}
	for _, cat := range e.store.Categories() {
		stats.Categories = append(stats.Categories, CategoryCount{
			ID:        cat.ID,
			Name:      cat.Name,
			SongCount: len(e.idx.Category.Lookup(cat.ID)),
		})
	}
	return stats
}
