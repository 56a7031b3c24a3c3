// Package index builds the single-key inverted indexes the query engine
// runs on: one per lookup dimension (performer, category, and each
// contributor role). Indexes are built once from the store and are
// immutable afterwards, so concurrent reads need no locking.
package index

import (
	"log/slog"
	"sort"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
)

// Entry is one key of an index: the normalized key, the display casing of
// the first occurrence, and the song IDs in first-encountered (load) order
// with no duplicates.
type Entry struct {
	Key     string
	Display string
	IDs     []int64
}

// Count returns the number of songs under this key.
func (e *Entry) Count() int {
	return len(e.IDs)
}

// Index maps normalized keys to song ID sequences for one dimension.
type Index struct {
	entries map[string]*Entry
	order   []*Entry
}

func newIndex() *Index {
	return &Index{entries: make(map[string]*Entry)}
}

// add appends id under the normalized form of value. Within one build pass
// the same song may list a name twice; the append is skipped when id is
// already the last one recorded for the key.
func (ix *Index) add(value string, id int64) {
	key := catalog.Key(value)
	if key == "" {
		return
	}
	e, ok := ix.entries[key]
	if !ok {
		e = &Entry{Key: key, Display: value}
		ix.entries[key] = e
		ix.order = append(ix.order, e)
	}
	if n := len(e.IDs); n > 0 && e.IDs[n-1] == id {
		return
	}
	e.IDs = append(e.IDs, id)
}

// Lookup returns the ID sequence for value after normalization, or nil when
// the key is absent.
func (ix *Index) Lookup(value string) []int64 {
	if e, ok := ix.entries[catalog.Key(value)]; ok {
		return e.IDs
	}
	return nil
}

// Get returns the full entry for value after normalization.
func (ix *Index) Get(value string) (*Entry, bool) {
	e, ok := ix.entries[catalog.Key(value)]
	return e, ok
}

// Len returns the number of distinct keys.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns every entry sorted by display name. Used by the listing
// endpoints (all artists, all composers, ...).
func (ix *Index) Entries() []*Entry {
	out := make([]*Entry, len(ix.order))
	copy(out, ix.order)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Display < out[j].Display
	})
	return out
}

// Counts returns the per-key song counts in unspecified order. The ranking
// engine consumes this as a frequency multiset.
func (ix *Index) Counts() []int {
	counts := make([]int, 0, len(ix.order))
	for _, e := range ix.order {
		counts = append(counts, len(e.IDs))
	}
	return counts
}

// Set holds all built indexes.
type Set struct {
	Performer *Index
	Category  *Index
	Role      map[catalog.Role]*Index
}

// Build constructs every index in a single pass per dimension over the
// store. It cannot fail for a validated store: a song with an empty value
// for a dimension simply contributes nothing to that dimension's index.
func Build(st *store.Store) *Set {
	s := &Set{
		Performer: newIndex(),
		Category:  newIndex(),
		Role:      make(map[catalog.Role]*Index, len(catalog.Roles)),
	}
	for _, role := range catalog.Roles {
		s.Role[role] = newIndex()
	}

	for _, song := range st.All() {
		s.Performer.add(song.Performer, song.ID)
		for _, catID := range song.CategoryIDs {
			s.Category.add(catID, song.ID)
		}
		for _, role := range catalog.Roles {
			for _, name := range song.RoleNames(role) {
				s.Role[role].add(name, song.ID)
			}
		}
	}

	slog.Default().With("component", "index-builder").Info("indexes built",
		"performers", s.Performer.Len(),
		"categories", s.Category.Len(),
		"composers", s.Role[catalog.RoleComposer].Len(),
		"lyricists", s.Role[catalog.RoleLyricist].Len(),
		"translators", s.Role[catalog.RoleTranslator].Len(),
	)
	return s
}
