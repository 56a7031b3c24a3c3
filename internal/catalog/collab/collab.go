// Package collab derives the lyricist-composer collaboration relation from
// the loaded songs: for every song, the full cartesian product of its
// lyricist and composer lists, keyed by the ordered pair of normalized
// names. Built once, read-only afterwards.
package collab

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

// Pair is one directional (lyricist, composer) collaboration. Lyricist and
// Composer carry the first-seen display casing; SongIDs is duplicate-free
// in first-encountered order.
type Pair struct {
	Lyricist  string  `json:"lyricist"`
	Composer  string  `json:"composer"`
	SongCount int     `json:"song_count"`
	SongIDs   []int64 `json:"song_ids"`

	lyricistKey string
	composerKey string
}

// Self reports whether the pair's two names are identical after
// normalization: one person wrote both lyrics and music.
func (p *Pair) Self() bool {
	return p.lyricistKey == p.composerKey
}

// Resolved is a Pair with the member songs materialized.
type Resolved struct {
	Pair
	Songs []*catalog.Song `json:"songs"`
}

type pairKey struct {
	lyricist string
	composer string
}

// Cache holds every collaboration pair, keyed by normalized name pair, plus
// the build (first-seen) order used for tie-breaking.
type Cache struct {
	pairs map[pairKey]*Pair
	order []*Pair
	store *store.Store
}

// Build walks every song and accumulates the pair map. A song missing
// either list contributes no pairs; a song with L lyricists and M composers
// contributes exactly L×M pair memberships.
func Build(st *store.Store) *Cache {
	c := &Cache{
		pairs: make(map[pairKey]*Pair),
		store: st,
	}

	for _, song := range st.All() {
		for _, lyricist := range song.Lyricists {
			lyrKey := catalog.Key(lyricist)
			if lyrKey == "" {
				continue
			}
			for _, composer := range song.Composers {
				compKey := catalog.Key(composer)
				if compKey == "" {
					continue
				}
				key := pairKey{lyricist: lyrKey, composer: compKey}
				p, ok := c.pairs[key]
				if !ok {
					p = &Pair{
						Lyricist:    lyricist,
						Composer:    composer,
						lyricistKey: lyrKey,
						composerKey: compKey,
					}
					c.pairs[key] = p
					c.order = append(c.order, p)
				}
				if n := len(p.SongIDs); n > 0 && p.SongIDs[n-1] == song.ID {
					continue
				}
				p.SongIDs = append(p.SongIDs, song.ID)
				p.SongCount++
			}
		}
	}

	slog.Default().With("component", "collab-cache").Info("collaboration cache built",
		"pairs", len(c.order),
	)
	return c
}

// Len returns the number of distinct pairs.
func (c *Cache) Len() int {
	return len(c.order)
}

// All returns every pair sorted by song count descending; ties keep
// first-seen (build) order. A positive limit truncates the result.
func (c *Cache) All(limit int) []*Pair {
	out := make([]*Pair, len(c.order))
	copy(out, c.order)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SongCount > out[j].SongCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PairFor looks up one directional pair by lyricist and composer name
// (normalized on both sides) and resolves its member songs.
func (c *Cache) PairFor(lyricist, composer string) (*Resolved, error) {
	key := pairKey{lyricist: catalog.Key(lyricist), composer: catalog.Key(composer)}
	p, ok := c.pairs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s / %s", errors.ErrCollaborationNotFound, lyricist, composer)
	}
	return &Resolved{
		Pair:  *p,
		Songs: c.store.Resolve(p.SongIDs),
	}, nil
}

// ByLyricist returns every pair whose lyricist side matches the given name,
// sorted by song count descending with first-seen tiebreak.
func (c *Cache) ByLyricist(name string) []*Pair {
	return c.filter(func(p *Pair) bool { return p.lyricistKey == catalog.Key(name) })
}

// ByComposer returns every pair whose composer side matches the given name,
// sorted by song count descending with first-seen tiebreak.
func (c *Cache) ByComposer(name string) []*Pair {
	return c.filter(func(p *Pair) bool { return p.composerKey == catalog.Key(name) })
}

func (c *Cache) filter(keep func(*Pair) bool) []*Pair {
	out := make([]*Pair, 0)
	for _, p := range c.order {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SongCount > out[j].SongCount
	})
	return out
}
