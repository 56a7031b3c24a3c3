// Package rank computes fame scores from index cardinalities. A name's fame
// within a dimension is the percentile of names with strictly fewer songs;
// a song's fame is the weighted composite of its performer, composer, and
// lyricist fames. Scores are pure functions of the built indexes and are
// never persisted.
package rank

import (
	"math"
	"sort"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/index"
)

// Composite song fame weights. A song missing a role keeps these weights;
// the missing term contributes zero.
const (
	performerWeight = 0.60
	composerWeight  = 0.25
	lyricistWeight  = 0.15
)

// Scorer computes fame scores over one immutable index set. Each Scorer
// carries its own memo tables, so a fresh one per request batch is safe
// under concurrency without locking.
type Scorer struct {
	idx    *index.Set
	counts map[string][]int          // dimension -> sorted per-name song counts
	memo   map[string]map[string]int // dimension -> normalized name -> fame
}

// NewScorer creates a Scorer for the given index set.
func NewScorer(idx *index.Set) *Scorer {
	return &Scorer{
		idx:    idx,
		counts: make(map[string][]int),
		memo:   make(map[string]map[string]int),
	}
}

// PerformerFame returns the fame rank of a performer name.
func (s *Scorer) PerformerFame(name string) int {
	return s.fame("performer", s.idx.Performer, name)
}

// RoleFame returns the fame rank of a contributor name within one role's
// index.
func (s *Scorer) RoleFame(role catalog.Role, name string) int {
	ix, ok := s.idx.Role[role]
	if !ok {
		return 0
	}
	return s.fame(string(role), ix, name)
}

// SongFame returns the composite fame of a song: 60% performer, 25% average
// composer, 15% average lyricist. An absent role contributes zero and the
// weights are not renormalized.
func (s *Scorer) SongFame(song *catalog.Song) int {
	score := performerWeight * float64(s.PerformerFame(song.Performer))
	score += composerWeight * s.avgRoleFame(catalog.RoleComposer, song.Composers)
	score += lyricistWeight * s.avgRoleFame(catalog.RoleLyricist, song.Lyricists)
	return clamp(int(math.Round(score)))
}

func (s *Scorer) avgRoleFame(role catalog.Role, names []string) float64 {
	var sum, n float64
	for _, name := range names {
		if catalog.Key(name) == "" {
			continue
		}
		sum += float64(s.RoleFame(role, name))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// fame ranks name against every distinct name in ix: the share of names
// with strictly fewer songs, scaled to [0,100]. A dimension with a single
// distinct name ranks it 100.
func (s *Scorer) fame(dim string, ix *index.Index, name string) int {
	key := catalog.Key(name)
	if key == "" {
		return 0
	}
	if cached, ok := s.memo[dim][key]; ok {
		return cached
	}

	var rank int
	if e, ok := ix.Get(name); !ok {
		// A name with no songs in this dimension ranks below everyone.
		rank = 0
	} else {
		sorted, ok := s.counts[dim]
		if !ok {
			sorted = ix.Counts()
			sort.Ints(sorted)
			s.counts[dim] = sorted
		}
		if len(sorted) <= 1 {
			// The dimension's only name is, by definition, its most famous.
			rank = 100
		} else {
			below := sort.SearchInts(sorted, e.Count())
			rank = clamp(int(math.Round(100 * float64(below) / float64(len(sorted)))))
		}
	}

	if s.memo[dim] == nil {
		s.memo[dim] = make(map[string]int)
	}
	s.memo[dim][key] = rank
	return rank
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
