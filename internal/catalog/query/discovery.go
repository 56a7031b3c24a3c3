package query

import (
	"fmt"
	"sort"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/index"
	"github.com/yoavkarmi/songdex/internal/catalog/rank"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

// Language tags that disable category filtering.
const (
	LanguageAny  = "any"
	LanguageBoth = "both"
)

// ScoredSong is a song annotated with its composite fame score.
type ScoredSong struct {
	*catalog.Song
	FameScore int `json:"fame_score"`
}

// ScoredName is a contributor annotated with fame score and song count.
type ScoredName struct {
	Name      string `json:"name"`
	FameScore int    `json:"fame_score"`
	SongCount int    `json:"song_count"`
}

// Discovery is one random discovery result. Every list is de-duplicated,
// at most count long, and sorted by fame descending with normalized-name
// ascending tiebreak.
type Discovery struct {
	LanguageFilter string         `json:"language_filter"`
	Songs          []ScoredSong   `json:"songs"`
	Performers     []ScoredName   `json:"artists"`
	Composers      []ScoredName   `json:"composers"`
	Lyricists      []ScoredName   `json:"lyricists"`
	Counts         map[string]int `json:"counts"`
}

// RandomDiscovery samples songs and contributors from the language-filtered
// candidate pool, without replacement, and annotates every item with its
// fame score. A pool smaller than count yields the whole pool.
func (e *Engine) RandomDiscovery(language string, count int) (*Discovery, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", errors.ErrInvalidPredicate, count)
	}

	tag := catalog.Key(language)
	pool, err := e.languagePool(tag)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		tag = LanguageAny
	}

	performers := newNamePool(e.idx.Performer)
	composers := newNamePool(e.idx.Role[catalog.RoleComposer])
	lyricists := newNamePool(e.idx.Role[catalog.RoleLyricist])
	for _, song := range pool {
		performers.collect(song.Performer)
		for _, name := range song.Composers {
			composers.collect(name)
		}
		for _, name := range song.Lyricists {
			lyricists.collect(name)
		}
	}

	e.rngMu.Lock()
	sampledSongs := sample(pool, count, e.rng.Intn)
	sampledPerformers := sample(performers.names, count, e.rng.Intn)
	sampledComposers := sample(composers.names, count, e.rng.Intn)
	sampledLyricists := sample(lyricists.names, count, e.rng.Intn)
	e.rngMu.Unlock()

	scorer := rank.NewScorer(e.idx)

	songs := make([]ScoredSong, 0, len(sampledSongs))
	for _, song := range sampledSongs {
		songs = append(songs, ScoredSong{Song: song, FameScore: scorer.SongFame(song)})
	}
	sort.Slice(songs, func(i, j int) bool {
		if songs[i].FameScore != songs[j].FameScore {
			return songs[i].FameScore > songs[j].FameScore
		}
		ki, kj := catalog.Key(songs[i].Name), catalog.Key(songs[j].Name)
		if ki != kj {
			return ki < kj
		}
		return songs[i].ID < songs[j].ID
	})

	result := &Discovery{
		LanguageFilter: tag,
		Songs:          songs,
		Performers:     scoreNames(sampledPerformers, e.idx.Performer, scorer.PerformerFame),
		Composers: scoreNames(sampledComposers, e.idx.Role[catalog.RoleComposer], func(name string) int {
			return scorer.RoleFame(catalog.RoleComposer, name)
		}),
		Lyricists: scoreNames(sampledLyricists, e.idx.Role[catalog.RoleLyricist], func(name string) int {
			return scorer.RoleFame(catalog.RoleLyricist, name)
		}),
	}
	result.Counts = map[string]int{
		"songs":     len(result.Songs),
		"artists":   len(result.Performers),
		"composers": len(result.Composers),
		"lyricists": len(result.Lyricists),
	}

	e.logger.Debug("random discovery served",
		"language", tag,
		"pool_size", len(pool),
		"count", count,
	)
	return result, nil
}

// languagePool returns the candidate songs for a language tag. Empty, "any",
// and "both" mean no filtering; any other tag must be configured.
func (e *Engine) languagePool(tag string) ([]*catalog.Song, error) {
	if tag == "" || tag == LanguageAny || tag == LanguageBoth {
		return e.store.All(), nil
	}
	categoryIDs, ok := e.languages[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown language %q", errors.ErrInvalidPredicate, tag)
	}
	wanted := make(map[string]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		wanted[catalog.Key(id)] = struct{}{}
	}

	pool := make([]*catalog.Song, 0)
	for _, song := range e.store.All() {
		for _, catID := range song.CategoryIDs {
			if _, ok := wanted[catalog.Key(catID)]; ok {
				pool = append(pool, song)
				break
			}
		}
	}
	return pool, nil
}

// namePool accumulates the distinct normalized names seen in the candidate
// pool, keeping first-seen display casing.
type namePool struct {
	ix    *index.Index
	seen  map[string]struct{}
	names []string
}

func newNamePool(ix *index.Index) *namePool {
	return &namePool{ix: ix, seen: make(map[string]struct{})}
}

func (p *namePool) collect(name string) {
	key := catalog.Key(name)
	if key == "" {
		return
	}
	if _, dup := p.seen[key]; dup {
		return
	}
	p.seen[key] = struct{}{}
	if e, ok := p.ix.Get(name); ok {
		p.names = append(p.names, e.Display)
	} else {
		p.names = append(p.names, name)
	}
}

// sample draws up to count items without replacement using a partial
// Fisher-Yates shuffle over a copy of pool.
func sample[T any](pool []T, count int, intn func(int) int) []T {
	if count > len(pool) {
		count = len(pool)
	}
	scratch := make([]T, len(pool))
	copy(scratch, pool)
	for i := 0; i < count; i++ {
		j := i + intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:count]
}

func scoreNames(names []string, ix *index.Index, fame func(string) int) []ScoredName {
	out := make([]ScoredName, 0, len(names))
	for _, name := range names {
		count := 0
		if e, ok := ix.Get(name); ok {
			count = e.Count()
		}
		out = append(out, ScoredName{
			Name:      name,
			FameScore: fame(name),
			SongCount: count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FameScore != out[j].FameScore {
			return out[i].FameScore > out[j].FameScore
		}
		return catalog.Key(out[i].Name) < catalog.Key(out[j].Name)
	})
	return out
}
