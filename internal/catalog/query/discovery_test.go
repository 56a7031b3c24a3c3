package query

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

func discoveryEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	songs := []*catalog.Song{
		{ID: 1, Name: "Aleph", Performer: "P1", Composers: []string{"C1"}, Lyricists: []string{"L1"}, CategoryIDs: []string{"heb"}},
		{ID: 2, Name: "Bet", Performer: "P1", Composers: []string{"C1"}, Lyricists: []string{"L2"}, CategoryIDs: []string{"heb"}},
		{ID: 3, Name: "Gimel", Performer: "P2", Composers: []string{"C2"}, Lyricists: []string{"L1"}, CategoryIDs: []string{"heb"}},
		{ID: 4, Name: "Delta", Performer: "P3", Composers: []string{"C3"}, Lyricists: []string{"L3"}, CategoryIDs: []string{"eng"}},
		{ID: 5, Name: "Echo", Performer: "P4", Composers: []string{"C1"}, Lyricists: []string{"L1"}, CategoryIDs: []string{"eng"}},
	}
	st, err := store.New(songs, []*catalog.Category{
		{ID: "heb", Name: "Hebrew"},
		{ID: "eng", Name: "English"},
	}, catalog.Meta{})
	require.NoError(t, err)
	return New(st,
		WithLanguages(map[string][]string{
			"hebrew":  {"heb"},
			"english": {"eng"},
		}),
		WithRandSource(rand.NewSource(seed)),
	)
}

func TestRandomDiscoveryRespectsCount(t *testing.T) {
	e := discoveryEngine(t, 1)

	d, err := e.RandomDiscovery("any", 3)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(d.Songs), 3)
	assert.LessOrEqual(t, len(d.Performers), 3)
	assert.LessOrEqual(t, len(d.Composers), 3)
	assert.LessOrEqual(t, len(d.Lyricists), 3)
	assert.Equal(t, len(d.Songs), d.Counts["songs"])
	assert.Equal(t, len(d.Performers), d.Counts["artists"])
	assert.Equal(t, len(d.Composers), d.Counts["composers"])
	assert.Equal(t, len(d.Lyricists), d.Counts["lyricists"])
}

func TestRandomDiscoveryNoDuplicates(t *testing.T) {
	e := discoveryEngine(t, 2)

	d, err := e.RandomDiscovery("any", 5)
	require.NoError(t, err)

	seenSongs := map[int64]bool{}
	for _, s := range d.Songs {
		assert.False(t, seenSongs[s.ID], "song %d sampled twice", s.ID)
		seenSongs[s.ID] = true
	}
	seenNames := map[string]bool{}
	for _, n := range d.Composers {
		key := catalog.Key(n.Name)
		assert.False(t, seenNames[key], "composer %q sampled twice", n.Name)
		seenNames[key] = true
	}
}

func TestRandomDiscoveryPoolSmallerThanCount(t *testing.T) {
	e := discoveryEngine(t, 3)

	d, err := e.RandomDiscovery("any", 50)
	require.NoError(t, err)
	assert.Len(t, d.Songs, 5, "whole pool, no error")
	assert.Len(t, d.Performers, 4)
	assert.Len(t, d.Composers, 3)
	assert.Len(t, d.Lyricists, 3)
}

func TestRandomDiscoveryLanguageFilter(t *testing.T) {
	e := discoveryEngine(t, 4)

	d, err := e.RandomDiscovery("Hebrew", 10)
	require.NoError(t, err)
	require.Len(t, d.Songs, 3)
	for _, s := range d.Songs {
		assert.Contains(t, s.CategoryIDs, "heb")
	}
	assert.Equal(t, "hebrew", d.LanguageFilter)

	// Contributors come from the filtered pool only: P4 performs no Hebrew
	// song.
	for _, n := range d.Performers {
		assert.NotEqual(t, "P4", n.Name)
	}
}

func TestRandomDiscoveryLanguageAnyAndBoth(t *testing.T) {
	e := discoveryEngine(t, 5)

	for _, tag := range []string{"any", "both", ""} {
		d, err := e.RandomDiscovery(tag, 10)
		require.NoError(t, err, "tag %q", tag)
		assert.Len(t, d.Songs, 5, "tag %q disables filtering", tag)
	}
}

func TestRandomDiscoveryUnknownLanguage(t *testing.T) {
	e := discoveryEngine(t, 6)

	_, err := e.RandomDiscovery("klingon", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPredicate))
}

func TestRandomDiscoveryInvalidCount(t *testing.T) {
	e := discoveryEngine(t, 7)

	for _, count := range []int{0, -3} {
		_, err := e.RandomDiscovery("any", count)
		require.Error(t, err, "count %d", count)
		assert.True(t, errors.Is(err, errors.ErrInvalidPredicate))
	}
}

func TestRandomDiscoveryDeterministicWithSeed(t *testing.T) {
	first, err := discoveryEngine(t, 42).RandomDiscovery("any", 3)
	require.NoError(t, err)
	second, err := discoveryEngine(t, 42).RandomDiscovery("any", 3)
	require.NoError(t, err)

	require.Equal(t, len(first.Songs), len(second.Songs))
	for i := range first.Songs {
		assert.Equal(t, first.Songs[i].ID, second.Songs[i].ID)
	}
	assert.Equal(t, first.Performers, second.Performers)
}

func TestRandomDiscoverySortedByFame(t *testing.T) {
	e := discoveryEngine(t, 8)

	d, err := e.RandomDiscovery("any", 5)
	require.NoError(t, err)

	for i := 1; i < len(d.Songs); i++ {
		assert.GreaterOrEqual(t, d.Songs[i-1].FameScore, d.Songs[i].FameScore)
	}
	for i := 1; i < len(d.Composers); i++ {
		assert.GreaterOrEqual(t, d.Composers[i-1].FameScore, d.Composers[i].FameScore)
	}
}
