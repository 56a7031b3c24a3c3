package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

func buildCache(t *testing.T, songs []*catalog.Song) *Cache {
	t.Helper()
	st, err := store.New(songs, nil, catalog.Meta{})
	require.NoError(t, err)
	return Build(st)
}

func TestBuildCartesianProduct(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{
			ID: 1, Name: "Song",
			Lyricists: []string{"L1", "L2"},
			Composers: []string{"C1", "C2"},
		},
	})

	require.Equal(t, 4, c.Len(), "two lyricists x two composers")
	for _, pair := range [][2]string{{"L1", "C1"}, {"L1", "C2"}, {"L2", "C1"}, {"L2", "C2"}} {
		resolved, err := c.PairFor(pair[0], pair[1])
		require.NoError(t, err, "pair %v", pair)
		assert.Equal(t, []int64{1}, resolved.SongIDs)
	}
}

func TestPairsAreDirectional(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{ID: 1, Name: "Song", Lyricists: []string{"Alterman"}, Composers: []string{"Argov"}},
	})

	_, err := c.PairFor("Alterman", "Argov")
	require.NoError(t, err)

	_, err = c.PairFor("Argov", "Alterman")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCollaborationNotFound))
}

func TestSelfPair(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{ID: 1, Name: "Song", Lyricists: []string{"Naomi Shemer"}, Composers: []string{"naomi shemer"}},
	})

	require.Equal(t, 1, c.Len())
	resolved, err := c.PairFor("NAOMI SHEMER", "Naomi Shemer")
	require.NoError(t, err)
	assert.True(t, resolved.Self())
}

func TestSameSongCountedOnce(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{
			ID: 1, Name: "Song",
			Lyricists: []string{"Shemer", "shemer "},
			Composers: []string{"Argov", "ARGOV"},
		},
	})

	require.Equal(t, 1, c.Len())
	resolved, err := c.PairFor("shemer", "argov")
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.SongCount)
	assert.Equal(t, []int64{1}, resolved.SongIDs)
}

func TestDisplayCasingIsFirstSeen(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{ID: 1, Name: "A", Lyricists: []string{"aLTERMAN"}, Composers: []string{"Wilensky"}},
		{ID: 2, Name: "B", Lyricists: []string{"Alterman"}, Composers: []string{"wilensky"}},
	})

	resolved, err := c.PairFor("alterman", "wilensky")
	require.NoError(t, err)
	assert.Equal(t, "aLTERMAN", resolved.Lyricist)
	assert.Equal(t, "Wilensky", resolved.Composer)
	assert.Equal(t, []int64{1, 2}, resolved.SongIDs)
}

func TestPairForResolvesSongs(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{ID: 1, Name: "First", Lyricists: []string{"L"}, Composers: []string{"C"}},
		{ID: 2, Name: "Second", Lyricists: []string{"L"}, Composers: []string{"C"}},
	})

	resolved, err := c.PairFor("l", "c")
	require.NoError(t, err)
	require.Len(t, resolved.Songs, 2)
	assert.Equal(t, "First", resolved.Songs[0].Name)
	assert.Equal(t, "Second", resolved.Songs[1].Name)
}

func TestAllSortsByCountWithFirstSeenTies(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{ID: 1, Name: "A", Lyricists: []string{"L1"}, Composers: []string{"C1"}},
		{ID: 2, Name: "B", Lyricists: []string{"L2"}, Composers: []string{"C2"}},
		{ID: 3, Name: "C", Lyricists: []string{"L3"}, Composers: []string{"C3"}},
		{ID: 4, Name: "D", Lyricists: []string{"L2"}, Composers: []string{"C2"}},
	})

	all := c.All(0)
	require.Len(t, all, 3)
	assert.Equal(t, "L2", all[0].Lyricist, "largest pair first")
	assert.Equal(t, "L1", all[1].Lyricist, "ties keep first-seen order")
	assert.Equal(t, "L3", all[2].Lyricist)

	assert.Len(t, c.All(2), 2)
}

func TestByLyricistAndByComposer(t *testing.T) {
	c := buildCache(t, []*catalog.Song{
		{ID: 1, Name: "A", Lyricists: []string{"L1"}, Composers: []string{"C1"}},
		{ID: 2, Name: "B", Lyricists: []string{"L1"}, Composers: []string{"C2"}},
		{ID: 3, Name: "C", Lyricists: []string{"L2"}, Composers: []string{"C1"}},
	})

	byL := c.ByLyricist(" l1 ")
	require.Len(t, byL, 2)
	for _, p := range byL {
		assert.Equal(t, "L1", p.Lyricist)
	}

	byC := c.ByComposer("c1")
	require.Len(t, byC, 2)
	for _, p := range byC {
		assert.Equal(t, "C1", p.Composer)
	}

	assert.Empty(t, c.ByLyricist("missing"))
}
