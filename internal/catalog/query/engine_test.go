package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

// threeSongEngine is the canonical small catalog used across engine tests:
// two songs by the same performer in different casings, a self-collaboration,
// and a third unrelated song.
func threeSongEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	st, err := store.New([]*catalog.Song{
		{ID: 1, Name: "Rain Song", Performer: "A", Lyricists: []string{"Y"}, Composers: []string{"X"}, CategoryIDs: []string{"heb"}},
		{ID: 2, Name: "Sun Song", Performer: "a", Lyricists: []string{"X"}, Composers: []string{"X"}, CategoryIDs: []string{"heb"}},
		{ID: 3, Name: "Moon Song", Performer: "B", Lyricists: []string{"Z"}, Composers: []string{"W"}, CategoryIDs: []string{"eng"}},
	}, []*catalog.Category{
		{ID: "heb", Name: "Hebrew"},
		{ID: "eng", Name: "English"},
	}, catalog.Meta{Title: "Fixture", Version: "1"})
	require.NoError(t, err)
	return New(st, opts...)
}

func songIDs(songs []*catalog.Song) []int64 {
	ids := make([]int64, 0, len(songs))
	for _, s := range songs {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestByID(t *testing.T) {
	e := threeSongEngine(t)

	song, err := e.ByID(2)
	require.NoError(t, err)
	assert.Equal(t, "Sun Song", song.Name)

	_, err = e.ByID(404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSongNotFound))
}

func TestByPerformerMergesCasings(t *testing.T) {
	e := threeSongEngine(t)

	assert.Equal(t, []int64{1, 2}, songIDs(e.ByPerformer("a")))
	assert.Equal(t, []int64{1, 2}, songIDs(e.ByPerformer("A")))
	assert.Empty(t, e.ByPerformer("nobody"))
}

func TestByRole(t *testing.T) {
	e := threeSongEngine(t)

	songs, err := e.ByRole(catalog.RoleComposer, "x")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, songIDs(songs))

	_, err = e.ByRole(catalog.Role("producer"), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPredicate))
}

func TestCollaborationPairs(t *testing.T) {
	e := threeSongEngine(t)

	yx, err := e.PairFor("y", "x")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, yx.SongIDs)
	assert.False(t, yx.Self())

	xx, err := e.PairFor("x", "x")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, xx.SongIDs)
	assert.True(t, xx.Self(), "one person wrote both lyrics and music")

	_, err = e.PairFor("x", "y")
	require.Error(t, err, "pairs are directional")
	assert.True(t, errors.Is(err, errors.ErrCollaborationNotFound))
}

func TestSearchConjunction(t *testing.T) {
	e := threeSongEngine(t)

	songs, err := e.Search(Query{
		Performer: "A",
		Roles:     map[catalog.Role]string{catalog.RoleLyricist: "Y"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, songIDs(songs))
}

func TestSearchNoPredicatesReturnsAllAscending(t *testing.T) {
	e := threeSongEngine(t)

	songs, err := e.Search(Query{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, songIDs(songs))
}

func TestSearchResultOrderIsPredicateIndependent(t *testing.T) {
	e := threeSongEngine(t)

	first, err := e.Search(Query{Performer: "a", CategoryID: "heb"})
	require.NoError(t, err)
	second, err := e.Search(Query{CategoryID: "heb", Performer: "a"})
	require.NoError(t, err)

	assert.Equal(t, songIDs(first), songIDs(second))
	assert.Equal(t, []int64{1, 2}, songIDs(first))
}

func TestSearchNameSubstring(t *testing.T) {
	e := threeSongEngine(t)

	songs, err := e.Search(Query{NameContains: "sUn"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, songIDs(songs))

	songs, err = e.Search(Query{NameContains: "Song"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, songIDs(songs))
}

func TestSearchNoMatch(t *testing.T) {
	e := threeSongEngine(t)

	songs, err := e.Search(Query{Performer: "A", CategoryID: "eng"})
	require.NoError(t, err)
	assert.Empty(t, songs)

	songs, err = e.Search(Query{Performer: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestSearchUnknownRoleIsInvalid(t *testing.T) {
	e := threeSongEngine(t)

	_, err := e.Search(Query{Roles: map[catalog.Role]string{catalog.Role("dj"): "x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPredicate))
}

func TestAllSongsPagination(t *testing.T) {
	e := threeSongEngine(t)

	assert.Equal(t, []int64{1, 2, 3}, songIDs(e.AllSongs(0, 0)))
	assert.Equal(t, []int64{2, 3}, songIDs(e.AllSongs(0, 1)))
	assert.Equal(t, []int64{2}, songIDs(e.AllSongs(1, 1)))
	assert.Empty(t, e.AllSongs(0, 10))
}

func TestPerformersAndContributors(t *testing.T) {
	e := threeSongEngine(t)

	performers := e.Performers()
	require.Len(t, performers, 2)
	assert.Equal(t, "A", performers[0].Name, "first-seen casing, sorted by name")
	assert.Equal(t, 2, performers[0].SongCount)
	assert.Equal(t, "B", performers[1].Name)

	composers, err := e.RoleContributors(catalog.RoleComposer)
	require.NoError(t, err)
	require.Len(t, composers, 2)

	_, err = e.RoleContributors(catalog.Role("arranger"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidPredicate))
}

func TestStats(t *testing.T) {
	e := threeSongEngine(t)

	stats := e.Stats()
	assert.Equal(t, 3, stats.TotalSongs)
	assert.Equal(t, 2, stats.TotalPerformers)
	assert.Equal(t, 2, stats.TotalComposers, "x and w")
	assert.Equal(t, 3, stats.TotalLyricists, "y, x, z")
	assert.Equal(t, 0, stats.TotalTranslators)
	assert.Equal(t, 3, stats.TotalCollaborations)
	assert.Equal(t, 2, stats.TotalCategories)
	assert.Equal(t, "Fixture", stats.Title)

	require.Len(t, stats.Categories, 2)
	assert.Equal(t, "heb", stats.Categories[0].ID)
	assert.Equal(t, 2, stats.Categories[0].SongCount)
	assert.Equal(t, 1, stats.Categories[1].SongCount)
}
