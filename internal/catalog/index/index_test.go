package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
)

func buildSet(t *testing.T, songs []*catalog.Song) *Set {
	t.Helper()
	st, err := store.New(songs, nil, catalog.Meta{})
	require.NoError(t, err)
	return Build(st)
}

func TestLookupNormalizesKey(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "One", Performer: "Arik Einstein"},
		{ID: 2, Name: "Two", Performer: "  arik einstein "},
		{ID: 3, Name: "Three", Performer: "Shalom Hanoch"},
	})

	for _, probe := range []string{"arik einstein", "ARIK EINSTEIN", " Arik Einstein "} {
		assert.Equal(t, []int64{1, 2}, set.Performer.Lookup(probe), "probe %q", probe)
	}
	assert.Nil(t, set.Performer.Lookup("nobody"))
}

func TestDisplayKeepsFirstSeenCasing(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "One", Performer: "aRik einstein"},
		{ID: 2, Name: "Two", Performer: "Arik Einstein"},
	})

	e, ok := set.Performer.Get("arik einstein")
	require.True(t, ok)
	assert.Equal(t, "aRik einstein", e.Display)
	assert.Equal(t, 2, e.Count())
}

func TestIDsFollowLoadOrder(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 9, Name: "A", Composers: []string{"Sasha Argov"}},
		{ID: 2, Name: "B", Composers: []string{"sasha argov"}},
		{ID: 5, Name: "C", Composers: []string{"Sasha Argov"}},
	})

	assert.Equal(t, []int64{9, 2, 5}, set.Role[catalog.RoleComposer].Lookup("Sasha Argov"))
}

func TestRepeatedNameWithinSongAddedOnce(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "A", Lyricists: []string{"Naomi Shemer", "naomi shemer"}},
	})

	assert.Equal(t, []int64{1}, set.Role[catalog.RoleLyricist].Lookup("Naomi Shemer"))
}

func TestEmptyValuesAreSkipped(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "   ", Composers: []string{"", "  "}},
	})

	assert.Equal(t, 0, set.Performer.Len())
	assert.Equal(t, 0, set.Role[catalog.RoleComposer].Len())
}

func TestCategoryIndex(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "A", CategoryIDs: []string{"heb", "classics"}},
		{ID: 2, Name: "B", CategoryIDs: []string{"heb"}},
	})

	assert.Equal(t, []int64{1, 2}, set.Category.Lookup("heb"))
	assert.Equal(t, []int64{1}, set.Category.Lookup("classics"))
}

func TestEntriesSortedByDisplay(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "Zohar Argov"},
		{ID: 2, Name: "B", Performer: "Arik Einstein"},
		{ID: 3, Name: "C", Performer: "Matti Caspi"},
	})

	entries := set.Performer.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Arik Einstein", entries[0].Display)
	assert.Equal(t, "Matti Caspi", entries[1].Display)
	assert.Equal(t, "Zohar Argov", entries[2].Display)
}

func TestCounts(t *testing.T) {
	set := buildSet(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "X"},
		{ID: 2, Name: "B", Performer: "X"},
		{ID: 3, Name: "C", Performer: "Y"},
	})

	counts := set.Performer.Counts()
	assert.ElementsMatch(t, []int{2, 1}, counts)
}
