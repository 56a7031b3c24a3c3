package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/index"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
)

func buildScorer(t *testing.T, songs []*catalog.Song) *Scorer {
	t.Helper()
	st, err := store.New(songs, nil, catalog.Meta{})
	require.NoError(t, err)
	return NewScorer(index.Build(st))
}

func TestFameIsMonotonicInSongCount(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Composers: []string{"Busy"}},
		{ID: 2, Name: "B", Composers: []string{"Busy"}},
		{ID: 3, Name: "C", Composers: []string{"Busy"}},
		{ID: 4, Name: "D", Composers: []string{"Middling"}},
		{ID: 5, Name: "E", Composers: []string{"Middling"}},
		{ID: 6, Name: "F", Composers: []string{"Quiet"}},
	})

	busy := s.RoleFame(catalog.RoleComposer, "busy")
	middling := s.RoleFame(catalog.RoleComposer, "middling")
	quiet := s.RoleFame(catalog.RoleComposer, "quiet")

	assert.Greater(t, busy, middling)
	assert.Greater(t, middling, quiet)
}

func TestFameAbsentNameIsZero(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Composers: []string{"Known"}},
		{ID: 2, Name: "B", Composers: []string{"Known"}},
	})

	assert.Equal(t, 0, s.RoleFame(catalog.RoleComposer, "Unknown"))
	assert.Equal(t, 0, s.PerformerFame(""))
	known := s.RoleFame(catalog.RoleComposer, "Known")
	assert.Greater(t, known, 0, "a composer with records outranks one with none")
}

func TestFameSingleDistinctName(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "Solo"},
		{ID: 2, Name: "B", Performer: "solo"},
	})

	assert.Equal(t, 100, s.PerformerFame("Solo"))
}

func TestFamePercentileValues(t *testing.T) {
	// Two distinct performers: one with 2 songs, one with 1. The busier one
	// sits above half the names, the quieter above none.
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "Big"},
		{ID: 2, Name: "B", Performer: "Big"},
		{ID: 3, Name: "C", Performer: "Small"},
	})

	assert.Equal(t, 50, s.PerformerFame("big"))
	assert.Equal(t, 0, s.PerformerFame("small"))
}

func TestFameNormalizesProbe(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "Arik"},
		{ID: 2, Name: "B", Performer: "Arik"},
		{ID: 3, Name: "C", Performer: "Other"},
	})

	assert.Equal(t, s.PerformerFame("Arik"), s.PerformerFame("  ARIK  "))
}

func TestSongFameCompositeWeights(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "Big", Composers: []string{"BigC"}, Lyricists: []string{"BigL"}},
		{ID: 2, Name: "B", Performer: "Big", Composers: []string{"BigC"}, Lyricists: []string{"BigL"}},
		{ID: 3, Name: "C", Performer: "Small", Composers: []string{"SmallC"}, Lyricists: []string{"SmallL"}},
	})

	// Every dimension ranks Big* at 50 and Small* at 0, so the composite is
	// 0.60*50 + 0.25*50 + 0.15*50 = 50 for song 1 and 0 for song 3.
	big := &catalog.Song{ID: 1, Name: "A", Performer: "Big", Composers: []string{"BigC"}, Lyricists: []string{"BigL"}}
	small := &catalog.Song{ID: 3, Name: "C", Performer: "Small", Composers: []string{"SmallC"}, Lyricists: []string{"SmallL"}}
	assert.Equal(t, 50, s.SongFame(big))
	assert.Equal(t, 0, s.SongFame(small))
}

func TestSongFameMissingRoleContributesZero(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "Big", Composers: []string{"BigC"}},
		{ID: 2, Name: "B", Performer: "Big", Composers: []string{"BigC"}},
		{ID: 3, Name: "C", Performer: "Small", Composers: []string{"SmallC"}},
	})

	// No lyricists: the 0.15 term drops to zero with no renormalization.
	// 0.60*50 + 0.25*50 + 0 = 42.5, rounded to 43.
	song := &catalog.Song{ID: 1, Name: "A", Performer: "Big", Composers: []string{"BigC"}}
	assert.Equal(t, 43, s.SongFame(song))
}

func TestSongFameAveragesMultipleContributors(t *testing.T) {
	s := buildScorer(t, []*catalog.Song{
		{ID: 1, Name: "A", Performer: "P", Composers: []string{"BigC"}},
		{ID: 2, Name: "B", Performer: "P", Composers: []string{"BigC"}},
		{ID: 3, Name: "C", Performer: "P", Composers: []string{"SmallC"}},
	})

	// BigC ranks 50, SmallC ranks 0; their average is 25. Performer P is
	// the dimension's only name, ranking 100.
	song := &catalog.Song{ID: 4, Name: "D", Performer: "P", Composers: []string{"BigC", "SmallC"}}
	// 0.60*100 + 0.25*25 + 0 = 66.25, rounded to 66.
	assert.Equal(t, 66, s.SongFame(song))
}
