package loader

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoavkarmi/songdex/pkg/config"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

const sampleCatalog = `{
  "title": "Test Collection",
  "version": 12,
  "categories": [
    {"id": "heb", "name": "Hebrew"},
    {"id": "eng", "name": "English"}
  ],
  "songs": [
    {
      "id": 1,
      "name": "First Song",
      "singer": "Arik Einstein",
      "composers": ["Miki Gavrielov"],
      "lyricists": ["Arik Einstein"],
      "categoryIds": ["heb"],
      "playback": {"youTubeVideoId": "abc123"},
      "lyrics": {"markupUrl": "https://lyrics.example/1", "markupVersion": 2},
      "dateCreated": 1600000000000
    },
    {
      "id": 2,
      "name": "Second Song",
      "singer": "Shalom Hanoch",
      "translators": ["Someone"],
      "categoryIds": ["eng"]
    }
  ]
}`

func TestFromJSON(t *testing.T) {
	st, err := FromJSON(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	assert.Equal(t, 2, st.Len())
	assert.Equal(t, "Test Collection", st.Meta().Title)
	assert.Equal(t, "12", st.Meta().Version, "numeric version flattens to text")

	song, err := st.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Arik Einstein", song.Performer)
	assert.Equal(t, []string{"Miki Gavrielov"}, song.Composers)
	assert.Equal(t, "abc123", song.Playback.YouTubeVideoID)
	assert.Equal(t, "https://lyrics.example/1", song.Lyrics.MarkupURL)
	assert.Equal(t, 2, song.Lyrics.MarkupVersion)

	require.Len(t, st.Categories(), 2)
}

func TestFromJSONStringVersion(t *testing.T) {
	st, err := FromJSON(strings.NewReader(`{"version": "v3-beta", "songs": [{"id": 1, "name": "A", "singer": "B"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "v3-beta", st.Meta().Version)
}

func TestFromJSONMalformed(t *testing.T) {
	_, err := FromJSON(strings.NewReader(`{"songs": [`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLoad))
}

func TestFromJSONInvalidRecordAbortsLoad(t *testing.T) {
	_, err := FromJSON(strings.NewReader(`{"songs": [{"id": 1, "name": "ok"}, {"id": 1, "name": "dup"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLoad))
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	st, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLoad))
}

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	st, err := FromURL(t.Context(), config.CatalogConfig{
		Source:       srv.URL,
		FetchTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
}

func TestFromSourceDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	st, err := FromSource(t.Context(), config.CatalogConfig{Source: srv.URL, FetchTimeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())

	path := filepath.Join(t.TempDir(), "songs.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))
	st, err = FromSource(t.Context(), config.CatalogConfig{Source: path})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
}
