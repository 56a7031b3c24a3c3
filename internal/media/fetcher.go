// Package media resolves a song's external assets: lyrics markup hosted at
// the song's markup URL and YouTube metadata for its video ID. Both
// upstreams are treated as unreliable and sit behind circuit breakers.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/pkg/config"
	"github.com/yoavkarmi/songdex/pkg/errors"
	"github.com/yoavkarmi/songdex/pkg/metrics"
	"github.com/yoavkarmi/songdex/pkg/resilience"
)

const oembedEndpoint = "https://www.youtube.com/oembed"

// VideoInfo is the subset of YouTube oEmbed metadata the API exposes.
type VideoInfo struct {
	VideoID      string `json:"video_id"`
	WatchURL     string `json:"watch_url"`
	Title        string `json:"title"`
	Author       string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Lyrics carries fetched markup together with its version tag.
type Lyrics struct {
	SongID  int64  `json:"song_id"`
	Version int    `json:"version,omitempty"`
	Markup  string `json:"markup"`
}

// Fetcher retrieves lyrics and video metadata over HTTP.
type Fetcher struct {
	client        *http.Client
	maxBodyBytes  int64
	lyricsBreaker *resilience.Breaker
	videoBreaker  *resilience.Breaker
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewFetcher builds a Fetcher from config. The metrics argument may be nil.
func NewFetcher(cfg config.MediaConfig, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		client:        &http.Client{Timeout: cfg.FetchTimeout},
		maxBodyBytes:  cfg.MaxBodyBytes,
		lyricsBreaker: resilience.NewBreaker("lyrics", resilience.BreakerConfig{}),
		videoBreaker:  resilience.NewBreaker("youtube", resilience.BreakerConfig{}),
		metrics:       m,
		logger:        slog.Default().With("component", "media"),
	}
}

// Lyrics fetches the song's lyrics markup. Songs without a markup URL
// return ErrNoMedia.
func (f *Fetcher) Lyrics(ctx context.Context, song *catalog.Song) (*Lyrics, error) {
	if song.Lyrics.MarkupURL == "" {
		return nil, fmt.Errorf("%w: song %d has no lyrics", errors.ErrNoMedia, song.ID)
	}

	var body []byte
	err := f.lyricsBreaker.Do(func() error {
		var fetchErr error
		body, fetchErr = f.get(ctx, song.Lyrics.MarkupURL)
		return fetchErr
	})
	f.count("lyrics", err)
	if err != nil {
		return nil, fmt.Errorf("%w: lyrics for song %d: %v", errors.ErrUpstream, song.ID, err)
	}
	return &Lyrics{
		SongID:  song.ID,
		Version: song.Lyrics.MarkupVersion,
		Markup:  string(body),
	}, nil
}

// Video fetches YouTube oEmbed metadata for the song's video. Songs without
// a video ID return ErrNoMedia.
func (f *Fetcher) Video(ctx context.Context, song *catalog.Song) (*VideoInfo, error) {
	videoID := song.Playback.YouTubeVideoID
	if videoID == "" {
		return nil, fmt.Errorf("%w: song %d has no video", errors.ErrNoMedia, song.ID)
	}

	watchURL := "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
	endpoint := oembedEndpoint + "?format=json&url=" + url.QueryEscape(watchURL)

	var body []byte
	err := f.videoBreaker.Do(func() error {
		var fetchErr error
		body, fetchErr = f.get(ctx, endpoint)
		return fetchErr
	})
	f.count("video", err)
	if err != nil {
		return nil, fmt.Errorf("%w: video metadata for song %d: %v", errors.ErrUpstream, song.ID, err)
	}

	info := VideoInfo{VideoID: videoID, WatchURL: watchURL}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decoding oEmbed response for song %d: %v", errors.ErrUpstream, song.ID, err)
	}
	return &info, nil
}

// Breakers reports the state of both upstream circuits for health checks.
func (f *Fetcher) Breakers() []resilience.Snapshot {
	return []resilience.Snapshot{
		f.lyricsBreaker.Snapshot(),
		f.videoBreaker.Snapshot(),
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) count(kind string, err error) {
	if f.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	f.metrics.MediaFetchesTotal.WithLabelValues(kind, status).Inc()
}
