// Package loader parses the persisted song collection (JSON from a file or
// URL, or rows from Postgres) into the in-memory form the store validates.
// The core packages never read files or sockets themselves.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/config"
	"github.com/yoavkarmi/songdex/pkg/errors"
	"github.com/yoavkarmi/songdex/pkg/resilience"
)

// document is the songs.json wire shape.
type document struct {
	Version    json.RawMessage     `json:"version"`
	Title      string              `json:"title"`
	Songs      []*catalog.Song     `json:"songs"`
	Categories []*catalog.Category `json:"categories"`
}

// FromJSON decodes a catalog document and hands it to the store for
// validation.
func FromJSON(r io.Reader) (*store.Store, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding catalog JSON: %v", errors.ErrLoad, err)
	}
	meta := catalog.Meta{
		Title:   doc.Title,
		Version: rawString(doc.Version),
	}
	return store.New(doc.Songs, doc.Categories, meta)
}

// FromFile loads a catalog document from a local path.
func FromFile(path string) (*store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", errors.ErrLoad, path, err)
	}
	defer f.Close()
	return FromJSON(f)
}

// FromURL fetches a catalog document over HTTP, retrying transient
// failures.
func FromURL(ctx context.Context, cfg config.CatalogConfig) (*store.Store, error) {
	client := &http.Client{Timeout: cfg.FetchTimeout}

	var body []byte
	err := resilience.Retry(ctx, "catalog-fetch", resilience.RetryConfig{}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Source, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, cfg.Source)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", errors.ErrLoad, cfg.Source, err)
	}

	slog.Default().With("component", "loader").Info("catalog fetched",
		"url", cfg.Source,
		"bytes", len(body),
	)
	return FromJSON(bytes.NewReader(body))
}

// FromSource dispatches on the configured source: HTTP(S) URLs are fetched,
// anything else is treated as a local path.
func FromSource(ctx context.Context, cfg config.CatalogConfig) (*store.Store, error) {
	if strings.HasPrefix(cfg.Source, "http://") || strings.HasPrefix(cfg.Source, "https://") {
		return FromURL(ctx, cfg)
	}
	return FromFile(cfg.Source)
}

// rawString unwraps a JSON scalar (string or number) into its plain text.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
