// Package store holds the immutable song collection after load. It is the
// single source of truth every index and cache is derived from.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/pkg/errors"
)

// Store owns the loaded songs and categories for the process lifetime.
// After New returns, nothing in it is ever mutated; reads need no locking.
type Store struct {
	songs      []*catalog.Song
	byID       map[int64]*catalog.Song
	categories []*catalog.Category
	catByID    map[string]*catalog.Category
	meta       catalog.Meta
}

// New validates the full collection and builds the store. The load is
// all-or-nothing: the first malformed or duplicate entry aborts it and no
// partial state is exposed.
func New(songs []*catalog.Song, categories []*catalog.Category, meta catalog.Meta) (*Store, error) {
	s := &Store{
		songs:      make([]*catalog.Song, 0, len(songs)),
		byID:       make(map[int64]*catalog.Song, len(songs)),
		categories: make([]*catalog.Category, 0, len(categories)),
		catByID:    make(map[string]*catalog.Category, len(categories)),
		meta:       meta,
	}

	for i, song := range songs {
		if song == nil {
			return nil, fmt.Errorf("%w: song at position %d is nil", errors.ErrLoad, i)
		}
		if song.ID <= 0 {
			return nil, fmt.Errorf("%w: song at position %d has invalid id %d", errors.ErrLoad, i, song.ID)
		}
		if strings.TrimSpace(song.Name) == "" {
			return nil, fmt.Errorf("%w: song %d has no name", errors.ErrLoad, song.ID)
		}
		if _, dup := s.byID[song.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate song id %d", errors.ErrLoad, song.ID)
		}
		s.byID[song.ID] = song
		s.songs = append(s.songs, song)
	}

	for i, cat := range categories {
		if cat == nil || strings.TrimSpace(cat.ID) == "" {
			return nil, fmt.Errorf("%w: category at position %d has no id", errors.ErrLoad, i)
		}
		if _, dup := s.catByID[cat.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate category id %q", errors.ErrLoad, cat.ID)
		}
		s.catByID[cat.ID] = cat
		s.categories = append(s.categories, cat)
	}

	slog.Default().With("component", "store").Info("catalog loaded",
		"songs", len(s.songs),
		"categories", len(s.categories),
		"title", meta.Title,
		"version", meta.Version,
	)
	return s, nil
}

// Get returns the song with the given id.
func (s *Store) Get(id int64) (*catalog.Song, error) {
	song, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", errors.ErrSongNotFound, id)
	}
	return song, nil
}

// All returns every song in load order. The returned slice is shared;
// callers must not mutate it.
func (s *Store) All() []*catalog.Song {
	return s.songs
}

// Len returns the number of songs.
func (s *Store) Len() int {
	return len(s.songs)
}

// Category returns the category with the given id.
func (s *Store) Category(id string) (*catalog.Category, error) {
	cat, ok := s.catByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", errors.ErrCategoryNotFound, id)
	}
	return cat, nil
}

// Categories returns every category in load order.
func (s *Store) Categories() []*catalog.Category {
	return s.categories
}

// Meta returns the catalog-level metadata captured at load time.
func (s *Store) Meta() catalog.Meta {
	return s.meta
}

// Resolve maps song IDs back to songs, skipping IDs that are not present.
func (s *Store) Resolve(ids []int64) []*catalog.Song {
	songs := make([]*catalog.Song, 0, len(ids))
	for _, id := range ids {
		if song, ok := s.byID[id]; ok {
			songs = append(songs, song)
		}
	}
	return songs
}
