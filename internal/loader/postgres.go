package loader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/yoavkarmi/songdex/internal/catalog"
	"github.com/yoavkarmi/songdex/internal/catalog/store"
	"github.com/yoavkarmi/songdex/pkg/errors"
	"github.com/yoavkarmi/songdex/pkg/postgres"
)

const (
	songsQuery = `
		SELECT id, name, singer, composers, lyricists, translators,
		       category_ids, youtube_video_id, lyrics_url, lyrics_version,
		       date_created, date_modified
		FROM songs
		ORDER BY id`

	categoriesQuery = `SELECT id, name FROM categories ORDER BY id`

	metaQuery = `SELECT title, version FROM catalog_meta LIMIT 1`
)

// FromPostgres loads the whole catalog out of Postgres in one pass. The row
// order (ascending id) becomes the store's load order.
func FromPostgres(ctx context.Context, client *postgres.Client) (*store.Store, error) {
	songs, err := loadSongs(ctx, client.DB)
	if err != nil {
		return nil, err
	}
	categories, err := loadCategories(ctx, client.DB)
	if err != nil {
		return nil, err
	}
	meta, err := loadMeta(ctx, client.DB)
	if err != nil {
		return nil, err
	}
	return store.New(songs, categories, meta)
}

func loadSongs(ctx context.Context, db *sql.DB) ([]*catalog.Song, error) {
	rows, err := db.QueryContext(ctx, songsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: querying songs: %v", errors.ErrLoad, err)
	}
	defer rows.Close()

	var songs []*catalog.Song
	for rows.Next() {
		var (
			s         catalog.Song
			videoID   sql.NullString
			lyricsURL sql.NullString
			lyricsVer sql.NullInt64
			created   sql.NullInt64
			modified  sql.NullInt64
		)
		err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Performer,
			pq.Array(&s.Composers),
			pq.Array(&s.Lyricists),
			pq.Array(&s.Translators),
			pq.Array(&s.CategoryIDs),
			&videoID,
			&lyricsURL,
			&lyricsVer,
			&created,
			&modified,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning song row: %v", errors.ErrLoad, err)
		}
		s.Playback.YouTubeVideoID = videoID.String
		s.Lyrics.MarkupURL = lyricsURL.String
		s.Lyrics.MarkupVersion = int(lyricsVer.Int64)
		s.DateCreated = created.Int64
		s.DateModified = modified.Int64
		songs = append(songs, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating song rows: %v", errors.ErrLoad, err)
	}
	return songs, nil
}

func loadCategories(ctx context.Context, db *sql.DB) ([]*catalog.Category, error) {
	rows, err := db.QueryContext(ctx, categoriesQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: querying categories: %v", errors.ErrLoad, err)
	}
	defer rows.Close()

	var categories []*catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("%w: scanning category row: %v", errors.ErrLoad, err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating category rows: %v", errors.ErrLoad, err)
	}
	return categories, nil
}

// loadMeta tolerates a missing catalog_meta row; the catalog is usable
// without a title.
func loadMeta(ctx context.Context, db *sql.DB) (catalog.Meta, error) {
	var meta catalog.Meta
	err := db.QueryRowContext(ctx, metaQuery).Scan(&meta.Title, &meta.Version)
	if err == sql.ErrNoRows {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("%w: querying catalog meta: %v", errors.ErrLoad, err)
	}
	return meta, nil
}
