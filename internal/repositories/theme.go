package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ymgch/anisync/internal/models"
)

// ThemeRepository persists theme songs keyed on (work_id, theme_type, title).
type ThemeRepository struct {
	db *sql.DB
}

// NewThemeRepository creates a new [ThemeRepository] with the given database connection
func NewThemeRepository(db *sql.DB) *ThemeRepository {
	return &ThemeRepository{db: db}
}

// UpsertBatch writes the songs for the work inside one transaction.
//
// A song seen again under the same title refreshes its artist, episode range
// and catalog URL; earlier rows under other titles are left alone.
func (r *ThemeRepository) UpsertBatch(workID int64, songs []models.ThemeSong) error {
	if len(songs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO work_themes (work_id, theme_type, title, artist, episode_range, spotify_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (work_id, theme_type, title) DO UPDATE SET
			artist = excluded.artist,
			episode_range = excluded.episode_range,
			spotify_url = excluded.spotify_url,
			updated_at = excluded.updated_at
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, song := range songs {
		if song.Title == "" {
			continue
		}
		_, err := stmt.Exec(workID, string(song.Type), song.Title, song.Artist, song.Episode, song.SpotifyURL, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert theme %q: %w", song.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit themes: %w", err)
	}

	return nil
}

// CountResolved returns how many of the user's theme songs carry a catalog URL.
func (r *ThemeRepository) CountResolved(userID string) (int, error) {
	query := `
		SELECT COUNT(1)
		FROM work_themes t
		JOIN works w ON w.id = t.work_id
		WHERE w.user_id = ? AND t.spotify_url != ''
	`

	var count int
	if err := r.db.QueryRow(query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count resolved themes: %w", err)
	}
	return count, nil
}
