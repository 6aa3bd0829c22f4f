package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/shared"
)

// WorkRepository persists imported works keyed on (annict_id, user_id).
type WorkRepository struct {
	db *sql.DB
}

// NewWorkRepository creates a new [WorkRepository] with the given database connection
func NewWorkRepository(db *sql.DB) *WorkRepository {
	return &WorkRepository{db: db}
}

// WorkRow is a persisted work together with its theme songs.
type WorkRow struct {
	ID              int64              `json:"id"`
	AnnictID        int64              `json:"annict_id"`
	Title           string             `json:"title"`
	TitleKana       string             `json:"title_kana,omitempty"`
	Media           string             `json:"media,omitempty"`
	SeasonNameText  string             `json:"season_name_text,omitempty"`
	ReleasedOn      string             `json:"released_on,omitempty"`
	OfficialSiteURL string             `json:"official_site_url,omitempty"`
	SyobocalTID     string             `json:"syobocal_tid,omitempty"`
	ImageURL        string             `json:"image_url,omitempty"`
	EpisodesCount   int                `json:"episodes_count"`
	Themes          []models.ThemeSong `json:"themes"`
}

// Exists reports whether the work is already imported for the user.
func (r *WorkRepository) Exists(annictID int64, userID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(1) FROM works WHERE annict_id = ? AND user_id = ?",
		annictID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check work existence: %w", err)
	}
	return count > 0, nil
}

// Upsert writes the work for the user and returns the internal row ID.
//
// Re-importing an existing work refreshes every metadata column; counts and
// image URLs drift on the source side between runs.
func (r *WorkRepository) Upsert(userID string, work *models.Work) (int64, error) {
	if err := work.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO works (
			annict_id, user_id, title, title_kana, media, media_text,
			season_name, season_name_text, released_on, released_on_about,
			official_site_url, wikipedia_url, twitter_username, twitter_hashtag,
			syobocal_tid, mal_anime_id, og_image_url, recommended_image_url,
			episodes_count, watchers_count, reviews_count, no_episodes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (annict_id, user_id) DO UPDATE SET
			title = excluded.title,
			title_kana = excluded.title_kana,
			media = excluded.media,
			media_text = excluded.media_text,
			season_name = excluded.season_name,
			season_name_text = excluded.season_name_text,
			released_on = excluded.released_on,
			released_on_about = excluded.released_on_about,
			official_site_url = excluded.official_site_url,
			wikipedia_url = excluded.wikipedia_url,
			twitter_username = excluded.twitter_username,
			twitter_hashtag = excluded.twitter_hashtag,
			syobocal_tid = excluded.syobocal_tid,
			mal_anime_id = excluded.mal_anime_id,
			og_image_url = excluded.og_image_url,
			recommended_image_url = excluded.recommended_image_url,
			episodes_count = excluded.episodes_count,
			watchers_count = excluded.watchers_count,
			reviews_count = excluded.reviews_count,
			no_episodes = excluded.no_episodes,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		work.ID, userID, work.Title, work.TitleKana, work.Media, work.MediaText,
		work.SeasonName, work.SeasonNameText, work.ReleasedOn, work.ReleasedOnAbout,
		work.OfficialSiteURL, work.WikipediaURL, work.TwitterUsername, work.TwitterHashtag,
		work.SyobocalTID.String(), work.MalAnimeID.String(), work.OGImageURL(), work.RecommendedImageURL(),
		work.EpisodesCount, work.WatchersCount, work.ReviewsCount, work.NoEpisodes,
		now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert work: %w", err)
	}

	var id int64
	err = r.db.QueryRow(
		"SELECT id FROM works WHERE annict_id = ? AND user_id = ?",
		work.ID, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read back work: %w", err)
	}

	return id, nil
}

// Count returns the number of imported works for the user.
func (r *WorkRepository) Count(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(1) FROM works WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count works: %w", err)
	}
	return count, nil
}

// ListWithThemes retrieves the user's imported works with their theme songs,
// ordered by title.
func (r *WorkRepository) ListWithThemes(userID string) ([]WorkRow, error) {
	query := `
		SELECT id, annict_id, title, title_kana, media, season_name_text,
		       released_on, official_site_url, syobocal_tid,
		       recommended_image_url, episodes_count
		FROM works
		WHERE user_id = ?
		ORDER BY title
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query works: %w", err)
	}
	defer rows.Close()

	var works []WorkRow
	index := make(map[int64]int)

	for rows.Next() {
		var w WorkRow
		var titleKana, media, season, released, site, tid, image sql.NullString
		var episodes sql.NullInt64

		err := rows.Scan(&w.ID, &w.AnnictID, &w.Title, &titleKana, &media, &season,
			&released, &site, &tid, &image, &episodes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work: %w", err)
		}

		w.TitleKana = titleKana.String
		w.Media = media.String
		w.SeasonNameText = season.String
		w.ReleasedOn = released.String
		w.OfficialSiteURL = site.String
		w.SyobocalTID = tid.String
		w.ImageURL = image.String
		w.EpisodesCount = int(episodes.Int64)

		index[w.ID] = len(works)
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate works: %w", err)
	}

	if len(works) == 0 {
		return works, nil
	}

	themeQuery := `
		SELECT t.work_id, t.theme_type, t.title, t.artist, t.episode_range, t.spotify_url
		FROM work_themes t
		JOIN works w ON w.id = t.work_id
		WHERE w.user_id = ?
		ORDER BY t.work_id, t.theme_type, t.id
	`

	themeRows, err := r.db.Query(themeQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query themes: %w", err)
	}
	defer themeRows.Close()

	for themeRows.Next() {
		var workID int64
		var themeType string
		var song models.ThemeSong
		var artist, episode, spotifyURL sql.NullString

		err := themeRows.Scan(&workID, &themeType, &song.Title, &artist, &episode, &spotifyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan theme: %w", err)
		}

		song.Type = models.ThemeType(themeType)
		song.Artist = artist.String
		song.Episode = episode.String
		song.SpotifyURL = spotifyURL.String

		if i, ok := index[workID]; ok {
			works[i].Themes = append(works[i].Themes, song)
		}
	}
	if err := themeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate themes: %w", err)
	}

	return works, nil
}

// GetByAnnictID retrieves a single imported work with themes.
func (r *WorkRepository) GetByAnnictID(annictID int64, userID string) (*WorkRow, error) {
	works, err := r.ListWithThemes(userID)
	if err != nil {
		return nil, err
	}
	for i := range works {
		if works[i].AnnictID == annictID {
			return &works[i], nil
		}
	}
	return nil, fmt.Errorf("%w: annict ID %d", shared.ErrWorkNotFound, annictID)
}
