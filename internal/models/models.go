package models

import "fmt"

// WatchStatus values accepted by the source provider's filter parameter.
var WatchStatuses = []string{"wanna_watch", "watching", "watched", "on_hold", "stop_watching"}

// ValidStatus reports whether s is an accepted watch-status filter.
func ValidStatus(s string) bool {
	for _, status := range WatchStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// User represents the acting user's identity on the source provider.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Validate checks that the user carries a usable identity.
func (u *User) Validate() error {
	if u.ID == 0 || u.Username == "" {
		return fmt.Errorf("user missing id or username")
	}
	return nil
}

type workImages struct {
	Facebook struct {
		OGImageURL string `json:"og_image_url"`
	} `json:"facebook"`
	RecommendedURL string `json:"recommended_url"`
}

// Work represents one tracked anime title as returned by the Annict REST API.
//
// SyobocalTID and MalAnimeID arrive as either numbers or strings depending on
// the record's age, so both are decoded through [FlexID].
type Work struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	TitleKana       string     `json:"title_kana"`
	Media           string     `json:"media"`
	MediaText       string     `json:"media_text"`
	SeasonName      string     `json:"season_name"`
	SeasonNameText  string     `json:"season_name_text"`
	ReleasedOn      string     `json:"released_on"`
	ReleasedOnAbout string     `json:"released_on_about"`
	OfficialSiteURL string     `json:"official_site_url"`
	WikipediaURL    string     `json:"wikipedia_url"`
	TwitterUsername string     `json:"twitter_username"`
	TwitterHashtag  string     `json:"twitter_hashtag"`
	SyobocalTID     FlexID     `json:"syobocal_tid"`
	MalAnimeID      FlexID     `json:"mal_anime_id"`
	Images          workImages `json:"images"`
	EpisodesCount   int        `json:"episodes_count"`
	WatchersCount   int        `json:"watchers_count"`
	ReviewsCount    int        `json:"reviews_count"`
	NoEpisodes      bool       `json:"no_episodes"`
}

// OGImageURL returns the social-card image URL, if any.
func (w *Work) OGImageURL() string {
	return w.Images.Facebook.OGImageURL
}

// RecommendedImageURL returns the recommended artwork URL, if any.
func (w *Work) RecommendedImageURL() string {
	return w.Images.RecommendedURL
}

// Validate checks that the work carries its identity key.
func (w *Work) Validate() error {
	if w.ID == 0 {
		return fmt.Errorf("work missing source id")
	}
	return nil
}

// ThemeType identifies the kind of theme song.
type ThemeType string

const (
	ThemeOpening ThemeType = "op"
	ThemeEnding  ThemeType = "ed"
	ThemeInsert  ThemeType = "in"
)

// ThemeSong represents one opening, ending, or insert song associated with a work.
//
// Artist holds the raw credit line and may contain many co-credited names and
// voice-actor annotations. Episode is free text (e.g. "1-12"). SpotifyURL is
// set once the song is resolved against the catalog, empty when unresolved.
type ThemeSong struct {
	Type       ThemeType `json:"type"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Episode    string    `json:"episode"`
	SpotifyURL string    `json:"spotify_url,omitempty"`
}

// ThemeSet groups extracted theme songs by type, preserving source order.
type ThemeSet struct {
	Openings []ThemeSong `json:"op"`
	Endings  []ThemeSong `json:"ed"`
	Inserts  []ThemeSong `json:"in"`
}

// Persistable returns the openings and endings in order. Insert songs are
// extracted but not persisted.
func (s *ThemeSet) Persistable() []ThemeSong {
	out := make([]ThemeSong, 0, len(s.Openings)+len(s.Endings))
	out = append(out, s.Openings...)
	out = append(out, s.Endings...)
	return out
}

// Len returns the total number of extracted songs across all types.
func (s *ThemeSet) Len() int {
	return len(s.Openings) + len(s.Endings) + len(s.Inserts)
}

// JobStatus enumerates the lifecycle states of an import job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
)

// ProgressState is a snapshot of a running import job.
//
// Total is set once, before iteration begins; Processed never exceeds it.
type ProgressState struct {
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
}
