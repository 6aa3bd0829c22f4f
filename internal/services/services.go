// package services defines clients for the upstream HTTP providers
//
// Annict (watch history), Syoboi Calendar (theme-song comments), Spotify (track catalog)
package services

import (
	"context"

	"github.com/ymgch/anisync/internal/models"
)

// Source supplies the user's watch history from the tracking service.
type Source interface {
	// Me retrieves the identity of the user owning the credential.
	Me(ctx context.Context) (*models.User, error)

	// Library retrieves the full deduplicated work list matching any of the
	// given watch-status filters, in source order. Any non-success page
	// response aborts the whole fetch.
	Library(ctx context.Context, statuses []string) ([]models.Work, error)
}

// ThemeProvider supplies parsed theme songs for a work.
type ThemeProvider interface {
	// Themes looks up the work's theme songs by its Syoboi TID. A lookup
	// that fails after retries yields an empty set, not an error; theme
	// enrichment must never abort an import.
	Themes(ctx context.Context, tid string) (*models.ThemeSet, error)
}

// TrackResolver matches theme songs against a streaming catalog.
type TrackResolver interface {
	// Authenticate obtains (or refreshes) the catalog credential.
	// Failure is fatal to an import run.
	Authenticate(ctx context.Context) error

	// Resolve returns the catalog URL of the best-matching track for the
	// song, or empty when no candidate clears the similarity threshold.
	// Resolution failures are misses, never errors.
	Resolve(ctx context.Context, animeTitle string, song models.ThemeSong) (string, error)
}
