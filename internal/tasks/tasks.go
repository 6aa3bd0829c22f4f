// package tasks implements the watch-history import pipeline.
//
// The core abstraction is ImportEngine, which orchestrates the full run:
// profile fetch, paginated library fetch, theme-song scraping, catalog
// resolution and persistence. Runs emit progress updates via channels for
// non-blocking status reporting to CLI/UI layers, and mutate a shared
// Tracker that HTTP clients poll.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/services"
	"github.com/ymgch/anisync/internal/shared"
)

// UserStore persists the importing user.
type UserStore interface {
	Ensure(user *models.User) (string, error)
}

// WorkStore persists imported works.
type WorkStore interface {
	Exists(annictID int64, userID string) (bool, error)
	Upsert(userID string, work *models.Work) (int64, error)
}

// ThemeStore persists theme songs for a work.
type ThemeStore interface {
	UpsertBatch(workID int64, songs []models.ThemeSong) error
}

// WorkImportResult records the outcome for one work.
type WorkImportResult struct {
	AnnictID int64  `json:"annict_id"`
	Title    string `json:"title"`
	Skipped  bool   `json:"skipped"`
	Themes   int    `json:"themes"`
	Resolved int    `json:"resolved"`
	Error    string `json:"error,omitempty"`
}

// ImportRunResult contains all data from a full import run.
type ImportRunResult struct {
	User     *models.User       `json:"user"`
	Total    int                `json:"total"`
	Imported int                `json:"imported"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Themes   int                `json:"themes"`
	Resolved int                `json:"resolved"`
	Works    []WorkImportResult `json:"works"`
}

// ImportEngine orchestrates one import run end to end.
//
// The engine is not safe for concurrent runs; callers gate concurrency
// through the tracker's running state.
type ImportEngine struct {
	source   services.Source
	themes   services.ThemeProvider
	resolver services.TrackResolver

	users      UserStore
	works      WorkStore
	themeStore ThemeStore

	tracker *Tracker
	logger  *log.Logger

	// Refresh forces re-import of works that already exist.
	Refresh bool

	itemDelay  time.Duration
	themeDelay time.Duration
}

// NewImportEngine creates an engine with the provided services and stores.
func NewImportEngine(
	source services.Source,
	themes services.ThemeProvider,
	resolver services.TrackResolver,
	users UserStore,
	works WorkStore,
	themeStore ThemeStore,
	tracker *Tracker,
	logger *log.Logger,
) *ImportEngine {
	if tracker == nil {
		tracker = NewTracker()
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &ImportEngine{
		source:     source,
		themes:     themes,
		resolver:   resolver,
		users:      users,
		works:      works,
		themeStore: themeStore,
		tracker:    tracker,
		logger:     logger,
		itemDelay:  500 * time.Millisecond,
		themeDelay: 100 * time.Millisecond,
	}
}

// SetDelays overrides the pacing between items and between theme lookups.
func (e *ImportEngine) SetDelays(item, theme time.Duration) {
	e.itemDelay = item
	e.themeDelay = theme
}

// Tracker returns the progress tracker shared with polling clients.
func (e *ImportEngine) Tracker() *Tracker {
	return e.tracker
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *ImportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// pace waits for d or until ctx is done. A zero delay returns immediately.
func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// validateStatuses rejects unknown watch-status filters before any network
// traffic happens.
func validateStatuses(statuses []string) error {
	if len(statuses) == 0 {
		return fmt.Errorf("%w: no watch statuses given", shared.ErrInvalidStatus)
	}
	for _, status := range statuses {
		if !models.ValidStatus(status) {
			return fmt.Errorf("%w: %q", shared.ErrInvalidStatus, status)
		}
	}
	return nil
}

// Run performs a full import of the user's watch history.
//
// Setup failures (profile fetch, catalog authentication, library fetch) are
// fatal and mark the tracker failed. Per-work failures are recorded and the
// run continues; a finished run always reports completed even when single
// works failed.
func (e *ImportEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, statuses []string) (*ImportRunResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: watch-history source not initialized", shared.ErrServiceUnavailable)
	}
	if e.users == nil || e.works == nil {
		return nil, fmt.Errorf("%w: stores not initialized", shared.ErrServiceUnavailable)
	}
	if err := validateStatuses(statuses); err != nil {
		return nil, err
	}
	if e.tracker.Running() {
		return nil, shared.ErrJobRunning
	}

	e.tracker.Start(0, "Fetching profile...")

	fail := func(err error) (*ImportRunResult, error) {
		e.tracker.Fail(err)
		return nil, err
	}

	e.sendProgress(progress, fetchProfileUpdate())
	user, err := e.source.Me(ctx)
	if err != nil {
		return fail(err)
	}

	userID, err := e.users.Ensure(user)
	if err != nil {
		return fail(err)
	}

	if e.resolver != nil {
		if err := e.resolver.Authenticate(ctx); err != nil {
			return fail(err)
		}
	}

	e.sendProgress(progress, fetchLibraryUpdate(statuses))
	e.tracker.SetMessage("Fetching library...")

	library, err := e.source.Library(ctx, statuses)
	if err != nil {
		return fail(err)
	}

	total := len(library)
	e.tracker.SetTotal(total)
	e.logger.Info("library fetched", "user", user.Username, "works", total)

	result := &ImportRunResult{User: user, Total: total}

	for i := range library {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}

		work := &library[i]
		workResult := WorkImportResult{AnnictID: work.ID, Title: work.Title}

		if !e.Refresh {
			exists, err := e.works.Exists(work.ID, userID)
			if err != nil {
				return fail(err)
			}
			if exists {
				e.sendProgress(progress, skipWorkUpdate(i+1, total, work))
				e.tracker.Advance(true)
				workResult.Skipped = true
				result.Skipped++
				result.Works = append(result.Works, workResult)
				// skips pace at a tenth of the item delay
				if err := pace(ctx, e.itemDelay/10); err != nil {
					return fail(err)
				}
				continue
			}
		}

		e.sendProgress(progress, importWorkUpdate(i+1, total, work))
		e.tracker.SetMessage(fmt.Sprintf("Importing %s", work.Title))

		if err := e.importWork(ctx, progress, userID, work, &workResult); err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			e.logger.Warn("work import failed", "title", work.Title, "error", err)
			workResult.Error = err.Error()
			result.Failed++
		} else {
			result.Imported++
		}

		result.Themes += workResult.Themes
		result.Resolved += workResult.Resolved
		result.Works = append(result.Works, workResult)
		e.tracker.Advance(false)

		if i < total-1 {
			if err := pace(ctx, e.itemDelay); err != nil {
				return fail(err)
			}
		}
	}

	e.tracker.Complete(fmt.Sprintf("Imported %d works, skipped %d", result.Imported, result.Skipped))
	e.sendProgress(progress, doneUpdate(result))
	e.logger.Info("import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"themes", result.Themes,
		"resolved", result.Resolved,
	)

	return result, nil
}

// importWork persists one work together with its theme songs.
func (e *ImportEngine) importWork(ctx context.Context, progress chan<- ProgressUpdate, userID string, work *models.Work, workResult *WorkImportResult) error {
	set := &models.ThemeSet{}
	if e.themes != nil && !work.SyobocalTID.IsZero() {
		var err error
		set, err = e.themes.Themes(ctx, work.SyobocalTID.String())
		if err != nil {
			return err
		}
	}

	workID, err := e.works.Upsert(userID, work)
	if err != nil {
		return err
	}

	songs := set.Persistable()
	workResult.Themes = len(songs)

	for i := range songs {
		song := &songs[i]
		e.sendProgress(progress, resolveTrackUpdate(i+1, len(songs), *song))

		if e.resolver != nil {
			url, err := e.resolver.Resolve(ctx, work.Title, *song)
			if err != nil {
				return err
			}
			if url != "" {
				song.SpotifyURL = url
				workResult.Resolved++
			}
		}

		if i < len(songs)-1 {
			if err := pace(ctx, e.themeDelay); err != nil {
				return err
			}
		}
	}

	if e.themeStore != nil && len(songs) > 0 {
		if err := e.themeStore.UpsertBatch(workID, songs); err != nil {
			return err
		}
	}

	return nil
}
