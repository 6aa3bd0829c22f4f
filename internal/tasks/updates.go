package tasks

import (
	"fmt"

	"github.com/ymgch/anisync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchLibrary
	ImportWork
	ResolveTrack
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchLibrary:
		return "fetch_library"
	case ImportWork:
		return "import_work"
	case ResolveTrack:
		return "resolve_track"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchProfileUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    1,
		Total:   1,
		Message: "Fetching Annict profile...",
	}
}

func fetchLibraryUpdate(statuses []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching library (%d status filters)...", len(statuses)),
	}
}

func importWorkUpdate(step, total int, work *models.Work) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportWork,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, work.Title),
		Data:    work,
	}
}

func skipWorkUpdate(step, total int, work *models.Work) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportWork,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (already imported)", step, total, work.Title),
	}
}

func resolveTrackUpdate(step, total int, song models.ThemeSong) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Searching: %s - %s", song.Artist, song.Title),
	}
}

func doneUpdate(result *ImportRunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Imported %d works (%d skipped)", result.Imported, result.Skipped),
		Data:    result,
	}
}
