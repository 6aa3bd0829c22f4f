package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/ymgch/anisync/internal/formatter"
	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/shared"
)

// loadWorks opens the database and returns the default user's works with themes.
func (r *Runner) loadWorks(cmd *cli.Command) ([]repositories.WorkRow, error) {
	config := r.resolveConfig(cmd.String("config"))

	db, err := r.openDatabase(config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	userID, err := repositories.NewUserRepository(db).First()
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return repositories.NewWorkRepository(db).ListWithThemes(userID)
}

// WorksList lists imported works with their theme songs.
func (r *Runner) WorksList(ctx context.Context, cmd *cli.Command) error {
	works, err := r.loadWorks(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if works == nil {
			works = []repositories.WorkRow{}
		}
		return r.writeJSON(works, cmd.Bool("pretty"))
	}

	if len(works) == 0 {
		r.writePlain("No works imported yet. Run 'anisync import run' first.\n")
		return nil
	}

	resolved, total := formatter.CountResolved(works)
	r.writePlain("Found %d works (%d/%d theme songs resolved):\n\n", len(works), resolved, total)

	for i, work := range works {
		r.writePlain("%d. %s\n", i+1, work.Title)
		if work.SeasonNameText != "" {
			r.writePlain("   Season: %s\n", work.SeasonNameText)
		}
		for _, theme := range work.Themes {
			mark := "✗"
			if theme.SpotifyURL != "" {
				mark = "✓"
			}
			r.writePlain("   [%s] %s", theme.Type, theme.Title)
			if theme.Artist != "" {
				r.writePlain(" / %s", theme.Artist)
			}
			r.writePlain(" %s\n", mark)
		}
		r.writePlain("\n")
	}

	return nil
}

// WorksExport exports imported works to a file in the requested format.
func (r *Runner) WorksExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputFile := cmd.String("output")

	works, err := r.loadWorks(cmd)
	if err != nil {
		return err
	}

	if len(works) == 0 {
		r.writePlain("No works imported yet. Nothing to export.\n")
		return nil
	}

	if format == "all" {
		result, err := formatter.WriteExport(works, outputFile)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		r.writePlain("✓ Themes exported to %s\n", result.ThemesFile)
		r.writePlain("✓ Works exported to %s\n", result.MetadataFile)
		return nil
	}

	var data []byte
	var ext string

	switch format {
	case "csv":
		data, err = formatter.ExportToCSV(works)
		ext = "csv"
	case "markdown", "md":
		data, err = formatter.ExportToMarkdown(works)
		ext = "md"
	case "text", "txt":
		data, err = formatter.ExportToText(works)
		ext = "txt"
	case "json":
		data, err = formatter.ToWorksJSON(works)
		ext = "json"
	default:
		return fmt.Errorf("%w: unknown format '%s' (must be csv, markdown, text, json or all)", shared.ErrInvalidArgument, format)
	}

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if outputFile == "" {
		outputFile = "anisync_export." + ext
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	resolved, total := formatter.CountResolved(works)
	r.writePlain("✓ Exported %d works to %s\n", len(works), outputFile)
	r.writePlain("  Theme songs resolved: %d/%d\n", resolved, total)

	return nil
}
