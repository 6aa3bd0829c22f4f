package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/tasks"
)

// ImportRun runs a full watch-history import from Annict.
func (r *Runner) ImportRun(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd.String("config"))

	statuses := cmd.StringSlice("status")
	if len(statuses) == 0 {
		statuses = config.Import.Statuses
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewImportEngine(
		r.source,
		r.themes,
		r.resolver,
		repositories.NewUserRepository(db),
		repositories.NewWorkRepository(db),
		repositories.NewThemeRepository(db),
		nil,
		r.logger,
	)
	engine.Refresh = cmd.Bool("refresh")
	engine.SetDelays(
		time.Duration(config.Import.ItemDelayMS)*time.Millisecond,
		time.Duration(config.Import.ThemeDelayMS)*time.Millisecond,
	)

	r.logger.Info("starting import", "statuses", statuses, "refresh", engine.Refresh)
	r.writePlain("Starting import from Annict...\n")
	r.writePlain("Statuses: %v\n\n", statuses)

	useJSON := cmd.Bool("json")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			if useJSON {
				continue
			}
			switch update.Phase {
			case tasks.FetchProfile, tasks.FetchLibrary:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ImportWork:
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.ResolveTrack:
				r.writePlain("   🎵 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, progressCh, statuses)
	close(progressCh)

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("User: %s (@%s)\n", result.User.Name, result.User.Username)
	r.writePlain("Works: %d total, %d imported, %d skipped\n", result.Total, result.Imported, result.Skipped)
	r.writePlain("Theme songs: %d found, %d resolved on Spotify\n", result.Themes, result.Resolved)

	if result.Failed > 0 {
		r.writePlain("\nFailed to import %d works:\n", result.Failed)
		for _, work := range result.Works {
			if work.Error != "" {
				r.writePlain("  - %s: %s\n", work.Title, work.Error)
			}
		}
	}

	return nil
}
