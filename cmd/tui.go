package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/shared"
	"github.com/ymgch/anisync/internal/tasks"
	"github.com/ymgch/anisync/internal/ui"
)

// workDirectory combines work listing with default-user lookup for the TUI.
type workDirectory struct {
	*repositories.WorkRepository
	*repositories.UserRepository
}

// TUI launches the interactive terminal UI for watch-history import.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.source == nil {
		return fmt.Errorf("%w: Annict service not initialized", shared.ErrServiceUnavailable)
	}

	config := r.resolveConfig(cmd.String("config"))

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/anisync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	users := repositories.NewUserRepository(db)
	works := repositories.NewWorkRepository(db)
	themes := repositories.NewThemeRepository(db)

	engine := tasks.NewImportEngine(r.source, r.themes, r.resolver, users, works, themes, nil, fileLogger)
	engine.SetDelays(
		time.Duration(config.Import.ItemDelayMS)*time.Millisecond,
		time.Duration(config.Import.ThemeDelayMS)*time.Millisecond,
	)

	model := ui.NewModel(ctx, engine, &workDirectory{works, users}, config.Import.Statuses)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
