package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/server"
	"github.com/ymgch/anisync/internal/tasks"
)

// Serve starts the HTTP API server for triggering imports and polling progress.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd.String("config"))

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	users := repositories.NewUserRepository(db)
	works := repositories.NewWorkRepository(db)
	themes := repositories.NewThemeRepository(db)

	engine := tasks.NewImportEngine(r.source, r.themes, r.resolver, users, works, themes, nil, r.logger)
	engine.SetDelays(
		time.Duration(config.Import.ItemDelayMS)*time.Millisecond,
		time.Duration(config.Import.ThemeDelayMS)*time.Millisecond,
	)

	var auth server.SourceAuthenticator
	if a, ok := r.source.(server.SourceAuthenticator); ok {
		auth = a
	}

	handler := server.NewAPIHandler(engine, auth, works, users, config.Import.Statuses, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger), server.JSONMiddleware())
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	r.logger.Info("starting API server", "addr", addr)
	r.writePlain("Listening on http://%s\n", addr)
	r.writePlain("  POST /api/import    start an import run\n")
	r.writePlain("  GET  /api/progress  poll run progress\n")
	r.writePlain("  GET  /api/works     list imported works\n")

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
