package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/ymgch/anisync/internal/services"
	"github.com/ymgch/anisync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	source := services.NewAnnictService(config.Credentials.Annict.AccessToken, config.Sources.AnnictBaseURL, nil)
	themes := services.NewSyoboiService(config.Sources.SyoboiBaseURL, nil, logger)

	var resolver services.TrackResolver
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(map[string]string{
			"client_id":     config.Credentials.Spotify.ClientID,
			"client_secret": config.Credentials.Spotify.ClientSecret,
			"base_url":      config.Sources.SpotifyBaseURL,
		}, logger); err == nil {
			resolver = svc
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Source:     source,
		Themes:     themes,
		Resolver:   resolver,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "anisync",
		Usage:    "Import Annict watch history with theme songs & Spotify links",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
