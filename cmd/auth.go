package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/ymgch/anisync/internal/server"
	"github.com/ymgch/anisync/internal/services"
	"github.com/ymgch/anisync/internal/shared"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization code flow for Annict.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for an access token saved to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if r.configPath == "" {
		r.configPath = configPath
	}

	config := r.resolveConfig(configPath)

	annict := config.Credentials.Annict
	if annict.ClientID == "" || annict.ClientSecret == "" {
		return fmt.Errorf("%w: Annict client_id and client_secret must be set in %s", shared.ErrInvalidArgument, configPath)
	}

	oauthConfig := services.AnnictOAuthConfig(annict.ClientID, annict.ClientSecret, annict.RedirectURI)

	token, err := r.doOAuth(config, oauthConfig)
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	r.source = services.NewAnnictService(token.AccessToken, config.Sources.AnnictBaseURL, r.httpClient)

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: anisync import run\n")

	return nil
}

// AuthStatus checks current authentication state against the Annict API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	config := r.resolveConfig(cmd.String("config"))

	if config.Credentials.Annict.AccessToken == "" {
		r.writePlain("Annict: ✗ Not authenticated\n")
		r.writePlain("Run 'anisync auth login' to authorize.\n")
		return nil
	}

	if r.source == nil {
		return fmt.Errorf("%w: Annict service not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.source.Me(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.writePlain("Annict: ✓ Authenticated\n")
	r.writePlain("User: %s (@%s)\n", user.Name, user.Username)

	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		r.writePlain("Spotify: ✓ Client credentials configured\n")
	} else {
		r.writePlain("Spotify: ✗ Client credentials missing (track resolution disabled)\n")
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Annict authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
