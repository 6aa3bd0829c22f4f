package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "anisync.db" {
			t.Errorf("expected database path anisync.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Sources.SyoboiBaseURL != "https://cal.syoboi.jp" {
			t.Errorf("expected syoboi base URL https://cal.syoboi.jp, got %s", config.Sources.SyoboiBaseURL)
		}

		if len(config.Import.Statuses) != 1 || config.Import.Statuses[0] != "watched" {
			t.Errorf("expected default statuses [watched], got %v", config.Import.Statuses)
		}

		if config.Import.ItemDelayMS != 500 {
			t.Errorf("expected item delay 500ms, got %d", config.Import.ItemDelayMS)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 9090

[credentials.annict]
access_token = "test_token"
client_id = "annict_client"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[import]
statuses = ["watched", "watching"]
item_delay_ms = 250
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 9090 {
			t.Errorf("expected server port 9090, got %d", config.Server.Port)
		}

		if config.Credentials.Annict.AccessToken != "test_token" {
			t.Errorf("expected annict access_token test_token, got %s", config.Credentials.Annict.AccessToken)
		}

		if len(config.Import.Statuses) != 2 {
			t.Errorf("expected two statuses, got %v", config.Import.Statuses)
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := DefaultConfig()
		config.Credentials.Annict.AccessToken = "saved_token"
		config.Database.Path = "/saved/path.db"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}

		if loaded.Credentials.Annict.AccessToken != "saved_token" {
			t.Errorf("expected saved access token, got %s", loaded.Credentials.Annict.AccessToken)
		}
		if loaded.Database.Path != "/saved/path.db" {
			t.Errorf("expected saved database path, got %s", loaded.Database.Path)
		}
	})
}
