package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
ranking:
  region_mismatch_penalty: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Ranking.RegionMismatchPenalty != 30 {
		t.Errorf("region_mismatch_penalty = %v, want 30", cfg.Ranking.RegionMismatchPenalty)
	}
	if cfg.Ranking.ContainmentScore != 100 {
		t.Errorf("containment_score should default to 100, got %v", cfg.Ranking.ContainmentScore)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/catalog.db"
catalog:
  path: "./catalog/services.xlsx"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "catalog.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "catalog", "services.xlsx"); cfg.Catalog.Path != want {
		t.Errorf("catalog.path = %s, want %s", cfg.Catalog.Path, want)
	}
}

func TestLoad_envExpansion(t *testing.T) {
	t.Setenv("BANSHI_TEST_API_KEY", "sk-test")
	path := writeConfig(t, `
intent:
  api_key: "${BANSHI_TEST_API_KEY}"
  model: "${BANSHI_TEST_UNSET_MODEL:-llama3-8b}"
  api_url: "${BANSHI_TEST_UNSET_URL}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Intent.APIKey != "sk-test" {
		t.Errorf("api_key = %q", cfg.Intent.APIKey)
	}
	if cfg.Intent.Model != "llama3-8b" {
		t.Errorf("model = %q, want default from expression", cfg.Intent.Model)
	}
	if cfg.Intent.APIURL != "" {
		t.Errorf("api_url = %q, want empty", cfg.Intent.APIURL)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"limits", "search:\n  default_limit: 50\n  max_limit: 10\n", "default_limit"},
		{"threshold", "ranking:\n  coverage_threshold: 1.5\n", "coverage_threshold"},
		{"negative timeout", "intent:\n  timeout_sec: -1\n", "timeout_sec"},
		{"yaml", "server: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Search.DefaultLimit != 20 || cfg.Search.MaxLimit != 100 {
		t.Errorf("default limits: got %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Search.Workers < 1 {
		t.Errorf("workers should default to the CPU count, got %d", cfg.Search.Workers)
	}
	if cfg.Intent.Timeout().Seconds() != 10 {
		t.Errorf("intent timeout: got %v", cfg.Intent.Timeout())
	}
	if cfg.Ranking.ResultCap != 100 || cfg.Ranking.CoverageThreshold != 0.6 {
		t.Errorf("ranking defaults not applied: %+v", cfg.Ranking)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestCatalogConfig_Defaults(t *testing.T) {
	c := &CatalogConfig{}
	if c.WatchOrDefault() {
		t.Error("watch should default to false without a path")
	}
	if !c.SeedDefaultOrDefault() {
		t.Error("seed_default should default to true")
	}

	c.Path = "/tmp/catalog.csv"
	if !c.WatchOrDefault() {
		t.Error("watch should default to true with a path")
	}

	f := false
	c.Watch = &f
	c.SeedDefault = &f
	if c.WatchOrDefault() || c.SeedDefaultOrDefault() {
		t.Error("explicit false should win")
	}
}

func TestIntentConfig_AdoptContextOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		c := &IntentConfig{}
		if !c.AdoptContextOrDefault() {
			t.Error("AdoptContextOrDefault() = false, want true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		c := &IntentConfig{AdoptContext: &f}
		if c.AdoptContextOrDefault() {
			t.Error("AdoptContextOrDefault() = true, want false")
		}
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

func TestLoad_rankingZeroWeights(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ranking:\n  high_frequency_bonus: 0\n  satisfaction_weight: 0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ranking.HighFrequencyBonus != 0 || cfg.Ranking.SatisfactionWeight != 0 {
		t.Errorf("explicit zero weights replaced: %+v", cfg.Ranking)
	}
	if cfg.Ranking.ContainmentScore != 100 || cfg.Ranking.ResultCap != 100 {
		t.Errorf("unset ranking keys lost their defaults: %+v", cfg.Ranking)
	}
	cfg.Ranking.ApplyDefaults()
	if cfg.Ranking.HighFrequencyBonus != 0 {
		t.Error("ApplyDefaults overrode a configured zero weight")
	}
}
