package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
)

var configKeys = []string{
	"STRAPI_HOST", "STRAPI_API_TOKEN",
	"OSU_STRAPI_HOST", "OSU_AUTH_TOKEN",
	"OSU_VAULT", "OSU_CONTENT_TYPE", "OSU_HISTORY_DB",
}

func unsetConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		prev, had := os.LookupEnv(k)
		os.Unsetenv(k)
		if had {
			t.Cleanup(func() { os.Setenv(k, prev) })
		}
	}
}

func TestLoad_StrapiVars(t *testing.T) {
	unsetConfigEnv(t)
	t.Setenv("STRAPI_HOST", "https://cms.example.com")
	t.Setenv("STRAPI_API_TOKEN", "tok123")
	t.Setenv("OSU_VAULT", "/vault")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Host != "https://cms.example.com" {
		t.Errorf("Host = %q; want %q", cfg.Host, "https://cms.example.com")
	}
	if cfg.APIToken != "tok123" {
		t.Errorf("APIToken = %q; want %q", cfg.APIToken, "tok123")
	}
	if cfg.ContentType != config.DefaultContentType {
		t.Errorf("ContentType = %q; want %q", cfg.ContentType, config.DefaultContentType)
	}
	if want := filepath.Join("/vault", ".osu", "history.db"); cfg.HistoryDB != want {
		t.Errorf("HistoryDB = %q; want %q", cfg.HistoryDB, want)
	}
}

func TestLoad_LegacyVarsPrecedence(t *testing.T) {
	unsetConfigEnv(t)
	// Legacy OSU_* should win over STRAPI_*.
	t.Setenv("OSU_STRAPI_HOST", "https://legacy.example.com")
	t.Setenv("STRAPI_HOST", "https://should-not-win.example.com")
	t.Setenv("STRAPI_API_TOKEN", "tok123")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Host != "https://legacy.example.com" {
		t.Errorf("Host = %q; want legacy value", cfg.Host)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	unsetConfigEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "STRAPI_HOST=https://dotenv.example.com\n" +
		"STRAPI_API_TOKEN=dotenvtok\n" +
		"OSU_CONTENT_TYPE=article\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("STRAPI_HOST")
		os.Unsetenv("STRAPI_API_TOKEN")
		os.Unsetenv("OSU_CONTENT_TYPE")
	})

	cfg, err := config.Load(envFile)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Host != "https://dotenv.example.com" {
		t.Errorf("Host = %q; want dotenv value", cfg.Host)
	}
	if cfg.APIToken != "dotenvtok" {
		t.Errorf("APIToken = %q; want dotenv value", cfg.APIToken)
	}
	if cfg.ContentType != "article" {
		t.Errorf("ContentType = %q; want article", cfg.ContentType)
	}
}

func TestLoad_MissingConfig(t *testing.T) {
	unsetConfigEnv(t)

	_, err := config.Load("")
	if !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("Load() error = %v; want ErrMissingConfig", err)
	}
}

func TestLoad_BlankValuesAreMissing(t *testing.T) {
	unsetConfigEnv(t)
	t.Setenv("STRAPI_HOST", "   ")
	t.Setenv("STRAPI_API_TOKEN", "tok")

	_, err := config.Load("")
	if !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("Load() error = %v; want ErrMissingConfig", err)
	}
}

func TestLoad_RejectsRelativeHost(t *testing.T) {
	unsetConfigEnv(t)
	t.Setenv("STRAPI_HOST", "cms.example.com")
	t.Setenv("STRAPI_API_TOKEN", "tok")

	_, err := config.Load("")
	if !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("Load() error = %v; want ErrMissingConfig", err)
	}
}

func TestLoad_TrailingSlashStripped(t *testing.T) {
	unsetConfigEnv(t)
	t.Setenv("STRAPI_HOST", "https://cms.example.com/")
	t.Setenv("STRAPI_API_TOKEN", "tok")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Host != "https://cms.example.com" {
		t.Errorf("Host trailing slash not stripped: %q", cfg.Host)
	}
}
