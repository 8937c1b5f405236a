// Package config handles environment variable loading and configuration resolution.
// Precedence: OSU_* (legacy) -> STRAPI_* -> .env file -> error.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultContentType is the destination schema used when none is configured.
const DefaultContentType = "blog-reganshaner-com-post"

// Config holds resolved Strapi credentials and workspace settings.
type Config struct {
	Host        string
	APIToken    string
	VaultDir    string
	ContentType string
	HistoryDB   string
}

// ErrMissingConfig is returned when required config values cannot be resolved.
var ErrMissingConfig = errors.New("missing configuration")

// Load resolves credentials from environment and optional .env file.
// Precedence: OSU_* (legacy) -> STRAPI_* -> .env file.
// The .env path is loaded only if explicit env vars are absent.
func Load(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			// godotenv.Load never overrides variables already present in the environment.
			_ = godotenv.Load(dotEnvPath)
		}
	}

	host := strings.TrimSpace(resolve("OSU_STRAPI_HOST", "STRAPI_HOST"))
	token := strings.TrimSpace(resolve("OSU_AUTH_TOKEN", "STRAPI_API_TOKEN"))

	var missing []string
	if host == "" {
		missing = append(missing, "STRAPI_HOST")
	}
	if token == "" {
		missing = append(missing, "STRAPI_API_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	host = strings.TrimRight(host, "/")
	if u, err := url.ParseRequestURI(host); err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: STRAPI_HOST %q is not an absolute URL", ErrMissingConfig, host)
	}

	vaultDir := strings.TrimSpace(os.Getenv("OSU_VAULT"))
	if vaultDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		vaultDir = cwd
	}

	contentType := strings.TrimSpace(os.Getenv("OSU_CONTENT_TYPE"))
	if contentType == "" {
		contentType = DefaultContentType
	}

	historyDB := strings.TrimSpace(os.Getenv("OSU_HISTORY_DB"))
	if historyDB == "" {
		historyDB = filepath.Join(vaultDir, ".osu", "history.db")
	}

	return &Config{
		Host:        host,
		APIToken:    token,
		VaultDir:    vaultDir,
		ContentType: contentType,
		HistoryDB:   historyDB,
	}, nil
}

// resolve returns the first non-empty value from the legacy key then the canonical key.
func resolve(legacyKey, canonicalKey string) string {
	if v := os.Getenv(legacyKey); v != "" {
		return v
	}
	return os.Getenv(canonicalKey)
}
