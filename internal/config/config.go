// Package config loads the immutable startup configuration from the
// environment. The parsed Config is passed explicitly to each component at
// construction — there are no mutable process-wide settings.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/motomeet.db"`

	// JWTSecret signs session tokens. Required: without it no identity can
	// be asserted. Use at least 32 random bytes, e.g. $(openssl rand -hex 32).
	JWTSecret string `env:"JWT_SECRET"`

	// GoogleMapsAPIKey authorizes the geocoding and autocomplete
	// collaborators. When empty, location updates fail with an upstream
	// error; the rest of the API still works.
	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`

	// Optional GitHub sign-in. The OAuth routes are registered only when
	// a client ID is configured.
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}
