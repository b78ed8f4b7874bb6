// Package config loads and validates the explicit configuration threaded
// into every entry point. Components never read the process environment
// themselves; the feature flag and credentials travel on the Config value.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jayljohnson/nordhus.site/internal/retry"
)

// Recognized environment variables. The env always wins over the YAML file.
const (
	EnvPhotoMonitoring = "ENABLE_PHOTO_MONITORING"
	EnvGitHubToken     = "GITHUB_TOKEN"
	EnvCloudinaryURL   = "CLOUDINARY_URL"
)

// Config carries everything the lifecycle core needs. PhotoMonitoring is the
// single feature flag gating all photo-service network activity; it defaults
// to false and is never read ad hoc downstream.
type Config struct {
	PhotoMonitoring bool   `yaml:"photo_monitoring"`
	SiteDir         string `yaml:"site_dir"`

	RepoOwner   string `yaml:"repo_owner"`
	RepoName    string `yaml:"repo_name"`
	GitHubToken string `yaml:"-"` // env only, never persisted

	CloudinaryURL string `yaml:"-"` // env only, never persisted
	AlbumPrefix   string `yaml:"album_prefix"`

	MonitorInterval time.Duration `yaml:"monitor_interval"`
	MetricsAddr     string        `yaml:"metrics_addr"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig holds raw backoff settings; zero values fall back to defaults
// in Policy(). MaxRetries is a pointer so an explicit 0 (never retry) stays
// distinguishable from the field being absent.
type RetryConfig struct {
	Mode       string        `yaml:"mode"`
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	MaxRetries *int          `yaml:"max_retries"`
}

// Policy converts the raw retry settings into a validated retry.Policy.
func (rc RetryConfig) Policy() retry.Policy {
	n := -1 // unset: use default
	if rc.MaxRetries != nil {
		n = *rc.MaxRetries
	}
	return retry.NewPolicy(retry.BackoffMode(rc.Mode), rc.Initial, rc.Max, n)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SiteDir:         ".",
		RepoOwner:       "jayljohnson",
		RepoName:        "nordhus.site",
		AlbumPrefix:     "project-",
		MonitorInterval: time.Hour,
	}
}

// Load reads the optional YAML file at path, then applies environment
// variables on top. A missing file is not an error; a malformed one is.
// .env/.env.local are loaded first without overriding the process env.
func Load(path string) (*Config, error) {
	// Best effort: absence of a .env file is the common case.
	_ = godotenv.Load(".env", ".env.local")

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvPhotoMonitoring); ok {
		c.PhotoMonitoring = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := os.Getenv(EnvGitHubToken); v != "" {
		c.GitHubToken = v
	}
	if v := os.Getenv(EnvCloudinaryURL); v != "" {
		c.CloudinaryURL = v
	}
}

// Validate reports the credentials missing for the features actually enabled.
// With photo monitoring off, no photo-service credential is required.
func (c *Config) Validate() error {
	var missing []string
	if c.PhotoMonitoring {
		if c.CloudinaryURL == "" {
			missing = append(missing, EnvCloudinaryURL)
		}
		if c.GitHubToken == "" {
			missing = append(missing, EnvGitHubToken)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.SiteDir == "" {
		return fmt.Errorf("site_dir cannot be empty")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor_interval must be positive")
	}
	return c.Retry.Policy().Validate()
}
