// Package config loads lecturecap settings from the environment, an optional
// .env file, and the OS keyring.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kernel/lecturecap/internal/page"
	"github.com/pterm/pterm"
)

const (
	EnvBackgroundURL     = "LECTURECAP_BACKGROUND_URL"
	EnvToken             = "LECTURECAP_TOKEN"
	EnvMaxIframeDepth    = "LECTURECAP_MAX_IFRAME_DEPTH"
	EnvRequestTimeout    = "LECTURECAP_REQUEST_TIMEOUT"
	EnvDisableHeuristics = "LECTURECAP_DISABLE_HEURISTICS"
	EnvKernelBrowserID   = "LECTURECAP_KERNEL_BROWSER"
	EnvExtensionID       = "LECTURECAP_EXTENSION_ID"
	EnvKernelAPIKey      = "KERNEL_API_KEY"

	DefaultRequestTimeout = 60 * time.Second
)

// Config holds runtime settings.
type Config struct {
	BackgroundURL     string
	Token             string
	MaxIframeDepth    int
	RequestTimeout    time.Duration
	DisableHeuristics bool

	KernelAPIKey    string
	KernelBrowserID string
	ExtensionID     string
}

// LoadEnv reads .env (when present) into the process environment, then builds
// a Config from it. Variables already set in the environment win.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// Load is LoadEnv with the token falling back to the keyring.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		token, err := LoadToken()
		switch {
		case err == nil:
			cfg.Token = token
		case !errors.Is(err, ErrNoToken):
			pterm.Debug.Printf("Keyring unavailable: %v\n", err)
		}
	}
	return cfg, nil
}

// FromEnv builds a Config from getenv, applying defaults for unset values.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		BackgroundURL:   strings.TrimSpace(getenv(EnvBackgroundURL)),
		Token:           strings.TrimSpace(getenv(EnvToken)),
		MaxIframeDepth:  page.DefaultMaxIframeDepth,
		RequestTimeout:  DefaultRequestTimeout,
		KernelAPIKey:    strings.TrimSpace(getenv(EnvKernelAPIKey)),
		KernelBrowserID: strings.TrimSpace(getenv(EnvKernelBrowserID)),
		ExtensionID:     strings.TrimSpace(getenv(EnvExtensionID)),
	}

	if v := strings.TrimSpace(getenv(EnvMaxIframeDepth)); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil || depth < 0 {
			return nil, fmt.Errorf("invalid %s %q: must be a non-negative integer", EnvMaxIframeDepth, v)
		}
		cfg.MaxIframeDepth = depth
	}

	if v := strings.TrimSpace(getenv(EnvRequestTimeout)); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			return nil, fmt.Errorf("invalid %s %q: must be a positive duration such as 30s", EnvRequestTimeout, v)
		}
		cfg.RequestTimeout = timeout
	}

	if v := strings.TrimSpace(getenv(EnvDisableHeuristics)); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: must be true or false", EnvDisableHeuristics, v)
		}
		cfg.DisableHeuristics = disabled
	}

	return cfg, nil
}
