// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/muster/lib/cron"
	"github.com/bureau-foundation/muster/lib/ref"
)

// Config is the service configuration, loaded from a single YAML file.
// There is no discovery and no environment override: the file named by
// --config is the complete configuration.
type Config struct {
	// HomeserverURL is the Matrix homeserver base URL.
	HomeserverURL string `yaml:"homeserver_url"`

	// UserID is the service's fully-qualified Matrix user ID.
	UserID string `yaml:"user_id"`

	// AccessTokenFile is the path of a file holding the raw access
	// token. Kept out of the config file so the config can be checked
	// into configuration management.
	AccessTokenFile string `yaml:"access_token_file"`

	// StateDir is the directory for the SQLite database.
	StateDir string `yaml:"state_dir"`

	// SocketPath is where the control socket is created. Defaults to
	// <state_dir>/muster.sock.
	SocketPath string `yaml:"socket_path"`

	// PolicyFile is the path of the JSONC policy document.
	PolicyFile string `yaml:"policy_file"`

	// DispatchInterval is the dispatcher tick cadence. Duration
	// string; defaults to 30s; capped at 60s to keep reminder and
	// form-up timing acceptably precise.
	DispatchInterval duration `yaml:"dispatch_interval"`

	// SummarySchedule is the summary publisher cadence as a 5-field
	// cron expression. Defaults to every half hour.
	SummarySchedule string `yaml:"summary_schedule"`

	// PoolSize is the SQLite connection pool size. Defaults to 4.
	PoolSize int `yaml:"pool_size"`
}

const (
	defaultDispatchInterval = 30 * time.Second
	maxDispatchInterval     = time.Minute
	defaultSummarySchedule  = "*/30 * * * *"
)

// duration adds YAML unmarshaling from Go duration strings ("30s",
// "2h") to time.Duration, which yaml.v3 does not do natively.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected a duration string")
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration { return time.Duration(d) }

// LoadConfig reads, defaults, and validates the YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.HomeserverURL == "" {
		return nil, fmt.Errorf("%s: homeserver_url is required", path)
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("%s: user_id is required", path)
	}
	if _, err := ref.ParseUserID(cfg.UserID); err != nil {
		return nil, fmt.Errorf("%s: user_id: %w", path, err)
	}
	if cfg.AccessTokenFile == "" {
		return nil, fmt.Errorf("%s: access_token_file is required", path)
	}
	if cfg.StateDir == "" {
		return nil, fmt.Errorf("%s: state_dir is required", path)
	}
	if cfg.PolicyFile == "" {
		return nil, fmt.Errorf("%s: policy_file is required", path)
	}

	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.StateDir, "muster.sock")
	}
	if cfg.DispatchInterval == 0 {
		cfg.DispatchInterval = duration(defaultDispatchInterval)
	}
	if cfg.DispatchInterval < 0 {
		return nil, fmt.Errorf("%s: dispatch_interval is negative", path)
	}
	if cfg.DispatchInterval.Std() > maxDispatchInterval {
		return nil, fmt.Errorf("%s: dispatch_interval %s exceeds the %s maximum",
			path, cfg.DispatchInterval.Std(), maxDispatchInterval)
	}
	if cfg.SummarySchedule == "" {
		cfg.SummarySchedule = defaultSummarySchedule
	}
	if _, err := cron.Parse(cfg.SummarySchedule); err != nil {
		return nil, fmt.Errorf("%s: summary_schedule: %w", path, err)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}

	return &cfg, nil
}

// ReadAccessToken loads and trims the token file.
func ReadAccessToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading access token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("access token file %s is empty", path)
	}
	return token, nil
}
