package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServer = "http://127.0.0.1:8000"

	EnvConfigDir = "TODOSYNC_CONFIG_DIR"
	EnvServer    = "TODOSYNC_SERVER"
	EnvFormat    = "TODOSYNC_FORMAT"
)

// Config is the client configuration stored in ~/.todosync/config.yaml.
type Config struct {
	// Server is the base URL of the list service API.
	Server string `yaml:"server,omitempty" json:"server,omitempty"`

	PollInterval Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	DragGrace    Duration `yaml:"drag_grace,omitempty" json:"drag_grace,omitempty"`
	InputGrace   Duration `yaml:"input_grace,omitempty" json:"input_grace,omitempty"`

	ShowCompleted bool `yaml:"show_completed,omitempty" json:"show_completed,omitempty"`

	// LastList is the slug reopened when no list is given.
	LastList string `yaml:"last_list,omitempty" json:"last_list,omitempty"`

	// LogFile receives logs while the TUI owns the terminal.
	LogFile string `yaml:"log_file,omitempty" json:"log_file,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("3s").
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// MarshalText keeps JSON output in the same "3s" form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := parseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = v
	return nil
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return Duration(v), nil
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.todosync).
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".todosync"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file. A missing file yields an empty config.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Keep the previous file around for recovery; failures here don't block the save.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.yaml.bak.*.tmp", path+".bak", prev, 0o644)
	}

	// Unique temp names keep concurrent writers (CLI + TUI) from clobbering each other.
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// ResolveServer picks the server URL: flag, then $TODOSYNC_SERVER, then the
// config file, then DefaultServer.
func (c *Config) ResolveServer(flag string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		return v
	}
	if c != nil {
		if v := strings.TrimSpace(c.Server); v != "" {
			return v
		}
	}
	return DefaultServer
}

// Set updates one key by its YAML name.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "server":
		c.Server = value
	case "last_list":
		c.LastList = value
	case "log_file":
		c.LogFile = value
	case "show_completed":
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			c.ShowCompleted = true
		case "false", "0", "no", "off", "":
			c.ShowCompleted = false
		default:
			return fmt.Errorf("invalid boolean %q", value)
		}
	case "poll_interval", "drag_grace", "input_grace":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		switch key {
		case "poll_interval":
			c.PollInterval = d
		case "drag_grace":
			c.DragGrace = d
		default:
			c.InputGrace = d
		}
	default:
		return fmt.Errorf("unknown config key %q (expected %s)", key, strings.Join(Keys(), "|"))
	}
	return nil
}

// Keys lists the settable keys.
func Keys() []string {
	return []string{"server", "poll_interval", "drag_grace", "input_grace", "show_completed", "last_list", "log_file"}
}
