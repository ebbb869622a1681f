// Package config loads the YAML configuration file shared by the
// daemon and client commands. The core components receive the parsed
// struct; they never read configuration files themselves.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"gitwire.dev/gitwire/internal/constants"
)

// Identity names the operator, recorded as author/committer/tagger on
// objects created locally.
type Identity struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Address is the endpoint the daemon binds or the client connects to.
type Address struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// Config is the full configuration document.
type Config struct {
	Identity       Identity `yaml:"identity"`
	LogPath        string   `yaml:"log_path"`
	Address        Address  `yaml:"address"`
	RepositoryRoot string   `yaml:"repository_root"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates a configuration file, filling defaults for
// omitted network fields.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{
		Address: Address{
			IP:   constants.DefaultIP,
			Port: constants.DefaultPort,
		},
		TimeoutSeconds: constants.DefaultTimeoutSeconds,
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if net.ParseIP(c.Address.IP) == nil {
		return fmt.Errorf("invalid ip address: %q", c.Address.IP)
	}
	if c.Address.Port < 1 || c.Address.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Address.Port)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout_seconds: %d", c.TimeoutSeconds)
	}
	return nil
}

// Addr returns the endpoint in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Address.IP, strconv.Itoa(c.Address.Port))
}

// Timeout returns the per-connection I/O deadline window.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
