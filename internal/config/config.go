// Package config handles reading and writing the wolhook configuration file in YAML format.
//
// The config is stored at /etc/wolhook/config.yaml by default. Every field has a
// default, so a file only needs to name the target MAC address and command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/merlos/wolhook/pkg/protocol"
)

// DefaultPath is the default config file location.
const DefaultPath = "/etc/wolhook/config.yaml"

// DefaultPorts are the UDP ports magic packets are commonly sent to.
var DefaultPorts = []uint16{0, 7, 9}

// Listen controls the UDP sockets.
type Listen struct {
	// Address is the local IP to bind. Defaults to 0.0.0.0 (all interfaces).
	Address string `yaml:"address"`

	// Ports is the list of UDP ports to listen on. Every port must bind or
	// startup fails.
	Ports []uint16 `yaml:"ports,flow"`

	// ReadBuffer is the SO_RCVBUF size requested for each socket, in bytes.
	ReadBuffer int `yaml:"read_buffer"`
}

// Target describes which magic packets trigger which command.
type Target struct {
	// MAC is the hardware address to wait for. In the file, the zero
	// address means unset.
	MAC protocol.MAC `yaml:"mac"`

	// MACFromArgs records that MAC came from the command line, where every
	// address, the zero one included, is a valid target.
	MACFromArgs bool `yaml:"-"`

	// Command is the program and arguments run on each matching packet.
	Command []string `yaml:"command,flow"`

	// Timeout bounds each command execution. Zero means no limit.
	Timeout Duration `yaml:"timeout"`

	// Debounce suppresses repeated triggers from the same sender within the
	// window. Zero (the default) runs the command for every matching packet.
	Debounce Duration `yaml:"debounce"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	// Address is the HTTP listen address for /metrics, e.g. ":9102".
	// Empty disables the endpoint.
	Address string `yaml:"address"`
}

// Log controls logging output.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File, when set, sends logs to a rotating file instead of stderr.
	File string `yaml:"file,omitempty"`

	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Config is the top-level structure of the config file.
type Config struct {
	Listen  Listen  `yaml:"listen"`
	Target  Target  `yaml:"target"`
	Metrics Metrics `yaml:"metrics"`
	Log     Log     `yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults and no target.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Listen.Address = "0.0.0.0"
	cfg.Listen.Ports = append([]uint16(nil), DefaultPorts...)
	cfg.Listen.ReadBuffer = 64 * 1024
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	return cfg
}

// Load reads and parses a config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault is like Load but returns DefaultConfig when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports the first problem that would prevent the listener from starting.
func (c *Config) Validate() error {
	if c.Target.MAC == (protocol.MAC{}) && !c.Target.MACFromArgs {
		return errors.New("target.mac is required")
	}
	if len(c.Target.Command) == 0 || c.Target.Command[0] == "" {
		return errors.New("target.command must name a program")
	}
	if len(c.Listen.Ports) == 0 {
		return errors.New("listen.ports must not be empty")
	}
	seen := make(map[uint16]bool, len(c.Listen.Ports))
	for _, p := range c.Listen.Ports {
		// Port 0 binds an ephemeral port, so it may appear more than once.
		if p != 0 && seen[p] {
			return fmt.Errorf("listen.ports: port %d listed twice", p)
		}
		seen[p] = true
	}
	if c.Target.Timeout.Duration < 0 || c.Target.Debounce.Duration < 0 {
		return errors.New("target.timeout and target.debounce must not be negative")
	}
	return nil
}

// Duration is a wrapper around time.Duration that supports YAML marshalling
// in human-readable form (e.g. "30s", "1m").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}
