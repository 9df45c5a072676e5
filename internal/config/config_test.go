package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlos/wolhook/internal/config"
	"github.com/merlos/wolhook/pkg/protocol"
)

func validConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Target.MAC = protocol.MustParseMAC("52:54:00:12:34:56")
	cfg.Target.Command = []string{"echo", "woken"}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "0.0.0.0", cfg.Listen.Address)
	assert.Equal(t, []uint16{0, 7, 9}, cfg.Listen.Ports)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Target.Debounce.Duration, "debounce must be off by default")
	assert.Empty(t, cfg.Metrics.Address)

	cfg.Listen.Ports[0] = 1234
	assert.Equal(t, uint16(0), config.DefaultPorts[0], "DefaultConfig must copy DefaultPorts")
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wolhook", "config.yaml")

	cfg := validConfig()
	cfg.Target.Timeout = config.Duration{Duration: 30 * time.Second}
	cfg.Metrics.Address = ":9102"

	require.NoError(t, config.Save(path, cfg))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen:
  ports: [7, 9]
target:
  mac: aa:bb:cc:dd:ee:ff
  command: ["systemctl", "start", "backup.service"]
  debounce: 2s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, protocol.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, cfg.Target.MAC)
	assert.Equal(t, []string{"systemctl", "start", "backup.service"}, cfg.Target.Command)
	assert.Equal(t, []uint16{7, 9}, cfg.Listen.Ports)
	assert.Equal(t, 2*time.Second, cfg.Target.Debounce.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0", cfg.Listen.Address, "unset fields keep their defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidMAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  mac: aa:bb:cc:dd:ee:gg\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 15")
}

func TestLoad_Missing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"no mac", func(c *config.Config) { c.Target.MAC = protocol.MAC{} }, "target.mac"},
		{"zero mac from args", func(c *config.Config) {
			c.Target.MAC = protocol.MAC{}
			c.Target.MACFromArgs = true
		}, ""},
		{"no command", func(c *config.Config) { c.Target.Command = nil }, "target.command"},
		{"empty program", func(c *config.Config) { c.Target.Command = []string{""} }, "target.command"},
		{"no ports", func(c *config.Config) { c.Listen.Ports = nil }, "listen.ports"},
		{"duplicate port", func(c *config.Config) { c.Listen.Ports = []uint16{9, 9} }, "port 9 listed twice"},
		{"repeated ephemeral", func(c *config.Config) { c.Listen.Ports = []uint16{0, 0} }, ""},
		{"negative timeout", func(c *config.Config) { c.Target.Timeout.Duration = -time.Second }, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
