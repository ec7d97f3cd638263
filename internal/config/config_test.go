package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Device.Address != "" {
		t.Errorf("Device.Address = %q, want empty", cfg.Device.Address)
	}
	if cfg.Device.ScanTimeout != 10*time.Second {
		t.Errorf("Device.ScanTimeout = %v, want 10s", cfg.Device.ScanTimeout)
	}
	if cfg.Device.Cooldown != 2*time.Second {
		t.Errorf("Device.Cooldown = %v, want 2s", cfg.Device.Cooldown)
	}
	if cfg.Device.MaxAttempts != 5 {
		t.Errorf("Device.MaxAttempts = %d, want 5", cfg.Device.MaxAttempts)
	}
	if !cfg.Device.Reconnect {
		t.Error("Device.Reconnect should default to true")
	}
	if cfg.HTTP.Listen != ":8000" {
		t.Errorf("HTTP.Listen = %q, want %q", cfg.HTTP.Listen, ":8000")
	}
	if cfg.BlueZ.Adapter != "hci0" {
		t.Errorf("BlueZ.Adapter = %q, want %q", cfg.BlueZ.Adapter, "hci0")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
device:
  address: " AA:BB:CC:DD:EE:FF "
  scan_timeout: 5s
  cooldown: 500ms
  max_attempts: 3
  reconnect: false
http:
  listen: 127.0.0.1:9000
bluez:
  adapter: hci1
  power_on: false
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Address != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("Device.Address = %q, want %q", cfg.Device.Address, "AA:BB:CC:DD:EE:FF")
	}
	if cfg.Device.ScanTimeout != 5*time.Second {
		t.Errorf("Device.ScanTimeout = %v, want 5s", cfg.Device.ScanTimeout)
	}
	if cfg.Device.Cooldown != 500*time.Millisecond {
		t.Errorf("Device.Cooldown = %v, want 500ms", cfg.Device.Cooldown)
	}
	if cfg.Device.MaxAttempts != 3 {
		t.Errorf("Device.MaxAttempts = %d, want 3", cfg.Device.MaxAttempts)
	}
	if cfg.Device.Reconnect {
		t.Error("Device.Reconnect = true, want false")
	}
	if cfg.HTTP.Listen != "127.0.0.1:9000" {
		t.Errorf("HTTP.Listen = %q, want %q", cfg.HTTP.Listen, "127.0.0.1:9000")
	}
	if cfg.BlueZ.Adapter != "hci1" || cfg.BlueZ.PowerOn {
		t.Errorf("BlueZ = %+v, want {hci1 false}", cfg.BlueZ)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_level: warn\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.MaxAttempts != 5 {
		t.Errorf("Device.MaxAttempts = %d, want default 5", cfg.Device.MaxAttempts)
	}
	if cfg.HTTP.Listen != ":8000" {
		t.Errorf("HTTP.Listen = %q, want default", cfg.HTTP.Listen)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("device:\n  scan_timeout: soon\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should reject an unparseable duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero scan timeout",
			modify:  func(c *Config) { c.Device.ScanTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative cooldown",
			modify:  func(c *Config) { c.Device.Cooldown = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero cooldown",
			modify:  func(c *Config) { c.Device.Cooldown = 0 },
			wantErr: false,
		},
		{
			name:    "zero max attempts",
			modify:  func(c *Config) { c.Device.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "acquire timeout disabled",
			modify:  func(c *Config) { c.Device.AcquireTimeout = 0 },
			wantErr: false,
		},
		{
			name:    "zero connect timeout",
			modify:  func(c *Config) { c.Device.ConnectTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero reconnect max",
			modify:  func(c *Config) { c.Device.ReconnectMax = 0 },
			wantErr: true,
		},
		{
			name:    "empty listen address",
			modify:  func(c *Config) { c.HTTP.Listen = "" },
			wantErr: true,
		},
		{
			name:    "empty bluez adapter",
			modify:  func(c *Config) { c.BlueZ.Adapter = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "z407ctl", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# z407ctl") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Device.ScanTimeout != 10*time.Second {
		t.Errorf("written config Device.ScanTimeout = %v, want 10s", cfg.Device.ScanTimeout)
	}
	if cfg.HTTP.Listen != ":8000" {
		t.Errorf("written config HTTP.Listen = %q, want %q", cfg.HTTP.Listen, ":8000")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "z407ctl")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarshalLoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Device.Address = "AA:BB:CC:DD:EE:FF"
	cfg.Device.ScanTimeout = 1500 * time.Millisecond

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if *got != *cfg {
		t.Errorf("Load(Marshal()) = %+v, want %+v", got, cfg)
	}
}
