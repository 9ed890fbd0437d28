package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/gpio"
)

const sampleYAML = `
gpio:
  chip: gpiochip4
  active_low: true
pinout:
  phosphoramidites:
    A: P15
    C: "16"
    G: 18
  reactants:
    ACN: p23
mqtt:
  broker: tcp://broker.lab:1883
http:
  addr: ":9090"
logging:
  level: debug
  format: console
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.GPIO.Chip != "gpiochip4" {
		t.Errorf("GPIO.Chip: got %q", cfg.GPIO.Chip)
	}
	if !cfg.GPIO.ActiveLow {
		t.Error("GPIO.ActiveLow: expected true")
	}
	if cfg.GPIO.Consumer != "oligo-synth" {
		t.Errorf("GPIO.Consumer default: got %q", cfg.GPIO.Consumer)
	}
	if cfg.MQTT.Broker != "tcp://broker.lab:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled default: expected true")
	}
	if cfg.MQTT.BufferSize != 100 {
		t.Errorf("MQTT.BufferSize default: got %d", cfg.MQTT.BufferSize)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
	if len(cfg.Pinout.Phosphoramidites) != 3 {
		t.Errorf("Phosphoramidites: got %v", cfg.Pinout.Phosphoramidites)
	}
}

func TestLoadResolvePinout(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	phos, reac, err := cfg.Pinout.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Viper lower-cases map keys.
	want := map[string]board.Pin{"a": board.P15, "c": board.P16, "g": board.P18}
	for name, pin := range want {
		if phos[name] != pin {
			t.Errorf("phosphoramidites[%s]: got %v, want %v", name, phos[name], pin)
		}
	}
	if reac["acn"] != board.P23 {
		t.Errorf("reactants[acn]: got %v, want P23", reac["acn"])
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pinout: {}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("GPIO.Chip: got %q", cfg.GPIO.Chip)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OLIGO_MQTT_BROKER", "tcp://override:1883")
	t.Setenv("OLIGO_HTTP_ADDR", ":7070")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://override:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidPin(t *testing.T) {
	_, err := Load(writeConfig(t, "pinout:\n  reactants:\n    ACN: P41\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if !errors.Is(err, board.ErrInvalidPin) {
		t.Errorf("expected board.ErrInvalidPin in chain, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			GPIO:    GPIOConfig{Chip: "gpiochip0"},
			MQTT:    MQTTConfig{Enabled: true, Broker: "tcp://x:1883", BufferSize: 10},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing chip", func(c *Config) { c.GPIO.Chip = "" }, true},
		{"missing broker", func(c *Config) { c.MQTT.Broker = "" }, true},
		{"mqtt disabled without broker", func(c *Config) { c.MQTT.Enabled = false; c.MQTT.Broker = "" }, false},
		{"zero buffer", func(c *Config) { c.MQTT.BufferSize = 0 }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"upper level", func(c *Config) { c.Logging.Level = "WARN" }, false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad pin", func(c *Config) { c.Pinout.Phosphoramidites = map[string]string{"A": "GPIO4"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error should match ErrInvalid: %v", err)
			}
		})
	}
}

func TestLoadRejectsNamesDifferingInCase(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"phosphoramidites", "pinout:\n  phosphoramidites:\n    A: P15\n    a: P16\n"},
		{"reactants", "pinout:\n  reactants:\n    ACN: P23\n    Acn: P24\n"},
		{"groups", "pinout:\n  reactants:\n    ACN: P23\n  Reactants:\n    OXI: P24\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadKeepsEveryValve(t *testing.T) {
	cfg, err := Load(writeConfig(t, "pinout:\n  phosphoramidites:\n    A: P15\n    B: P16\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Pinout.Phosphoramidites) != 2 {
		t.Errorf("phosphoramidites: got %v, want 2 entries", cfg.Pinout.Phosphoramidites)
	}
}

func TestLoadDefaultChip(t *testing.T) {
	cfg, err := Load(writeConfig(t, "http:\n  addr: \":8080\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GPIO.Chip != gpio.DefaultChip {
		t.Errorf("GPIO.Chip: got %q, want %q", cfg.GPIO.Chip, gpio.DefaultChip)
	}
}
