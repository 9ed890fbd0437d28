// Package config loads the daemon configuration from YAML with environment
// overrides (prefix OLIGO_, e.g. OLIGO_MQTT_BROKER).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/oligo-synth/internal/board"
	"github.com/sweeney/oligo-synth/internal/gpio"
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = "/etc/oligo-synth/config.yaml"

// ErrInvalid matches every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete daemon configuration.
type Config struct {
	GPIO    GPIOConfig    `mapstructure:"gpio"`
	Pinout  PinoutConfig  `mapstructure:"pinout"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// GPIOConfig selects the chip and line polarity.
type GPIOConfig struct {
	Chip      string `mapstructure:"chip"`
	Consumer  string `mapstructure:"consumer"`
	ActiveLow bool   `mapstructure:"active_low"`
}

// PinoutConfig holds the operator-configured valves as name to pin strings
// ("P15", "15"). Viper lower-cases map keys, so Load rejects names that
// differ only in case before they can collapse into one.
type PinoutConfig struct {
	Phosphoramidites map[string]string `mapstructure:"phosphoramidites"`
	Reactants        map[string]string `mapstructure:"reactants"`
}

// MQTTConfig configures event publishing.
type MQTTConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Broker     string `mapstructure:"broker"`
	ClientID   string `mapstructure:"client_id"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// HTTPConfig configures the status and device API server. An empty Addr
// disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gpio.chip", gpio.DefaultChip)
	v.SetDefault("gpio.consumer", "oligo-synth")
	v.SetDefault("gpio.active_low", false)
	v.SetDefault("mqtt.enabled", true)
	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.client_id", "oligo-synth")
	v.SetDefault("mqtt.buffer_size", 100)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads the YAML file at path, applies defaults and OLIGO_ environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := checkPinoutNames(data); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("OLIGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkPinoutNames rejects pinout names that only differ in case. Viper
// folds keys to lower case and keeps one of them, which would drop a valve.
func checkPinoutNames(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse yaml: %w", ErrInvalid, err)
	}
	for key, section := range raw {
		if !strings.EqualFold(key, "pinout") {
			continue
		}
		groups, ok := section.(map[string]any)
		if !ok {
			continue
		}
		if err := checkFolded(key, groups); err != nil {
			return err
		}
		for group, names := range groups {
			m, ok := names.(map[string]any)
			if !ok {
				continue
			}
			if err := checkFolded(key+"."+group, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFolded(path string, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		folded := strings.ToLower(k)
		if prev, ok := seen[folded]; ok {
			return fmt.Errorf("%w: %s: %q and %q differ only in case", ErrInvalid, path, prev, k)
		}
		seen[folded] = k
	}
	return nil
}

// Validate checks required fields and enumerated values.
func (c *Config) Validate() error {
	var errs []error

	if c.GPIO.Chip == "" {
		errs = append(errs, fmt.Errorf("%w: gpio.chip is required", ErrInvalid))
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalid))
		}
		if c.MQTT.BufferSize < 1 {
			errs = append(errs, fmt.Errorf("%w: mqtt.buffer_size must be positive, got %d", ErrInvalid, c.MQTT.BufferSize))
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.level %q (want debug, info, warn or error)", ErrInvalid, c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q (want json or console)", ErrInvalid, c.Logging.Format))
	}
	if _, _, err := c.Pinout.Resolve(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Resolve parses the configured pin strings.
func (p PinoutConfig) Resolve() (phosphoramidites, reactants map[string]board.Pin, err error) {
	phosphoramidites, err = resolveGroup("pinout.phosphoramidites", p.Phosphoramidites)
	if err != nil {
		return nil, nil, err
	}
	reactants, err = resolveGroup("pinout.reactants", p.Reactants)
	if err != nil {
		return nil, nil, err
	}
	return phosphoramidites, reactants, nil
}

func resolveGroup(key string, in map[string]string) (map[string]board.Pin, error) {
	out := make(map[string]board.Pin, len(in))
	for name, raw := range in {
		pin, err := board.ParsePin(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalid, key, name, err)
		}
		out[name] = pin
	}
	return out, nil
}
