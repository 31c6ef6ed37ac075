// Package config loads the device configuration: data directory, NATS
// URL, role and the shop seed used on first run. Values support
// ${VAR} expansion, and a .env file next to the process is honored.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pickit-labs/pickit/internal/shop"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the device configuration.
type Config struct {
	// DataDir holds the durable cache database.
	DataDir string `yaml:"data_dir"`
	// NATSURL is the peer link substrate.
	NATSURL string `yaml:"nats_url"`
	// Role seeds the device role on first run: "shop" or "customer".
	// The cached role wins once set at runtime.
	Role string `yaml:"role"`
	// Shop seeds the shop configuration on first run (shop role).
	Shop *shop.Shop `yaml:"shop,omitempty"`
	// HTTP is the local presentation/API endpoint.
	HTTP HTTPConfig `yaml:"http"`
	// FlushInterval is the period of the durable-state flush job.
	FlushInterval Duration `yaml:"flush_interval"`
	// Notify configures the optional email/SMS pickup alerts.
	Notify NotifyConfig `yaml:"notify"`
}

// NotifyConfig holds optional notification recipients. Empty values
// disable the corresponding target; the chime and system alert are
// always on.
type NotifyConfig struct {
	Email string `yaml:"email,omitempty"`
	SMS   string `yaml:"sms,omitempty"`
}

// HTTPConfig represents the local API listener.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:       "./pickit-data",
		NATSURL:       "nats://127.0.0.1:4222",
		HTTP:          HTTPConfig{Listen: "127.0.0.1:8520"},
		FlushInterval: Duration(30 * time.Second),
	}
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env if present; existing process env is not overwritten.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment variables from .env")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.NATSURL == "" {
		c.NATSURL = d.NATSURL
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = d.HTTP.Listen
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Role {
	case "", "shop", "customer":
	default:
		return fmt.Errorf("invalid role %q: must be \"shop\" or \"customer\"", c.Role)
	}
	if c.Shop != nil {
		p := c.Shop.Pricing
		if p.BWSingle < 0 || p.BWDouble < 0 || p.ColorSingle < 0 || p.ColorDouble < 0 {
			return fmt.Errorf("pricing rates must not be negative")
		}
	}
	return nil
}

const defaultConfigTemplate = `# pickit device configuration
data_dir: ./pickit-data
nats_url: nats://127.0.0.1:4222

# Device role: shop or customer. Leave empty to choose at runtime.
role: shop

http:
  listen: 127.0.0.1:8520

# How often the in-memory state is flushed to the durable cache.
flush_interval: 30s

# Seed shop configuration, applied on first run only.
shop:
  name: Campus Fast-Print Hub
  location: Central Library, Ground Floor
  printer_count: 1
  ppm: 20
  pricing:
    bw_single: 2
    bw_double: 3
    color_single: 10
    color_double: 15
`

// WriteDefault writes a starter configuration file.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}
	return os.WriteFile(path, []byte(defaultConfigTemplate), 0o644)
}
