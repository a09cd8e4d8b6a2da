package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is injected at build time by the dev tool.
var Version = "dev"

// Duration wraps time.Duration so YAML values like "300ms" parse.
type Duration time.Duration

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

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	// Adapter selects the bus transport: generic, nanopi or raspi.
	Adapter string `yaml:"adapter"`
	// Device is the i2c-dev path used by the generic adapter.
	Device string `yaml:"device"`
	// Bus is the bus number used by the gobot adapters, -1 means platform default.
	Bus int `yaml:"bus"`
	// Format is the default output format: readable, csv or json.
	Format string `yaml:"format"`

	MaxRetries      int      `yaml:"max_retries"`
	RetryInterval   Duration `yaml:"retry_interval"`
	MonitorInterval Duration `yaml:"monitor_interval"`
}

func Default() Config {
	return Config{
		Adapter:         "generic",
		Device:          "/dev/i2c-1",
		Bus:             -1,
		Format:          "readable",
		MaxRetries:      5,
		RetryInterval:   Duration(300 * time.Millisecond),
		MonitorInterval: Duration(10 * time.Second),
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file: %w", err)
	}
	return cfg, nil
}
