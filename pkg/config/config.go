package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig `yaml:"serial"`
	Link     LinkConfig   `yaml:"link"`
	Plot     PlotConfig   `yaml:"plot"`
	Log      LogConfig    `yaml:"log"`
	Mock     MockConfig   `yaml:"mock"`
	StarFile string       `yaml:"star_file"` // persisted star/planet configuration
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// LinkConfig tunes command acknowledgement and reconnect behavior.
type LinkConfig struct {
	AckTimeout     time.Duration `yaml:"ack_timeout"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	MaxRetries     int           `yaml:"max_retries"`
	ConnectRetries int           `yaml:"connect_retries"`
	BufferSize     int           `yaml:"buffer_size"` // telemetry channel capacity
}

// PlotConfig contains live plot parameters.
type PlotConfig struct {
	WindowSeconds    float64 `yaml:"window_seconds"` // visible time window
	BufferCapacity   int     `yaml:"buffer_capacity"` // ring buffer size
	MaxDisplayPoints int     `yaml:"max_display_points"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	NoiseLevel float64       `yaml:"noise_level"` // noise amplitude in device units
	SampleRate time.Duration `yaml:"sample_rate"` // time between samples
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "COM3", // Windows default; typically /dev/ttyACM0 on Linux
			Baud: 115200,
		},
		Link: LinkConfig{
			AckTimeout:     2 * time.Second,
			RetryBackoff:   250 * time.Millisecond,
			MaxRetries:     3,
			ConnectRetries: 3,
			BufferSize:     256,
		},
		Plot: PlotConfig{
			WindowSeconds:    30,
			BufferCapacity:   1000,
			MaxDisplayPoints: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Mock: MockConfig{
			NoiseLevel: 1.5,
			SampleRate: 50 * time.Millisecond,
		},
		StarFile: "starconfig.yaml",
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills required fields that are missing from the file.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Link.AckTimeout == 0 {
		c.Link.AckTimeout = def.Link.AckTimeout
	}
	if c.Link.RetryBackoff == 0 {
		c.Link.RetryBackoff = def.Link.RetryBackoff
	}
	// MaxRetries and ConnectRetries stay untouched: Load unmarshals on top
	// of Default(), so an absent field already holds the default and an
	// explicit 0 means "no retries".
	if c.Link.MaxRetries < 0 {
		c.Link.MaxRetries = 0
	}
	if c.Link.ConnectRetries < 0 {
		c.Link.ConnectRetries = 0
	}
	if c.Link.BufferSize == 0 {
		c.Link.BufferSize = def.Link.BufferSize
	}

	if c.Plot.WindowSeconds == 0 {
		c.Plot.WindowSeconds = def.Plot.WindowSeconds
	}
	if c.Plot.BufferCapacity == 0 {
		c.Plot.BufferCapacity = def.Plot.BufferCapacity
	}
	if c.Plot.MaxDisplayPoints == 0 {
		c.Plot.MaxDisplayPoints = def.Plot.MaxDisplayPoints
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}

	if c.StarFile == "" {
		c.StarFile = def.StarFile
	}
}
