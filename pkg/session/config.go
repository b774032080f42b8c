package session

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/device"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

// Config is the star and planet setup pushed to a device. It is also the
// unit of host-side persistence: Save/Load round-trip an equal Config.
type Config struct {
	Star    device.StarConfig `yaml:"star"`
	Planets []transit.Planet  `yaml:"planets"`
}

// DefaultConfig mirrors the editor defaults: a warm white star and a single
// modest planet.
func DefaultConfig() Config {
	return Config{
		Star: device.StarConfig{R: 255, G: 200, B: 100, Brightness: 80},
		Planets: []transit.Planet{
			{
				Name:            "planet-1",
				Dip:             0.1,
				OrbitPeriod:     10 * time.Second,
				TransitDuration: 2 * time.Second,
				PhaseOffset:     0,
			},
		},
	}
}

// Validate rejects configurations the device would not accept. Invalid
// configs never reach the wire.
func (c Config) Validate() error {
	if err := c.Star.Validate(); err != nil {
		return err
	}
	if len(c.Planets) > device.MaxPlanets {
		return fmt.Errorf("%d planets exceed the device limit of %d", len(c.Planets), device.MaxPlanets)
	}
	seen := make(map[string]struct{}, len(c.Planets))
	for _, p := range c.Planets {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate planet name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate shared state.
func (c Config) clone() Config {
	out := c
	out.Planets = append([]transit.Planet(nil), c.Planets...)
	return out
}

// LoadConfig reads a persisted Config from a YAML file. A missing file yields
// the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read star config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse star config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid star config: %w", err)
	}

	return cfg, nil
}

// Save writes the Config to a YAML file.
func (c Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal star config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write star config: %w", err)
	}

	return nil
}

// ResetConfig overwrites the file with the defaults and returns them.
func ResetConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Save(filename); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
