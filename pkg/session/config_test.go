package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/device"
	"github.com/Nick140pk/CircuitPlayground-StarProgrammer-LightCurve-GUI/pkg/transit"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, device.StarConfig{R: 255, G: 200, B: 100, Brightness: 80}, cfg.Star)
	require.Len(t, cfg.Planets, 1)
	assert.Equal(t, "planet-1", cfg.Planets[0].Name)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	planet := func(name string) transit.Planet {
		return transit.Planet{
			Name:            name,
			Dip:             0.1,
			OrbitPeriod:     10 * time.Second,
			TransitDuration: 2 * time.Second,
		}
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "empty planet list is fine",
			cfg:  Config{Star: device.StarConfig{Brightness: 50}},
		},
		{
			name: "full planet list",
			cfg: Config{
				Star:    device.StarConfig{Brightness: 50},
				Planets: []transit.Planet{planet("a"), planet("b"), planet("c"), planet("d"), planet("e")},
			},
		},
		{
			name: "too many planets",
			cfg: Config{
				Star:    device.StarConfig{Brightness: 50},
				Planets: []transit.Planet{planet("a"), planet("b"), planet("c"), planet("d"), planet("e"), planet("f")},
			},
			wantErr: "exceed the device limit",
		},
		{
			name:    "invalid star",
			cfg:     Config{Star: device.StarConfig{Brightness: 120}},
			wantErr: "out of range",
		},
		{
			name: "invalid planet",
			cfg: Config{
				Star:    device.StarConfig{Brightness: 50},
				Planets: []transit.Planet{{Name: "x", Dip: 3}},
			},
			wantErr: "dip",
		},
		{
			name: "duplicate planet names",
			cfg: Config{
				Star:    device.StarConfig{Brightness: 50},
				Planets: []transit.Planet{planet("twin"), planet("twin")},
			},
			wantErr: "duplicate planet name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.yaml")

	want := Config{
		Star: device.StarConfig{R: 10, G: 20, B: 30, Brightness: 42},
		Planets: []transit.Planet{
			{
				Name:            "kepler",
				Dip:             0.125,
				OrbitPeriod:     12 * time.Second,
				TransitDuration: 3 * time.Second,
				PhaseOffset:     1500 * time.Millisecond,
			},
			{
				Name:            "tatooine",
				Dip:             0.3,
				OrbitPeriod:     7 * time.Second,
				TransitDuration: time.Second,
			},
		},
	}
	require.NoError(t, want.Save(path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_YAMLContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.yaml")
	data := `star:
  red: 100
  green: 150
  blue: 200
  brightness: 60
planets:
  - name: hoth
    dip: 0.2
    orbit_period: 8s
    transit_duration: 1s
    phase_offset: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, device.StarConfig{R: 100, G: 150, B: 200, Brightness: 60}, cfg.Star)
	require.Len(t, cfg.Planets, 1)
	assert.Equal(t, "hoth", cfg.Planets[0].Name)
	assert.Equal(t, 8*time.Second, cfg.Planets[0].OrbitPeriod)
	assert.Equal(t, time.Second, cfg.Planets[0].TransitDuration)
	assert.Equal(t, 250*time.Millisecond, cfg.Planets[0].PhaseOffset)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.yaml")
	require.NoError(t, os.WriteFile(path, []byte("star: [broken"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_RejectsInvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.yaml")
	data := `star:
  brightness: 500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid star config")
}

func TestResetConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "star.yaml")

	custom := DefaultConfig()
	custom.Star.Brightness = 10
	require.NoError(t, custom.Save(path))

	got, err := ResetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), got)

	// The file was rewritten, not just the return value.
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}
