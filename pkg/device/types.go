package device

import (
	"fmt"
	"time"
)

const (
	// MaxPlanets is the number of planet slots the device firmware holds.
	MaxPlanets = 5
	// DefaultBaudRate is the standard baud rate for the Circuit Playground.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default capacity of the telemetry channel.
	DefaultBufferSize = 256
)

// StarConfig holds the LED configuration of the star: color channels plus a
// master brightness percentage.
type StarConfig struct {
	R          uint8 `yaml:"red"`
	G          uint8 `yaml:"green"`
	B          uint8 `yaml:"blue"`
	Brightness int   `yaml:"brightness"` // 0-100
}

// Validate checks the star parameters before they are transmitted.
func (c StarConfig) Validate() error {
	if c.Brightness < 0 || c.Brightness > 100 {
		return fmt.Errorf("star brightness %d out of range [0,100]", c.Brightness)
	}
	return nil
}

// TelemetrySample is one measured brightness reading from the device.
// Samples are append-only: the link produces them, consumers never mutate.
type TelemetrySample struct {
	Timestamp  time.Time
	Brightness float64 // raw device units (0-255 scale)
}

// Port represents an available serial port.
type Port struct {
	Name        string
	Description string
}
