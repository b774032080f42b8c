package transit

import (
	"fmt"
	"time"
)

// ingressFraction is the portion of the transit duration spent in each of the
// ingress and egress ramps. The remaining half of the window sits at full depth.
const ingressFraction = 0.25

// Planet describes a single simulated planet orbiting the star.
type Planet struct {
	Name            string        `yaml:"name"`
	Dip             float64       `yaml:"dip"`              // fractional brightness reduction at full depth (0-1)
	OrbitPeriod     time.Duration `yaml:"orbit_period"`     // full orbit duration
	TransitDuration time.Duration `yaml:"transit_duration"` // time spent in front of the star
	PhaseOffset     time.Duration `yaml:"phase_offset"`     // shift of the transit window within the orbit
}

// Validate checks the planet parameters against the ranges the device accepts.
func (p Planet) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("planet name must not be empty")
	}
	if p.Dip < 0 || p.Dip > 1 {
		return fmt.Errorf("planet %q: dip %v out of range [0,1]", p.Name, p.Dip)
	}
	if p.OrbitPeriod <= 0 {
		return fmt.Errorf("planet %q: orbit period must be > 0", p.Name)
	}
	if p.TransitDuration <= 0 || p.TransitDuration >= p.OrbitPeriod {
		return fmt.Errorf("planet %q: transit duration must be in (0, orbit period)", p.Name)
	}
	if p.PhaseOffset < 0 || p.PhaseOffset >= p.OrbitPeriod {
		return fmt.Errorf("planet %q: phase offset must be in [0, orbit period)", p.Name)
	}
	return nil
}

// ExpectedBrightness computes the relative star brightness at time t for the
// given planets. The result is in [0,1]: 1.0 when no planet transits, reduced
// by each transiting planet's trapezoidal dip. Occlusion from overlapping
// transits compounds multiplicatively, so the combined value never drops below
// zero. The function is pure: same inputs always give the same output.
func ExpectedBrightness(planets []Planet, t time.Duration) float64 {
	brightness := 1.0
	for _, p := range planets {
		brightness *= p.factorAt(t)
	}
	if brightness < 0 {
		return 0
	}
	if brightness > 1 {
		return 1
	}
	return brightness
}

// factorAt returns the brightness multiplier contributed by this planet at
// time t: 1.0 outside the transit window, 1-Dip at full depth, and a linear
// ramp during ingress and egress.
func (p Planet) factorAt(t time.Duration) float64 {
	if p.OrbitPeriod <= 0 || p.TransitDuration <= 0 {
		return 1.0
	}

	// Position within the orbit, normalized into [0, OrbitPeriod).
	pos := t % p.OrbitPeriod
	if pos < 0 {
		pos += p.OrbitPeriod
	}

	// Offset into the transit window, wrapping across the period boundary.
	w := pos - p.PhaseOffset
	if w < 0 {
		w += p.OrbitPeriod
	}
	if w >= p.TransitDuration {
		return 1.0
	}

	ramp := time.Duration(float64(p.TransitDuration) * ingressFraction)
	depth := p.Dip
	switch {
	case ramp > 0 && w < ramp:
		// Ingress: depth grows linearly from 0 to Dip.
		depth *= float64(w) / float64(ramp)
	case ramp > 0 && w > p.TransitDuration-ramp:
		// Egress: depth shrinks linearly back to 0.
		depth *= float64(p.TransitDuration-w) / float64(ramp)
	}

	return 1.0 - depth
}
