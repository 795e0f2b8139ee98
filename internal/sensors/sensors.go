// Package sensors defines the humidity/temperature sensor port and the
// simulated backend used when running off-hardware.
package sensors

import "fmt"

// Reading is one sensor sample. Immutable once taken.
type Reading struct {
	Temperature float64 // degrees C
	Humidity    float64 // %RH
}

// Sensor produces one Reading per call. Read blocks until a sample is
// available or the bus faults; callers treat a failure as fatal to the
// current control cycle rather than substituting a stale value.
type Sensor interface {
	Read() (Reading, error)
	Close() error
}

// Valid reports whether r is physically plausible. Bus glitches on cheap
// hygrometers tend to show up as wildly out-of-range words rather than
// checksum failures.
func (r Reading) Valid() bool {
	if r.Humidity < 0 || r.Humidity > 100 {
		return false
	}
	if r.Temperature < -40 || r.Temperature > 85 {
		return false
	}
	return true
}

// Sim is a fixed-value Sensor for bench runs without hardware.
type Sim struct {
	Reading Reading
}

func (s *Sim) Read() (Reading, error) {
	if !s.Reading.Valid() {
		return Reading{}, fmt.Errorf("sensors: sim reading out of range: %+v", s.Reading)
	}
	return s.Reading, nil
}

func (s *Sim) Close() error { return nil }
