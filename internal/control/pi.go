// Package control implements the humidity regulation core: a PI transition
// function with anti-windup clamping and saturation recovery, the duty-cycle
// scheduler that turns its output into relay timing, and the cycle driver
// that sequences one read/compute/actuate/log round per cycle.
package control

import (
	"fmt"
	"time"

	"hygrostat-ng/internal/sensors"
)

// saturationCeiling is the humidity above which the sensor is considered
// pinned by condensation rather than reporting a true value.
const saturationCeiling = 99.9

// Params are the immutable per-run controller parameters, carved out of the
// loaded config. Validated once by New; never mutated afterwards.
type Params struct {
	// TargetHumidity is the setpoint in %RH.
	TargetHumidity float64
	// FAERate is the fixed fresh-air-exchange duty in percent.
	FAERate float64
	// CP and CI are the proportional and integral gains. CI also bounds the
	// anti-windup clamp, so it must be non-zero.
	CP float64
	CI float64
	// CycleTime is the control period. The sensor needs settling time between
	// reads, so anything below 2s is rejected.
	CycleTime time.Duration
	// Slices is the number of actuation slots per cycle; 0 means 100
	// (1% duty resolution).
	Slices int
	// SaturationResetThreshold is the run of pinned readings (in cycles) after
	// which accumulated error is discarded. SaturationBias is added to the
	// proportional error while pinned.
	SaturationResetThreshold int
	SaturationBias           float64
}

// State is the controller's only memory across cycles. The zero value is the
// start state. It is owned by the cycle driver and advanced exclusively
// through Update.
type State struct {
	// IntegralErr is the accumulated error, held in [-100/CI, 0]. The upper
	// bound is 0 because the integral can only ever request more
	// humidification; there is no dehumidify actuator.
	IntegralErr float64
	// SaturationRun counts consecutive cycles with the sensor pinned at its
	// ceiling while above target.
	SaturationRun int
}

// Output is one cycle's actuation demand. Duties are percentages in [0,100].
// ProportionalErr rides along for the cycle log.
type Output struct {
	HumidifyDuty    float64
	FAEDuty         float64
	ProportionalErr float64
}

// Controller holds validated Params and computes the PI transition.
// There is deliberately no derivative term: every tuning pass of this
// regulator ran with D disabled, so the core omits it rather than carrying a
// dead gain.
type Controller struct {
	p Params
}

func New(p Params) (*Controller, error) {
	if p.CI <= 0 {
		// c_i divides the anti-windup bound; zero or negative would invert it.
		return nil, fmt.Errorf("control: c_i must be positive")
	}
	if p.CycleTime < 2*time.Second {
		return nil, fmt.Errorf("control: cycle time %s below 2s minimum", p.CycleTime)
	}
	if p.Slices == 0 {
		p.Slices = 100
	}
	if p.Slices < 1 {
		return nil, fmt.Errorf("control: slices must be >= 1")
	}
	if p.SaturationResetThreshold < 0 {
		return nil, fmt.Errorf("control: saturation reset threshold must be >= 0")
	}
	return &Controller{p: p}, nil
}

func (c *Controller) Params() Params { return c.p }

// Update advances the controller by one cycle. Pure: same (state, reading)
// always yields the same (state, output), with no I/O and no hidden state.
func (c *Controller) Update(s State, r sensors.Reading) (State, Output) {
	pErr := r.Humidity - c.p.TargetHumidity

	// A reading pinned at the ceiling while above target carries no
	// information about the true humidity; bias the error so the regulator
	// backs off harder than the raw number suggests.
	if r.Humidity > saturationCeiling && r.Humidity > c.p.TargetHumidity {
		pErr += c.p.SaturationBias
		s.SaturationRun++
	} else {
		s.SaturationRun = 0
	}

	if s.SaturationRun > c.p.SaturationResetThreshold {
		// Anti-flood recovery: a long pinned run means condensation has made
		// the sensor non-informative. Discard the accumulated error instead of
		// blasting the humidifier once readings become informative again.
		s.IntegralErr = 0
		s.SaturationRun = 0
	} else {
		s.IntegralErr = clamp(s.IntegralErr+pErr, -100/c.p.CI, 0)
	}

	out := Output{
		HumidifyDuty:    clamp(-s.IntegralErr*c.p.CI-pErr*c.p.CP, 0, 100),
		FAEDuty:         clamp(c.p.FAERate, 0, 100),
		ProportionalErr: pErr,
	}
	return s, out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
