package control

import (
	"context"
	"time"

	"hygrostat-ng/internal/gpio"
)

var afterFn = time.After

// Scheduler turns one cycle's duty percentages into relay timing. The cycle
// is divided into equal slices; each channel is held on for the leading
// slices its duty covers, so total on-time tracks duty within one
// slice-quantum.
//
// Not safe for concurrent use; the cycle driver calls it strictly
// sequentially.
type Scheduler struct {
	out    gpio.Outputs
	cycle  time.Duration
	slices int
}

func NewScheduler(out gpio.Outputs, p Params) *Scheduler {
	n := p.Slices
	if n == 0 {
		n = 100
	}
	return &Scheduler{out: out, cycle: p.CycleTime, slices: n}
}

// Actuate drives both channels through one full cycle. Channels are
// evaluated independently every slice and may overlap. The per-slice wait is
// never skipped, even at duty 0 or 100: downstream hardware relies on a
// stable cycle period, so timing regularity is the contract, not
// branch-skipping.
//
// Both lines are driven low when the cycle completes or ctx is cancelled
// mid-cycle.
func (s *Scheduler) Actuate(ctx context.Context, out Output) error {
	slice := s.cycle / time.Duration(s.slices)
	defer s.allOff()

	for i := 0; i < s.slices; i++ {
		// Relay writes are best-effort hardware lines; a failed write must not
		// disturb the slice timing.
		_ = s.out.Set(gpio.Humidifier, float64(i) < out.HumidifyDuty)
		_ = s.out.Set(gpio.FreshAir, float64(i) < out.FAEDuty)

		select {
		case <-afterFn(slice):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) allOff() {
	_ = s.out.Set(gpio.Humidifier, false)
	_ = s.out.Set(gpio.FreshAir, false)
}
