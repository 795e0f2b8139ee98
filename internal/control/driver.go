package control

import (
	"context"
	"fmt"
	"log"

	"hygrostat-ng/internal/sensors"
)

// Recorder receives each cycle's artifacts. A Recorder failure is reported
// to the console and otherwise ignored: losing a log record is far cheaper
// than missing an actuation cycle.
type Recorder interface {
	// RecordDense is called every cycle with the reading, the computed output
	// and a snapshot of the controller state.
	RecordDense(r sensors.Reading, out Output, st State) error
	// RecordSparse is called once every few cycles with just the climate
	// sample, to bound storage growth.
	RecordSparse(r sensors.Reading) error
}

// Loop is the cycle driver: read sensor, update the controller, actuate for
// one full cycle, hand the artifacts to the Recorder, repeat until ctx is
// cancelled.
//
// Everything is synchronous and single-threaded. There is deliberately no
// overlap between cycles (the sensor needs settling time between reads) and
// no lock around State, which the loop owns exclusively.
type Loop struct {
	ctrl   *Controller
	sched  *Scheduler
	sensor sensors.Sensor
	rec    Recorder

	sparseEvery int
	verbose     bool

	state State
	cycle uint64
}

func NewLoop(ctrl *Controller, sched *Scheduler, sensor sensors.Sensor, rec Recorder, sparseEvery int, verbose bool) *Loop {
	if sparseEvery < 1 {
		sparseEvery = 1
	}
	return &Loop{
		ctrl:        ctrl,
		sched:       sched,
		sensor:      sensor,
		rec:         rec,
		sparseEvery: sparseEvery,
		verbose:     verbose,
	}
}

// State returns the loop's current controller state snapshot.
func (l *Loop) State() State { return l.state }

// Run drives cycles until ctx is cancelled or the sensor fails.
//
// A sensor fault is fatal: continuing with a stale reading would corrupt the
// integral term, so the error propagates and the process exits. A hang in
// the sensor blocks the whole loop; acceptable for this single-purpose
// controller.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, err := l.sensor.Read()
		if err != nil {
			return fmt.Errorf("control: sensor read: %w", err)
		}

		st, out := l.ctrl.Update(l.state, r)
		l.state = st

		if l.verbose {
			log.Printf("cycle %d: humidity=%.2f%% temp=%.2fC p_err=%.2f i_err=%.2f duty=%.1f%% fae=%.1f%%",
				l.cycle, r.Humidity, r.Temperature, out.ProportionalErr, st.IntegralErr, out.HumidifyDuty, out.FAEDuty)
		}

		if err := l.sched.Actuate(ctx, out); err != nil {
			return err
		}

		if err := l.rec.RecordDense(r, out, st); err != nil {
			log.Printf("control: dense record dropped: %v", err)
		}
		if l.cycle%uint64(l.sparseEvery) == 0 {
			if err := l.rec.RecordSparse(r); err != nil {
				log.Printf("control: sparse record dropped: %v", err)
			}
		}
		l.cycle++
	}
}
