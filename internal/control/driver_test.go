package control

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"hygrostat-ng/internal/sensors"
)

// scriptSensor returns canned readings in order, then a bus fault.
type scriptSensor struct {
	readings []sensors.Reading
	i        int
	onRead   func(cycle int)
}

func (s *scriptSensor) Read() (sensors.Reading, error) {
	if s.onRead != nil {
		s.onRead(s.i)
	}
	if s.i >= len(s.readings) {
		return sensors.Reading{}, fmt.Errorf("dht: checksum mismatch")
	}
	r := s.readings[s.i]
	s.i++
	return r, nil
}

func (s *scriptSensor) Close() error { return nil }

type fakeRecorder struct {
	dense  []State
	sparse []sensors.Reading
	fail   bool
}

func (f *fakeRecorder) RecordDense(r sensors.Reading, out Output, st State) error {
	if f.fail {
		return fmt.Errorf("disk full")
	}
	f.dense = append(f.dense, st)
	return nil
}

func (f *fakeRecorder) RecordSparse(r sensors.Reading) error {
	if f.fail {
		return fmt.Errorf("disk full")
	}
	f.sparse = append(f.sparse, r)
	return nil
}

func newTestLoop(t *testing.T, sensor sensors.Sensor, rec Recorder, sparseEvery int) (*Loop, *fakeOutputs) {
	t.Helper()
	p := testParams()
	ctrl := newTestController(t, p)
	fake := &fakeOutputs{}
	return NewLoop(ctrl, NewScheduler(fake, p), sensor, rec, sparseEvery, false), fake
}

func TestRun_SensorFaultIsFatal(t *testing.T) {
	overrideAfter(t, immediateAfter)

	sensor := &scriptSensor{readings: []sensors.Reading{
		{Humidity: 60, Temperature: 20},
		{Humidity: 80, Temperature: 20},
		{Humidity: 95, Temperature: 20},
	}}
	rec := &fakeRecorder{}
	loop, _ := newTestLoop(t, sensor, rec, 2)

	err := loop.Run(context.Background())
	if err == nil {
		t.Fatalf("Run() err=nil want wrapped sensor error")
	}
	if got := err.Error(); got != "control: sensor read: dht: checksum mismatch" {
		t.Fatalf("err=%q", got)
	}

	// Three full cycles completed before the fault.
	if len(rec.dense) != 3 {
		t.Fatalf("dense records=%d want 3", len(rec.dense))
	}
	// Sparse record on cycles 0 and 2.
	if len(rec.sparse) != 2 {
		t.Fatalf("sparse records=%d want 2", len(rec.sparse))
	}
	if rec.sparse[0].Humidity != 60 || rec.sparse[1].Humidity != 95 {
		t.Fatalf("sparse humidity=%v,%v want 60,95", rec.sparse[0].Humidity, rec.sparse[1].Humidity)
	}
}

func TestRun_StateThreadsAcrossCycles(t *testing.T) {
	overrideAfter(t, immediateAfter)

	sensor := &scriptSensor{readings: []sensors.Reading{
		{Humidity: 60},
		{Humidity: 60},
	}}
	rec := &fakeRecorder{}
	loop, _ := newTestLoop(t, sensor, rec, 1000)

	_ = loop.Run(context.Background())
	if len(rec.dense) != 2 {
		t.Fatalf("dense records=%d want 2", len(rec.dense))
	}
	if rec.dense[0].IntegralErr != -35 || rec.dense[1].IntegralErr != -70 {
		t.Fatalf("integral snapshots=%v,%v want -35,-70",
			rec.dense[0].IntegralErr, rec.dense[1].IntegralErr)
	}
	if loop.State().IntegralErr != -70 {
		t.Fatalf("final state=%+v", loop.State())
	}
}

func TestRun_RecorderFailureDoesNotAbort(t *testing.T) {
	overrideAfter(t, immediateAfter)

	sensor := &scriptSensor{readings: []sensors.Reading{
		{Humidity: 90}, {Humidity: 91}, {Humidity: 92},
	}}
	rec := &fakeRecorder{fail: true}
	loop, fake := newTestLoop(t, sensor, rec, 1)

	err := loop.Run(context.Background())
	if err == nil {
		t.Fatalf("expected eventual sensor fault")
	}
	// All three cycles actuated despite every record being dropped:
	// 100 slices * 2 channels + 2 shutdown writes, per cycle.
	if got, want := len(fake.calls), 3*202; got != want {
		t.Fatalf("Set calls=%d want %d", got, want)
	}
}

func TestRun_CancelStopsLoop(t *testing.T) {
	overrideAfter(t, immediateAfter)

	ctx, cancel := context.WithCancel(context.Background())
	sensor := &scriptSensor{}
	sensor.readings = []sensors.Reading{
		{Humidity: 90}, {Humidity: 90}, {Humidity: 90}, {Humidity: 90},
	}
	sensor.onRead = func(cycle int) {
		if cycle == 2 {
			cancel()
		}
	}
	rec := &fakeRecorder{}
	loop, _ := newTestLoop(t, sensor, rec, 1000)

	err := loop.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	// The cancelled cycle's actuation bails out; earlier cycles completed.
	if len(rec.dense) != 2 {
		t.Fatalf("dense records=%d want 2", len(rec.dense))
	}
}
