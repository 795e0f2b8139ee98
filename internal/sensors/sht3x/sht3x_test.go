package sht3x

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

type fakeBus struct {
	writes   [][]byte
	reads    [][]byte
	writeErr error
	readErr  error
}

func (f *fakeBus) Write(p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), p...))
	return nil
}

func (f *fakeBus) Read(p []byte) error {
	if f.readErr != nil {
		return f.readErr
	}
	if len(f.reads) == 0 {
		return errors.New("no queued response")
	}
	copy(p, f.reads[0])
	f.reads = f.reads[1:]
	return nil
}

func muteSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	old := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = old })
	return &slept
}

// word frames a 16-bit value the way the sensor answers: MSB, LSB, CRC.
func word(v uint16) []byte {
	b := []byte{byte(v >> 8), byte(v)}
	return append(b, crc8(b))
}

func statusFrame() []byte { return word(0x8010) }

func newTestDevice(t *testing.T, f *fakeBus) *Device {
	t.Helper()
	f.reads = append([][]byte{statusFrame()}, f.reads...)
	d, err := newWithIO(f)
	if err != nil {
		t.Fatalf("newWithIO() error: %v", err)
	}
	return d
}

func TestCRC8_DatasheetVector(t *testing.T) {
	// Sensirion's documented example: 0xBEEF -> 0x92.
	if got := crc8([]byte{0xBE, 0xEF}); got != 0x92 {
		t.Fatalf("crc8(BEEF)=0x%02X want 0x92", got)
	}
}

func TestNew_ResetsAndChecksStatus(t *testing.T) {
	muteSleep(t)
	f := &fakeBus{}
	newTestDevice(t, f)

	if len(f.writes) != 2 {
		t.Fatalf("writes=%d want 2", len(f.writes))
	}
	if !bytes.Equal(f.writes[0], []byte{0x30, 0xA2}) {
		t.Fatalf("first write=% X want soft reset", f.writes[0])
	}
	if !bytes.Equal(f.writes[1], []byte{0xF3, 0x2D}) {
		t.Fatalf("second write=% X want status read", f.writes[1])
	}
}

func TestNew_RejectsBadStatusCRC(t *testing.T) {
	muteSleep(t)
	frame := statusFrame()
	frame[2] ^= 0xFF
	f := &fakeBus{reads: [][]byte{frame}}
	if _, err := newWithIO(f); err == nil {
		t.Fatalf("expected status crc error")
	}
}

func TestRead_ConvertsRawWords(t *testing.T) {
	slept := muteSleep(t)
	f := &fakeBus{}
	d := newTestDevice(t, f)

	// rawT 26214 ~ 25.0C, rawH 32768 ~ 50.0%RH.
	frame := append(word(26214), word(32768)...)
	f.reads = append(f.reads, frame)

	r, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if math.Abs(r.Temperature-25.0) > 0.01 {
		t.Fatalf("temperature=%v want ~25.0", r.Temperature)
	}
	if math.Abs(r.Humidity-50.0) > 0.01 {
		t.Fatalf("humidity=%v want ~50.0", r.Humidity)
	}

	last := f.writes[len(f.writes)-1]
	if !bytes.Equal(last, []byte{0x24, 0x00}) {
		t.Fatalf("measure command=% X want 24 00", last)
	}
	// The conversion wait must have happened after the command.
	if (*slept)[len(*slept)-1] != measureDelay {
		t.Fatalf("slept=%v want trailing %s", *slept, measureDelay)
	}
}

func TestRead_PinnedHumidityPassesThrough(t *testing.T) {
	muteSleep(t)
	f := &fakeBus{}
	d := newTestDevice(t, f)

	// A condensation-pinned sensor reports full-scale humidity; that is a
	// legitimate reading for the controller's saturation handling, not an error.
	f.reads = append(f.reads, append(word(26214), word(65535)...))
	r, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if r.Humidity != 100.0 {
		t.Fatalf("humidity=%v want 100.0", r.Humidity)
	}
}

func TestRead_RejectsCorruptWords(t *testing.T) {
	muteSleep(t)
	f := &fakeBus{}
	d := newTestDevice(t, f)

	tempBad := append(word(26214), word(32768)...)
	tempBad[2] ^= 0x01
	humBad := append(word(26214), word(32768)...)
	humBad[5] ^= 0x01
	f.reads = append(f.reads, tempBad, humBad)

	if _, err := d.Read(); err == nil {
		t.Fatalf("expected temperature crc error")
	}
	if _, err := d.Read(); err == nil {
		t.Fatalf("expected humidity crc error")
	}
}

func TestRead_BusFaultPropagates(t *testing.T) {
	muteSleep(t)
	f := &fakeBus{}
	d := newTestDevice(t, f)

	f.writeErr = errors.New("i2c: transfer to 0x44: remote I/O error")
	if _, err := d.Read(); err == nil {
		t.Fatalf("expected bus fault to propagate")
	}
}
