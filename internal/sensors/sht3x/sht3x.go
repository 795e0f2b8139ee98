// Package sht3x drives a Sensirion SHT3x humidity/temperature sensor in
// single-shot mode over I2C.
package sht3x

import (
	"fmt"
	"time"

	"hygrostat-ng/internal/i2c"
	"hygrostat-ng/internal/sensors"
)

var sleep = time.Sleep

const (
	addrDefault = 0x44

	// Commands are 16-bit, MSB first.
	cmdSoftReset   = 0x30A2
	cmdReadStatus  = 0xF32D
	cmdMeasureHigh = 0x2400 // single shot, high repeatability, no clock stretching

	softResetDelay = 2 * time.Millisecond
	// Worst-case high-repeatability conversion per datasheet is 15ms; leave
	// headroom so a marginal supply does not show up as NACKed reads.
	measureDelay = 20 * time.Millisecond
)

// cmdIO is the transfer shape sht3x needs from the bus.
type cmdIO interface {
	Write(p []byte) error
	Read(p []byte) error
}

type Device struct {
	dev cmdIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("sht3x: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev cmdIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("sht3x: dev is nil")
	}
	d := &Device{dev: dev}

	// Soft reset so a previous run's periodic mode cannot leak into ours.
	if err := d.command(cmdSoftReset); err != nil {
		return nil, fmt.Errorf("sht3x: soft reset failed: %w", err)
	}
	sleep(softResetDelay)

	// The status register doubles as a presence check; its CRC tells us the
	// device on this address really speaks the SHT3x protocol.
	if err := d.command(cmdReadStatus); err != nil {
		return nil, fmt.Errorf("sht3x: status read failed: %w", err)
	}
	var buf [3]byte
	if err := d.dev.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("sht3x: status read failed: %w", err)
	}
	if crc8(buf[0:2]) != buf[2] {
		return nil, fmt.Errorf("sht3x: status crc mismatch (got 0x%02X want 0x%02X)", buf[2], crc8(buf[0:2]))
	}

	return d, nil
}

// Read triggers one high-repeatability measurement and blocks for the
// conversion time. Implements the sensor port: a bus or checksum fault
// propagates instead of yielding a made-up reading.
func (d *Device) Read() (sensors.Reading, error) {
	if err := d.command(cmdMeasureHigh); err != nil {
		return sensors.Reading{}, fmt.Errorf("sht3x: measure command failed: %w", err)
	}
	sleep(measureDelay)

	var buf [6]byte
	if err := d.dev.Read(buf[:]); err != nil {
		return sensors.Reading{}, fmt.Errorf("sht3x: measurement read failed: %w", err)
	}
	if crc8(buf[0:2]) != buf[2] {
		return sensors.Reading{}, fmt.Errorf("sht3x: temperature crc mismatch")
	}
	if crc8(buf[3:5]) != buf[5] {
		return sensors.Reading{}, fmt.Errorf("sht3x: humidity crc mismatch")
	}

	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawH := uint16(buf[3])<<8 | uint16(buf[4])

	r := sensors.Reading{
		Temperature: -45.0 + 175.0*float64(rawT)/65535.0,
		Humidity:    100.0 * float64(rawH) / 65535.0,
	}
	if !r.Valid() {
		return sensors.Reading{}, fmt.Errorf("sht3x: implausible reading %+v", r)
	}
	return r, nil
}

// Close satisfies the sensor port; the underlying bus is owned by the caller.
func (d *Device) Close() error { return nil }

func (d *Device) command(cmd uint16) error {
	return d.dev.Write([]byte{byte(cmd >> 8), byte(cmd)})
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF, over one
// 16-bit word.
func crc8(p []byte) byte {
	crc := byte(0xFF)
	for _, b := range p {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
