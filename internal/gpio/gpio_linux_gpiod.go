//go:build linux && (arm || arm64)

package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openOutputs requests both relay lines as outputs (initially low) using the
// Linux GPIO character device (libgpiod). Pins are BCM numbering; on a Pi the
// line names are "GPIO7", "GPIO6", etc.
func openOutputs(humidifierPin, faePin int) (Outputs, error) {
	hum, err := requestLine(humidifierPin)
	if err != nil {
		return nil, err
	}
	fae, err := requestLine(faePin)
	if err != nil {
		_ = hum.close()
		return nil, err
	}
	return &gpiodOutputs{lines: map[Channel]*ownedLine{
		Humidifier: hum,
		FreshAir:   fae,
	}}, nil
}

type ownedLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (l *ownedLine) close() error {
	if l == nil || l.line == nil {
		return nil
	}
	// Leave the relay off.
	_ = l.line.SetValue(0)
	err := l.line.Close()
	l.line = nil
	if l.chip != nil {
		_ = l.chip.Close()
		l.chip = nil
	}
	return err
}

func requestLine(pin int) (*ownedLine, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("gpio: invalid pin %d", pin)
	}
	lineName := fmt.Sprintf("GPIO%d", pin)

	// Try likely chips first; Pi 5 kernel variants can expose header GPIOs on
	// gpiochip0 and sometimes additional chips exist.
	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("hygrostat-ng"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &ownedLine{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("gpio: line %q not found (or busy)", lineName)
}

type gpiodOutputs struct {
	lines map[Channel]*ownedLine
}

func (g *gpiodOutputs) Set(ch Channel, on bool) error {
	l, ok := g.lines[ch]
	if !ok || l == nil || l.line == nil {
		return fmt.Errorf("gpio: channel %s not initialized", ch)
	}
	v := 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

func (g *gpiodOutputs) Close() error {
	var first error
	for _, l := range g.lines {
		if err := l.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
