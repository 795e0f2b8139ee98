// Package gpio drives the two relay channels as digital outputs.
// The real backend uses the Linux GPIO character device; other platforms get
// an error stub so the rest of the system still builds and tests.
package gpio

// Channel identifies one of the relay outputs.
type Channel int

const (
	Humidifier Channel = iota
	FreshAir
)

func (c Channel) String() string {
	switch c {
	case Humidifier:
		return "humidifier"
	case FreshAir:
		return "fresh-air"
	default:
		return "unknown"
	}
}

// Outputs is the minimal interface the control loop needs from a relay
// backend. Set is a best-effort hardware line write. Close should leave both
// channels off.
type Outputs interface {
	Set(ch Channel, on bool) error
	Close() error
}

// Open returns the platform backend driving the given BCM pins.
func Open(humidifierPin, faePin int) (Outputs, error) {
	return openOutputs(humidifierPin, faePin)
}
