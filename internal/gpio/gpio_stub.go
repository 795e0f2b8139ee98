//go:build !linux || (!arm && !arm64)

package gpio

import "fmt"

// Stub implementation for non-Linux and/or non-ARM platforms.
func openOutputs(humidifierPin, faePin int) (Outputs, error) {
	return nil, fmt.Errorf("gpio: unsupported on this platform")
}
