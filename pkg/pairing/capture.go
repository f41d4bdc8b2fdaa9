package pairing

import "context"

// CaptureDevice describes one available capture source (a camera).
type CaptureDevice struct {
	ID     string
	Label  string
	Facing string // "environment", "user", or empty when unknown
}

// CaptureSource abstracts the scanning hardware. Implementations must stop
// delivering frames and release the underlying device once Close is called.
type CaptureSource interface {
	// Devices enumerates the available capture devices. An empty slice is
	// not an error; the joiner retries after a delay.
	Devices(ctx context.Context) ([]CaptureDevice, error)

	// Capture samples one frame from the device and attempts to decode a
	// payload from it. ok is false when the frame held nothing decodable.
	Capture(ctx context.Context, deviceID string) (payload string, ok bool, err error)

	// Close releases the capture source.
	Close() error
}

// selectDevice prefers the first device whose facing matches, falling back
// to the first enumerated.
func selectDevice(devices []CaptureDevice, facingPreference string) CaptureDevice {
	for _, device := range devices {
		if device.Facing == facingPreference {
			return device
		}
	}
	return devices[0]
}
