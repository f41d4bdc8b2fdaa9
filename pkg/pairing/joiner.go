package pairing

import (
	"context"
	"time"

	"github.com/keyfold/keyfold/pkg/custody"
)

// State is the joiner's position in the pairing state machine.
type State int

const (
	AwaitingCapture State = iota
	ValidatingMaterial
	Paired
	Rejected
)

func (s State) String() string {
	switch s {
	case AwaitingCapture:
		return "awaiting-capture"
	case ValidatingMaterial:
		return "validating-material"
	case Paired:
		return "paired"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

const (
	// DefaultTick is the frame-sampling interval.
	DefaultTick = 500 * time.Millisecond
	// DefaultRetryDelay is how long to wait before re-enumerating when no
	// capture devices are available.
	DefaultRetryDelay = 3 * time.Second
	// DefaultFacing prefers the rear camera.
	DefaultFacing = "environment"
)

// Registrar records the joining device in the server's trust registry once
// the key material has been verified and taken into custody.
type Registrar interface {
	RegisterDevice(ctx context.Context, accountID, name string) (deviceID string, err error)
}

// Result is the terminal outcome of a pairing run.
type Result struct {
	State       State
	DeviceID    string
	Fingerprint string
}

// Joiner acquires trust for a new device: it polls a capture source for a
// scannable payload, validates the material is a private key, stores it in
// local custody, and registers the device.
type Joiner struct {
	Source    CaptureSource
	Custody   custody.Store
	Registrar Registrar

	// Tick, RetryDelay and Facing default to the package constants when
	// left zero.
	Tick       time.Duration
	RetryDelay time.Duration
	Facing     string
}

func (j *Joiner) tick() time.Duration {
	if j.Tick > 0 {
		return j.Tick
	}
	return DefaultTick
}

func (j *Joiner) retryDelay() time.Duration {
	if j.RetryDelay > 0 {
		return j.RetryDelay
	}
	return DefaultRetryDelay
}

func (j *Joiner) facing() string {
	if j.Facing != "" {
		return j.Facing
	}
	return DefaultFacing
}

// Run drives the capture loop until the device is paired or the context is
// cancelled. Cancellation is the only way a caller reaches Rejected; bad
// frames and missing cameras loop back into AwaitingCapture. The capture
// source is closed before returning.
func (j *Joiner) Run(ctx context.Context, accountID, deviceName string) (Result, error) {
	defer func() { _ = j.Source.Close() }()

	for {
		devices, err := j.Source.Devices(ctx)
		if err != nil {
			return Result{State: Rejected}, err
		}

		if len(devices) == 0 {
			// No camera right now: wait and re-enter AwaitingCapture
			// instead of leaving the user stuck.
			if !sleep(ctx, j.retryDelay()) {
				return Result{State: Rejected}, ctx.Err()
			}
			continue
		}

		device := selectDevice(devices, j.facing())

		result, done, err := j.captureLoop(ctx, device.ID, accountID, deviceName)
		if err != nil || done {
			return result, err
		}
		// Capture source reported loss of the device; re-enumerate.
	}
}

// captureLoop samples frames at the tick interval. done is false only when
// the device disappeared and enumeration should restart.
func (j *Joiner) captureLoop(ctx context.Context, deviceID, accountID, deviceName string) (Result, bool, error) {
	ticker := time.NewTicker(j.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{State: Rejected}, true, ctx.Err()
		case <-ticker.C:
		}

		payload, ok, err := j.Source.Capture(ctx, deviceID)
		if err != nil {
			return Result{State: AwaitingCapture}, false, nil
		}
		if !ok {
			continue
		}

		// ValidatingMaterial: a frame that decodes to anything other than
		// a private key is silently discarded. Continuous scanning has to
		// tolerate noise, so a single bad frame never surfaces an error.
		pair, raw, err := ValidateMaterial(payload)
		if err != nil {
			continue
		}

		return j.accept(ctx, pair.Fingerprint(), raw, accountID, deviceName)
	}
}

// accept transitions to Paired: key into local-only custody, then the
// device registers itself in the trust registry.
func (j *Joiner) accept(ctx context.Context, fingerprint string, privateKeyPEM []byte, accountID, deviceName string) (Result, bool, error) {
	deviceID, err := j.Registrar.RegisterDevice(ctx, accountID, deviceName)
	if err != nil {
		return Result{State: Rejected}, true, err
	}

	err = j.Custody.Store(accountID, custody.Material{
		PrivateKeyPEM: privateKeyPEM,
		DeviceID:      deviceID,
	})
	if err != nil {
		return Result{State: Rejected}, true, err
	}

	return Result{
		State:       Paired,
		DeviceID:    deviceID,
		Fingerprint: fingerprint,
	}, true, nil
}

// sleep waits for d or until ctx is cancelled; reports whether it slept
// the full duration.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
