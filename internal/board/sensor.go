package board

import "time"

// InputDevice is where a gesture came from.
type InputDevice int

const (
	DevicePointer InputDevice = iota
	DeviceTouch
	DeviceKeyboard
)

func (d InputDevice) String() string {
	switch d {
	case DevicePointer:
		return "pointer"
	case DeviceTouch:
		return "touch"
	case DeviceKeyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// SensorConfig is the activation constraint for one input device. With a
// Delay the press must be held that long without moving further than
// Tolerance. Otherwise the press must travel Distance. With neither set the
// drag starts on press.
type SensorConfig struct {
	Distance  float64
	Delay     time.Duration
	Tolerance float64
}

// Thresholds holds a SensorConfig per device.
type Thresholds struct {
	Pointer  SensorConfig
	Touch    SensorConfig
	Keyboard SensorConfig
}

// DefaultThresholds suit a terminal: one cell of pointer travel, a 250ms
// touch hold within 5 cells, and instant keyboard pickup.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pointer: SensorConfig{Distance: 1},
		Touch:   SensorConfig{Delay: 250 * time.Millisecond, Tolerance: 5},
	}
}

// DeviceCapabilities describes the host input hardware.
type DeviceCapabilities interface {
	// IsTouchPrimary reports that pointer events come from a finger.
	IsTouchPrimary() bool
	// Vibrate gives haptic feedback when a drag activates.
	Vibrate(d time.Duration)
	Thresholds() Thresholds
}

// StaticCapabilities is a DeviceCapabilities with fixed values and no haptics.
type StaticCapabilities struct {
	TouchPrimary bool
	Limits       Thresholds
}

func (c StaticCapabilities) IsTouchPrimary() bool   { return c.TouchPrimary }
func (c StaticCapabilities) Vibrate(time.Duration)  {}
func (c StaticCapabilities) Thresholds() Thresholds { return c.Limits }

// sensorFor picks the constraint for a device. Pointer input on a
// touch-primary device is held to the touch constraint.
func sensorFor(caps DeviceCapabilities, d InputDevice) SensorConfig {
	th := caps.Thresholds()
	switch d {
	case DeviceTouch:
		return th.Touch
	case DeviceKeyboard:
		return th.Keyboard
	default:
		if caps.IsTouchPrimary() {
			return th.Touch
		}
		return th.Pointer
	}
}

type activation int

const (
	activationPending activation = iota
	activationActive
	activationAborted
)

// check evaluates cfg for a press at origin/start that is now at p.
func (cfg SensorConfig) check(origin, p Point, start, now time.Time) activation {
	moved := origin.Dist(p)
	switch {
	case cfg.Delay > 0:
		if moved > cfg.Tolerance {
			return activationAborted
		}
		if now.Sub(start) >= cfg.Delay {
			return activationActive
		}
		return activationPending
	case cfg.Distance > 0:
		if moved >= cfg.Distance {
			return activationActive
		}
		return activationPending
	default:
		return activationActive
	}
}
