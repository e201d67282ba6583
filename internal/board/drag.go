package board

import (
	"context"
	"sync"
	"time"

	"github.com/fentz26/leadboard/internal/models"
	"go.uber.org/zap"
)

// HapticPulse is the vibration length on touch activation.
const HapticPulse = 50 * time.Millisecond

// GestureKind is the phase of a gesture event.
type GestureKind int

const (
	GesturePress GestureKind = iota
	GestureMove
	GestureRelease
	GestureCancel
)

// GestureEvent is one input event from any device. LeadID is only read on press.
type GestureEvent struct {
	Kind   GestureKind
	Device InputDevice
	LeadID string
	Point  Point
	At     time.Time
}

// GestureSource yields gesture events until the channel is closed.
type GestureSource interface {
	Events() <-chan GestureEvent
}

// DragCallbacks are fired by the DragController. Either may be nil.
type DragCallbacks struct {
	// OnDragStart fires when a press activates into a drag.
	OnDragStart func(leadID string)
	// OnDragEnd fires exactly once per activated drag. ok is false when the
	// drag was cancelled or released outside every column.
	OnDragEnd func(leadID string, target models.Status, ok bool)
}

type gesture struct {
	leadID string
	device InputDevice
	sensor SensorConfig
	origin Point
	point  Point
	start  time.Time
	active bool
}

// DragController turns raw gesture events into drag start and drop callbacks.
// One gesture is tracked at a time; presses during a gesture are ignored.
type DragController struct {
	mu      sync.Mutex
	caps    DeviceCapabilities
	targets func() []Target
	cb      DragCallbacks
	log     *zap.Logger
	cur     *gesture
}

// NewDragController creates a controller. targets is called at release time
// so it always sees the current layout.
func NewDragController(caps DeviceCapabilities, targets func() []Target, cb DragCallbacks, log *zap.Logger) *DragController {
	if caps == nil {
		caps = StaticCapabilities{Limits: DefaultThresholds()}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DragController{caps: caps, targets: targets, cb: cb, log: log}
}

// Active returns the lead being dragged and its current position.
func (d *DragController) Active() (string, Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == nil || !d.cur.active {
		return "", Point{}, false
	}
	return d.cur.leadID, d.cur.point, true
}

// Pending reports whether a press is waiting to activate.
func (d *DragController) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cur != nil && !d.cur.active
}

// Handle feeds one event through the controller.
func (d *DragController) Handle(ev GestureEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	d.mu.Lock()
	var fire func()
	switch ev.Kind {
	case GesturePress:
		if d.cur != nil || ev.LeadID == "" {
			break
		}
		d.cur = &gesture{
			leadID: ev.LeadID,
			device: ev.Device,
			sensor: sensorFor(d.caps, ev.Device),
			origin: ev.Point,
			point:  ev.Point,
			start:  ev.At,
		}
		fire = d.evaluate(ev.Point, ev.At)

	case GestureMove:
		if d.cur == nil || d.cur.device != ev.Device {
			break
		}
		d.cur.point = ev.Point
		if !d.cur.active {
			fire = d.evaluate(ev.Point, ev.At)
		}

	case GestureRelease:
		if d.cur == nil || d.cur.device != ev.Device {
			break
		}
		g := d.cur
		g.point = ev.Point
		if !g.active {
			// Released before activation: a click or tap, not a drag.
			d.cur = nil
			break
		}
		d.cur = nil
		var targets []Target
		if d.targets != nil {
			targets = d.targets()
		}
		target, ok := ClosestCenter(g.point, targets)
		fire = d.endFunc(g.leadID, target, ok)

	case GestureCancel:
		if d.cur == nil {
			break
		}
		g := d.cur
		d.cur = nil
		if g.active {
			fire = d.endFunc(g.leadID, "", false)
		}
	}
	d.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// Tick activates a held press once its delay has passed without new events.
func (d *DragController) Tick(now time.Time) {
	d.mu.Lock()
	var fire func()
	if d.cur != nil && !d.cur.active {
		fire = d.evaluate(d.cur.point, now)
	}
	d.mu.Unlock()

	if fire != nil {
		fire()
	}
}

// Run feeds src through the controller until src closes or ctx is done. A
// drag still active when ctx ends is cancelled.
func (d *DragController) Run(ctx context.Context, src GestureSource) error {
	events := src.Events()
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Handle(GestureEvent{Kind: GestureCancel})
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				d.Handle(GestureEvent{Kind: GestureCancel})
				return nil
			}
			d.Handle(ev)
			if wait, pending := d.UntilActivation(time.Now()); pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(wait)
			}
		case now := <-timer.C:
			d.Tick(now)
			if wait, pending := d.UntilActivation(time.Now()); pending {
				timer.Reset(wait)
			}
		}
	}
}

// UntilActivation is how long a delayed press still has to be held. It is
// false when nothing is waiting on a timer.
func (d *DragController) UntilActivation(now time.Time) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == nil || d.cur.active || d.cur.sensor.Delay <= 0 {
		return 0, false
	}
	wait := d.cur.sensor.Delay - now.Sub(d.cur.start)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// evaluate must be called with mu held. It returns the callback to fire
// after unlocking, if any.
func (d *DragController) evaluate(p Point, now time.Time) func() {
	g := d.cur
	switch g.sensor.check(g.origin, p, g.start, now) {
	case activationAborted:
		d.log.Debug("drag aborted before activation", zap.String("lead_id", g.leadID), zap.Stringer("device", g.device))
		d.cur = nil
		return nil
	case activationActive:
		g.active = true
		d.log.Debug("drag started", zap.String("lead_id", g.leadID), zap.Stringer("device", g.device))
		leadID, device := g.leadID, g.device
		return func() {
			if device == DeviceTouch || (device == DevicePointer && d.caps.IsTouchPrimary()) {
				d.caps.Vibrate(HapticPulse)
			}
			if d.cb.OnDragStart != nil {
				d.cb.OnDragStart(leadID)
			}
		}
	default:
		return nil
	}
}

func (d *DragController) endFunc(leadID string, target models.Status, ok bool) func() {
	d.log.Debug("drag ended", zap.String("lead_id", leadID), zap.String("target", string(target)), zap.Bool("ok", ok))
	return func() {
		if d.cb.OnDragEnd != nil {
			d.cb.OnDragEnd(leadID, target, ok)
		}
	}
}
