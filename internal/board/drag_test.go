package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/leadboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaps struct {
	mu           sync.Mutex
	touchPrimary bool
	limits       Thresholds
	vibrations   []time.Duration
}

func (c *fakeCaps) IsTouchPrimary() bool   { return c.touchPrimary }
func (c *fakeCaps) Thresholds() Thresholds { return c.limits }

func (c *fakeCaps) Vibrate(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vibrations = append(c.vibrations, d)
}

func (c *fakeCaps) vibrated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vibrations)
}

type dragEnd struct {
	leadID string
	target models.Status
	ok     bool
}

type dragRecorder struct {
	mu     sync.Mutex
	starts []string
	ends   []dragEnd
}

func (r *dragRecorder) callbacks() DragCallbacks {
	return DragCallbacks{
		OnDragStart: func(id string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.starts = append(r.starts, id)
		},
		OnDragEnd: func(id string, target models.Status, ok bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ends = append(r.ends, dragEnd{id, target, ok})
		},
	}
}

func (r *dragRecorder) snapshot() ([]string, []dragEnd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.starts...), append([]dragEnd(nil), r.ends...)
}

// threeColumns lays NEW, CONTACTED and QUOTED side by side, 10 wide and 20 tall.
func threeColumns() []Target {
	return []Target{
		{Status: models.StatusNew, Rect: Rect{X: 0, Y: 0, W: 10, H: 20}},
		{Status: models.StatusContacted, Rect: Rect{X: 10, Y: 0, W: 10, H: 20}},
		{Status: models.StatusQuoted, Rect: Rect{X: 20, Y: 0, W: 10, H: 20}},
	}
}

func newTestController(caps *fakeCaps) (*DragController, *dragRecorder) {
	rec := &dragRecorder{}
	return NewDragController(caps, threeColumns, rec.callbacks(), nil), rec
}

func TestPointerActivatesAfterDistance(t *testing.T) {
	caps := &fakeCaps{limits: DefaultThresholds()}
	d, rec := newTestController(caps)
	t0 := time.Now()

	d.Handle(GestureEvent{Kind: GesturePress, Device: DevicePointer, LeadID: "a", Point: Point{5, 5}, At: t0})
	assert.True(t, d.Pending())
	d.Handle(GestureEvent{Kind: GestureMove, Device: DevicePointer, Point: Point{5.5, 5}, At: t0.Add(10 * time.Millisecond)})
	starts, _ := rec.snapshot()
	assert.Empty(t, starts)

	d.Handle(GestureEvent{Kind: GestureMove, Device: DevicePointer, Point: Point{7, 5}, At: t0.Add(20 * time.Millisecond)})
	starts, _ = rec.snapshot()
	assert.Equal(t, []string{"a"}, starts)
	id, p, ok := d.Active()
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, Point{7, 5}, p)
	assert.Equal(t, 0, caps.vibrated())

	d.Handle(GestureEvent{Kind: GestureRelease, Device: DevicePointer, Point: Point{14, 6}, At: t0.Add(30 * time.Millisecond)})
	_, ends := rec.snapshot()
	assert.Equal(t, []dragEnd{{"a", models.StatusContacted, true}}, ends)
	_, _, ok = d.Active()
	assert.False(t, ok)
}

func TestClickWithoutActivationFiresNothing(t *testing.T) {
	d, rec := newTestController(&fakeCaps{limits: DefaultThresholds()})

	d.Handle(GestureEvent{Kind: GesturePress, Device: DevicePointer, LeadID: "a", Point: Point{5, 5}})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DevicePointer, Point: Point{5, 5}})

	starts, ends := rec.snapshot()
	assert.Empty(t, starts)
	assert.Empty(t, ends)
	assert.False(t, d.Pending())
}

func TestTouchActivatesAfterDelayWithinTolerance(t *testing.T) {
	caps := &fakeCaps{limits: DefaultThresholds()}
	d, rec := newTestController(caps)
	t0 := time.Now()

	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceTouch, LeadID: "a", Point: Point{5, 5}, At: t0})
	d.Handle(GestureEvent{Kind: GestureMove, Device: DeviceTouch, Point: Point{8, 5}, At: t0.Add(100 * time.Millisecond)})
	starts, _ := rec.snapshot()
	assert.Empty(t, starts, "touch must wait out the delay even after moving")

	d.Tick(t0.Add(300 * time.Millisecond))
	starts, _ = rec.snapshot()
	assert.Equal(t, []string{"a"}, starts)
	assert.Equal(t, 1, caps.vibrated())

	d.Handle(GestureEvent{Kind: GestureMove, Device: DeviceTouch, Point: Point{25, 4}, At: t0.Add(400 * time.Millisecond)})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceTouch, Point: Point{25, 4}, At: t0.Add(500 * time.Millisecond)})
	_, ends := rec.snapshot()
	assert.Equal(t, []dragEnd{{"a", models.StatusQuoted, true}}, ends)
}

func TestTouchMovingPastToleranceCancels(t *testing.T) {
	caps := &fakeCaps{limits: DefaultThresholds()}
	d, rec := newTestController(caps)
	t0 := time.Now()

	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceTouch, LeadID: "a", Point: Point{5, 5}, At: t0})
	// A scroll: large movement before the hold delay elapses.
	d.Handle(GestureEvent{Kind: GestureMove, Device: DeviceTouch, Point: Point{5, 15}, At: t0.Add(50 * time.Millisecond)})
	assert.False(t, d.Pending())

	d.Tick(t0.Add(time.Second))
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceTouch, Point: Point{5, 15}, At: t0.Add(time.Second)})

	starts, ends := rec.snapshot()
	assert.Empty(t, starts)
	assert.Empty(t, ends)
	assert.Equal(t, 0, caps.vibrated())
}

func TestTouchPrimaryPointerUsesTouchConstraint(t *testing.T) {
	caps := &fakeCaps{touchPrimary: true, limits: DefaultThresholds()}
	d, rec := newTestController(caps)
	t0 := time.Now()

	d.Handle(GestureEvent{Kind: GesturePress, Device: DevicePointer, LeadID: "a", Point: Point{5, 5}, At: t0})
	d.Handle(GestureEvent{Kind: GestureMove, Device: DevicePointer, Point: Point{7, 5}, At: t0.Add(10 * time.Millisecond)})
	starts, _ := rec.snapshot()
	assert.Empty(t, starts, "distance alone must not activate on a touch-primary device")

	d.Tick(t0.Add(250 * time.Millisecond))
	starts, _ = rec.snapshot()
	assert.Equal(t, []string{"a"}, starts)
	assert.Equal(t, 1, caps.vibrated())
}

func TestKeyboardActivatesImmediately(t *testing.T) {
	d, rec := newTestController(&fakeCaps{limits: DefaultThresholds()})

	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "b", Point: Point{5, 10}})
	starts, _ := rec.snapshot()
	assert.Equal(t, []string{"b"}, starts)

	d.Handle(GestureEvent{Kind: GestureMove, Device: DeviceKeyboard, Point: Point{25, 10}})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{25, 10}})
	_, ends := rec.snapshot()
	assert.Equal(t, []dragEnd{{"b", models.StatusQuoted, true}}, ends)
}

func TestCancelFiresEndOnce(t *testing.T) {
	d, rec := newTestController(&fakeCaps{limits: DefaultThresholds()})

	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "b", Point: Point{5, 10}})
	d.Handle(GestureEvent{Kind: GestureCancel})
	d.Handle(GestureEvent{Kind: GestureCancel})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{25, 10}})

	_, ends := rec.snapshot()
	assert.Equal(t, []dragEnd{{"b", "", false}}, ends)
}

func TestSecondPressDuringGestureIgnored(t *testing.T) {
	d, rec := newTestController(&fakeCaps{limits: DefaultThresholds()})

	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "a", Point: Point{5, 10}})
	d.Handle(GestureEvent{Kind: GesturePress, Device: DevicePointer, LeadID: "c", Point: Point{15, 10}})
	// Pointer release belongs to no gesture and must not end the keyboard drag.
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DevicePointer, Point: Point{15, 10}})

	id, _, ok := d.Active()
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{15, 10}})
	starts, ends := rec.snapshot()
	assert.Equal(t, []string{"a"}, starts)
	assert.Equal(t, []dragEnd{{"a", models.StatusContacted, true}}, ends)
}

func TestReleaseOutsideBoardResolvesToNone(t *testing.T) {
	d, rec := newTestController(&fakeCaps{limits: DefaultThresholds()})

	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "a", Point: Point{5, 10}})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{60, 10}})

	_, ends := rec.snapshot()
	assert.Equal(t, []dragEnd{{"a", "", false}}, ends)
}

type chanSource chan GestureEvent

func (c chanSource) Events() <-chan GestureEvent { return c }

func TestRunActivatesHeldTouch(t *testing.T) {
	caps := &fakeCaps{limits: Thresholds{Touch: SensorConfig{Delay: 20 * time.Millisecond, Tolerance: 5}}}
	rec := &dragRecorder{}
	started := make(chan struct{}, 1)
	cb := rec.callbacks()
	onStart := cb.OnDragStart
	cb.OnDragStart = func(id string) {
		onStart(id)
		started <- struct{}{}
	}
	d := NewDragController(caps, threeColumns, cb, nil)

	src := make(chanSource)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, src) }()

	src <- GestureEvent{Kind: GesturePress, Device: DeviceTouch, LeadID: "a", Point: Point{5, 5}}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("held touch never activated")
	}

	// Context ends mid-drag: the drag is cancelled, not dropped.
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	_, ends := rec.snapshot()
	assert.Equal(t, []dragEnd{{"a", "", false}}, ends)
}

func TestRunReturnsWhenSourceCloses(t *testing.T) {
	d, _ := newTestController(&fakeCaps{limits: DefaultThresholds()})
	src := make(chanSource)
	close(src)
	require.NoError(t, d.Run(context.Background(), src))
}

func TestDragDropDrivesBoard(t *testing.T) {
	b, fs, _ := newTestBoard(t, scenarioLeads())
	d := NewDragController(&fakeCaps{limits: DefaultThresholds()}, threeColumns, DragCallbacks{
		OnDragEnd: func(id string, target models.Status, ok bool) {
			assert.NoError(t, b.Drop(context.Background(), id, target, ok))
		},
	}, nil)

	// A dropped on its own column: nothing happens.
	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "a", Point: Point{5, 10}})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{4, 10}})
	assert.Equal(t, 0, fs.updateCount())

	// A dropped outside: nothing happens.
	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "a", Point: Point{5, 10}})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{5, 40}})
	assert.Equal(t, 0, fs.updateCount())

	// A dropped near the edge of CONTACTED.
	d.Handle(GestureEvent{Kind: GesturePress, Device: DeviceKeyboard, LeadID: "a", Point: Point{5, 10}})
	d.Handle(GestureEvent{Kind: GestureRelease, Device: DeviceKeyboard, Point: Point{11, 20.5}})
	assert.Equal(t, 1, fs.updateCount())
	assert.ElementsMatch(t, []string{"a", "b"}, ids(column(b.Columns(), models.StatusContacted).Leads))
}
