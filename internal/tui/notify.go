package tui

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/leadboard/internal/board"
)

const toastTTL = 4 * time.Second

type toast struct {
	msg   string
	isErr bool
}

// toastNotifier queues board notifications for the UI loop. It never blocks;
// when the queue is full the oldest toast is dropped.
type toastNotifier struct {
	ch chan toast
}

func newToastNotifier() *toastNotifier {
	return &toastNotifier{ch: make(chan toast, 16)}
}

func (n *toastNotifier) Success(msg string) { n.push(toast{msg: msg}) }
func (n *toastNotifier) Error(msg string)   { n.push(toast{msg: msg, isErr: true}) }

func (n *toastNotifier) push(t toast) {
	for {
		select {
		case n.ch <- t:
			return
		default:
			select {
			case <-n.ch:
			default:
			}
		}
	}
}

type toastMsg toast

type clearToastMsg struct{ seq int }

// waitForToast delivers the next notification as a message.
func (n *toastNotifier) waitForToast() tea.Cmd {
	return func() tea.Msg {
		return toastMsg(<-n.ch)
	}
}

func clearToastAfter(seq int) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return clearToastMsg{seq: seq}
	})
}

// terminalCaps reports input capabilities of a terminal. Haptics become the
// terminal bell.
type terminalCaps struct {
	touchPrimary bool
	thresholds   board.Thresholds
	bell         func()
}

// NewTerminalCaps returns capabilities for the controlling terminal.
func NewTerminalCaps(touchPrimary bool, th board.Thresholds) board.DeviceCapabilities {
	return &terminalCaps{
		touchPrimary: touchPrimary,
		thresholds:   th,
		bell:         func() { fmt.Fprint(os.Stderr, "\a") },
	}
}

func (c *terminalCaps) IsTouchPrimary() bool         { return c.touchPrimary }
func (c *terminalCaps) Thresholds() board.Thresholds { return c.thresholds }

func (c *terminalCaps) Vibrate(time.Duration) {
	if c.bell != nil {
		c.bell()
	}
}
