// Package dispatcher implements the reader.Dispatcher collaborator:
// it turns normalized key/motion/configuration notifications into a
// buffered event stream a consumer (the TUI, a test, a future
// transport) can drain, logging a colorized one-line summary of each
// as it goes.
package dispatcher

import (
	"fmt"
	"time"

	"github.com/logrusorgru/aurora"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/logging"
	"github.com/touchcore/inputreader/internal/pkg/reader"
)

// NotificationKind distinguishes which Dispatcher method produced a Notification.
type NotificationKind int

const (
	KindKey NotificationKind = iota
	KindMotion
	KindConfigurationChanged
	KindAppSwitchComing
)

// Notification is the dispatcher's normalized output: a tagged union
// over the four notify calls reader.Dispatcher exposes.
type Notification struct {
	Kind NotificationKind
	When time.Time

	DeviceID    int32
	Nature      reader.Nature
	PolicyFlags uint32

	// Key fields.
	KeyAction int
	KeyFlags  uint32
	KeyCode   reader.KeyCode
	ScanCode  reader.ScanCode
	MetaState int32
	DownTime  time.Time

	// Motion fields.
	MotionAction  int
	EdgeFlags     int
	PointerIDs    []uint32
	PointerCoords []reader.PointerCoords
	XPrecision    float32
	YPrecision    float32
}

// Dispatcher buffers Notifications and logs a colorized summary of each.
type Dispatcher struct {
	log    *zap.Logger
	color  bool
	events chan Notification
}

// New creates a Dispatcher with the given output buffer size. color
// enables aurora ANSI styling in the logged summary line.
func New(bufferSize int, color bool, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{log: log, color: color, events: make(chan Notification, bufferSize)}
}

// Events returns the read side of the notification stream.
func (d *Dispatcher) Events() <-chan Notification {
	return d.events
}

func (d *Dispatcher) emit(n Notification) {
	select {
	case d.events <- n:
	default:
		d.log.Warn("notification dropped, consumer too slow", logging.Warning)
	}
}

func (d *Dispatcher) NotifyKey(when time.Time, deviceID int32, nature reader.Nature, policyFlags uint32,
	action int, flags uint32, keyCode reader.KeyCode, scanCode reader.ScanCode, metaState int32, downTime time.Time) {
	n := Notification{
		Kind: KindKey, When: when, DeviceID: deviceID, Nature: nature, PolicyFlags: policyFlags,
		KeyAction: action, KeyFlags: flags, KeyCode: keyCode, ScanCode: scanCode, MetaState: metaState, DownTime: downTime,
	}
	d.logKey(n)
	d.emit(n)
}

func (d *Dispatcher) NotifyMotion(when time.Time, deviceID int32, nature reader.Nature, policyFlags uint32,
	action int, metaState int32, edgeFlags int, pointerCount int, pointerIDs []uint32,
	pointerCoords []reader.PointerCoords, xPrecision, yPrecision float32, downTime time.Time) {
	n := Notification{
		Kind: KindMotion, When: when, DeviceID: deviceID, Nature: nature, PolicyFlags: policyFlags,
		MotionAction: action, MetaState: metaState, EdgeFlags: edgeFlags,
		PointerIDs: pointerIDs, PointerCoords: pointerCoords, XPrecision: xPrecision, YPrecision: yPrecision, DownTime: downTime,
	}
	d.logMotion(n)
	d.emit(n)
}

func (d *Dispatcher) NotifyConfigurationChanged(when time.Time) {
	n := Notification{Kind: KindConfigurationChanged, When: when}
	d.log.Info("input configuration changed", logging.Info)
	d.emit(n)
}

func (d *Dispatcher) NotifyAppSwitchComing(when time.Time) {
	n := Notification{Kind: KindAppSwitchComing, When: when}
	d.log.Info("app switch coming", logging.Info)
	d.emit(n)
}

func (d *Dispatcher) logKey(n Notification) {
	action := "up"
	if n.KeyAction == reader.KeyActionDown {
		action = "down"
	}
	if d.color {
		styled := aurora.Cyan(action)
		if n.KeyAction == reader.KeyActionDown {
			styled = aurora.Green(action)
		}
		d.log.Info(fmt.Sprintf("[key] device=%d scan=%d key=%d %s", n.DeviceID, n.ScanCode, n.KeyCode, styled), logging.Action)
		return
	}
	d.log.Info(fmt.Sprintf("[key] device=%d scan=%d key=%d %s", n.DeviceID, n.ScanCode, n.KeyCode, action), logging.Action)
}

func (d *Dispatcher) logMotion(n Notification) {
	d.log.Info(fmt.Sprintf("[motion] device=%d action=%#x pointers=%d", n.DeviceID, n.MotionAction, len(n.PointerIDs)), logging.Action)
}
