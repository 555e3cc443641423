// Package reader implements the core of a mobile-OS input-event
// reader: the per-device accumulator/state-machine/dispatch pipeline,
// the touch pipeline, the virtual-key overlay, and the exported-state
// surface queried from other goroutines.
//
// The package never imports an evdev binding directly; it only knows
// about the small Linux-input-subset vocabulary reproduced below and
// consumes raw events through the EventSource interface. Concrete,
// hardware-backed collaborators live in sibling packages
// (internal/pkg/eventhub, internal/pkg/policy, internal/pkg/dispatcher).
package reader

import "time"

// EventType enumerates the raw event kinds the reader dispatches on.
type EventType int

const (
	EventDeviceAdded EventType = iota
	EventDeviceRemoved
	EventSync
	EventKey
	EventRelativeMotion
	EventAbsoluteMotion
	EventSwitch
)

// ScanCode identifies a Linux input subset code (EV_SYN/EV_KEY/EV_REL/
// EV_ABS scan code space, not multiplexed by event type).
type ScanCode int32

// KeyCode identifies a normalized Android-style key code, distinct
// from the driver scan code that produced it.
type KeyCode int32

// Sync scan codes (EventSync).
const (
	SynReport   ScanCode = 0
	SynMTReport ScanCode = 2
)

// Key scan codes relevant to device state transitions (EventKey).
const (
	BtnTouch ScanCode = 0x14a
	BtnMouse ScanCode = 0x110
)

// Absolute axis scan codes (EventAbsoluteMotion).
const (
	AbsX             ScanCode = 0x00
	AbsY             ScanCode = 0x01
	AbsPressure      ScanCode = 0x18
	AbsToolWidth     ScanCode = 0x1c
	AbsMTTouchMajor  ScanCode = 0x30
	AbsMTWidthMajor  ScanCode = 0x32
	AbsMTPositionX   ScanCode = 0x35
	AbsMTPositionY   ScanCode = 0x36
	AbsMTTrackingID  ScanCode = 0x39
)

// Relative axis scan codes (EventRelativeMotion).
const (
	RelX ScanCode = 0x00
	RelY ScanCode = 0x01
)

// Android key codes needed by the meta-state and virtual-key/dpad logic.
const (
	KeycodeUnknown   KeyCode = 0
	KeycodeDpadUp    KeyCode = 19
	KeycodeDpadDown  KeyCode = 20
	KeycodeDpadLeft  KeyCode = 21
	KeycodeDpadRight KeyCode = 22
	KeycodeAltLeft   KeyCode = 57
	KeycodeAltRight  KeyCode = 58
	KeycodeShiftLeft  KeyCode = 59
	KeycodeShiftRight KeyCode = 60
	KeycodeSym        KeyCode = 63
)

// Meta-state bitmask, mirroring android.view.KeyEvent's META_* bits.
const (
	MetaAltLeftOn   = 1 << 4
	MetaAltRightOn  = 1 << 5
	MetaAltOn       = 1 << 1
	MetaShiftLeftOn  = 1 << 6
	MetaShiftRightOn = 1 << 7
	MetaShiftOn      = 1 << 0
	MetaSymOn        = 1 << 2
)

// Device class bitmask, one bit per input.InputDeviceClass category.
type DeviceClass uint32

const (
	ClassKeyboard          DeviceClass = 1 << 0
	ClassAlphaKey          DeviceClass = 1 << 1
	ClassTrackball         DeviceClass = 1 << 2
	ClassDPad              DeviceClass = 1 << 3
	ClassTouchscreenSingle DeviceClass = 1 << 4
	ClassTouchscreenMulti  DeviceClass = 1 << 5
)

// RawEvent is the tuple the event source fills in on each blocking
// read. Timestamp is re-stamped by the reader with its own monotonic
// clock on ingestion, never trusted from the source.
type RawEvent struct {
	DeviceID int32
	Type     EventType
	ScanCode ScanCode
	KeyCode  KeyCode
	Flags    uint32
	Value    int32
	When     time.Time
}

// Key event action.
const (
	KeyActionDown = iota
	KeyActionUp
)

// Key event flags.
const (
	KeyFlagFromSystem   = 1 << 0
	KeyFlagWokeHere     = 1 << 1
	KeyFlagVirtualHardKey = 1 << 2
	KeyFlagCanceled     = 1 << 3
)

// Motion event action. Pointer up/down actions carry the affected
// pointer's id in the upper bits, mirroring
// MotionEvent.getActionIndex()'s bit layout.
const (
	MotionActionDown = iota
	MotionActionUp
	MotionActionMove
	MotionActionPointerDown
	MotionActionPointerUp
)

const motionActionPointerIDShift = 8

// MakePointerAction packs a pointer id into a POINTER_DOWN/POINTER_UP action.
func MakePointerAction(base int, pointerID uint32) int {
	return base | int(pointerID)<<motionActionPointerIDShift
}

// Motion event edge flags, set only on DOWN.
const (
	EdgeFlagLeft = 1 << iota
	EdgeFlagRight
	EdgeFlagTop
	EdgeFlagBottom
)

// Event nature, distinguishing the originating pipeline for the dispatcher.
type Nature int

const (
	NatureKey Nature = iota
	NatureTouch
	NatureTrackball
)

// Orientation mirrors the policy's display rotation enumeration.
type Orientation int

const (
	Rotation0 Orientation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Input configuration categories, aggregated across all registered devices.
type (
	TouchScreenConfig int
	KeyboardConfig    int
	NavigationConfig  int
)

const (
	TouchScreenNoTouch TouchScreenConfig = iota
	TouchScreenFinger
)

const (
	KeyboardNoKeys KeyboardConfig = iota
	KeyboardQwerty
)

const (
	NavigationNoNav NavigationConfig = iota
	NavigationDPad
	NavigationTrackball
)

// InputConfiguration is the aggregate, exported-state view of what
// kinds of input hardware are currently registered.
type InputConfiguration struct {
	TouchScreen TouchScreenConfig
	Keyboard    KeyboardConfig
	Navigation  NavigationConfig
}

// KeyState mirrors the distinguished query-result states returned by
// getCurrentScanCodeState/getCurrentKeyCodeState.
const (
	KeyStateUnknown = -1
	KeyStateUp      = 0
	KeyStateDown    = 1
	KeyStateVirtual = 3
)
