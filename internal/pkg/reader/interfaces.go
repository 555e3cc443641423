package reader

import "time"

// PolicyAction is the bitmask a Policy method returns to tell the
// reader what to do with the event it is currently processing.
type PolicyAction uint32

const (
	ActionAppSwitchComing PolicyAction = 1 << 0
	ActionWokeHere        PolicyAction = 1 << 1
	ActionBrightHere      PolicyAction = 1 << 2
	ActionDispatch        PolicyAction = 1 << 3
)

// AbsoluteAxisInfo describes one absolute axis as reported by the
// event source, or an invalid zero value when the axis isn't present
// or has zero range.
type AbsoluteAxisInfo struct {
	Min, Max, Flat, Fuzz int32
	Valid                bool
}

// Range returns Max - Min.
func (a AbsoluteAxisInfo) Range() int32 {
	return a.Max - a.Min
}

// VirtualKeyDefinition is a policy-supplied hardware virtual key,
// given in display coordinates before inverse-mapping to axis space.
type VirtualKeyDefinition struct {
	ScanCode                ScanCode
	CenterX, CenterY         int32
	Width, Height            int32
}

// EventSource is the blocking raw-event queue and device-metadata
// collaborator, implemented for real hardware in internal/pkg/eventhub.
type EventSource interface {
	// GetEvent blocks until one raw event is available.
	GetEvent() (RawEvent, error)
	GetDeviceClasses(deviceID int32) DeviceClass
	GetDeviceName(deviceID int32) string
	// GetAbsoluteInfo reports axis range/flat/fuzz, or ok=false if unavailable.
	GetAbsoluteInfo(deviceID int32, axis ScanCode) (AbsoluteAxisInfo, bool)
	// ScancodeToKeycode translates a virtual-key hardware scan code, or ok=false if unmapped.
	ScancodeToKeycode(deviceID int32, scanCode ScanCode) (KeyCode, uint32, bool)
	AddExcludedDevice(name string)
	GetScanCodeState(deviceID int32, classes DeviceClass, scanCode ScanCode) int
	GetKeyCodeState(deviceID int32, classes DeviceClass, keyCode KeyCode) int
	GetSwitchState(deviceID int32, classes DeviceClass, sw ScanCode) int
	HasKeys(deviceID int32, classes DeviceClass, keyCodes []KeyCode) []bool
}

// Policy is the interception/feedback/display-geometry collaborator,
// implemented by internal/pkg/policy.
type Policy interface {
	// GetDisplayInfo reports display geometry for displayID, or ok=false if unknown.
	GetDisplayInfo(displayID int) (width, height int32, orientation Orientation, ok bool)
	GetVirtualKeyDefinitions(deviceName string) []VirtualKeyDefinition
	GetExcludedDeviceNames() []string
	FilterTouchEvents() bool
	FilterJumpyTouchEvents() bool
	VirtualKeyDownFeedback()
	InterceptKey(when time.Time, deviceID int32, down bool, keyCode KeyCode, scanCode ScanCode, policyFlags uint32) PolicyAction
	InterceptTouch(when time.Time) PolicyAction
	InterceptTrackball(when time.Time, downChanged, down, deltaChanged bool) PolicyAction
	InterceptSwitch(when time.Time, switchCode ScanCode, value int32) PolicyAction
}

// Dispatcher receives normalized input events, implemented by
// internal/pkg/dispatcher.
type Dispatcher interface {
	NotifyKey(when time.Time, deviceID int32, nature Nature, policyFlags uint32,
		action int, flags uint32, keyCode KeyCode, scanCode ScanCode, metaState int32, downTime time.Time)
	NotifyMotion(when time.Time, deviceID int32, nature Nature, policyFlags uint32,
		action int, metaState int32, edgeFlags int, pointerCount int,
		pointerIDs []uint32, pointerCoords []PointerCoords, xPrecision, yPrecision float32, downTime time.Time)
	NotifyConfigurationChanged(when time.Time)
	NotifyAppSwitchComing(when time.Time)
}

// PointerCoords is one pointer's post-transform coordinates and
// contact shape, as handed to the dispatcher.
type PointerCoords struct {
	X, Y, Pressure, Size float32
}
