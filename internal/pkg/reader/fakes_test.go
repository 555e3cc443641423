package reader

import "time"

// fakeSource is a minimal EventSource test double: events are fed
// in through push and drained in FIFO order by GetEvent.
type fakeSource struct {
	queue        []RawEvent
	classes      map[int32]DeviceClass
	names        map[int32]string
	axisInfo     map[ScanCode]AbsoluteAxisInfo
	excluded     []string
	scanState    map[ScanCode]int
	keyState     map[KeyCode]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		classes:   make(map[int32]DeviceClass),
		names:     make(map[int32]string),
		axisInfo:  make(map[ScanCode]AbsoluteAxisInfo),
		scanState: make(map[ScanCode]int),
		keyState:  make(map[KeyCode]int),
	}
}

func (f *fakeSource) push(ev RawEvent) { f.queue = append(f.queue, ev) }

func (f *fakeSource) GetEvent() (RawEvent, error) {
	if len(f.queue) == 0 {
		return RawEvent{}, errNoMoreEvents
	}
	ev := f.queue[0]
	f.queue = f.queue[1:]
	return ev, nil
}

func (f *fakeSource) GetDeviceClasses(deviceID int32) DeviceClass { return f.classes[deviceID] }
func (f *fakeSource) GetDeviceName(deviceID int32) string         { return f.names[deviceID] }

func (f *fakeSource) GetAbsoluteInfo(deviceID int32, axis ScanCode) (AbsoluteAxisInfo, bool) {
	info, ok := f.axisInfo[axis]
	return info, ok
}

func (f *fakeSource) ScancodeToKeycode(deviceID int32, scanCode ScanCode) (KeyCode, uint32, bool) {
	return KeyCode(scanCode), 0, true
}

func (f *fakeSource) AddExcludedDevice(name string) { f.excluded = append(f.excluded, name) }

func (f *fakeSource) GetScanCodeState(deviceID int32, classes DeviceClass, scanCode ScanCode) int {
	if s, ok := f.scanState[scanCode]; ok {
		return s
	}
	return KeyStateUnknown
}

func (f *fakeSource) GetKeyCodeState(deviceID int32, classes DeviceClass, keyCode KeyCode) int {
	if s, ok := f.keyState[keyCode]; ok {
		return s
	}
	return KeyStateUnknown
}

func (f *fakeSource) GetSwitchState(deviceID int32, classes DeviceClass, sw ScanCode) int {
	return KeyStateUnknown
}

func (f *fakeSource) HasKeys(deviceID int32, classes DeviceClass, keyCodes []KeyCode) []bool {
	out := make([]bool, len(keyCodes))
	return out
}

type fakeSourceError struct{ msg string }

func (e *fakeSourceError) Error() string { return e.msg }

var errNoMoreEvents = &fakeSourceError{"no more fake events"}

// fakePolicy is a minimal Policy test double with everything wide
// open: no interception, no filters, no virtual keys, unless a test
// overrides a field.
type fakePolicy struct {
	width, height int32
	orientation   Orientation
	displayOK     bool
	virtualKeys   map[string][]VirtualKeyDefinition
	excluded      []string
	filterTouch   bool
	filterJumpy   bool

	feedbackCalls int
}

func newFakePolicy() *fakePolicy {
	return &fakePolicy{virtualKeys: make(map[string][]VirtualKeyDefinition)}
}

func (p *fakePolicy) GetDisplayInfo(displayID int) (int32, int32, Orientation, bool) {
	return p.width, p.height, p.orientation, p.displayOK
}

func (p *fakePolicy) GetVirtualKeyDefinitions(deviceName string) []VirtualKeyDefinition {
	return p.virtualKeys[deviceName]
}

func (p *fakePolicy) GetExcludedDeviceNames() []string { return p.excluded }
func (p *fakePolicy) FilterTouchEvents() bool          { return p.filterTouch }
func (p *fakePolicy) FilterJumpyTouchEvents() bool     { return p.filterJumpy }
func (p *fakePolicy) VirtualKeyDownFeedback()          { p.feedbackCalls++ }

func (p *fakePolicy) InterceptKey(when time.Time, deviceID int32, down bool, keyCode KeyCode, scanCode ScanCode, policyFlags uint32) PolicyAction {
	return ActionDispatch
}
func (p *fakePolicy) InterceptTouch(when time.Time) PolicyAction { return ActionDispatch }
func (p *fakePolicy) InterceptTrackball(when time.Time, downChanged, down, deltaChanged bool) PolicyAction {
	return ActionDispatch
}
func (p *fakePolicy) InterceptSwitch(when time.Time, switchCode ScanCode, value int32) PolicyAction {
	return ActionDispatch
}

// fakeDispatcher records every notification it receives for assertions.
type fakeDispatcher struct {
	keys          []keyNotification
	motions       []motionNotification
	configChanges int
	appSwitches   int
}

type keyNotification struct {
	deviceID  int32
	nature    Nature
	action    int
	flags     uint32
	keyCode   KeyCode
	scanCode  ScanCode
	metaState int32
}

type motionNotification struct {
	deviceID              int32
	action                int
	pointerIDs            []uint32
	pointerCoords         []PointerCoords
	xPrecision, yPrecision float32
}

func (d *fakeDispatcher) NotifyKey(when time.Time, deviceID int32, nature Nature, policyFlags uint32,
	action int, flags uint32, keyCode KeyCode, scanCode ScanCode, metaState int32, downTime time.Time) {
	d.keys = append(d.keys, keyNotification{deviceID, nature, action, flags, keyCode, scanCode, metaState})
}

func (d *fakeDispatcher) NotifyMotion(when time.Time, deviceID int32, nature Nature, policyFlags uint32,
	action int, metaState int32, edgeFlags int, pointerCount int,
	pointerIDs []uint32, pointerCoords []PointerCoords, xPrecision, yPrecision float32, downTime time.Time) {
	d.motions = append(d.motions, motionNotification{deviceID, action, append([]uint32(nil), pointerIDs...), append([]PointerCoords(nil), pointerCoords...), xPrecision, yPrecision})
}

func (d *fakeDispatcher) NotifyConfigurationChanged(when time.Time) { d.configChanges++ }
func (d *fakeDispatcher) NotifyAppSwitchComing(when time.Time)      { d.appSwitches++ }
