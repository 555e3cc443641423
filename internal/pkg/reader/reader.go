package reader

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/logging"
)

// Reader is the single-owner core: one goroutine drives LoopOnce
// repeatedly and is the sole writer of every device record, the
// registry, and the meta-state cache. Only the exportedState triple
// below is touched by other goroutines, guarded by exportedState.mu.
type Reader struct {
	source     EventSource
	policy     Policy
	dispatcher Dispatcher
	log        *zap.Logger

	devices *deviceRegistry

	globalMetaState int32 // -1 means dirty, recompute on next read

	displayWidth       int32
	displayHeight      int32
	displayOrientation Orientation
	displayKnown       bool

	exported exportedState
}

// exportedState is the cross-thread query surface: one mutex guards
// exactly these three fields and nothing else.
type exportedState struct {
	mu                sync.Mutex
	inputConfig       InputConfiguration
	virtualKeyCode    KeyCode
	virtualScanCode   ScanCode
}

// New constructs a Reader, registers policy-excluded devices with the
// event source, and primes the exported state. Excluded devices are
// registered before the first LoopOnce.
func New(source EventSource, policy Policy, dispatcher Dispatcher, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reader{
		source:          source,
		policy:          policy,
		dispatcher:      dispatcher,
		log:             log,
		devices:         newDeviceRegistry(),
		globalMetaState: -1,
	}
	for _, name := range policy.GetExcludedDeviceNames() {
		source.AddExcludedDevice(name)
	}
	r.resetDisplayProperties()
	r.updateExportedVirtualKeyState()
	r.updateExportedInputConfiguration()
	return r
}

// LoopOnce blocks on the event source for exactly one raw event,
// re-stamps it with this process's monotonic clock, and dispatches by
// type. It is re-entrant across calls but assumes one dedicated
// goroutine calls it serially.
func (r *Reader) LoopOnce() error {
	ev, err := r.source.GetEvent()
	if err != nil {
		return err
	}
	ev.When = time.Now()
	r.process(&ev)
	return nil
}

func (r *Reader) process(ev *RawEvent) {
	switch ev.Type {
	case EventDeviceAdded:
		r.handleDeviceAdded(ev)
	case EventDeviceRemoved:
		r.handleDeviceRemoved(ev)
	case EventSync:
		r.handleSync(ev)
	case EventKey:
		r.handleKey(ev)
	case EventRelativeMotion:
		r.handleRelativeMotion(ev)
	case EventAbsoluteMotion:
		r.handleAbsoluteMotion(ev)
	case EventSwitch:
		r.handleSwitch(ev)
	}
}

func (r *Reader) handleDeviceAdded(ev *RawEvent) {
	if r.devices.get(ev.DeviceID) != nil {
		r.log.Warn("spurious device added event for known device id", zap.Int32("device_id", ev.DeviceID), logging.Warning)
		return
	}
	r.addDevice(ev.When, ev.DeviceID)
}

func (r *Reader) handleDeviceRemoved(ev *RawEvent) {
	device := r.devices.get(ev.DeviceID)
	if device == nil {
		r.log.Warn("spurious device removed event for unknown device id", zap.Int32("device_id", ev.DeviceID), logging.Warning)
		return
	}
	r.removeDevice(ev.When, device)
}

func (r *Reader) getNonIgnoredDevice(id int32) *Device {
	d := r.devices.get(id)
	if d == nil || d.Ignored {
		return nil
	}
	return d
}

func (r *Reader) handleSync(ev *RawEvent) {
	device := r.getNonIgnoredDevice(ev.DeviceID)
	if device == nil {
		return
	}

	switch ev.ScanCode {
	case SynMTReport:
		if !device.IsMultiTouchScreen() {
			return
		}
		acc := &device.MultiTouch.Accumulator
		idx := acc.PointerCount
		if idx >= len(acc.Pointers) {
			idx = len(acc.Pointers) - 1
		}
		if acc.Pointers[idx].Fields != 0 {
			if idx == MaxPointers {
				r.log.Warn("multi-touch device reported more pointers than supported",
					zap.Int32("device_id", ev.DeviceID), zap.Int("max_pointers", MaxPointers), logging.Warning)
			} else {
				idx++
				acc.PointerCount = idx
			}
		}
		if idx < len(acc.Pointers) {
			acc.Pointers[idx].clear()
		}

	case SynReport:
		if device.IsMultiTouchScreen() {
			if device.MultiTouch.Accumulator.IsDirty() {
				r.onMultiTouchScreenStateChanged(ev.When, device)
				device.MultiTouch.Accumulator.Clear()
			}
		} else if device.IsSingleTouchScreen() {
			if device.SingleTouch.Accumulator.IsDirty() {
				r.onSingleTouchScreenStateChanged(ev.When, device)
				device.SingleTouch.Accumulator.Clear()
			}
		}

		if device.Trackball.Accumulator.IsDirty() {
			r.onTrackballStateChanged(ev.When, device)
			device.Trackball.Accumulator.Clear()
		}
	}
}

func (r *Reader) handleKey(ev *RawEvent) {
	device := r.getNonIgnoredDevice(ev.DeviceID)
	if device == nil {
		return
	}

	down := ev.Value != 0

	if device.IsSingleTouchScreen() && ev.ScanCode == BtnTouch {
		device.SingleTouch.Accumulator.Fields |= SingleTouchFieldBtnTouch
		device.SingleTouch.Accumulator.BtnTouch = down
		return
	}

	if device.IsTrackball() && ev.ScanCode == BtnMouse {
		device.Trackball.Accumulator.Fields |= TrackballFieldBtnMouse
		device.Trackball.Accumulator.BtnMouse = down
		return
	}

	if device.IsKeyboard() {
		r.onKey(ev.When, device, down, ev.KeyCode, ev.ScanCode, ev.Flags)
	}
}

func (r *Reader) handleRelativeMotion(ev *RawEvent) {
	device := r.getNonIgnoredDevice(ev.DeviceID)
	if device == nil || !device.IsTrackball() {
		return
	}
	switch ev.ScanCode {
	case RelX:
		device.Trackball.Accumulator.Fields |= TrackballFieldRelX
		device.Trackball.Accumulator.RelX = ev.Value
	case RelY:
		device.Trackball.Accumulator.Fields |= TrackballFieldRelY
		device.Trackball.Accumulator.RelY = ev.Value
	}
}

func (r *Reader) handleAbsoluteMotion(ev *RawEvent) {
	device := r.getNonIgnoredDevice(ev.DeviceID)
	if device == nil {
		return
	}

	if device.IsMultiTouchScreen() {
		acc := &device.MultiTouch.Accumulator
		idx := acc.PointerCount
		if idx >= len(acc.Pointers) {
			return // overflow slot already warned about at the next MT sync
		}
		p := &acc.Pointers[idx]
		switch ev.ScanCode {
		case AbsMTPositionX:
			p.Fields |= MTFieldPositionX
			p.PositionX = ev.Value
		case AbsMTPositionY:
			p.Fields |= MTFieldPositionY
			p.PositionY = ev.Value
		case AbsMTTouchMajor:
			p.Fields |= MTFieldTouchMajor
			p.TouchMajor = ev.Value
		case AbsMTWidthMajor:
			p.Fields |= MTFieldWidthMajor
			p.WidthMajor = ev.Value
		case AbsMTTrackingID:
			p.Fields |= MTFieldTrackingID
			p.TrackingID = ev.Value
		}
	} else if device.IsSingleTouchScreen() {
		acc := &device.SingleTouch.Accumulator
		switch ev.ScanCode {
		case AbsX:
			acc.Fields |= SingleTouchFieldAbsX
			acc.AbsX = ev.Value
		case AbsY:
			acc.Fields |= SingleTouchFieldAbsY
			acc.AbsY = ev.Value
		case AbsPressure:
			acc.Fields |= SingleTouchFieldPressure
			acc.Pressure = ev.Value
		case AbsToolWidth:
			acc.Fields |= SingleTouchFieldToolWidth
			acc.ToolWidth = ev.Value
		}
	}
}

func (r *Reader) handleSwitch(ev *RawEvent) {
	device := r.getNonIgnoredDevice(ev.DeviceID)
	if device == nil {
		return
	}
	r.onSwitch(ev.When, ev.ScanCode, ev.Value)
}

func (r *Reader) onSwitch(when time.Time, switchCode ScanCode, value int32) {
	actions := r.policy.InterceptSwitch(when, switchCode, value)
	var flags uint32
	r.applyStandardInputDispatchPolicyActions(when, actions, &flags)
}

// applyStandardInputDispatchPolicyActions applies the policy action
// bits common to every event kind and reports whether the caller may
// still dispatch.
func (r *Reader) applyStandardInputDispatchPolicyActions(when time.Time, actions PolicyAction, policyFlags *uint32) bool {
	if actions&ActionAppSwitchComing != 0 {
		r.dispatcher.NotifyAppSwitchComing(when)
	}
	if actions&ActionWokeHere != 0 {
		*policyFlags |= KeyFlagWokeHere
	}
	if actions&ActionBrightHere != 0 {
		*policyFlags |= uint32(ActionBrightHere)
	}
	return actions&ActionDispatch != 0
}

func (r *Reader) addDevice(when time.Time, id int32) {
	classes := r.source.GetDeviceClasses(id)
	name := r.source.GetDeviceName(id)
	device := &Device{ID: id, Name: name, Classes: classes}

	if classes != 0 {
		r.log.Info("device added", zap.Int32("device_id", id), zap.String("name", name), logging.Info)
		r.configureDevice(device)
	} else {
		r.log.Info("device added (ignored non-input device)", zap.Int32("device_id", id), zap.String("name", name), logging.Info)
		device.Ignored = true
	}

	device.Reset()
	r.devices.add(device)

	if !device.Ignored {
		r.onConfigurationChanged(when)
	}
}

func (r *Reader) removeDevice(when time.Time, device *Device) {
	r.devices.remove(device.ID)

	if !device.Ignored {
		r.log.Info("device removed", zap.Int32("device_id", device.ID), zap.String("name", device.Name), logging.Info)
		r.onConfigurationChanged(when)
	} else {
		r.log.Info("device removed (ignored non-input device)", zap.Int32("device_id", device.ID), zap.String("name", device.Name), logging.Info)
	}
}

func (r *Reader) onConfigurationChanged(when time.Time) {
	r.resetGlobalMetaState()
	r.updateExportedVirtualKeyState()
	r.updateExportedInputConfiguration()
	r.dispatcher.NotifyConfigurationChanged(when)
}

func (r *Reader) resetGlobalMetaState() {
	r.globalMetaState = -1
}

func (r *Reader) globalMetaStateValue() int32 {
	if r.globalMetaState == -1 {
		var state int32
		r.devices.each(func(d *Device) {
			if d.IsKeyboard() {
				state |= d.Keyboard.MetaState
			}
		})
		r.globalMetaState = state
	}
	return r.globalMetaState
}

func (r *Reader) resetDisplayProperties() {
	r.displayWidth = -1
	r.displayHeight = -1
	r.displayKnown = false
}

// refreshDisplayProperties re-queries the policy for display geometry.
// On change it reconfigures every registered device (recomputing
// touch scale and virtual keys); on failure it resets the cached
// geometry to unknown so the next successful read re-triggers
// reconfiguration instead of silently reusing stale values.
func (r *Reader) refreshDisplayProperties() bool {
	width, height, orientation, ok := r.policy.GetDisplayInfo(0)
	if !ok {
		r.resetDisplayProperties()
		return false
	}

	if width != r.displayWidth || height != r.displayHeight {
		r.displayWidth = width
		r.displayHeight = height
		r.devices.each(func(d *Device) {
			r.configureDeviceForCurrentDisplaySize(d)
		})
	}
	r.displayOrientation = orientation
	r.displayKnown = true
	return true
}

func (r *Reader) updateExportedVirtualKeyState() {
	var keyCode KeyCode = KeyStateUnknown
	var scanCode ScanCode = KeyStateUnknown

	r.devices.each(func(d *Device) {
		if d.IsTouchScreen() && d.TouchScreen.CurrentVirtualKey.Status == VirtualKeyDown {
			keyCode = d.TouchScreen.CurrentVirtualKey.KeyCode
			scanCode = d.TouchScreen.CurrentVirtualKey.ScanCode
		}
	})

	r.exported.mu.Lock()
	r.exported.virtualKeyCode = keyCode
	r.exported.virtualScanCode = scanCode
	r.exported.mu.Unlock()
}

func (r *Reader) updateExportedInputConfiguration() {
	touchScreen := TouchScreenNoTouch
	keyboard := KeyboardNoKeys
	navigation := NavigationNoNav

	r.devices.each(func(d *Device) {
		classes := d.Classes
		if classes.has(ClassTouchscreenSingle) || classes.has(ClassTouchscreenMulti) {
			touchScreen = TouchScreenFinger
		}
		if classes.has(ClassAlphaKey) {
			keyboard = KeyboardQwerty
		}
		if classes.has(ClassTrackball) {
			navigation = NavigationTrackball
		} else if classes.has(ClassDPad) {
			navigation = NavigationDPad
		}
	})

	r.exported.mu.Lock()
	r.exported.inputConfig = InputConfiguration{TouchScreen: touchScreen, Keyboard: keyboard, Navigation: navigation}
	r.exported.mu.Unlock()
}

// --- Exported-state queries; safe to call from any goroutine. ---

// GetCurrentInputConfiguration returns a snapshot of the aggregate
// input configuration derived from every currently registered device.
func (r *Reader) GetCurrentInputConfiguration() InputConfiguration {
	r.exported.mu.Lock()
	defer r.exported.mu.Unlock()
	return r.exported.inputConfig
}

// GetCurrentVirtualKey returns the active virtual key code/scan code
// and whether one is currently down. scanCode/keyCode are -1 when none.
func (r *Reader) GetCurrentVirtualKey() (keyCode KeyCode, scanCode ScanCode, down bool) {
	r.exported.mu.Lock()
	defer r.exported.mu.Unlock()
	return r.exported.virtualKeyCode, r.exported.virtualScanCode, r.exported.virtualKeyCode != KeyStateUnknown
}

// GetCurrentScanCodeState short-circuits to KeyStateVirtual when
// scanCode matches the exported virtual key, else defers to the event
// source.
func (r *Reader) GetCurrentScanCodeState(deviceID int32, classes DeviceClass, scanCode ScanCode) int {
	r.exported.mu.Lock()
	virtual := r.exported.virtualScanCode == scanCode
	r.exported.mu.Unlock()
	if virtual {
		return KeyStateVirtual
	}
	return r.source.GetScanCodeState(deviceID, classes, scanCode)
}

// GetCurrentKeyCodeState is GetCurrentScanCodeState's key-code analogue.
func (r *Reader) GetCurrentKeyCodeState(deviceID int32, classes DeviceClass, keyCode KeyCode) int {
	r.exported.mu.Lock()
	virtual := r.exported.virtualKeyCode == keyCode
	r.exported.mu.Unlock()
	if virtual {
		return KeyStateVirtual
	}
	return r.source.GetKeyCodeState(deviceID, classes, keyCode)
}

// GetCurrentSwitchState defers directly to the event source; switch
// state has no virtual-key short-circuit.
func (r *Reader) GetCurrentSwitchState(deviceID int32, classes DeviceClass, sw ScanCode) int {
	return r.source.GetSwitchState(deviceID, classes, sw)
}

// HasKeys defers directly to the event source.
func (r *Reader) HasKeys(deviceID int32, classes DeviceClass, keyCodes []KeyCode) []bool {
	return r.source.HasKeys(deviceID, classes, keyCodes)
}
