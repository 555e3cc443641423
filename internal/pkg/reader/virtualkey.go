package reader

import "time"

// consumeVirtualKeyTouches advances the touch screen's virtual-key
// overlay state machine for the current frame and reports whether the
// touch was consumed by a virtual key, in which case the caller must
// not also dispatch a touch motion event.
func (r *Reader) consumeVirtualKeyTouches(when time.Time, device *Device) bool {
	touch := &device.TouchScreen
	cvk := &touch.CurrentVirtualKey

	if touch.CurrentTouch.PointerCount == 0 {
		switch cvk.Status {
		case VirtualKeyDown:
			cvk.Status = VirtualKeyUp
			r.dispatchVirtualKey(when, device, false, cvk.KeyCode, cvk.ScanCode, false)
			cvk.Status = VirtualKeyNone
			r.updateExportedVirtualKeyState()
			return true
		case VirtualKeyCanceled:
			// No key-up was withheld here: CANCELED already dispatched
			// its own key-up when the overlay left VirtualKeyDown. Pass
			// through VirtualKeyUp on the way to VirtualKeyNone anyway,
			// matching the state table's lift transition.
			cvk.Status = VirtualKeyUp
			cvk.Status = VirtualKeyNone
			r.updateExportedVirtualKeyState()
			return true
		}
		return false
	}

	if touch.CurrentTouch.PointerCount > 1 {
		if cvk.Status == VirtualKeyDown {
			cvk.Status = VirtualKeyCanceled
			r.dispatchVirtualKey(when, device, false, cvk.KeyCode, cvk.ScanCode, true)
			r.updateExportedVirtualKeyState()
		}
		return cvk.Status == VirtualKeyCanceled
	}

	hit := touch.FindVirtualKeyHit()

	switch cvk.Status {
	case VirtualKeyNone:
		if hit == nil || touch.LastTouch.PointerCount != 0 {
			return false
		}
		cvk.Status = VirtualKeyDown
		cvk.KeyCode = hit.KeyCode
		cvk.ScanCode = hit.ScanCode
		cvk.DownTime = when
		r.policy.VirtualKeyDownFeedback()
		r.dispatchVirtualKey(when, device, true, hit.KeyCode, hit.ScanCode, false)
		r.updateExportedVirtualKeyState()
		return true

	case VirtualKeyDown:
		if hit != nil && hit.ScanCode == cvk.ScanCode {
			return true
		}
		cvk.Status = VirtualKeyCanceled
		r.dispatchVirtualKey(when, device, false, cvk.KeyCode, cvk.ScanCode, true)
		r.updateExportedVirtualKeyState()
		return true

	case VirtualKeyCanceled:
		return true
	}
	return false
}

// dispatchVirtualKey notifies a key event synthesized from the touch
// virtual-key overlay, flagged so a dispatcher can tell it apart from
// a real hardware key.
func (r *Reader) dispatchVirtualKey(when time.Time, device *Device, down bool, keyCode KeyCode, scanCode ScanCode, canceled bool) {
	flags := uint32(KeyFlagFromSystem | KeyFlagVirtualHardKey)
	if canceled {
		flags |= KeyFlagCanceled
	}

	actions := r.policy.InterceptKey(when, device.ID, down, keyCode, scanCode, flags)
	policyFlags := flags
	if !r.applyStandardInputDispatchPolicyActions(when, actions, &policyFlags) {
		return
	}

	action := KeyActionUp
	if down {
		action = KeyActionDown
	}

	r.dispatcher.NotifyKey(when, device.ID, NatureKey, policyFlags, action, flags|policyFlags,
		keyCode, scanCode, r.globalMetaStateValue(), device.TouchScreen.CurrentVirtualKey.DownTime)
}
