package reader

import "time"

// keyCodeRotationMap enumerates, per row, the same physical D-pad key
// counter-clockwise starting from its unrotated code: column index is
// the display orientation (Rotation0..Rotation270).
var keyCodeRotationMap = [4][4]KeyCode{
	{KeycodeDpadDown, KeycodeDpadRight, KeycodeDpadUp, KeycodeDpadLeft},
	{KeycodeDpadRight, KeycodeDpadUp, KeycodeDpadLeft, KeycodeDpadDown},
	{KeycodeDpadUp, KeycodeDpadLeft, KeycodeDpadDown, KeycodeDpadRight},
	{KeycodeDpadLeft, KeycodeDpadDown, KeycodeDpadRight, KeycodeDpadUp},
}

// rotateKeyCode remaps a D-pad key code for the current display
// orientation so "up" on the keypad always means "up" on screen.
func rotateKeyCode(keyCode KeyCode, orientation Orientation) KeyCode {
	if orientation == Rotation0 {
		return keyCode
	}
	for _, row := range keyCodeRotationMap {
		if row[0] == keyCode {
			return row[orientation]
		}
	}
	return keyCode
}

// updateMetaState folds one meta key's transition into metaState and
// returns the normalized result. Non-meta key codes leave metaState
// unchanged.
func updateMetaState(keyCode KeyCode, down bool, metaState int32) int32 {
	var mask int32
	switch keyCode {
	case KeycodeAltLeft:
		mask = MetaAltLeftOn
	case KeycodeAltRight:
		mask = MetaAltRightOn
	case KeycodeShiftLeft:
		mask = MetaShiftLeftOn
	case KeycodeShiftRight:
		mask = MetaShiftRightOn
	case KeycodeSym:
		mask = MetaSymOn
	default:
		return metaState
	}
	if down {
		metaState |= mask
	} else {
		metaState &^= mask
	}
	return normalizeMetaState(metaState)
}

// normalizeMetaState derives the left/right-independent combined bits
// (META_ALT_ON, META_SHIFT_ON) from whichever side is currently held,
// clearing each when neither of its sides remains down.
func normalizeMetaState(metaState int32) int32 {
	if metaState&(MetaAltLeftOn|MetaAltRightOn) != 0 {
		metaState |= MetaAltOn
	} else {
		metaState &^= MetaAltOn
	}
	if metaState&(MetaShiftLeftOn|MetaShiftRightOn) != 0 {
		metaState |= MetaShiftOn
	} else {
		metaState &^= MetaShiftOn
	}
	return metaState
}

// onKey handles one physical key transition: it rotates D-pad codes
// for the current display orientation, folds meta keys into the
// device's (and therefore the global) meta state, consults the
// policy, and dispatches on approval. The driver-reported flags on the
// raw event are discarded; every key from a physical device carries
// FROM_SYSTEM, matching what the policy and dispatcher expect to see.
func (r *Reader) onKey(when time.Time, device *Device, down bool, keyCode KeyCode, scanCode ScanCode, _ uint32) {
	if device.Classes.has(ClassDPad) && r.displayOrientation != Rotation0 {
		keyCode = rotateKeyCode(keyCode, r.displayOrientation)
	}

	device.Keyboard.MetaState = updateMetaState(keyCode, down, device.Keyboard.MetaState)
	r.resetGlobalMetaState()

	if down {
		device.Keyboard.DownTime = when
	}

	flags := uint32(KeyFlagFromSystem)
	policyFlags := flags
	actions := r.policy.InterceptKey(when, device.ID, down, keyCode, scanCode, policyFlags)

	if !r.applyStandardInputDispatchPolicyActions(when, actions, &policyFlags) {
		return
	}

	action := KeyActionUp
	if down {
		action = KeyActionDown
	}

	r.dispatcher.NotifyKey(when, device.ID, NatureKey, policyFlags, action, flags|policyFlags,
		keyCode, scanCode, r.globalMetaStateValue(), device.Keyboard.DownTime)
}
