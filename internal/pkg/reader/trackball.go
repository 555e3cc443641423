package reader

import "time"

// onTrackballStateChanged commits one sync interval's trackball
// accumulator: button edges and relative motion, scaled and rotated
// for the current display orientation, producing a single MOVE/DOWN/
// UP motion notification.
func (r *Reader) onTrackballStateChanged(when time.Time, device *Device) {
	acc := &device.Trackball.Accumulator
	cur := &device.Trackball.Current

	downChanged := false
	if acc.Fields&TrackballFieldBtnMouse != 0 {
		downChanged = cur.Down != acc.BtnMouse
		cur.Down = acc.BtnMouse
		if cur.Down {
			cur.DownTime = when
		}
	}

	deltaChanged := acc.Fields&(TrackballFieldRelX|TrackballFieldRelY) != 0

	actions := r.policy.InterceptTrackball(when, downChanged, cur.Down, deltaChanged)
	var policyFlags uint32
	if !r.applyStandardInputDispatchPolicyActions(when, actions, &policyFlags) {
		return
	}

	x, y := rotateTrackballDelta(float32(acc.RelX), float32(acc.RelY), r.displayOrientation)
	precalc := &device.Trackball.Precalculated

	action := MotionActionMove
	if downChanged {
		if cur.Down {
			action = MotionActionDown
		} else {
			action = MotionActionUp
		}
	}

	coords := []PointerCoords{{X: x * precalc.XScale, Y: y * precalc.YScale, Pressure: 1, Size: 0}}
	r.dispatcher.NotifyMotion(when, device.ID, NatureTrackball, policyFlags, action,
		r.globalMetaStateValue(), 0, 1, []uint32{0}, coords, precalc.XPrecision, precalc.YPrecision, cur.DownTime)
}

// rotateTrackballDelta rotates a relative motion vector to match the
// current display orientation, same sense as the touch transform.
func rotateTrackballDelta(x, y float32, orientation Orientation) (float32, float32) {
	switch orientation {
	case Rotation90:
		return y, -x
	case Rotation180:
		return -x, -y
	case Rotation270:
		return -y, x
	default:
		return x, y
	}
}
