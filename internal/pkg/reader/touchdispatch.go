package reader

import (
	"time"

	"github.com/touchcore/inputreader/internal/pkg/bitset"
)

// onMultiTouchScreenStateChanged assembles one multi-touch sync
// interval and runs it through the shared touch pipeline.
func (r *Reader) onMultiTouchScreenStateChanged(when time.Time, device *Device) {
	havePointerIds := assembleMultiTouch(device)
	r.onTouchScreenChanged(when, device, havePointerIds)
}

// onSingleTouchScreenStateChanged assembles one single-touch sync
// interval and runs it through the shared touch pipeline. A
// single-touch device's pointer id (always 0) is always trustworthy.
func (r *Reader) onSingleTouchScreenStateChanged(when time.Time, device *Device) {
	assembleSingleTouch(device)
	r.onTouchScreenChanged(when, device, true)
}

// onTouchScreenChanged runs the shared filter chain over
// device.TouchScreen.CurrentTouch, resolves the virtual-key overlay,
// and either dispatches a touch motion event or lets the virtual key
// consume it.
func (r *Reader) onTouchScreenChanged(when time.Time, device *Device, havePointerIds bool) {
	touch := &device.TouchScreen

	if touch.Filters.UseBadTouchFilter && applyBadTouchFilter(device) {
		havePointerIds = false
	}
	if touch.Filters.UseJumpyTouchFilter && applyJumpyTouchFilter(device) {
		havePointerIds = false
	}
	if !havePointerIds {
		calculatePointerIds(device)
	}

	var preAveraging TouchFrame
	preAveraging.CopyFrom(&touch.CurrentTouch)

	if touch.Filters.UseAveragingTouchFilter {
		applyAveragingTouchFilter(device)
	}

	if !r.consumeVirtualKeyTouches(when, device) {
		r.dispatchTouches(when, device)
	}

	touch.LastTouch.CopyFrom(&preAveraging)
}

// dispatchTouches diffs CurrentTouch against LastTouch and emits one
// motion notification per pointer that went up, one per pointer that
// went down, or a single MOVE when the pointer set itself didn't
// change. Each notification carries every pointer active at that
// instant, matching the source event model.
func (r *Reader) dispatchTouches(when time.Time, device *Device) {
	touch := &device.TouchScreen
	current := &touch.CurrentTouch
	last := &touch.LastTouch

	currentIDs := current.IDBits
	lastIDs := last.IDBits

	if currentIDs.Equal(lastIDs) {
		if current.PointerCount == 0 {
			return
		}
		r.dispatchTouch(when, device, MotionActionMove, currentIDs, current)
		return
	}

	goingUp := lastIDs.Difference(currentIDs)
	working := lastIDs
	for !goingUp.IsEmpty() {
		id := goingUp.FirstMarkedBit()
		goingUp.ClearBit(id)

		action := MotionActionUp
		if working.Count() > 1 {
			action = MakePointerAction(MotionActionPointerUp, id)
		}
		r.dispatchTouch(when, device, action, working, last)
		working.ClearBit(id)
	}

	goingDown := currentIDs.Difference(lastIDs)
	for !goingDown.IsEmpty() {
		id := goingDown.FirstMarkedBit()
		goingDown.ClearBit(id)

		wasEmpty := working.IsEmpty()
		working.MarkBit(id)

		action := MotionActionDown
		if wasEmpty {
			touch.DownTime = when
		} else {
			action = MakePointerAction(MotionActionPointerDown, id)
		}
		r.dispatchTouch(when, device, action, working, current)
	}
}

// dispatchTouch builds and notifies one motion event covering every
// pointer named by idBits, read from frame (either CurrentTouch for
// DOWN/MOVE or LastTouch for a pointer's final UP sample).
func (r *Reader) dispatchTouch(when time.Time, device *Device, action int, idBits bitset.Set32, frame *TouchFrame) {
	touch := &device.TouchScreen

	actions := r.policy.InterceptTouch(when)
	var policyFlags uint32
	if !r.applyStandardInputDispatchPolicyActions(when, actions, &policyFlags) {
		return
	}

	var ids []uint32
	var coords []PointerCoords
	bits := idBits
	for !bits.IsEmpty() {
		id := bits.FirstMarkedBit()
		bits.ClearBit(id)
		p := frame.Pointers[frame.IndexOf(id)]
		ids = append(ids, id)
		coords = append(coords, r.transformTouchPoint(touch, p))
	}

	var edgeFlags int
	if action == MotionActionDown {
		edgeFlags = r.computeEdgeFlags(touch, frame.Pointers[frame.IndexOf(ids[0])])
	}

	r.dispatcher.NotifyMotion(when, device.ID, NatureTouch, policyFlags, action,
		r.globalMetaStateValue(), edgeFlags, len(ids), ids, coords, 0, 0, touch.DownTime)
}

// transformTouchPoint maps one raw axis-space sample through the
// device's precalculated scale/origin and the display's current
// rotation into display coordinates.
func (r *Reader) transformTouchPoint(touch *TouchScreenState, p Pointer) PointerCoords {
	precalc := &touch.Precalculated

	x := float32(p.X-precalc.XOrigin) * precalc.XScale
	y := float32(p.Y-precalc.YOrigin) * precalc.YScale

	width := float32(r.displayWidth)
	height := float32(r.displayHeight)

	switch r.displayOrientation {
	case Rotation90:
		x, y = y, width-x
	case Rotation180:
		x, y = width-x, height-y
	case Rotation270:
		x, y = height-y, x
	}

	pressure := float32(p.Pressure-precalc.PressureOrigin) * precalc.PressureScale
	size := float32(p.Size-precalc.SizeOrigin) * precalc.SizeScale

	return PointerCoords{X: x, Y: y, Pressure: pressure, Size: size}
}

// edgeSlop is how close (in raw axis units) a pointer must be to an
// axis bound to be considered touching that edge on DOWN.
const edgeSlop = 1

// computeEdgeFlags reports which screen edges a DOWN pointer touches,
// in raw axis space rotated to match the display orientation the same
// way coordinates are.
func (r *Reader) computeEdgeFlags(touch *TouchScreenState, p Pointer) int {
	params := &touch.Parameters
	var flags int
	if params.XAxis.Valid {
		if p.X <= params.XAxis.Min+edgeSlop {
			flags |= EdgeFlagLeft
		}
		if p.X >= params.XAxis.Max-edgeSlop {
			flags |= EdgeFlagRight
		}
	}
	if params.YAxis.Valid {
		if p.Y <= params.YAxis.Min+edgeSlop {
			flags |= EdgeFlagTop
		}
		if p.Y >= params.YAxis.Max-edgeSlop {
			flags |= EdgeFlagBottom
		}
	}
	return rotateEdgeFlags(flags, r.displayOrientation)
}

func rotateEdgeFlags(flags int, orientation Orientation) int {
	if orientation == Rotation0 {
		return flags
	}
	const all = EdgeFlagLeft | EdgeFlagRight | EdgeFlagTop | EdgeFlagBottom
	rotated := 0
	if flags&all == 0 {
		return 0
	}
	// Cardinal edges rotate counter-clockwise with the display, same
	// sense as rotateKeyCode's D-pad table.
	cycle := [4]int{EdgeFlagTop, EdgeFlagLeft, EdgeFlagBottom, EdgeFlagRight}
	index := map[int]int{EdgeFlagTop: 0, EdgeFlagLeft: 1, EdgeFlagBottom: 2, EdgeFlagRight: 3}
	steps := int(orientation)
	for edge, i := range index {
		if flags&edge != 0 {
			rotated |= cycle[(i+steps)%4]
		}
	}
	return rotated
}
