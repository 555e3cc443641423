package reader

import "github.com/touchcore/inputreader/internal/pkg/bitset"

// assembleMultiTouch rebuilds device.TouchScreen.CurrentTouch from the
// multi-touch accumulator. It returns havePointerIds: true only if
// every accepted slot carried a usable driver tracking id (<=
// MaxPointerID).
//
// The accumulator may carry slots with a partial field set — the
// required-fields guard below intentionally drops them rather than
// emitting a half-populated pointer.
func assembleMultiTouch(d *Device) bool {
	in := &d.MultiTouch.Accumulator
	out := &d.TouchScreen.CurrentTouch
	out.Clear()

	havePointerIds := true
	outCount := 0

	for i := 0; i < in.PointerCount && i < MaxPointers; i++ {
		p := &in.Pointers[i]

		if p.Fields&mtRequiredFields != mtRequiredFields {
			continue
		}
		if p.TouchMajor <= 0 {
			continue // pointer not down, drop it
		}

		out.Pointers[outCount] = Pointer{
			X:        p.PositionX,
			Y:        p.PositionY,
			Pressure: p.TouchMajor, // FIXME: imprecise proxy for actual contact pressure
			Size:     p.WidthMajor, // FIXME: imprecise proxy for actual contact size
		}

		if havePointerIds {
			if p.Fields&MTFieldTrackingID != 0 {
				id := uint32(p.TrackingID)
				if id > MaxPointerID {
					havePointerIds = false
				} else {
					out.Pointers[outCount].ID = id
					out.IDToIndex[id] = outCount
					out.IDBits.MarkBit(id)
				}
			} else {
				havePointerIds = false
			}
		}

		outCount++
	}

	out.PointerCount = outCount
	return havePointerIds
}

// assembleSingleTouch merges the sticky single-touch accumulator into
// the device's committed state and rebuilds CurrentTouch. Single-touch
// pointer ids are always 0 and always valid.
func assembleSingleTouch(d *Device) bool {
	in := &d.SingleTouch
	out := &d.TouchScreen.CurrentTouch

	if in.Accumulator.Fields&SingleTouchFieldBtnTouch != 0 {
		in.Current.Down = in.Accumulator.BtnTouch
	}
	if in.Accumulator.Fields&SingleTouchFieldAbsX != 0 {
		in.Current.X = in.Accumulator.AbsX
	}
	if in.Accumulator.Fields&SingleTouchFieldAbsY != 0 {
		in.Current.Y = in.Accumulator.AbsY
	}
	if in.Accumulator.Fields&SingleTouchFieldPressure != 0 {
		in.Current.Pressure = in.Accumulator.Pressure
	}
	if in.Accumulator.Fields&SingleTouchFieldToolWidth != 0 {
		in.Current.Size = in.Accumulator.ToolWidth
	}

	out.Clear()
	if in.Current.Down {
		out.PointerCount = 1
		out.Pointers[0] = Pointer{
			ID:       0,
			X:        in.Current.X,
			Y:        in.Current.Y,
			Pressure: in.Current.Pressure,
			Size:     in.Current.Size,
		}
		out.IDToIndex[0] = 0
		out.IDBits.MarkBit(0)
	}
	return true
}

// badTouchDistanceThreshold is the squared distance (in raw axis
// units squared) a lone surviving pointer must exceed from every
// last-frame pointer before it is considered an implausible sample
// rather than a continuation.
const badTouchDistanceThreshold = 1 << 30 // a jump of about 32768 axis units; the same value applies to every device

// applyBadTouchFilter flags a well-known touch-controller glitch where
// two fingers lift together but the driver keeps reporting one stray
// contact that doesn't correspond to either previous finger. When
// detected it forces pointer id recalculation rather than trusting
// whatever id the driver attached to the ghost contact.
func applyBadTouchFilter(d *Device) bool {
	current := &d.TouchScreen.CurrentTouch
	last := &d.TouchScreen.LastTouch

	if current.PointerCount != 1 || last.PointerCount < 2 {
		return false
	}

	p := current.Pointers[0]
	nearest := int64(-1)
	for i := 0; i < last.PointerCount; i++ {
		dist := squaredDistance(p, last.Pointers[i])
		if nearest == -1 || dist < nearest {
			nearest = dist
		}
	}

	if nearest > badTouchDistanceThreshold {
		return true
	}
	return false
}

// jumpyPositionThreshold bounds how far a pointer may move from its
// last reported position in one frame before the jumpy-touch filter
// snaps it back. Only applied when few pointers are active, since a
// real multi-finger gesture can legitimately move this far in one
// frame while single-sample sensor glitches rarely do.
const jumpyPositionThreshold = 800

// applyJumpyTouchFilter clamps single-sample spikes: when one or two
// pointers are active and a pointer jumps further than
// jumpyPositionThreshold from the same-id pointer in the last frame,
// the sample is replaced with the last known-good position and id
// recalculation is forced for this frame.
func applyJumpyTouchFilter(d *Device) bool {
	current := &d.TouchScreen.CurrentTouch
	last := &d.TouchScreen.LastTouch

	if current.PointerCount == 0 || current.PointerCount > 2 {
		return false
	}

	corrected := false
	for i := 0; i < current.PointerCount; i++ {
		p := &current.Pointers[i]
		if !last.IDBits.HasBit(p.ID) {
			continue
		}
		lastIndex := last.IndexOf(p.ID)
		lp := last.Pointers[lastIndex]
		if squaredDistance(*p, lp) > jumpyPositionThreshold*jumpyPositionThreshold {
			p.X, p.Y = lp.X, lp.Y
			corrected = true
		}
	}
	return corrected
}

// applyAveragingTouchFilter smooths each pointer's x/y over a short
// per-id window. Callers must save the pre-averaging frame for
// lastTouch themselves: this function only mutates CurrentTouch in
// place.
func applyAveragingTouchFilter(d *Device) {
	h := &d.TouchScreen.averaging
	current := &d.TouchScreen.CurrentTouch

	for i := 0; i < current.PointerCount; i++ {
		p := &current.Pointers[i]
		h.push(p.ID, p.X, p.Y)
		p.X, p.Y = h.average(p.ID)
	}
	h.forget(current.IDBits)
}

func squaredDistance(a, b Pointer) int64 {
	dx := int64(a.X - b.X)
	dy := int64(a.Y - b.Y)
	return dx*dx + dy*dy
}

// calculatePointerIds assigns ids to every pointer in CurrentTouch
// when the driver's own ids can't be trusted for this frame. It
// greedily matches each current pointer to the closest unmatched last
// pointer (nearest-neighbor by Euclidean distance in touch-coordinate
// space) so ids stay stable for stationary or slowly-moving contacts;
// anything left over draws a fresh id from the lowest unused bit in
// lastIdBits's complement.
func calculatePointerIds(d *Device) {
	current := &d.TouchScreen.CurrentTouch
	last := &d.TouchScreen.LastTouch

	var usedLast bitset.Set32
	assigned := make([]bool, current.PointerCount)
	matchedID := make([]uint32, current.PointerCount)

	type candidate struct {
		curIndex, lastIndex int
		dist                int64
	}
	var candidates []candidate
	for i := 0; i < current.PointerCount; i++ {
		for j := 0; j < last.PointerCount; j++ {
			candidates = append(candidates, candidate{i, j, squaredDistance(current.Pointers[i], last.Pointers[j])})
		}
	}
	// Greedy stable matching: repeatedly take the globally closest
	// unmatched (current, last) pair until no candidates remain.
	for len(candidates) > 0 {
		best := 0
		for i := 1; i < len(candidates); i++ {
			if candidates[i].dist < candidates[best].dist {
				best = i
			}
		}
		c := candidates[best]
		candidates[best] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]

		if assigned[c.curIndex] {
			continue
		}
		id := last.Pointers[c.lastIndex].ID
		if usedLast.HasBit(id) {
			continue
		}
		assigned[c.curIndex] = true
		usedLast.MarkBit(id)
		matchedID[c.curIndex] = id
	}

	var newIDBits bitset.Set32
	for i := 0; i < current.PointerCount; i++ {
		if assigned[i] {
			newIDBits.MarkBit(matchedID[i])
		}
	}

	freeIDs := newIDBits
	for i := 0; i < current.PointerCount; i++ {
		if assigned[i] {
			continue
		}
		id := freeIDs.FirstUnmarkedBit()
		freeIDs.MarkBit(id)
		matchedID[i] = id
	}

	current.IDBits.Clear()
	for i := 0; i < current.PointerCount; i++ {
		id := matchedID[i]
		current.Pointers[i].ID = id
		current.IDToIndex[id] = i
		current.IDBits.MarkBit(id)
	}
}
