package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMTPointer(id, x, y, touchMajor, widthMajor int32) MTPointerAccumulator {
	return MTPointerAccumulator{
		Fields:     mtRequiredFields | MTFieldTrackingID,
		PositionX:  x,
		PositionY:  y,
		TouchMajor: touchMajor,
		WidthMajor: widthMajor,
		TrackingID: id,
	}
}

func TestAssembleMultiTouch_SinglePointer(t *testing.T) {
	d := &Device{}
	d.MultiTouch.Accumulator.Pointers[0] = newMTPointer(3, 100, 200, 5, 8)
	d.MultiTouch.Accumulator.PointerCount = 1

	havePointerIds := assembleMultiTouch(d)

	require.True(t, havePointerIds)
	require.Equal(t, 1, d.TouchScreen.CurrentTouch.PointerCount)
	p := d.TouchScreen.CurrentTouch.Pointers[0]
	assert.Equal(t, uint32(3), p.ID)
	assert.Equal(t, int32(100), p.X)
	assert.Equal(t, int32(200), p.Y)
	assert.True(t, d.TouchScreen.CurrentTouch.IDBits.HasBit(3))
}

func TestAssembleMultiTouch_DropsPartialSlot(t *testing.T) {
	d := &Device{}
	partial := newMTPointer(0, 1, 1, 1, 1)
	partial.Fields &^= MTFieldWidthMajor // missing a required field
	d.MultiTouch.Accumulator.Pointers[0] = partial
	d.MultiTouch.Accumulator.PointerCount = 1

	havePointerIds := assembleMultiTouch(d)

	assert.True(t, havePointerIds)
	assert.Equal(t, 0, d.TouchScreen.CurrentTouch.PointerCount)
}

func TestAssembleMultiTouch_DropsLiftedPointer(t *testing.T) {
	d := &Device{}
	lifted := newMTPointer(0, 1, 1, 0, 1) // TouchMajor <= 0 means not down
	d.MultiTouch.Accumulator.Pointers[0] = lifted
	d.MultiTouch.Accumulator.PointerCount = 1

	assembleMultiTouch(d)

	assert.Equal(t, 0, d.TouchScreen.CurrentTouch.PointerCount)
}

func TestAssembleMultiTouch_MissingTrackingIDIsUntrusted(t *testing.T) {
	d := &Device{}
	p := newMTPointer(0, 1, 1, 1, 1)
	p.Fields &^= MTFieldTrackingID
	d.MultiTouch.Accumulator.Pointers[0] = p
	d.MultiTouch.Accumulator.PointerCount = 1

	havePointerIds := assembleMultiTouch(d)

	assert.False(t, havePointerIds)
	require.Equal(t, 1, d.TouchScreen.CurrentTouch.PointerCount)
}

func TestAssembleSingleTouch_DownAndUp(t *testing.T) {
	d := &Device{}
	d.SingleTouch.Accumulator = SingleTouchAccumulator{
		Fields:   SingleTouchFieldBtnTouch | SingleTouchFieldAbsX | SingleTouchFieldAbsY,
		BtnTouch: true,
		AbsX:     42,
		AbsY:     24,
	}

	assembleSingleTouch(d)

	require.Equal(t, 1, d.TouchScreen.CurrentTouch.PointerCount)
	assert.Equal(t, int32(42), d.TouchScreen.CurrentTouch.Pointers[0].X)
	assert.True(t, d.TouchScreen.CurrentTouch.IDBits.HasBit(0))

	d.SingleTouch.Accumulator = SingleTouchAccumulator{
		Fields:   SingleTouchFieldBtnTouch,
		BtnTouch: false,
	}
	assembleSingleTouch(d)

	assert.Equal(t, 0, d.TouchScreen.CurrentTouch.PointerCount)
}

func TestAssembleSingleTouch_StickyFieldsCarryOver(t *testing.T) {
	d := &Device{}
	d.SingleTouch.Accumulator = SingleTouchAccumulator{
		Fields:   SingleTouchFieldBtnTouch | SingleTouchFieldAbsX | SingleTouchFieldAbsY,
		BtnTouch: true,
		AbsX:     10,
		AbsY:     20,
	}
	assembleSingleTouch(d)

	// Next sync only reports a moved X; Y must carry over from the committed state.
	d.SingleTouch.Accumulator = SingleTouchAccumulator{
		Fields: SingleTouchFieldAbsX,
		AbsX:   15,
	}
	assembleSingleTouch(d)

	assert.Equal(t, int32(15), d.TouchScreen.CurrentTouch.Pointers[0].X)
	assert.Equal(t, int32(20), d.TouchScreen.CurrentTouch.Pointers[0].Y)
}

func TestApplyJumpyTouchFilter_SnapsBackLargeSingleSampleJump(t *testing.T) {
	d := &Device{}
	d.TouchScreen.LastTouch.Pointers[0] = Pointer{ID: 0, X: 100, Y: 100}
	d.TouchScreen.LastTouch.PointerCount = 1
	d.TouchScreen.LastTouch.IDBits.MarkBit(0)
	d.TouchScreen.LastTouch.IDToIndex[0] = 0

	d.TouchScreen.CurrentTouch.Pointers[0] = Pointer{ID: 0, X: 100 + jumpyPositionThreshold*2, Y: 100}
	d.TouchScreen.CurrentTouch.PointerCount = 1
	d.TouchScreen.CurrentTouch.IDBits.MarkBit(0)
	d.TouchScreen.CurrentTouch.IDToIndex[0] = 0

	corrected := applyJumpyTouchFilter(d)

	assert.True(t, corrected)
	assert.Equal(t, int32(100), d.TouchScreen.CurrentTouch.Pointers[0].X)
}

func TestApplyJumpyTouchFilter_IgnoresManyPointers(t *testing.T) {
	d := &Device{}
	d.TouchScreen.CurrentTouch.PointerCount = 3

	corrected := applyJumpyTouchFilter(d)

	assert.False(t, corrected)
}

func TestApplyAveragingTouchFilter_SmoothsTowardRecentSamples(t *testing.T) {
	d := &Device{}
	d.TouchScreen.CurrentTouch.PointerCount = 1
	d.TouchScreen.CurrentTouch.IDBits.MarkBit(0)
	d.TouchScreen.CurrentTouch.IDToIndex[0] = 0
	d.TouchScreen.CurrentTouch.Pointers[0] = Pointer{ID: 0, X: 0, Y: 0}
	applyAveragingTouchFilter(d)

	d.TouchScreen.CurrentTouch.Pointers[0] = Pointer{ID: 0, X: 100, Y: 100}
	applyAveragingTouchFilter(d)

	x := d.TouchScreen.CurrentTouch.Pointers[0].X
	assert.Greater(t, x, int32(0))
	assert.Less(t, x, int32(100))
}

func TestCalculatePointerIds_StableForStationaryPointer(t *testing.T) {
	d := &Device{}
	d.TouchScreen.LastTouch.Pointers[0] = Pointer{ID: 5, X: 10, Y: 10}
	d.TouchScreen.LastTouch.PointerCount = 1
	d.TouchScreen.LastTouch.IDBits.MarkBit(5)
	d.TouchScreen.LastTouch.IDToIndex[5] = 0

	d.TouchScreen.CurrentTouch.Pointers[0] = Pointer{X: 11, Y: 11} // same finger, id unknown
	d.TouchScreen.CurrentTouch.PointerCount = 1

	calculatePointerIds(d)

	assert.Equal(t, uint32(5), d.TouchScreen.CurrentTouch.Pointers[0].ID)
	assert.True(t, d.TouchScreen.CurrentTouch.IDBits.HasBit(5))
}

func TestCalculatePointerIds_NewPointerGetsFreshID(t *testing.T) {
	d := &Device{}
	// No last-frame pointers at all: the only current pointer must draw a fresh id.
	d.TouchScreen.CurrentTouch.Pointers[0] = Pointer{X: 1, Y: 1}
	d.TouchScreen.CurrentTouch.PointerCount = 1

	calculatePointerIds(d)

	assert.Equal(t, uint32(0), d.TouchScreen.CurrentTouch.Pointers[0].ID)
}

func TestCalculatePointerIds_TwoPointersDontCollide(t *testing.T) {
	d := &Device{}
	d.TouchScreen.LastTouch.Pointers[0] = Pointer{ID: 1, X: 0, Y: 0}
	d.TouchScreen.LastTouch.Pointers[1] = Pointer{ID: 2, X: 1000, Y: 1000}
	d.TouchScreen.LastTouch.PointerCount = 2
	d.TouchScreen.LastTouch.IDBits.MarkBit(1)
	d.TouchScreen.LastTouch.IDBits.MarkBit(2)
	d.TouchScreen.LastTouch.IDToIndex[1] = 0
	d.TouchScreen.LastTouch.IDToIndex[2] = 1

	d.TouchScreen.CurrentTouch.Pointers[0] = Pointer{X: 5, Y: 5}
	d.TouchScreen.CurrentTouch.Pointers[1] = Pointer{X: 1005, Y: 1005}
	d.TouchScreen.CurrentTouch.PointerCount = 2

	calculatePointerIds(d)

	ids := []uint32{d.TouchScreen.CurrentTouch.Pointers[0].ID, d.TouchScreen.CurrentTouch.Pointers[1].ID}
	assert.ElementsMatch(t, []uint32{1, 2}, ids)
}
