package reader

import (
	"time"

	"github.com/touchcore/inputreader/internal/pkg/bitset"
)

// MaxPointers bounds how many simultaneous touch contacts one frame
// can carry. MaxPointerID is fixed by bitset.Set32's width: ids are
// tracked in a 32-bit ordered set, so an id can never exceed 31.
const (
	MaxPointers  = 10
	MaxPointerID = bitset.MaxID
)

// TrackballMovementThreshold is both the trackball's velocity scale
// denominator and its reported x/y precision.
const TrackballMovementThreshold = 6

func (c DeviceClass) has(bit DeviceClass) bool { return c&bit != 0 }

// Pointer is one touch contact's normalized sample.
type Pointer struct {
	ID       uint32
	X, Y     int32
	Pressure int32
	Size     int32
}

// TouchFrame is a fixed-capacity set of pointers for one sync
// interval. Invariant: IDBits is exactly the set of ids referenced by
// the first PointerCount slots of Pointers, and IDToIndex[id] names
// the slot holding that id for every id in IDBits.
type TouchFrame struct {
	Pointers     [MaxPointers]Pointer
	PointerCount int
	IDBits       bitset.Set32
	IDToIndex    [MaxPointerID + 1]int
}

// Clear empties the frame in place.
func (f *TouchFrame) Clear() {
	f.PointerCount = 0
	f.IDBits.Clear()
}

// CopyFrom overwrites f with a snapshot of other.
func (f *TouchFrame) CopyFrom(other *TouchFrame) {
	*f = *other
}

// IndexOf returns the slot holding id, valid only when IDBits.HasBit(id).
func (f *TouchFrame) IndexOf(id uint32) int {
	return f.IDToIndex[id]
}

// Keyboard accumulator/committed-state fields.
type KeyboardState struct {
	MetaState int32
	DownTime  time.Time
}

// Trackball accumulator field bits.
const (
	TrackballFieldBtnMouse uint32 = 1 << 0
	TrackballFieldRelX     uint32 = 1 << 1
	TrackballFieldRelY     uint32 = 1 << 2
)

type TrackballAccumulator struct {
	Fields   uint32
	BtnMouse bool
	RelX     int32
	RelY     int32
}

func (a *TrackballAccumulator) IsDirty() bool { return a.Fields != 0 }
func (a *TrackballAccumulator) Clear()        { *a = TrackballAccumulator{} }

type TrackballCommitted struct {
	Down     bool
	DownTime time.Time
}

type TrackballPrecalculated struct {
	XScale, YScale         float32
	XPrecision, YPrecision float32
}

type TrackballState struct {
	Accumulator   TrackballAccumulator
	Current       TrackballCommitted
	Precalculated TrackballPrecalculated
}

// Single-touch accumulator field bits.
const (
	SingleTouchFieldBtnTouch   uint32 = 1 << 0
	SingleTouchFieldAbsX       uint32 = 1 << 1
	SingleTouchFieldAbsY       uint32 = 1 << 2
	SingleTouchFieldPressure   uint32 = 1 << 3
	SingleTouchFieldToolWidth  uint32 = 1 << 4
)

type SingleTouchAccumulator struct {
	Fields     uint32
	BtnTouch   bool
	AbsX, AbsY int32
	Pressure   int32
	ToolWidth  int32
}

func (a *SingleTouchAccumulator) IsDirty() bool { return a.Fields != 0 }
func (a *SingleTouchAccumulator) Clear()        { *a = SingleTouchAccumulator{} }

type SingleTouchCommitted struct {
	Down             bool
	X, Y             int32
	Pressure, Size   int32
}

type SingleTouchState struct {
	Accumulator SingleTouchAccumulator
	Current     SingleTouchCommitted
}

// Multi-touch per-pointer accumulator field bits.
const (
	MTFieldPositionX  uint32 = 1 << 0
	MTFieldPositionY  uint32 = 1 << 1
	MTFieldTouchMajor uint32 = 1 << 2
	MTFieldWidthMajor uint32 = 1 << 3
	MTFieldTrackingID uint32 = 1 << 4
)

const mtRequiredFields = MTFieldPositionX | MTFieldPositionY | MTFieldTouchMajor | MTFieldWidthMajor

type MTPointerAccumulator struct {
	Fields           uint32
	PositionX        int32
	PositionY        int32
	TouchMajor       int32
	WidthMajor       int32
	TrackingID       int32
}

func (p *MTPointerAccumulator) clear() { *p = MTPointerAccumulator{} }

// MultiTouchAccumulator holds one slot per pointer, plus one extra
// sentinel slot: on pointer-count overflow the reader still writes
// into (and then discards) the slot past MaxPointers rather than
// indexing out of bounds.
type MultiTouchAccumulator struct {
	Pointers     [MaxPointers + 1]MTPointerAccumulator
	PointerCount int
}

func (a *MultiTouchAccumulator) IsDirty() bool {
	for i := 0; i <= a.PointerCount && i < len(a.Pointers); i++ {
		if a.Pointers[i].Fields != 0 {
			return true
		}
	}
	return false
}

func (a *MultiTouchAccumulator) Clear() {
	*a = MultiTouchAccumulator{}
}

type MultiTouchState struct {
	Accumulator MultiTouchAccumulator
}

// AxisParams collects the touch screen's four configured axes.
type AxisParams struct {
	XAxis, YAxis, PressureAxis, SizeAxis AbsoluteAxisInfo
}

type TouchFilterFlags struct {
	UseBadTouchFilter       bool
	UseAveragingTouchFilter bool
	UseJumpyTouchFilter     bool
}

type TouchPrecalculated struct {
	XOrigin, YOrigin               int32
	XScale, YScale                 float32
	PressureOrigin, SizeOrigin     int32
	PressureScale, SizeScale       float32
}

// VirtualKey is a hardware-keylike region in touch-axis space.
type VirtualKey struct {
	ScanCode                            ScanCode
	KeyCode                             KeyCode
	Flags                               uint32
	HitLeft, HitRight, HitTop, HitBottom int32
}

// Inside reports whether (x, y), in touch-axis space, falls within
// the key's hit rectangle.
func (v VirtualKey) Inside(x, y int32) bool {
	return x >= v.HitLeft && x <= v.HitRight && y >= v.HitTop && y <= v.HitBottom
}

// VirtualKeyStatus is the overlay state machine's current state.
type VirtualKeyStatus int

const (
	VirtualKeyNone VirtualKeyStatus = iota
	VirtualKeyDown
	VirtualKeyCanceled
	VirtualKeyUp
)

type CurrentVirtualKeyState struct {
	Status   VirtualKeyStatus
	KeyCode  KeyCode
	ScanCode ScanCode
	DownTime time.Time
}

// averagingSample is one historical (x, y) sample kept per pointer id
// for the averaging touch filter.
type averagingSample struct {
	x, y int32
}

const averagingWindow = 4

// averagingHistory tracks a short window of recent positions per
// pointer id so the averaging filter can smooth without chasing its
// own tail: it always averages the pre-averaging frame.
type averagingHistory struct {
	samples [MaxPointerID + 1][]averagingSample
}

func (h *averagingHistory) push(id uint32, x, y int32) {
	s := h.samples[id]
	s = append(s, averagingSample{x, y})
	if len(s) > averagingWindow {
		s = s[len(s)-averagingWindow:]
	}
	h.samples[id] = s
}

func (h *averagingHistory) average(id uint32) (int32, int32) {
	s := h.samples[id]
	if len(s) == 0 {
		return 0, 0
	}
	var sx, sy int64
	for _, sample := range s {
		sx += int64(sample.x)
		sy += int64(sample.y)
	}
	n := int64(len(s))
	return int32(sx / n), int32(sy / n)
}

func (h *averagingHistory) forget(keep bitset.Set32) {
	for id := uint32(0); id <= MaxPointerID; id++ {
		if !keep.HasBit(id) {
			h.samples[id] = nil
		}
	}
}

// TouchScreenState is the substate shared by single- and multi-touch
// screens: axis configuration, filters, precalculated transforms,
// virtual keys, and the current/last touch frames.
type TouchScreenState struct {
	Parameters    AxisParams
	Filters       TouchFilterFlags
	Precalculated TouchPrecalculated
	VirtualKeys   []VirtualKey

	CurrentTouch TouchFrame
	LastTouch    TouchFrame

	averaging averagingHistory

	DownTime time.Time

	CurrentVirtualKey CurrentVirtualKeyState
}

// FindVirtualKeyHit returns the virtual key (if any) whose hit
// rectangle contains the sole current pointer's position.
func (t *TouchScreenState) FindVirtualKeyHit() *VirtualKey {
	if t.CurrentTouch.PointerCount != 1 {
		return nil
	}
	p := t.CurrentTouch.Pointers[0]
	for i := range t.VirtualKeys {
		if t.VirtualKeys[i].Inside(p.X, p.Y) {
			return &t.VirtualKeys[i]
		}
	}
	return nil
}

// Device is the per-device record: one accumulator/committed-state
// bundle per component the device exposes, owned exclusively by the
// reader loop's goroutine.
type Device struct {
	ID      int32
	Name    string
	Classes DeviceClass
	Ignored bool

	Keyboard    KeyboardState
	Trackball   TrackballState
	SingleTouch SingleTouchState
	MultiTouch  MultiTouchState
	TouchScreen TouchScreenState
}

func (d *Device) IsKeyboard() bool           { return d.Classes.has(ClassKeyboard) }
func (d *Device) IsTrackball() bool          { return d.Classes.has(ClassTrackball) }
func (d *Device) IsSingleTouchScreen() bool  { return d.Classes.has(ClassTouchscreenSingle) }
func (d *Device) IsMultiTouchScreen() bool   { return d.Classes.has(ClassTouchscreenMulti) }
func (d *Device) IsTouchScreen() bool        { return d.IsSingleTouchScreen() || d.IsMultiTouchScreen() }

// Reset clears every accumulator and committed-state field to zero,
// called once right after a device record is allocated.
func (d *Device) Reset() {
	d.Keyboard = KeyboardState{}
	d.Trackball = TrackballState{}
	d.SingleTouch = SingleTouchState{}
	d.MultiTouch = MultiTouchState{}
	d.TouchScreen.CurrentTouch.Clear()
	d.TouchScreen.LastTouch.Clear()
	d.TouchScreen.CurrentVirtualKey = CurrentVirtualKeyState{}
	d.TouchScreen.DownTime = time.Time{}
}
