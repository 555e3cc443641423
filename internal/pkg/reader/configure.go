package reader

// configureDevice primes a newly added device's per-class substates:
// touch filter flags from the policy, trackball precision constants,
// and (if the display is already known) display-size-dependent axis
// scale and virtual key hit rectangles.
func (r *Reader) configureDevice(device *Device) {
	if device.IsTouchScreen() {
		device.TouchScreen.Parameters = r.configureAbsoluteAxisInfo(device)
		device.TouchScreen.Filters = TouchFilterFlags{
			UseBadTouchFilter:       r.policy.FilterTouchEvents(),
			UseAveragingTouchFilter: r.policy.FilterTouchEvents(),
			UseJumpyTouchFilter:     r.policy.FilterJumpyTouchEvents(),
		}
	}

	if device.IsTrackball() {
		device.Trackball.Precalculated = TrackballPrecalculated{
			XScale: 1.0 / TrackballMovementThreshold, YScale: 1.0 / TrackballMovementThreshold,
			XPrecision: TrackballMovementThreshold, YPrecision: TrackballMovementThreshold,
		}
	}

	r.refreshDisplayProperties()
	r.configureDeviceForCurrentDisplaySize(device)
}

// configureAbsoluteAxisInfo reads the four touch axes this package
// cares about from the event source. An axis with zero range is
// marked invalid.
func (r *Reader) configureAbsoluteAxisInfo(device *Device) AxisParams {
	var p AxisParams
	p.XAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsMTPositionX)
	p.YAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsMTPositionY)
	p.PressureAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsMTTouchMajor)
	p.SizeAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsMTWidthMajor)
	if !device.IsMultiTouchScreen() {
		p.XAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsX)
		p.YAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsY)
		p.PressureAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsPressure)
		p.SizeAxis, _ = r.source.GetAbsoluteInfo(device.ID, AbsToolWidth)
	}
	for _, axis := range []*AbsoluteAxisInfo{&p.XAxis, &p.YAxis, &p.PressureAxis, &p.SizeAxis} {
		if axis.Range() <= 0 {
			axis.Valid = false
		}
	}
	return p
}

// configureDeviceForCurrentDisplaySize recomputes the touch-to-display
// scale/origin from the device's axis parameters and the reader's
// currently cached display geometry, then rebuilds virtual key hit
// rectangles in the new axis space. Called again whenever the display
// size changes.
func (r *Reader) configureDeviceForCurrentDisplaySize(device *Device) {
	if !device.IsTouchScreen() || !r.displayKnown {
		return
	}

	params := &device.TouchScreen.Parameters
	precalc := &device.TouchScreen.Precalculated

	precalc.XOrigin = params.XAxis.Min
	precalc.YOrigin = params.YAxis.Min
	precalc.XScale = 1
	precalc.YScale = 1
	if params.XAxis.Valid && params.XAxis.Range() > 0 {
		precalc.XScale = float32(r.displayWidth) / float32(params.XAxis.Range())
	}
	if params.YAxis.Valid && params.YAxis.Range() > 0 {
		precalc.YScale = float32(r.displayHeight) / float32(params.YAxis.Range())
	}

	precalc.PressureOrigin = params.PressureAxis.Min
	precalc.PressureScale = 1
	if params.PressureAxis.Valid && params.PressureAxis.Range() > 0 {
		precalc.PressureScale = 1.0 / float32(params.PressureAxis.Range())
	}
	precalc.SizeOrigin = params.SizeAxis.Min
	precalc.SizeScale = 1
	if params.SizeAxis.Valid && params.SizeAxis.Range() > 0 {
		precalc.SizeScale = 1.0 / float32(params.SizeAxis.Range())
	}

	r.configureVirtualKeys(device)
}

// configureVirtualKeys inverse-maps the policy's display-space virtual
// key definitions into the device's raw axis space, so
// TouchScreenState.FindVirtualKeyHit can compare directly against
// untransformed pointer samples.
func (r *Reader) configureVirtualKeys(device *Device) {
	touch := &device.TouchScreen
	precalc := &touch.Precalculated

	defs := r.policy.GetVirtualKeyDefinitions(device.Name)
	touch.VirtualKeys = touch.VirtualKeys[:0]

	invertX := func(display int32) int32 {
		if precalc.XScale == 0 {
			return precalc.XOrigin
		}
		return int32(float32(display)/precalc.XScale) + precalc.XOrigin
	}
	invertY := func(display int32) int32 {
		if precalc.YScale == 0 {
			return precalc.YOrigin
		}
		return int32(float32(display)/precalc.YScale) + precalc.YOrigin
	}

	for _, def := range defs {
		keyCode, flags, ok := r.source.ScancodeToKeycode(device.ID, def.ScanCode)
		if !ok {
			continue
		}
		halfWidth := def.Width / 2
		halfHeight := def.Height / 2

		touch.VirtualKeys = append(touch.VirtualKeys, VirtualKey{
			ScanCode:  def.ScanCode,
			KeyCode:   keyCode,
			Flags:     flags,
			HitLeft:   invertX(def.CenterX - halfWidth),
			HitRight:  invertX(def.CenterX + halfWidth),
			HitTop:    invertY(def.CenterY - halfHeight),
			HitBottom: invertY(def.CenterY + halfHeight),
		})
	}
}
