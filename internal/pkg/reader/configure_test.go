package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureDevice_TouchScreenGetsScaleAndVirtualKeys(t *testing.T) {
	src := newFakeSource()
	src.axisInfo[AbsX] = AbsoluteAxisInfo{Min: 0, Max: 999, Valid: true}
	src.axisInfo[AbsY] = AbsoluteAxisInfo{Min: 0, Max: 1999, Valid: true}

	pol := newFakePolicy()
	pol.displayOK = true
	pol.width, pol.height = 100, 200
	pol.virtualKeys["Test Touchscreen"] = []VirtualKeyDefinition{
		{ScanCode: 158, CenterX: 10, CenterY: 20, Width: 10, Height: 10},
	}

	r := New(src, pol, &fakeDispatcher{}, nil)

	device := &Device{ID: 1, Name: "Test Touchscreen", Classes: ClassTouchscreenSingle}
	device.Reset()
	r.configureDevice(device)

	// 100/999 ~= 0.1 scale in X, 200/1999 ~= 0.1 in Y.
	assert.InDelta(t, 0.1, device.TouchScreen.Precalculated.XScale, 0.01)
	assert.InDelta(t, 0.1, device.TouchScreen.Precalculated.YScale, 0.01)

	require.Len(t, device.TouchScreen.VirtualKeys, 1)
	vk := device.TouchScreen.VirtualKeys[0]
	assert.Equal(t, ScanCode(158), vk.ScanCode)
	assert.True(t, vk.HitLeft < vk.HitRight)
	assert.True(t, vk.HitTop < vk.HitBottom)
}

func TestConfigureDevice_TrackballGetsPrecalculatedPrecision(t *testing.T) {
	src := newFakeSource()
	pol := newFakePolicy()
	r := New(src, pol, &fakeDispatcher{}, nil)

	device := &Device{ID: 2, Classes: ClassTrackball}
	device.Reset()
	r.configureDevice(device)

	assert.Equal(t, float32(TrackballMovementThreshold), device.Trackball.Precalculated.XPrecision)
	assert.InDelta(t, 1.0/TrackballMovementThreshold, device.Trackball.Precalculated.XScale, 0.0001)
}

func TestConfigureDeviceForCurrentDisplaySize_NoopWhenDisplayUnknown(t *testing.T) {
	src := newFakeSource()
	pol := newFakePolicy() // displayOK stays false
	r := New(src, pol, &fakeDispatcher{}, nil)

	device := &Device{ID: 1, Name: "Screen", Classes: ClassTouchscreenSingle}
	device.Reset()
	r.configureDeviceForCurrentDisplaySize(device)

	assert.Empty(t, device.TouchScreen.VirtualKeys)
}

func TestConfigureVirtualKeys_NoDefinitionsYieldsNoVirtualKeys(t *testing.T) {
	src := newFakeSource()
	pol := newFakePolicy()
	pol.displayOK = true
	pol.width, pol.height = 100, 100
	r := New(src, pol, &fakeDispatcher{}, nil)

	device := &Device{ID: 1, Name: "Screen", Classes: ClassTouchscreenSingle}
	device.Reset()
	r.refreshDisplayProperties()
	r.configureDeviceForCurrentDisplaySize(device)

	assert.Empty(t, device.TouchScreen.VirtualKeys)
}
