package eventhub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/reader"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, false, zap.NewNop())
}

func TestHub_GetDeviceClassesAndName_UnknownDeviceReturnsZeroValue(t *testing.T) {
	h := newTestHub(t)
	assert.Equal(t, reader.DeviceClass(0), h.GetDeviceClasses(99))
	assert.Equal(t, "", h.GetDeviceName(99))
}

func TestHub_AddExcludedDevice_LowercasesName(t *testing.T) {
	h := newTestHub(t)
	h.AddExcludedDevice("Power Button")

	h.mu.RLock()
	excluded := h.excluded["power button"]
	h.mu.RUnlock()
	assert.True(t, excluded)
}

func TestHub_ScancodeToKeycode_FallsBackToPassthroughWithoutMapping(t *testing.T) {
	h := newTestHub(t)
	h.mu.Lock()
	h.devices[1] = &trackedDevice{id: 1, name: "Plain Keyboard"}
	h.mu.Unlock()

	kc, flags, ok := h.ScancodeToKeycode(1, 30)
	assert.True(t, ok)
	assert.Equal(t, reader.KeyCode(30), kc)
	assert.Zero(t, flags)
}

func TestHub_ScancodeToKeycode_UnknownDeviceIsNotOk(t *testing.T) {
	h := newTestHub(t)
	_, _, ok := h.ScancodeToKeycode(42, 30)
	assert.False(t, ok)
}

func TestHub_RegisterVirtualKeyMapping_OverridesPassthrough(t *testing.T) {
	h := newTestHub(t)
	h.mu.Lock()
	h.devices[1] = &trackedDevice{id: 1, name: "Virtual Key Screen"}
	h.mu.Unlock()

	h.RegisterVirtualKeyMapping("Virtual Key Screen", 158, 4, 0x1)

	kc, flags, ok := h.ScancodeToKeycode(1, 158)
	assert.True(t, ok)
	assert.Equal(t, reader.KeyCode(4), kc)
	assert.Equal(t, uint32(0x1), flags)
}

func TestHub_GetAbsoluteInfo_UnknownDeviceIsNotOk(t *testing.T) {
	h := newTestHub(t)
	_, ok := h.GetAbsoluteInfo(7, reader.AbsX)
	assert.False(t, ok)
}

func TestHub_GetScanCodeState_UnknownDeviceIsUnknown(t *testing.T) {
	h := newTestHub(t)
	assert.Equal(t, reader.KeyStateUnknown, h.GetScanCodeState(7, 0, 30))
}

func TestHub_HasKeys_UnknownDeviceAllFalse(t *testing.T) {
	h := newTestHub(t)
	out := h.HasKeys(7, 0, []reader.KeyCode{1, 2, 3})
	assert.Equal(t, []bool{false, false, false}, out)
}
