package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/reader"
)

func TestNew_ZeroOrNegativeBufferSizeClampsToOne(t *testing.T) {
	d := New(0, false, nil)
	assert.Equal(t, 1, cap(d.events))

	d = New(-5, false, nil)
	assert.Equal(t, 1, cap(d.events))
}

func TestNew_NilLoggerDefaultsToNop(t *testing.T) {
	d := New(4, false, nil)
	assert.NotNil(t, d.log)
}

func TestDispatcher_NotifyKey_EmitsNotification(t *testing.T) {
	d := New(4, false, zap.NewNop())
	now := time.Now()

	d.NotifyKey(now, 1, reader.NatureKey, 0, reader.KeyActionDown, 0, 29, 30, 0, now)

	select {
	case n := <-d.Events():
		assert.Equal(t, KindKey, n.Kind)
		assert.Equal(t, reader.KeyCode(29), n.KeyCode)
		assert.Equal(t, reader.ScanCode(30), n.ScanCode)
		assert.Equal(t, reader.KeyActionDown, n.KeyAction)
	default:
		t.Fatal("expected a buffered notification")
	}
}

func TestDispatcher_NotifyMotion_EmitsNotification(t *testing.T) {
	d := New(4, true, zap.NewNop())
	now := time.Now()
	ids := []uint32{0, 1}
	coords := []reader.PointerCoords{{X: 1, Y: 2}, {X: 3, Y: 4}}

	d.NotifyMotion(now, 1, reader.NatureTouch, 0, reader.MotionActionDown, 0, 0, 2, ids, coords, 0, 0, now)

	n := <-d.Events()
	assert.Equal(t, KindMotion, n.Kind)
	require.Len(t, n.PointerIDs, 2)
	assert.Equal(t, ids, n.PointerIDs)
}

func TestDispatcher_NotifyConfigurationChanged_EmitsNotification(t *testing.T) {
	d := New(4, false, zap.NewNop())
	d.NotifyConfigurationChanged(time.Now())

	n := <-d.Events()
	assert.Equal(t, KindConfigurationChanged, n.Kind)
}

func TestDispatcher_NotifyAppSwitchComing_EmitsNotification(t *testing.T) {
	d := New(4, false, zap.NewNop())
	d.NotifyAppSwitchComing(time.Now())

	n := <-d.Events()
	assert.Equal(t, KindAppSwitchComing, n.Kind)
}

func TestDispatcher_DropsNotificationWhenConsumerTooSlow(t *testing.T) {
	d := New(1, false, zap.NewNop())
	now := time.Now()

	d.NotifyConfigurationChanged(now) // fills the one-slot buffer
	d.NotifyConfigurationChanged(now) // must be dropped, not block

	require.Len(t, d.events, 1)
	<-d.Events() // drain so the test doesn't leak a goroutine-visible buffered value
}
