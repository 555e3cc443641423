// Package eventhub is the hardware-backed reader.EventSource: it
// enumerates /dev/input devices, classifies them, and turns
// holoplot/go-evdev reads into reader.RawEvent values.
package eventhub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/logging"
	"github.com/touchcore/inputreader/internal/pkg/reader"
	"github.com/touchcore/inputreader/internal/pkg/utils"
)

// trackedDevice is one open handle plus the metadata the EventSource
// query methods need without re-reading /proc.
type trackedDevice struct {
	id      int32
	name    string
	classes reader.DeviceClass
	dev     *evdev.InputDevice
	close   func()
}

// Hub polls for new/removed devices, reads their raw events
// concurrently, and fans every translated reader.RawEvent into a
// single consumable stream via a generic DynamicFanOut.
type Hub struct {
	log  *zap.Logger
	grab bool

	mu       sync.RWMutex
	devices  map[int32]*trackedDevice
	byPhys   map[string]int32
	nextID   int32
	excluded map[string]bool

	raw      chan reader.RawEvent
	fanOut   *utils.DynamicFanOut[reader.RawEvent]
	outputID int64
	output   <-chan reader.RawEvent

	virtualKeyMap map[string]map[reader.ScanCode]virtualKeyEntry
}

type virtualKeyEntry struct {
	keyCode reader.KeyCode
	flags   uint32
}

// New constructs a Hub and starts its device-discovery loop. When grab
// is true, opened devices stop delivering events to any other process.
func New(ctx context.Context, grab bool, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		log:           log,
		grab:          grab,
		devices:       make(map[int32]*trackedDevice),
		byPhys:        make(map[string]int32),
		excluded:      make(map[string]bool),
		raw:           make(chan reader.RawEvent, 64),
		virtualKeyMap: make(map[string]map[reader.ScanCode]virtualKeyEntry),
	}
	h.fanOut = utils.NewDynamicFanOut(h.raw)
	id, out, err := h.fanOut.SpawnOutput()
	if err != nil {
		log.Error("eventhub fan-out spawn failed", zap.Error(err), logging.Error)
	}
	h.outputID = id
	h.output = out

	go h.monitor(ctx)
	return h
}

// GetEvent blocks for the next translated raw event.
func (h *Hub) GetEvent() (reader.RawEvent, error) {
	ev, ok := <-h.output
	if !ok {
		return reader.RawEvent{}, context.Canceled
	}
	return ev, nil
}

// monitor polls /proc/bus/input/devices once a second, opening newly
// seen devices and emitting DeviceRemoved for ones that vanished.
func (h *Hub) monitor(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		h.scanOnce()
		select {
		case <-ctx.Done():
			h.fanOut.DespawnOutput(h.outputID)
			close(h.raw)
			return
		case <-ticker.C:
		}
	}
}

func (h *Hub) scanOnce() {
	found, err := scanProcDevices()
	if err != nil {
		h.log.Warn("device scan failed", zap.Error(err), logging.Warning)
		return
	}

	seenPhys := make(map[string]bool, len(found))

	for _, pd := range found {
		phys := pd.phys
		if phys == "" {
			phys = pd.name
		}
		seenPhys[phys] = true

		h.mu.RLock()
		_, known := h.byPhys[phys]
		excluded := h.excluded[strings.ToLower(pd.name)]
		h.mu.RUnlock()
		if known || excluded {
			continue
		}

		path := pd.path()
		if path == "" {
			continue
		}

		classes := pd.classify()
		h.addDevice(pd, path, classes)
	}

	h.mu.Lock()
	var removed []int32
	for phys, id := range h.byPhys {
		if !seenPhys[phys] {
			removed = append(removed, id)
			delete(h.byPhys, phys)
		}
	}
	h.mu.Unlock()

	for _, id := range removed {
		h.removeDevice(id)
	}
}

func (h *Hub) addDevice(pd procDevice, path string, classes reader.DeviceClass) {
	dev, err := evdev.Open(path)
	if err != nil {
		h.log.Warn("opening device failed", zap.String("path", path), zap.Error(err), logging.Warning)
		return
	}
	if h.grab {
		_ = dev.Grab()
	}
	_ = dev.NonBlock()

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	phys := pd.phys
	if phys == "" {
		phys = pd.name
	}
	h.byPhys[phys] = id
	td := &trackedDevice{id: id, name: pd.name, classes: classes, dev: dev}
	h.devices[id] = td
	h.mu.Unlock()

	h.raw <- reader.RawEvent{DeviceID: id, Type: reader.EventDeviceAdded}

	go h.readLoop(td)
}

func (h *Hub) removeDevice(id int32) {
	h.mu.Lock()
	td, ok := h.devices[id]
	if ok {
		delete(h.devices, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	_ = td.dev.Close()
	h.raw <- reader.RawEvent{DeviceID: id, Type: reader.EventDeviceRemoved}
}

// readLoop blocks on one device's ReadOne, translating each event
// into the reader package's vocabulary.
func (h *Hub) readLoop(td *trackedDevice) {
	for {
		ev, err := td.dev.ReadOne()
		if err != nil {
			return
		}
		if ev.Type == evdev.EV_KEY && ev.Value == 2 {
			continue // key repeat, not part of this model
		}

		out := reader.RawEvent{DeviceID: td.id, Value: ev.Value}
		switch ev.Type {
		case evdev.EV_SYN:
			out.Type = reader.EventSync
			out.ScanCode = reader.ScanCode(ev.Code)
		case evdev.EV_KEY:
			out.Type = reader.EventKey
			out.ScanCode = reader.ScanCode(ev.Code)
			out.KeyCode, out.Flags, _ = h.scancodeToKeycode(td, out.ScanCode)
		case evdev.EV_REL:
			out.Type = reader.EventRelativeMotion
			out.ScanCode = reader.ScanCode(ev.Code)
		case evdev.EV_ABS:
			out.Type = reader.EventAbsoluteMotion
			out.ScanCode = reader.ScanCode(ev.Code)
		case evdev.EV_SW:
			out.Type = reader.EventSwitch
			out.ScanCode = reader.ScanCode(ev.Code)
		default:
			continue
		}
		h.raw <- out
	}
}

func (h *Hub) GetDeviceClasses(deviceID int32) reader.DeviceClass {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if td, ok := h.devices[deviceID]; ok {
		return td.classes
	}
	return 0
}

func (h *Hub) GetDeviceName(deviceID int32) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if td, ok := h.devices[deviceID]; ok {
		return td.name
	}
	return ""
}

func (h *Hub) GetAbsoluteInfo(deviceID int32, axis reader.ScanCode) (reader.AbsoluteAxisInfo, bool) {
	h.mu.RLock()
	td, ok := h.devices[deviceID]
	h.mu.RUnlock()
	if !ok {
		return reader.AbsoluteAxisInfo{}, false
	}
	infos, err := td.dev.AbsInfos()
	if err != nil {
		return reader.AbsoluteAxisInfo{}, false
	}
	info, ok := infos[evdev.EvCode(axis)]
	if !ok {
		return reader.AbsoluteAxisInfo{}, false
	}
	return reader.AbsoluteAxisInfo{Min: info.Minimum, Max: info.Maximum, Flat: info.Flat, Fuzz: info.Fuzz, Valid: true}, true
}

// scancodeToKeycode maps a keyboard's hardware scan code straight
// through to an Android-style key code using any mappings registered
// for the device's name via RegisterVirtualKeyMapping, falling back to passthrough for
// regular (non hardware-virtual) keys so onKey still receives a usable
// code. The scan code to key code mapping itself is implementation
// defined; this one is deliberately simple.
func (h *Hub) scancodeToKeycode(td *trackedDevice, scanCode reader.ScanCode) (reader.KeyCode, uint32, bool) {
	h.mu.RLock()
	entries := h.virtualKeyMap[td.name]
	h.mu.RUnlock()
	if e, ok := entries[scanCode]; ok {
		return e.keyCode, e.flags, true
	}
	return reader.KeyCode(scanCode), 0, true
}

func (h *Hub) ScancodeToKeycode(deviceID int32, scanCode reader.ScanCode) (reader.KeyCode, uint32, bool) {
	h.mu.RLock()
	td, ok := h.devices[deviceID]
	h.mu.RUnlock()
	if !ok {
		return 0, 0, false
	}
	return h.scancodeToKeycode(td, scanCode)
}

// RegisterVirtualKeyMapping lets a Policy publish scan-code/key-code
// pairs for one device name's hardware virtual keys, so touch-overlay
// keys resolve to real key codes instead of raw scan codes.
func (h *Hub) RegisterVirtualKeyMapping(deviceName string, scanCode reader.ScanCode, keyCode reader.KeyCode, flags uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.virtualKeyMap[deviceName] == nil {
		h.virtualKeyMap[deviceName] = make(map[reader.ScanCode]virtualKeyEntry)
	}
	h.virtualKeyMap[deviceName][scanCode] = virtualKeyEntry{keyCode: keyCode, flags: flags}
}

func (h *Hub) AddExcludedDevice(name string) {
	h.mu.Lock()
	h.excluded[strings.ToLower(name)] = true
	h.mu.Unlock()
}

func (h *Hub) GetScanCodeState(deviceID int32, classes reader.DeviceClass, scanCode reader.ScanCode) int {
	h.mu.RLock()
	td, ok := h.devices[deviceID]
	h.mu.RUnlock()
	if !ok {
		return reader.KeyStateUnknown
	}
	stateMap, err := td.dev.State(evdev.EV_KEY)
	if err != nil {
		return reader.KeyStateUnknown
	}
	if stateMap[evdev.EvCode(scanCode)] {
		return reader.KeyStateDown
	}
	return reader.KeyStateUp
}

func (h *Hub) GetKeyCodeState(deviceID int32, classes reader.DeviceClass, keyCode reader.KeyCode) int {
	return h.GetScanCodeState(deviceID, classes, reader.ScanCode(keyCode))
}

func (h *Hub) GetSwitchState(deviceID int32, classes reader.DeviceClass, sw reader.ScanCode) int {
	h.mu.RLock()
	td, ok := h.devices[deviceID]
	h.mu.RUnlock()
	if !ok {
		return reader.KeyStateUnknown
	}
	stateMap, err := td.dev.State(evdev.EV_SW)
	if err != nil {
		return reader.KeyStateUnknown
	}
	if stateMap[evdev.EvCode(sw)] {
		return reader.KeyStateDown
	}
	return reader.KeyStateUp
}

func (h *Hub) HasKeys(deviceID int32, classes reader.DeviceClass, keyCodes []reader.KeyCode) []bool {
	out := make([]bool, len(keyCodes))
	for i, kc := range keyCodes {
		out[i] = h.GetKeyCodeState(deviceID, classes, kc) != reader.KeyStateUnknown
	}
	return out
}
