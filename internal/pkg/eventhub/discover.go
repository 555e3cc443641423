package eventhub

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/touchcore/inputreader/internal/pkg/reader"
)

// procDevice is one parsed stanza of /proc/bus/input/devices: enough
// to classify a device's reader.DeviceClass and locate its /dev/input
// handler without opening it. Trimmed to this package's needs: no
// per-handler splitting, one eventN handler per device here.
type procDevice struct {
	name     string
	phys     string
	handlers []string
	ev       uint32 // EV bitmap word 0: event types this device supports
	key0     uint32 // KEY bitmap word 0 (keys 0-31): BTN_MOUSE(0x110)/BTN_TOUCH(0x14a) live above this word
	keyWords []uint32
	absWords []uint32
}

// eventHandler returns the "eventN" handler name, or "" if the device
// exposes none (e.g. a pure js/mouse legacy handler we don't read).
func (d procDevice) eventHandler() string {
	for _, h := range d.handlers {
		if strings.HasPrefix(h, "event") {
			return h
		}
	}
	return ""
}

func (d procDevice) path() string {
	h := d.eventHandler()
	if h == "" {
		return ""
	}
	return "/dev/input/" + h
}

// scanProcDevices parses /proc/bus/input/devices, matching the field
// layout decode.go relies on (I/N/P/S/U/H/B stanza lines).
func scanProcDevices() ([]procDevice, error) {
	data, err := os.ReadFile("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	return parseProcDevices(string(data))
}

func parseProcDevices(data string) ([]procDevice, error) {
	var devices []procDevice
	var cur procDevice
	started := false

	flush := func() {
		if started {
			devices = append(devices, cur)
		}
		cur = procDevice{}
		started = false
	}

	for _, line := range strings.Split(data, "\n") {
		if line == "" {
			flush()
			continue
		}
		started = true
		if len(line) < 3 {
			continue
		}
		label, info := line[:1], line[3:]

		switch label {
		case "N":
			cur.name = strings.Trim(info[6:len(info)-1], "\"")
		case "P":
			cur.phys = strings.TrimPrefix(info, "Phys=")
		case "H":
			idx := strings.Index(info, "=")
			if idx < 0 {
				continue
			}
			handlers := strings.TrimRight(info[idx+1:], " ")
			cur.handlers = strings.Split(handlers, " ")
		case "B":
			fields := strings.SplitN(info, "=", 2)
			if len(fields) != 2 {
				continue
			}
			words, err := decodeBitmapWords(fields[1])
			if err != nil {
				return devices, fmt.Errorf("decoding bitmap %q: %w", fields[0], err)
			}
			switch fields[0] {
			case "EV":
				if len(words) > 0 {
					cur.ev = words[len(words)-1]
				}
			case "KEY":
				cur.keyWords = words
				if len(words) > 0 {
					cur.key0 = words[len(words)-1]
				}
			case "ABS":
				cur.absWords = words
			}
		}
	}
	flush()
	return devices, nil
}

// decodeBitmapWords parses a space-separated run of hex words, kernel
// bitmap convention: last word in the line is the low-order word
// (bits 0-31), matching /proc/bus/input/devices's big-endian-per-word,
// space-separated-low-to-high-on-the-right layout.
func decodeBitmapWords(s string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(s), " ")
	words := make([]uint32, 0, len(parts))
	for _, p := range parts {
		padded := fmt.Sprintf("%08s", p)
		raw, err := hex.DecodeString(padded)
		if err != nil {
			return nil, err
		}
		words = append(words, binary.BigEndian.Uint32(raw))
	}
	return words, nil
}

func (d procDevice) keyBit(code uint32) bool {
	word := int(code / 32)
	if word >= len(d.keyWords) {
		return false
	}
	idx := len(d.keyWords) - 1 - word
	if idx < 0 {
		return false
	}
	return d.keyWords[idx]&(1<<(code%32)) != 0
}

func (d procDevice) absBit(code uint32) bool {
	word := int(code / 32)
	if word >= len(d.absWords) {
		return false
	}
	idx := len(d.absWords) - 1 - word
	if idx < 0 {
		return false
	}
	return d.absWords[idx]&(1<<(code%32)) != 0
}

// Linux EV_* bits, as carried in the EV bitmap's single word.
const (
	evKey uint32 = 1 << 0x01
	evRel uint32 = 1 << 0x02
	evAbs uint32 = 1 << 0x03
)

// classify derives a reader.DeviceClass bitmask from the device's
// reported capability bitmaps. Keyboards carry
// EV_KEY without EV_ABS/EV_REL touch or trackball capability;
// trackballs carry BTN_MOUSE + REL_X/REL_Y; multi-touch screens carry
// ABS_MT_POSITION_X/Y; single-touch screens carry BTN_TOUCH + ABS_X/Y
// without multi-touch axes.
func (d procDevice) classify() reader.DeviceClass {
	var classes reader.DeviceClass

	// Linux scan codes: KEY_UP=103, KEY_DOWN=108, KEY_LEFT=105, KEY_RIGHT=106.
	if d.keyBit(103) || d.keyBit(108) || d.keyBit(105) || d.keyBit(106) {
		classes |= reader.ClassDPad
	}

	if d.ev&evRel != 0 && d.keyBit(0x110 /* BTN_MOUSE */) {
		classes |= reader.ClassTrackball
	}

	if d.ev&evAbs != 0 {
		if d.absBit(0x35 /* ABS_MT_POSITION_X */) && d.absBit(0x36 /* ABS_MT_POSITION_Y */) {
			classes |= reader.ClassTouchscreenMulti
		} else if d.keyBit(0x14a /* BTN_TOUCH */) && d.absBit(0x00) && d.absBit(0x01) {
			classes |= reader.ClassTouchscreenSingle
		}
	}

	if d.ev&evKey != 0 && classes&(reader.ClassTrackball|reader.ClassTouchscreenMulti|reader.ClassTouchscreenSingle) == 0 {
		classes |= reader.ClassKeyboard
		if hasAlphaKeys(d) {
			classes |= reader.ClassAlphaKey
		}
	}

	return classes
}

// hasAlphaKeys reports whether any key in the QWERTY row ranges is
// present, a cheap proxy for "this keyboard has letters, not just a
// couple of media buttons".
func hasAlphaKeys(d procDevice) bool {
	const keyQ, keyM = 16, 50 // Linux KEY_Q..KEY_M span
	for code := uint32(keyQ); code <= keyM; code++ {
		if d.keyBit(code) {
			return true
		}
	}
	return false
}
