// Package policy implements the reader.Policy collaborator: display
// geometry, hardware virtual key definitions, excluded device names,
// and touch filter toggles, all sourced from a directory of TOML
// files and hot-reloaded with fsnotify.
package policy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/logging"
	"github.com/touchcore/inputreader/internal/pkg/reader"
)

// displayTOML mirrors display.toml: the single display's geometry.
type displayTOML struct {
	Width       int32  `toml:"width"`
	Height      int32  `toml:"height"`
	Orientation string `toml:"orientation"` // "0", "90", "180", "270"
}

// virtualKeyTOML mirrors one [[virtual_key]] table.
type virtualKeyTOML struct {
	ScanCode int32 `toml:"scan_code"`
	KeyCode  int32 `toml:"key_code"`
	CenterX  int32 `toml:"center_x"`
	CenterY  int32 `toml:"center_y"`
	Width    int32 `toml:"width"`
	Height   int32 `toml:"height"`
}

// deviceTOML mirrors device.toml: virtual keys for one device name.
type deviceTOML struct {
	DeviceName  string           `toml:"device_name"`
	VirtualKeys []virtualKeyTOML `toml:"virtual_key"`
}

// policyTOML mirrors policy.toml: excluded devices and filter toggles.
type policyTOML struct {
	ExcludedDevices  []string `toml:"excluded_devices"`
	FilterTouch      bool     `toml:"filter_touch_events"`
	FilterJumpyTouch bool     `toml:"filter_jumpy_touch_events"`
}

// Config is one snapshot of the hot-reloadable policy state. A fresh
// Config is built wholesale from a directory scan and swapped in
// atomically on each reload (guarded by Policy's atomicConfig; the mu
// field here is not locked anywhere): no partial updates are ever visible.
type Config struct {
	mu sync.RWMutex

	displayWidth       int32
	displayHeight      int32
	displayOrientation reader.Orientation
	displayKnown       bool

	virtualKeysByDevice map[string][]reader.VirtualKeyDefinition
	excludedDevices     []string
	filterTouch         bool
	filterJumpyTouch    bool
}

func newConfig() *Config {
	return &Config{virtualKeysByDevice: make(map[string][]reader.VirtualKeyDefinition)}
}

func orientationFromString(s string) reader.Orientation {
	switch strings.TrimSpace(s) {
	case "90":
		return reader.Rotation90
	case "180":
		return reader.Rotation180
	case "270":
		return reader.Rotation270
	default:
		return reader.Rotation0
	}
}

// loadDirectory walks root for *.toml files and rebuilds a Config from
// scratch, dispatching on file name: display.toml, policy.toml, and
// any other *.toml file treated as a per-device virtual key file.
func loadDirectory(root string, log *zap.Logger) (*Config, error) {
	cfg := newConfig()

	err := filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := strings.ToLower(info.Name())
		if !strings.HasSuffix(name, ".toml") {
			return nil
		}

		switch {
		case name == "display.toml":
			var t displayTOML
			if err := decodeFile(path, &t); err != nil {
				log.Warn("display config load failed", zap.String("path", path), zap.Error(err), logging.Warning)
				return nil
			}
			cfg.displayWidth = t.Width
			cfg.displayHeight = t.Height
			cfg.displayOrientation = orientationFromString(t.Orientation)
			cfg.displayKnown = t.Width > 0 && t.Height > 0

		case name == "policy.toml":
			var t policyTOML
			if err := decodeFile(path, &t); err != nil {
				log.Warn("policy config load failed", zap.String("path", path), zap.Error(err), logging.Warning)
				return nil
			}
			cfg.excludedDevices = t.ExcludedDevices
			cfg.filterTouch = t.FilterTouch
			cfg.filterJumpyTouch = t.FilterJumpyTouch

		default:
			var t deviceTOML
			if err := decodeFile(path, &t); err != nil {
				log.Warn("device config load failed", zap.String("path", path), zap.Error(err), logging.Warning)
				return nil
			}
			if t.DeviceName == "" {
				return nil
			}
			defs := make([]reader.VirtualKeyDefinition, 0, len(t.VirtualKeys))
			for _, vk := range t.VirtualKeys {
				defs = append(defs, reader.VirtualKeyDefinition{
					ScanCode: reader.ScanCode(vk.ScanCode),
					CenterX:  vk.CenterX, CenterY: vk.CenterY,
					Width: vk.Width, Height: vk.Height,
				})
			}
			cfg.virtualKeysByDevice[t.DeviceName] = defs
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", root, err)
	}
	return cfg, nil
}

func decodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return toml.Unmarshal(data, out)
}
