package policy

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/logging"
	"github.com/touchcore/inputreader/internal/pkg/reader"
)

// Policy is the directory-backed reader.Policy implementation. It
// never intercepts or cancels events beyond what the config prescribes:
// InterceptKey/InterceptTouch/InterceptTrackball/InterceptSwitch always
// return ActionDispatch, leaving window/focus interception out of scope.
type Policy struct {
	root string
	log  *zap.Logger

	cfg atomicConfig
}

// atomicConfig swaps a *Config pointer under a mutex; readers never
// block on a reload in progress for longer than the swap itself.
type atomicConfig struct {
	mu  sync.RWMutex
	cur *Config
}

func (a *atomicConfig) load() *Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cur
}

func (a *atomicConfig) store(c *Config) {
	a.mu.Lock()
	a.cur = c
	a.mu.Unlock()
}

// New loads every *.toml file under root and returns a ready Policy.
// Call Watch to keep it current as files change on disk.
func New(root string, log *zap.Logger) (*Policy, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg, err := loadDirectory(root, log)
	if err != nil {
		return nil, err
	}
	p := &Policy{root: root, log: log}
	p.cfg.store(cfg)
	return p, nil
}

// Watch blocks (run it in its own goroutine) reloading the whole
// config directory on every *.toml write, via a recursive fsnotify
// watch over root and every subdirectory.
func (p *Policy) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.log.Warn("policy file watcher unavailable", zap.Error(err), logging.Warning)
		return
	}
	defer watcher.Close()

	if err := addRecursive(watcher, p.root); err != nil {
		p.log.Warn("policy file watcher setup failed", zap.Error(err), logging.Warning)
		return
	}

	go func() {
		<-ctx.Done()
		watcher.Close()
	}()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op != fsnotify.Write && event.Op != fsnotify.Create {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".toml") {
				continue
			}
			debounce = time.After(200 * time.Millisecond)
		case <-debounce:
			debounce = nil
			cfg, err := loadDirectory(p.root, p.log)
			if err != nil {
				p.log.Warn("policy config reload failed", zap.Error(err), logging.Warning)
				continue
			}
			p.cfg.store(cfg)
			p.log.Info("policy config reloaded", zap.String("root", p.root), logging.Info)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func (p *Policy) GetDisplayInfo(displayID int) (width, height int32, orientation reader.Orientation, ok bool) {
	cfg := p.cfg.load()
	if !cfg.displayKnown {
		return 0, 0, reader.Rotation0, false
	}
	return cfg.displayWidth, cfg.displayHeight, cfg.displayOrientation, true
}

func (p *Policy) GetVirtualKeyDefinitions(deviceName string) []reader.VirtualKeyDefinition {
	return p.cfg.load().virtualKeysByDevice[deviceName]
}

func (p *Policy) GetExcludedDeviceNames() []string {
	return p.cfg.load().excludedDevices
}

func (p *Policy) FilterTouchEvents() bool      { return p.cfg.load().filterTouch }
func (p *Policy) FilterJumpyTouchEvents() bool { return p.cfg.load().filterJumpyTouch }

func (p *Policy) VirtualKeyDownFeedback() {
	p.log.Debug("virtual key down", logging.Debug)
}

func (p *Policy) InterceptKey(when time.Time, deviceID int32, down bool, keyCode reader.KeyCode, scanCode reader.ScanCode, policyFlags uint32) reader.PolicyAction {
	return reader.ActionDispatch
}

func (p *Policy) InterceptTouch(when time.Time) reader.PolicyAction {
	return reader.ActionDispatch
}

func (p *Policy) InterceptTrackball(when time.Time, downChanged, down, deltaChanged bool) reader.PolicyAction {
	return reader.ActionDispatch
}

func (p *Policy) InterceptSwitch(when time.Time, switchCode reader.ScanCode, value int32) reader.PolicyAction {
	return reader.ActionDispatch
}
