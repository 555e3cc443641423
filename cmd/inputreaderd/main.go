// Command inputreaderd runs the input-event reader core against real
// evdev hardware and an on-disk policy directory, optionally showing a
// live gocui overview whose events pane logs each dispatched
// notification; the devices pane is laid out but never filled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/awesome-gocui/gocui"
	"go.uber.org/zap"

	"github.com/touchcore/inputreader/internal/pkg/dispatcher"
	"github.com/touchcore/inputreader/internal/pkg/eventhub"
	"github.com/touchcore/inputreader/internal/pkg/logging"
	"github.com/touchcore/inputreader/internal/pkg/policy"
	"github.com/touchcore/inputreader/internal/pkg/reader"
)

var (
	configDir = flag.String("config", "/etc/inputreaderd", "directory of policy .toml files")
	grab      = flag.Bool("grab", false, "grab input devices for exclusive access")
	ui        = flag.Bool("ui", false, "show interactive overview")
	devMode   = flag.Bool("dev", false, "human-readable console logging")
)

func main() {
	flag.Parse()

	log := logging.New(*devMode)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())

	pol, err := policy.New(*configDir, log)
	if err != nil {
		log.Error("loading policy config failed", zap.Error(err), logging.Error)
		os.Exit(1)
	}
	go pol.Watch(ctx)

	hub := eventhub.New(ctx, *grab, log)
	disp := dispatcher.New(256, *devMode, log)

	r := reader.New(hub, pol, disp, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go runReaderLoop(ctx, &wg, r, log)

	var g *gocui.Gui
	if *ui {
		g, err = getCli()
		if err != nil {
			log.Error("starting ui failed", zap.Error(err), logging.Error)
			os.Exit(1)
		}
		go runUI(g, disp)
	}

	wg.Add(1)
	go consumeNotifications(ctx, &wg, g, disp)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	log.Info("signal received, shutting down", logging.Info)
	cancel()
	if g != nil {
		g.Close()
	}
	wg.Wait()
}

// runReaderLoop drives Reader.LoopOnce forever on its own goroutine,
// the per-process thread harness the rest of the binary builds around.
func runReaderLoop(ctx context.Context, wg *sync.WaitGroup, r *reader.Reader, log *zap.Logger) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := r.LoopOnce(); err != nil {
			log.Warn("event source closed", zap.Error(err), logging.Warning)
			return
		}
	}
}

func runUI(g *gocui.Gui, disp *dispatcher.Dispatcher) {
	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		panic(err)
	}
}

func consumeNotifications(ctx context.Context, wg *sync.WaitGroup, g *gocui.Gui, disp *dispatcher.Dispatcher) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-disp.Events():
			if !ok {
				return
			}
			if g == nil {
				continue
			}
			g.Update(func(g *gocui.Gui) error {
				printLogLine(g, fmt.Sprintf("%s %s", n.When.Format(time.RFC3339Nano), kindLabel(n.Kind)))
				return nil
			})
		}
	}
}

func kindLabel(k dispatcher.NotificationKind) string {
	switch k {
	case dispatcher.KindKey:
		return "key"
	case dispatcher.KindMotion:
		return "motion"
	case dispatcher.KindConfigurationChanged:
		return "configuration changed"
	case dispatcher.KindAppSwitchComing:
		return "app switch coming"
	default:
		return "unknown"
	}
}
