package main

import (
	"fmt"

	"github.com/awesome-gocui/gocui"
)

const (
	ViewDevices = "devices"
	ViewLogs    = "logs"
)

// getCli builds the interactive overview: a top "devices" pane and a
// bottom scrolling "logs" pane, quit bound to Ctrl+C.
func getCli() (*gocui.Gui, error) {
	g, err := gocui.NewGui(gocui.Output256, true)
	if err != nil {
		return nil, err
	}

	g.SetManagerFunc(layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return nil, err
	}

	return g, nil
}

func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView(ViewDevices, 0, 0, maxX-1, 9, 0); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "[devices]"
		v.Autoscroll = false
		v.Wrap = false
		v.Frame = true
	}

	if v, err := g.SetView(ViewLogs, 0, 9, maxX-1, maxY-1, gocui.TOP); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "[events]"
		v.Autoscroll = true
		v.Wrap = true
		v.Frame = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

func printDevicesView(g *gocui.Gui, lines []string) {
	v, err := g.View(ViewDevices)
	if err != nil {
		return
	}
	v.Clear()
	for _, l := range lines {
		fmt.Fprintln(v, l)
	}
}

func printLogLine(g *gocui.Gui, line string) {
	v, err := g.View(ViewLogs)
	if err != nil {
		return
	}
	fmt.Fprintln(v, line)
}
