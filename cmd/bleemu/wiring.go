package main

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/central"
	"github.com/srg/bleemu/internal/scripting"
	"github.com/srg/bleemu/remote"
)

// newScriptedCentral builds a Central whose discoveries are fed straight
// into a scripting.Console, so Lua scripts (and the interactive console)
// can refer to discovered peripherals by ID without the CLI wiring them up
// by hand for every command.
func newScriptedCentral(b *bus.Bus, logger *logrus.Logger) (*central.Central, *scripting.Console) {
	delegate := &trackingDelegate{}
	cen := central.New(b, central.WithLogger(logger), central.WithDelegate(delegate))
	console := scripting.NewConsole(cen, logger)
	delegate.console = console
	return cen, console
}

type trackingDelegate struct {
	central.NoopDelegate
	console *scripting.Console
}

func (d *trackingDelegate) DidDiscover(p *remote.Peripheral, adv attr.Record, rssi int) {
	d.console.TrackPeripheral(p)
}
