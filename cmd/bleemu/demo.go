package main

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/bus"
	"github.com/srg/bleemu/peripheral"
)

// startDemoPeripheral registers and advertises a small heart-rate-style
// peripheral on b, so a CLI session has something to scan/connect/read
// without requiring a second process or a scenario file.
func startDemoPeripheral(b *bus.Bus, logger *logrus.Logger) (*peripheral.Peripheral, error) {
	svc := attr.NewService(attr.UUID16(0x180D), true)
	measurement := attr.NewCharacteristic(attr.UUID16(0x2A37), attr.PropRead|attr.PropNotify, attr.PermReadable, []byte{0x00, 0x48})
	location := attr.NewCharacteristic(attr.UUID16(0x2A38), attr.PropRead, attr.PermReadable, []byte{0x01})
	svc.AddCharacteristic(measurement)
	svc.AddCharacteristic(location)

	p := peripheral.New(b, peripheral.WithLogger(logger))
	p.AddService(svc)

	rec := attr.Record{
		attr.KeyLocalName:    attr.StringValue("bleemu-demo-heart-rate"),
		attr.KeyServiceUUIDs: attr.UUIDsValue([]attr.UUID{svc.UUID}),
	}
	if err := p.StartAdvertising(rec); err != nil {
		return nil, err
	}
	return p, nil
}
