// Package scripting exposes a live Central bound to a Bus as a small Lua
// console, adapted from internal/lua/lua_engine.go's state management and
// internal/lua/lua_api.go's table-of-Go-functions registration pattern.
// Where the teacher's console drove a real BLE adapter over a PTY, this one
// drives an EmulatorBus directly. Only central-side calls are bound (scan
// without allow-duplicates, stop_scan, connect, disconnect, discover, read,
// write, notify), so a flow like bus/bus_test.go's S1 can be scripted, while
// the scenarios that need the peripheral side (updateValue), MTU
// negotiation, allow-duplicates scanning or back-pressure queries cannot.
package scripting

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	golua "github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"

	"github.com/srg/bleemu/attr"
	"github.com/srg/bleemu/central"
	"github.com/srg/bleemu/remote"
)

// Console is a Lua scripting surface bound to a single Central. Discovered
// peripherals are cached by ID string so scripts can refer to them as
// "ble.connect(id)" / "ble.read(id, char)" without holding Go references.
type Console struct {
	state  *golua.State
	cen    *central.Central
	logger *logrus.Logger

	mu          sync.Mutex
	peripherals map[string]*remote.Peripheral
}

// NewConsole builds a console bound to cen and registers the "ble" global
// table of scripting functions.
func NewConsole(cen *central.Central, logger *logrus.Logger) *Console {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Console{
		state:       golua.NewState(),
		cen:         cen,
		logger:      logger,
		peripherals: make(map[string]*remote.Peripheral),
	}
	c.state.OpenLibs()
	c.register()
	return c
}

// Close releases the Lua state.
func (c *Console) Close() {
	c.state.Close()
}

// RunScript loads and executes script in this console's Lua state.
func (c *Console) RunScript(ctx context.Context, script string) error {
	if status := c.state.LoadString(script); status != 0 {
		msg := c.state.ToString(-1)
		c.state.Pop(1)
		return fmt.Errorf("scripting: load error: %s", msg)
	}
	if err := c.state.Call(0, 0); err != nil {
		return fmt.Errorf("scripting: runtime error: %w", err)
	}
	return nil
}

func (c *Console) register() {
	L := c.state
	L.NewTable()

	c.pushFunction(L, "scan", c.luaScan)
	c.pushFunction(L, "stop_scan", c.luaStopScan)
	c.pushFunction(L, "connect", c.luaConnect)
	c.pushFunction(L, "disconnect", c.luaDisconnect)
	c.pushFunction(L, "discover", c.luaDiscover)
	c.pushFunction(L, "read", c.luaRead)
	c.pushFunction(L, "write", c.luaWrite)
	c.pushFunction(L, "notify", c.luaNotify)

	L.SetGlobal("ble")
}

// pushFunction wraps fn with panic recovery (a panic inside a bound
// function is logged and returned to the script as (nil, message) instead
// of crashing the host process) and installs it as ble.<name>.
func (c *Console) pushFunction(L *golua.State, name string, fn func(*golua.State) int) {
	L.PushString(name)
	L.PushGoFunction(func(L *golua.State) (ret int) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.WithField("function", name).Errorf("scripting: recovered panic: %v", r)
				L.PushNil()
				L.PushString(fmt.Sprintf("%v", r))
				ret = 2
			}
		}()
		return fn(L)
	})
	L.SetTable(-3)
}

// luaScan implements ble.scan(serviceUUIDHex). An empty string scans
// unfiltered.
func (c *Console) luaScan(L *golua.State) int {
	var uuids []attr.UUID
	if L.GetTop() >= 1 && L.IsString(1) {
		if s := L.ToString(1); s != "" {
			u, err := attr.ParseUUID(s)
			if err != nil {
				L.PushBoolean(false)
				L.PushString(err.Error())
				return 2
			}
			uuids = append(uuids, u)
		}
	}
	c.cen.ScanForPeripherals(uuids, false)
	L.PushBoolean(true)
	return 1
}

func (c *Console) luaStopScan(L *golua.State) int {
	c.cen.StopScan()
	L.PushBoolean(true)
	return 1
}

// luaConnect implements ble.connect(peripheralID) -> bool. peripheralID
// must name a peripheral this console has already observed via scan.
func (c *Console) luaConnect(L *golua.State) int {
	id := L.ToString(1)
	c.mu.Lock()
	p, ok := c.peripherals[id]
	c.mu.Unlock()
	if !ok {
		L.PushBoolean(false)
		L.PushString("unknown peripheral id: " + id)
		return 2
	}
	c.cen.Connect(context.Background(), p.ID())
	L.PushBoolean(true)
	return 1
}

func (c *Console) luaDisconnect(L *golua.State) int {
	id := L.ToString(1)
	c.mu.Lock()
	p, ok := c.peripherals[id]
	c.mu.Unlock()
	if !ok {
		L.PushBoolean(false)
		L.PushString("unknown peripheral id: " + id)
		return 2
	}
	c.cen.CancelPeripheralConnection(context.Background(), p.ID())
	L.PushBoolean(true)
	return 1
}

// luaDiscover implements ble.discover(peripheralID) -> bool, populating the
// proxy's cached service list so subsequent read/write/notify calls can
// resolve a characteristic by UUID.
func (c *Console) luaDiscover(L *golua.State) int {
	id := L.ToString(1)
	c.mu.Lock()
	p, ok := c.peripherals[id]
	c.mu.Unlock()
	if !ok {
		L.PushBoolean(false)
		L.PushString("unknown peripheral id: " + id)
		return 2
	}
	if _, err := p.DiscoverServices(context.Background()); err != nil {
		L.PushBoolean(false)
		L.PushString(err.Error())
		return 2
	}
	L.PushBoolean(true)
	return 1
}

// luaRead implements ble.read(peripheralID, charUUID) -> (hexString, err).
func (c *Console) luaRead(L *golua.State) int {
	p, char, ok := c.resolveCharacteristic(L)
	if !ok {
		return 2
	}
	value, err := p.ReadValue(context.Background(), char)
	if err != nil {
		L.PushNil()
		L.PushString(err.Error())
		return 2
	}
	L.PushString(hex.EncodeToString(value))
	return 1
}

// luaWrite implements ble.write(peripheralID, charUUID, hexValue,
// withResponse) -> bool.
func (c *Console) luaWrite(L *golua.State) int {
	p, char, ok := c.resolveCharacteristic(L)
	if !ok {
		return 2
	}
	value, err := hex.DecodeString(L.ToString(3))
	if err != nil {
		L.PushBoolean(false)
		L.PushString(err.Error())
		return 2
	}
	withResponse := true
	if L.GetTop() >= 4 {
		withResponse = L.ToBoolean(4)
	}
	if err := p.WriteValue(context.Background(), char, value, withResponse); err != nil {
		L.PushBoolean(false)
		L.PushString(err.Error())
		return 2
	}
	L.PushBoolean(true)
	return 1
}

// luaNotify implements ble.notify(peripheralID, charUUID, enabled) -> bool.
func (c *Console) luaNotify(L *golua.State) int {
	p, char, ok := c.resolveCharacteristic(L)
	if !ok {
		return 2
	}
	enabled := L.ToBoolean(3)
	if err := p.SetNotifyValue(context.Background(), char, enabled); err != nil {
		L.PushBoolean(false)
		L.PushString(err.Error())
		return 2
	}
	L.PushBoolean(true)
	return 1
}

func (c *Console) resolveCharacteristic(L *golua.State) (*remote.Peripheral, *attr.Characteristic, bool) {
	id := L.ToString(1)
	c.mu.Lock()
	p, ok := c.peripherals[id]
	c.mu.Unlock()
	if !ok {
		L.PushNil()
		L.PushString("unknown peripheral id: " + id)
		return nil, nil, false
	}

	charUUID, err := attr.ParseUUID(L.ToString(2))
	if err != nil {
		L.PushNil()
		L.PushString(err.Error())
		return nil, nil, false
	}
	for _, svc := range p.Services() {
		if char, ok := svc.Characteristic(charUUID); ok {
			return p, char, true
		}
	}
	L.PushNil()
	L.PushString("characteristic not found: " + L.ToString(2))
	return nil, nil, false
}

// TrackPeripheral registers p under its ID string so scripts can address it
// by name. A central.Delegate.DidDiscover implementation is expected to
// call this for every peripheral discovered through cen.
func (c *Console) TrackPeripheral(p *remote.Peripheral) {
	c.mu.Lock()
	c.peripherals[p.ID().String()] = p
	c.mu.Unlock()
}
