package companion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/icon"
)

// ErrNoFunction is returned when the script does not define a hook.
var ErrNoFunction = errors.New("lua function not defined")

// LuaProvider runs a user script that defines weather() and, optionally,
// battery().
//
//	weather() -> { temperature = <celsius>, icon = "01d" }
//	battery() -> { percent = 80, charging = true }
//
// The script can require("log") for structured logging.
type LuaProvider struct {
	mu sync.Mutex
	L  *lua.LState
}

// NewLuaProvider loads the script at path.
func NewLuaProvider(path string) (*LuaProvider, error) {
	L := lua.NewState()
	L.PreloadModule("log", logLoader)

	log.Info().Str("path", path).Msg("Loading Lua script")
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to execute Lua script: %w", err)
	}
	return &LuaProvider{L: L}, nil
}

// Close releases the Lua state.
func (p *LuaProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}

// Weather calls weather().
func (p *LuaProvider) Weather(ctx context.Context) (Weather, error) {
	tbl, err := p.call(ctx, "weather")
	if err != nil {
		return Weather{}, err
	}

	temp, ok := tbl.RawGetString("temperature").(lua.LNumber)
	if !ok {
		return Weather{}, errors.New("weather(): temperature must be a number")
	}
	code := lua.LVAsString(tbl.RawGetString("icon"))

	return Weather{
		Temperature: roundHalfUp(float64(temp)),
		Icon:        icon.IndexOf(code),
	}, nil
}

// Read calls battery(), letting the script act as a battery source.
func (p *LuaProvider) Read() (battery.Reading, error) {
	tbl, err := p.call(context.Background(), "battery")
	if err != nil {
		return battery.Reading{}, err
	}

	percent, ok := tbl.RawGetString("percent").(lua.LNumber)
	if !ok {
		return battery.Reading{}, errors.New("battery(): percent must be a number")
	}
	return battery.Reading{
		Percent:  int(percent),
		Charging: lua.LVAsBool(tbl.RawGetString("charging")),
	}, nil
}

// HasBattery reports whether the script defines battery().
func (p *LuaProvider) HasBattery() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.L.GetGlobal("battery").(*lua.LFunction)
	return ok
}

func (p *LuaProvider) call(ctx context.Context, name string) (*lua.LTable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn, ok := p.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFunction, name)
	}

	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	if err := p.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil, fmt.Errorf("%s(): %w", name, err)
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s(): expected a table, got %s", name, ret.Type())
	}
	return tbl, nil
}

// logLoader exposes log.debug/info/warn/error(msg, fields) to scripts.
func logLoader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "debug", L.NewFunction(logAt(log.Debug)))
	L.SetField(mod, "info", L.NewFunction(logAt(log.Info)))
	L.SetField(mod, "warn", L.NewFunction(logAt(log.Warn)))
	L.SetField(mod, "error", L.NewFunction(logAt(log.Error)))
	L.Push(mod)
	return 1
}

func logAt(level func() *zerolog.Event) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		ev := level().Str("source", "lua")
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			tbl.ForEach(func(k, v lua.LValue) {
				ev = ev.Str(lua.LVAsString(k), v.String())
			})
		}
		ev.Msg(msg)
		return 0
	}
}
