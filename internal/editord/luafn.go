package editord

import (
	"fmt"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// luaSetupScript provisions the delegated fold installer in the editor's
// primary scripting facility. Registered once at startup, invoked by name
// with the full list of 1-based [start, end] pairs.
const luaSetupScript = `
function setfolds(pairs)
	editor_clear_folds()
	for i = 1, #pairs do
		editor_create_fold(pairs[i][1], pairs[i][2])
	end
	return #pairs
end
`

// LuaRuntime hosts the editor's primary command-language functions.
//
// The LState is not goroutine-safe; the owning Editor serializes every call
// through its request lock.
type LuaRuntime struct {
	state  *lua.LState
	store  *FoldStore
	logger zerolog.Logger
}

// NewLuaRuntime creates a LuaRuntime bound to the given store and provisions
// the registered functions
func NewLuaRuntime(store *FoldStore, logger zerolog.Logger) (*LuaRuntime, error) {
	L := lua.NewState()
	r := &LuaRuntime{
		state:  L,
		store:  store,
		logger: logger.With().Str("component", "lua").Logger(),
	}

	L.SetGlobal("editor_clear_folds", L.NewFunction(func(L *lua.LState) int {
		store.Clear()
		return 0
	}))

	L.SetGlobal("editor_create_fold", L.NewFunction(func(L *lua.LState) int {
		start := L.CheckInt(1)
		end := L.CheckInt(2)
		if err := store.Create(start, end); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}))

	if err := L.DoString(luaSetupScript); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to provision lua delegates: %w", err)
	}
	return r, nil
}

// Close releases the Lua state
func (r *LuaRuntime) Close() {
	r.state.Close()
}

// CallFunction calls a registered function by name with the given arguments
// and returns its first result
func (r *LuaRuntime) CallFunction(name string, args ...interface{}) (interface{}, error) {
	fn := r.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %q not found", name)
	}

	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		luaArgs[i] = goToLua(r.state, a)
	}

	if err := r.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, luaArgs...); err != nil {
		return nil, fmt.Errorf("function %q failed: %w", name, err)
	}

	ret := r.state.Get(-1)
	r.state.Pop(1)
	return luaToGo(ret), nil
}

// goToLua converts a Go value (as decoded from JSON) to a Lua value
func goToLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []interface{}:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(goToLua(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// luaToGo converts a Lua value back to a plain Go value
func luaToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Arrays come back as slices, anything else as a map
		maxN := val.MaxN()
		if maxN > 0 {
			out := make([]interface{}, 0, maxN)
			for i := 1; i <= maxN; i++ {
				out = append(out, luaToGo(val.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]interface{})
		val.ForEach(func(k, item lua.LValue) {
			out[k.String()] = luaToGo(item)
		})
		return out
	default:
		return v.String()
	}
}
