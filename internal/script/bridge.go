package script

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/typedesc"
)

const eventTypeName = "eventsys.event"

// registerEventType installs the metatable events are exposed with.
// Properties read and write through field access; any other key is a
// method of the event, called with colon syntax.
func registerEventType(L *lua.LState) {
	mt := L.NewTypeMetatable(eventTypeName)
	L.SetField(mt, "__index", L.NewFunction(eventIndex))
	L.SetField(mt, "__newindex", L.NewFunction(eventNewIndex))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(fmt.Sprint(checkEvent(L, 1))))
		return 1
	}))
}

func checkEvent(L *lua.LState, n int) event.Event {
	ud := L.CheckUserData(n)
	evt, ok := ud.Value.(event.Event)
	if !ok {
		L.ArgError(n, "event expected")
	}
	return evt
}

func eventIndex(L *lua.LState) int {
	evt := checkEvent(L, 1)
	key := L.CheckString(2)

	if p, ok := event.FindProperty(evt.Properties(), key, nil); ok {
		if gp, ok := p.(event.GetterProperty); ok {
			L.Push(toLua(L, gp.Get()))
			return 1
		}
	}
	L.Push(L.NewFunction(func(L *lua.LState) int {
		self := checkEvent(L, 1)
		args := make([]any, 0, L.GetTop()-1)
		for i := 2; i <= L.GetTop(); i++ {
			args = append(args, fromLua(L.Get(i)))
		}
		v, err := self.Call(key, args...)
		if err != nil {
			L.RaiseError("%s: %v", key, err)
		}
		L.Push(toLua(L, v))
		return 1
	}))
	return 1
}

func eventNewIndex(L *lua.LState) int {
	evt := checkEvent(L, 1)
	key := L.CheckString(2)

	p, ok := event.FindProperty(evt.Properties(), key, nil)
	if !ok {
		L.RaiseError("no property %q", key)
	}
	sp, ok := p.(event.SetterProperty)
	if !ok {
		L.RaiseError("property %q is read-only", key)
	}
	v, err := typedesc.Coerce(fromLua(L.Get(3)), p.Type())
	if err == nil {
		err = sp.Set(v)
	}
	if err != nil {
		L.RaiseError("%s: %v", key, err)
	}
	return 0
}

// toLua converts a Go value to a Lua value. Events become userdata.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case event.Event:
		ud := L.NewUserData()
		ud.Value = val
		L.SetMetatable(ud, L.GetTypeMetatable(eventTypeName))
		return ud
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Pointer:
		if rv.IsNil() {
			return lua.LNil
		}
		return toLua(L, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, toLua(L, rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(toLua(L, iter.Key().Interface()), toLua(L, iter.Value().Interface()))
		}
		return t
	}
	ud := L.NewUserData()
	ud.Value = v
	return ud
}

// fromLua converts a Lua value to a Go value. Integral numbers become
// int64.
func fromLua(lv lua.LValue) any {
	return fromLuaVisited(lv, make(map[*lua.LTable]bool))
}

func fromLuaVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LUserData:
		return v.Value
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	default:
		return nil
	}
}

// tableToGo returns a slice for tables with keys 1..n and a map otherwise.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		out := make([]any, n)
		for i := 1; i <= n; i++ {
			out[i-1] = fromLuaVisited(t.RawGetInt(i), visited)
		}
		return out
	}
	out := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLuaVisited(v, visited)
	})
	return out
}
