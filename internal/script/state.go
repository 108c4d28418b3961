package script

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// unsafeGlobals are removed from every state. Scripts cannot load code
// beyond their own source.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// newState creates a sandboxed state and runs the compiled chunk in it.
func newState(p *Provider) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// io, os, debug and package stay closed.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	registerEventType(L)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	if err := protect(func() error {
		L.Push(L.NewFunctionFromProto(p.proto))
		return L.PCall(0, lua.MultRet, nil)
	}); err != nil {
		L.Close()
		return nil, &Error{Script: p.name, Err: err}
	}
	L.SetTop(0)
	return L, nil
}

// functions returns the global functions of L that are not part of the
// base library.
func functions(L *lua.LState, baseline map[string]bool) []string {
	var names []string
	L.G.Global.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || baseline[string(ks)] {
			return
		}
		if _, ok := v.(*lua.LFunction); ok {
			names = append(names, string(ks))
		}
	})
	return names
}

// baselineGlobals returns the globals of an empty sandboxed state.
func baselineGlobals() map[string]bool {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	names := make(map[string]bool)
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			names[string(ks)] = true
		}
	})
	return names
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
