// Package script builds extension providers from Lua source.
//
// A Provider compiles a script once and runs it in sandboxed states: only
// the base, table, string and math libraries are available, and the
// functions that load further code are removed. Every global function the
// script defines can serve as the body of an extension method. The event
// is passed as the first argument and exposes its properties as fields:
//
//	function describe(evt)
//	    return evt.title .. " by " .. evt.author
//	end
//
//	function shout(evt, suffix)
//	    return string.upper(evt:describe()) .. suffix
//	end
//
// States are pooled. A method body that calls back into another scripted
// method runs on a second state, so providers never deadlock on
// themselves.
package script

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/typedesc"
)

// DefaultTimeout bounds a single call into a script.
const DefaultTimeout = 5 * time.Second

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout sets the time limit for one call.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Provider is a compiled script. It is safe for concurrent use.
type Provider struct {
	name    string
	proto   *lua.FunctionProto
	timeout time.Duration
	funcs   []string

	mu     sync.Mutex
	free   []*lua.LState
	states int
	closed bool
}

// Load compiles source and runs it once to discover the functions it
// defines. name identifies the script in errors and becomes the name of
// the descriptors it provides.
func Load(name, source string, opts ...Option) (*Provider, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, &Error{Script: name, Err: err}
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, &Error{Script: name, Err: err}
	}

	p := &Provider{name: name, proto: proto, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(p)
	}

	L, err := newState(p)
	if err != nil {
		return nil, err
	}
	p.funcs = functions(L, baselineGlobals())
	slices.Sort(p.funcs)
	p.states = 1
	p.free = append(p.free, L)
	return p, nil
}

// Name returns the script name.
func (p *Provider) Name() string { return p.name }

// Functions returns the global functions the script defines, sorted.
func (p *Provider) Functions() []string {
	return slices.Clone(p.funcs)
}

// Has reports whether the script defines fn.
func (p *Provider) Has(fn string) bool {
	_, ok := slices.BinarySearch(p.funcs, fn)
	return ok
}

// Descriptor returns a static-method holder implementing the methods of
// implement that the script defines. Each method takes the event as its
// first parameter followed by the parameters of the interface method, so
// the holder can be used as the provider of an extension. Methods the
// script does not define are left to default bodies; it is an error if the
// script defines none of them.
func (p *Provider) Descriptor(implement *typedesc.Descriptor) (*typedesc.Descriptor, error) {
	if implement == nil {
		return nil, &event.ConfigError{Type: p.name, Reason: "extension interface is required"}
	}

	var methods []typedesc.Method
	for _, m := range typedesc.Resolve(implement).Abstract {
		if !p.Has(m.Name) {
			continue
		}
		params := make([]typedesc.Param, 0, len(m.Params)+1)
		params = append(params, typedesc.Param{Name: "self", Type: typedesc.Any})
		params = append(params, m.Params...)
		methods = append(methods, typedesc.Method{
			Name:    m.Name,
			Params:  params,
			Returns: m.Returns,
			Static:  true,
			Body:    p.body(m.Name, m.Returns),
		})
	}
	if len(methods) == 0 {
		return nil, &event.ConfigError{
			Type:   implement.Name,
			Reason: fmt.Sprintf("script %s defines none of its methods", p.name),
		}
	}
	return typedesc.Struct(p.name, methods...), nil
}

func (p *Provider) body(fn string, returns typedesc.Type) typedesc.Body {
	return func(_ any, args []any) (any, error) {
		v, err := p.Call(context.Background(), fn, args...)
		if err != nil {
			return nil, err
		}
		if returns == nil {
			return nil, nil
		}
		v, err = typedesc.Coerce(v, returns)
		if err != nil {
			return nil, &Error{Script: p.name, Func: fn, Err: err}
		}
		return v, nil
	}
}

// Call runs the global function fn with args and returns its first result.
// The call is aborted when ctx is done or the provider timeout elapses.
func (p *Provider) Call(ctx context.Context, fn string, args ...any) (any, error) {
	if !p.Has(fn) {
		return nil, &Error{Script: p.name, Func: fn, Err: ErrNoFunction}
	}
	L, err := p.acquire()
	if err != nil {
		return nil, err
	}
	defer p.release(L)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	var ret any
	err = protect(func() error {
		L.Push(L.GetGlobal(fn))
		for _, a := range args {
			L.Push(toLua(L, a))
		}
		if err := L.PCall(len(args), 1, nil); err != nil {
			return err
		}
		ret = fromLua(L.Get(-1))
		L.Pop(1)
		return nil
	})
	if err != nil {
		L.SetTop(0)
		return nil, &Error{Script: p.name, Func: fn, Err: err}
	}
	return ret, nil
}

// States returns the number of states created so far.
func (p *Provider) States() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states
}

// Close releases every idle state. States in use are released when their
// call returns. Calls after Close fail with ErrClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, L := range p.free {
		L.Close()
	}
	p.free = nil
	return nil
}

func (p *Provider) acquire() (*lua.LState, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &Error{Script: p.name, Err: ErrClosed}
	}
	if n := len(p.free); n > 0 {
		L := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return L, nil
	}
	p.states++
	p.mu.Unlock()
	return newState(p)
}

func (p *Provider) release(L *lua.LState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		L.Close()
		return
	}
	p.free = append(p.free, L)
}
