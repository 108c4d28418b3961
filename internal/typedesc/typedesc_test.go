package typedesc

import (
	"math"
	"reflect"
	"sync"
	"testing"
)

func TestDescriptor_AssignableTo(t *testing.T) {
	root := Interface("test.Root", nil)
	mid := Interface("test.Mid", []*Descriptor{root})
	leaf := Interface("test.Leaf", []*Descriptor{mid})
	other := Interface("test.Other", nil)

	tests := []struct {
		name string
		from *Descriptor
		to   Type
		want bool
	}{
		{"self", leaf, leaf, true},
		{"direct parent", leaf, mid, true},
		{"transitive", leaf, root, true},
		{"reverse", root, leaf, false},
		{"unrelated", leaf, other, false},
		{"any", leaf, Any, true},
		{"value type", leaf, Int, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.AssignableTo(tt.to); got != tt.want {
				t.Errorf("AssignableTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOf_Comparable(t *testing.T) {
	if Of(reflect.TypeFor[int]()) != Int {
		t.Error("Of(int) != Int")
	}
	if TypeFor[string]() != String {
		t.Error("TypeFor[string]() != String")
	}
	if Int == Int64 {
		t.Error("Int == Int64")
	}

	m := map[Type]int{Int: 1, String: 2}
	if m[TypeFor[int]()] != 1 {
		t.Error("map lookup by equal Type failed")
	}
}

func TestGoType_AssignableTo(t *testing.T) {
	if !Int.AssignableTo(Any) {
		t.Error("int should be assignable to any")
	}
	if Int.AssignableTo(Int64) {
		t.Error("int should not be assignable to int64")
	}
	if Int.AssignableTo(Interface("test.X", nil)) {
		t.Error("int should not be assignable to a descriptor")
	}
}

func TestResolve_Flatten(t *testing.T) {
	root := Interface("test.Root", nil,
		Method{Name: "getID", Returns: String},
		Method{Name: "describe", Returns: String, Default: true, Body: func(any, []any) (any, error) { return "root", nil }},
	)
	leaf := Interface("test.Leaf", []*Descriptor{root},
		Method{Name: "getAmount", Returns: Int},
		Method{Name: "describe", Returns: String},
	)

	s := Resolve(leaf)

	if len(s.Supertypes) != 1 || s.Supertypes[0] != root {
		t.Fatalf("Supertypes = %v, want [root]", s.Supertypes)
	}
	if len(s.Methods) != 3 {
		t.Fatalf("Methods = %d, want 3", len(s.Methods))
	}

	// leaf's abstract describe hides root's default describe
	abstract := make(map[string]bool)
	for _, m := range s.Abstract {
		abstract[m.Name] = true
	}
	for _, name := range []string{"getID", "getAmount", "describe"} {
		if !abstract[name] {
			t.Errorf("expected %s to be abstract", name)
		}
	}

	if Resolve(leaf) != s {
		t.Error("Resolve() should return the memoized structure")
	}
}

func TestResolver_Concurrent(t *testing.T) {
	r := NewResolver()
	d := Interface("test.Concurrent", nil, Method{Name: "getX", Returns: Int})

	var wg sync.WaitGroup
	results := make([]*Structure, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Resolve(d)
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		if s != results[0] {
			t.Errorf("result %d differs from first", i)
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestFindImplementation(t *testing.T) {
	body := func(any, []any) (any, error) { return nil, nil }
	m := Method{Name: "create", Params: []Param{{Name: "amount", Type: Int}}}
	holder := Struct("test.Impl",
		Method{Name: "create", Static: true, Body: body, Params: []Param{{Name: "self", Type: Any}, {Name: "amount", Type: String}}},
		Method{Name: "create", Static: true, Body: body, Params: []Param{{Name: "self", Type: Any}, {Name: "amount", Type: Int}}},
	)

	got, ok := FindImplementation(holder, m)
	if !ok {
		t.Fatal("expected an implementation")
	}
	if got.Params[1].Type != Int {
		t.Errorf("matched wrong overload: %s", got.Signature())
	}

	if _, ok := FindImplementation(holder, Method{Name: "other"}); ok {
		t.Error("unexpected match for unknown method")
	}
	if _, ok := FindImplementation(nil, m); ok {
		t.Error("unexpected match on nil holder")
	}
}

func TestCoerce(t *testing.T) {
	v, err := Coerce(int64(42), Int)
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}
	if v != 42 {
		t.Errorf("Coerce() = %#v, want int 42", v)
	}

	if _, err := Coerce("x", Int); err == nil {
		t.Error("expected error coercing string to int")
	}

	v, err = Coerce(nil, Int)
	if err != nil || v != nil {
		t.Errorf("Coerce(nil) = %v, %v", v, err)
	}
}

func TestCoerce_Numeric(t *testing.T) {
	tests := []struct {
		name string
		in   any
		to   Type
		want any
	}{
		{"int64 to int", int64(-7), Int, -7},
		{"whole float to int", 4.0, Int, 4},
		{"int to float64", 3, Float64, 3.0},
		{"uint8 to int64", uint8(200), Int64, int64(200)},
		{"int to uint", 9, TypeFor[uint](), uint(9)},
		{"float64 to float32", 1.5, TypeFor[float32](), float32(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.in, tt.to)
			if err != nil {
				t.Fatalf("Coerce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestCoerce_Lossy(t *testing.T) {
	tests := []struct {
		name string
		in   any
		to   Type
	}{
		{"fraction to int", 3.9, Int},
		{"large uint64 to int", uint64(1<<63 + 5), Int},
		{"negative to uint", -1, TypeFor[uint]()},
		{"overflow int8", 300, TypeFor[int8]()},
		{"float above int64", 1e19, Int64},
		{"NaN to int", math.NaN(), Int},
		{"int64 max to float64", int64(math.MaxInt64), Float64},
		{"overflow float32", 1e300, TypeFor[float32]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v, err := Coerce(tt.in, tt.to); err == nil {
				t.Errorf("Coerce(%v) = %#v, want error", tt.in, v)
			}
		})
	}
}

func TestNillable(t *testing.T) {
	if Nillable(Int) || Nillable(String) || Nillable(Bool) {
		t.Error("value kinds should not be nillable")
	}
	if !Nillable(Any) || !Nillable(TypeFor[*int]()) || !Nillable(TypeFor[[]string]()) {
		t.Error("pointer, slice and interface types should be nillable")
	}
	if !Nillable(Interface("a.Iface", nil)) {
		t.Error("descriptors should be nillable")
	}
}

type owner struct{}

func (owner) Handle(x int) {}

func TestTarget(t *testing.T) {
	tg, err := MethodOf(reflect.TypeFor[*owner](), "Handle")
	if err != nil {
		t.Fatalf("MethodOf() error = %v", err)
	}
	if tg.Key() != "github.com/dshills/eventsys/internal/typedesc.owner#Handle" {
		t.Errorf("Key() = %q", tg.Key())
	}
	if ps := tg.Params(); len(ps) != 1 || ps[0].Kind() != reflect.Int {
		t.Errorf("Params() = %v", ps)
	}

	if _, err := MethodOf(reflect.TypeFor[*owner](), "Missing"); err == nil {
		t.Error("expected error for missing method")
	}
	if _, err := StaticFunc(reflect.TypeFor[owner](), "x", 3); err == nil {
		t.Error("expected error for non-function static target")
	}
}

func TestMangle(t *testing.T) {
	if got := Mangle("github.com/a-b/c.T"); got != "github_com_a_b_c_T" {
		t.Errorf("Mangle() = %q", got)
	}
}
