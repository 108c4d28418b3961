package install

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spf13/afero"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/typedesc"
)

var transfer = typedesc.Interface("bank.Transfer", []*typedesc.Descriptor{event.EventType},
	typedesc.Method{Name: "getAmount", Returns: typedesc.Int},
)

func newInstaller(t *testing.T) *Installer {
	t.Helper()
	e, err := emit.NewEmitter()
	if err != nil {
		t.Fatalf("NewEmitter() error = %v", err)
	}
	return NewInstaller(e)
}

func eventArtifact(t *testing.T, name string) *emit.Artifact {
	t.Helper()
	syms := emit.Symbols{}
	decl := &emit.TypeDecl{
		Name:       name,
		Kind:       emit.KindEvent,
		Implements: []string{syms.AddType(transfer)},
		Fields: []emit.Field{
			{Name: "amount", Type: syms.AddType(typedesc.Int)},
			{Name: "memo", Type: syms.AddType(typedesc.String), Mutable: true},
		},
		Ctor: []string{"amount", "memo"},
		Methods: []emit.Method{
			{Name: "getAmount", Returns: syms.AddType(typedesc.Int), Body: emit.Op{Code: emit.OpLoadField, Field: "amount"}},
			{Name: "getMemo", Returns: syms.AddType(typedesc.String), Body: emit.Op{Code: emit.OpLoadField, Field: "memo"}},
			{Name: "setMemo", Params: []string{syms.AddType(typedesc.String)}, Body: emit.Op{Code: emit.OpStoreField, Field: "memo"}},
		},
	}
	e, _ := emit.NewEmitter()
	a, err := e.Emit(decl, syms)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	return a
}

func TestInstaller_InstallArtifact(t *testing.T) {
	in := newInstaller(t)
	l := NewLoader("root", nil)
	before := InstalledCount()

	u, err := in.InstallArtifact(l, eventArtifact(t, "test.TransferImpl_a"))
	if err != nil {
		t.Fatalf("InstallArtifact() error = %v", err)
	}
	if u.Name() != "test.TransferImpl_a" || u.Kind() != emit.KindEvent || u.Loader() != l {
		t.Errorf("unit = %s %s %s", u.Name(), u.Kind(), u.Loader().Name())
	}
	if u.Primary() != transfer || !u.Implements(event.EventType) {
		t.Error("unit should implement Transfer and Event")
	}

	recs := InstalledSince(before)
	if len(recs) != 1 || recs[0].Name != u.Name() || recs[0].ID != u.ID() {
		t.Errorf("installed records = %+v", recs)
	}

	obj, err := u.New(int64(42), "hi")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	v, err := obj.Call("getAmount")
	if err != nil || v != 42 {
		t.Errorf("getAmount() = %#v, %v", v, err)
	}
	if _, err := obj.Call("setMemo", "bye"); err != nil {
		t.Fatalf("setMemo() error = %v", err)
	}
	if v, _ := obj.Call("getMemo"); v != "bye" {
		t.Errorf("getMemo() = %v", v)
	}
	if _, err := obj.Call("nope"); !errors.Is(err, event.ErrNoSuchMethod) {
		t.Errorf("Call(nope) error = %v", err)
	}
}

func TestObject_Properties(t *testing.T) {
	in := newInstaller(t)
	u, err := in.InstallArtifact(NewLoader("root", nil), eventArtifact(t, "test.TransferImpl_props"))
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := u.New(5, nil)

	if n := len(obj.Properties()); n != 2 {
		t.Fatalf("Properties() = %d, want 2", n)
	}
	gp, ok := obj.GetterProperty("amount", typedesc.Int)
	if !ok || gp.Get() != 5 {
		t.Errorf("GetterProperty(amount) = %v, %v", gp, ok)
	}
	memo, ok := obj.GetterProperty("memo", typedesc.String)
	if !ok || memo.Get() != nil {
		t.Errorf("memo should be present and absent-valued")
	}

	amount, _ := obj.Property("amount", typedesc.Int)
	if err := amount.(event.SetterProperty).Set(1); !errors.Is(err, event.ErrReadOnly) {
		t.Errorf("Set(amount) error = %v, want ErrReadOnly", err)
	}
	memoSet, _ := obj.Property("memo", typedesc.String)
	if err := memoSet.(event.SetterProperty).Set("x"); err != nil {
		t.Errorf("Set(memo) error = %v", err)
	}
	if obj.TypeDescriptor() != transfer {
		t.Error("TypeDescriptor() should be the primary capability")
	}
}

func TestUnit_New_ArgCount(t *testing.T) {
	in := newInstaller(t)
	u, _ := in.InstallArtifact(NewLoader("root", nil), eventArtifact(t, "test.TransferImpl_args"))
	if _, err := u.New(1); err == nil {
		t.Error("expected error for missing constructor argument")
	}
	if _, err := u.New("x", "y"); err == nil {
		t.Error("expected error for mistyped constructor argument")
	}
}

func TestInstaller_Duplicate(t *testing.T) {
	in := newInstaller(t)
	l := NewLoader("root", nil)

	if _, err := in.InstallArtifact(l, eventArtifact(t, "test.Dup")); err != nil {
		t.Fatal(err)
	}
	_, err := in.InstallArtifact(l, eventArtifact(t, "test.Dup"))
	if !errors.Is(err, event.ErrDuplicateArtifact) || !errors.Is(err, event.ErrInstallation) {
		t.Fatalf("second install error = %v, want duplicate", err)
	}
	var ie *event.InstallError
	if !errors.As(err, &ie) || ie.Name != "test.Dup" {
		t.Errorf("InstallError should name the artifact: %v", err)
	}

	// a different loader may hold the same name
	child := NewLoader("child", l)
	if _, err := in.InstallArtifact(child, eventArtifact(t, "test.Dup")); err != nil {
		t.Errorf("install into child loader error = %v", err)
	}
	if names := l.Units(); len(names) != 1 {
		t.Errorf("root units = %v", names)
	}
}

func TestInstaller_InstallRaw(t *testing.T) {
	in := newInstaller(t)
	l := NewLoader("root", nil)
	a := eventArtifact(t, "test.Raw")

	if _, err := in.Install(l, "test.Other", a.Bytes, a.Symbols); !errors.Is(err, event.ErrInstallation) {
		t.Errorf("name mismatch error = %v", err)
	}
	u, err := in.Install(l, "test.Raw", a.Bytes, a.Symbols)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got, ok := l.Unit("test.Raw"); !ok || got != u {
		t.Error("Unit() should find the installed unit")
	}
	if _, err := in.Install(l, "test.Raw", []byte{0xff}, nil); err == nil {
		t.Error("expected error for garbage payload")
	}
}

func TestInstaller_RequiresLookup(t *testing.T) {
	in := newInstaller(t)
	root := NewLoader("root", nil)
	child := NewLoader("child", root)

	decl := &emit.TypeDecl{Name: "test.NeedsOwner", Kind: emit.KindListener, Requires: []string{"pkg.Owner"}}
	e, _ := emit.NewEmitter()
	a, _ := e.Emit(decl, emit.Symbols{})

	_, err := in.InstallArtifact(child, a)
	if !errors.Is(err, event.ErrLookup) {
		t.Fatalf("error = %v, want lookup error", err)
	}

	root.Expose("pkg.Owner", reflect.TypeFor[int]())
	if _, err := in.InstallArtifact(child, a); err != nil {
		t.Errorf("install after exposing on parent error = %v", err)
	}
}

func TestInstaller_Construct(t *testing.T) {
	in := newInstaller(t)
	l := NewLoader("root", nil)
	evt, err := in.InstallArtifact(l, eventArtifact(t, "test.Constructed"))
	if err != nil {
		t.Fatal(err)
	}

	syms := emit.Symbols{emit.UnitSymbol(evt.Name()): evt}
	factory := typedesc.Interface("test.Factory", nil)
	decl := &emit.TypeDecl{
		Name:       "test.FactoryImpl",
		Kind:       emit.KindFactory,
		Implements: []string{syms.AddType(factory)},
		Methods: []emit.Method{{
			Name:    "create",
			Params:  []string{syms.AddType(typedesc.Int)},
			Returns: syms.AddType(transfer),
			Body: emit.Op{Code: emit.OpConstruct, Symbol: emit.UnitSymbol(evt.Name()), Args: []emit.Arg{
				{Kind: emit.ArgParam, Index: 0},
				{Kind: emit.ArgLiteral, Literal: "default"},
			}},
		}},
	}
	e, _ := emit.NewEmitter()
	a, _ := e.Emit(decl, syms)
	fu, err := in.InstallArtifact(l, a)
	if err != nil {
		t.Fatalf("install factory error = %v", err)
	}
	fo, _ := fu.New()

	res, err := fo.Call("create", 42)
	if err != nil {
		t.Fatalf("create() error = %v", err)
	}
	obj := res.(*Object)
	if v, _ := obj.Call("getAmount"); v != 42 {
		t.Errorf("getAmount() = %v", v)
	}
	if v, _ := obj.Call("getMemo"); v != "default" {
		t.Errorf("getMemo() = %v", v)
	}
}

func TestInstaller_InvokeStatic(t *testing.T) {
	in := newInstaller(t)
	holder := typedesc.Struct("test.Helpers", typedesc.Method{
		Name: "double", Static: true,
		Body: func(_ any, args []any) (any, error) {
			self := args[0].(*Object)
			v, _ := self.Call("getAmount")
			return v.(int) * 2, nil
		},
	})
	m, _ := holder.Method("double")

	a := eventArtifact(t, "test.WithStatic")
	sym := a.Symbols.AddBody(holder, m)
	a.Decl.Methods = append(a.Decl.Methods, emit.Method{
		Name: "double", Returns: "int", Body: emit.Op{Code: emit.OpInvokeStatic, Symbol: sym},
	})

	u, err := in.InstallArtifact(NewLoader("root", nil), a)
	if err != nil {
		t.Fatal(err)
	}
	obj, _ := u.New(21, "")
	if v, err := obj.Call("double"); err != nil || v != 42 {
		t.Errorf("double() = %v, %v", v, err)
	}
}

type host struct {
	calls  int
	amount int
	memo   *string
}

func (h *host) On(ctx context.Context, evt event.Event, amount int, memo *string) error {
	h.calls++
	h.amount = amount
	h.memo = memo
	return nil
}

func TestInstaller_Dispatch(t *testing.T) {
	in := newInstaller(t)
	l := NewLoader("root", nil)
	evtUnit, _ := in.InstallArtifact(l, eventArtifact(t, "test.DispatchEvent"))

	target, _ := typedesc.MethodOf(reflect.TypeFor[*host](), "On")
	syms := emit.Symbols{emit.TargetSymbol(target): target}
	decl := &emit.TypeDecl{
		Name:   "test.Adapter",
		Kind:   emit.KindListener,
		Fields: []emit.Field{{Name: "instance", Type: syms.AddType(typedesc.Any)}},
		Ctor:   []string{"instance"},
		Methods: []emit.Method{{
			Name: "onEvent",
			Body: emit.Op{Code: emit.OpDispatch, Symbol: emit.TargetSymbol(target), Field: "instance", Fetch: []emit.Fetch{
				{Name: "event", Type: syms.AddType(transfer)},
				{Name: "amount", Type: syms.AddType(typedesc.Int)},
				{Name: "memo", Type: syms.AddType(typedesc.String), Nullable: true},
			}},
		}},
	}
	e, _ := emit.NewEmitter()
	a, _ := e.Emit(decl, syms)
	au, err := in.InstallArtifact(l, a)
	if err != nil {
		t.Fatalf("install adapter error = %v", err)
	}

	h := &host{}
	adapter, _ := au.New(h)
	evt, _ := evtUnit.New(7, nil)

	if _, err := adapter.Call("onEvent", context.Background(), evt); err != nil {
		t.Fatalf("onEvent() error = %v", err)
	}
	if h.calls != 1 || h.amount != 7 || h.memo != nil {
		t.Errorf("host = %+v, want one call with amount 7 and nil memo", h)
	}

	_, _ = evt.Call("setMemo", "note")
	_, _ = adapter.Call("onEvent", context.Background(), evt)
	if h.calls != 2 || h.memo == nil || *h.memo != "note" {
		t.Errorf("second dispatch: calls=%d memo=%v", h.calls, h.memo)
	}

	// absent non-nullable amount skips the call
	absent, _ := evtUnit.New(nil, nil)
	_, _ = adapter.Call("onEvent", context.Background(), absent)
	if h.calls != 2 {
		t.Errorf("calls = %d, want 2 after absent amount", h.calls)
	}
}

func TestDebugSink_Save(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewDebugSink(fs, "/debug")
	a := eventArtifact(t, "bank.TransferImpl_x")

	payload, listing := sink.Paths(TagEvent, a.Name())
	if payload != "/debug/eventgen/bank/TransferImpl_x.cbor" || listing != "/debug/eventgen/bank/TransferImpl_x.txt" {
		t.Errorf("Paths() = %s, %s", payload, listing)
	}

	if err := sink.Save(TagEvent, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// overwriting replaces the existing files
	if err := sink.Save(TagEvent, a); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := afero.ReadFile(fs, payload)
	if err != nil || len(got) != len(a.Bytes) {
		t.Errorf("payload = %d bytes, %v", len(got), err)
	}
	text, _ := afero.ReadFile(fs, listing)
	if string(text) != a.Readable() {
		t.Error("listing should match Readable()")
	}
}

func TestDebugSink_Save_ReadOnly(t *testing.T) {
	sink := NewDebugSink(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/debug")
	if err := sink.Save(TagEvent, eventArtifact(t, "bank.X")); err == nil {
		t.Error("expected error writing to a read-only filesystem")
	}
}
