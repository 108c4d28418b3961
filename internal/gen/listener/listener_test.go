package listener

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/eventsys/internal/event"
	"github.com/dshills/eventsys/internal/gen/emit"
	"github.com/dshills/eventsys/internal/gen/eventclass"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/spec"
	"github.com/dshills/eventsys/internal/typedesc"
)

var payment = typedesc.Interface("shop.Payment", []*typedesc.Descriptor{event.EventType},
	typedesc.Method{Name: "getAmount", Returns: typedesc.Int},
	typedesc.Method{Name: "getNote", Returns: typedesc.String},
)

type shop struct {
	calls  int
	amount int
	note   *string
	prop   event.Property
}

func (s *shop) OnPayment(evt event.Event, amount int, note *string) {
	s.calls++
	s.amount = amount
	s.note = note
}

func (s *shop) OnNote(ctx context.Context, evt event.Event, note event.Property) error {
	s.calls++
	s.prop = note
	return nil
}

var errRejected = errors.New("rejected")

func (s *shop) Reject(evt event.Event) error {
	return errRejected
}

var staticCalls int

func onAnyPayment(evt event.Event, amount int) {
	staticCalls += amount
}

type fixture struct {
	emitter   *emit.Emitter
	installer *install.Installer
	loader    *install.Loader
	events    *install.Unit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	e, err := emit.NewEmitter()
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{emitter: e, installer: install.NewInstaller(e), loader: install.NewLoader(t.Name(), nil)}
	f.loader.Expose(emit.OwnerSymbol(reflect.TypeFor[*shop]()), reflect.TypeFor[*shop]())

	s := spec.EventClassSpecification{Type: payment}
	decl, syms, err := eventclass.Synthesize(s, eventclass.NameFor(payment, s.Key()))
	if err != nil {
		t.Fatal(err)
	}
	a, _ := e.Emit(decl, syms)
	if f.events, err = f.installer.InstallArtifact(f.loader, a); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) adapter(t *testing.T, target typedesc.Target, meta spec.ListenerMeta, instance any) *Adapter {
	t.Helper()
	s, err := spec.ListenerSpecFromTarget(target, meta)
	if err != nil {
		t.Fatalf("ListenerSpecFromTarget() error = %v", err)
	}
	decl, syms, err := Synthesize(target, s)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	a, _ := f.emitter.Emit(decl, syms)
	u, err := f.installer.InstallArtifact(f.loader, a)
	if err != nil {
		t.Fatalf("InstallArtifact() error = %v", err)
	}
	ad, err := NewAdapter(u, target, instance)
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	return ad
}

func TestNameFor(t *testing.T) {
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "OnPayment")
	want := "eventsys.generated._github_com_dshills_eventsys_internal_gen_listener_shop_OnPayment"
	if got := NameFor(target); got != want {
		t.Errorf("NameFor() = %s, want %s", got, want)
	}
}

func TestAdapter_Nullability(t *testing.T) {
	f := newFixture(t)
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "OnPayment")
	h := &shop{}
	ad := f.adapter(t, target, spec.ListenerMeta{
		EventType:       payment,
		Names:           []string{"amount", "note"},
		Priority:        event.PriorityHigh,
		Phase:           3,
		IgnoreCancelled: true,
	}, h)

	if ad.Priority() != event.PriorityHigh || ad.Phase() != 3 || !ad.IgnoreCancelled() {
		t.Errorf("accessors = %v %d %v", ad.Priority(), ad.Phase(), ad.IgnoreCancelled())
	}

	// nullable note absent: one call with nil
	evt, _ := f.events.New(5, nil)
	if err := ad.OnEvent(context.Background(), evt); err != nil {
		t.Fatal(err)
	}
	if h.calls != 1 || h.amount != 5 || h.note != nil {
		t.Errorf("after first event: %+v", h)
	}

	// non-nullable amount absent: no call, no error
	evt, _ = f.events.New(nil, "n")
	if err := ad.OnEvent(context.Background(), evt); err != nil {
		t.Fatal(err)
	}
	if h.calls != 1 {
		t.Errorf("calls = %d, want 1", h.calls)
	}

	evt, _ = f.events.New(9, "memo")
	_ = ad.OnEvent(context.Background(), evt)
	if h.calls != 2 || h.note == nil || *h.note != "memo" {
		t.Errorf("after third event: calls=%d note=%v", h.calls, h.note)
	}
}

func TestAdapter_PropertyParameter(t *testing.T) {
	f := newFixture(t)
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "OnNote")
	h := &shop{}
	ad := f.adapter(t, target, spec.ListenerMeta{
		EventType:     payment,
		Names:         []string{"note"},
		PropertyTypes: map[string]typedesc.Type{"note": typedesc.String},
	}, h)

	evt, _ := f.events.New(1, "hello")
	if err := ad.OnEvent(context.Background(), evt); err != nil {
		t.Fatal(err)
	}
	gp, ok := h.prop.(event.GetterProperty)
	if !ok || gp.Get() != "hello" {
		t.Errorf("property = %v", h.prop)
	}
}

func TestAdapter_WrongEventTypeSkips(t *testing.T) {
	f := newFixture(t)
	other := typedesc.Interface("shop.Other", []*typedesc.Descriptor{event.EventType})
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "OnPayment")
	h := &shop{}
	ad := f.adapter(t, target, spec.ListenerMeta{EventType: other, Names: []string{"amount", "note"}}, h)

	evt, _ := f.events.New(5, "x")
	if err := ad.OnEvent(context.Background(), evt); err != nil {
		t.Fatal(err)
	}
	if h.calls != 0 {
		t.Errorf("listener for another event type was called")
	}
}

func TestAdapter_TargetError(t *testing.T) {
	f := newFixture(t)
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "Reject")
	ad := f.adapter(t, target, spec.ListenerMeta{EventType: payment}, &shop{})

	evt, _ := f.events.New(1, "x")
	if err := ad.OnEvent(context.Background(), evt); !errors.Is(err, errRejected) {
		t.Errorf("OnEvent() error = %v, want %v", err, errRejected)
	}
}

func TestAdapter_Static(t *testing.T) {
	f := newFixture(t)
	target, _ := typedesc.StaticFunc(reflect.TypeFor[*shop](), "onAnyPayment", onAnyPayment)
	ad := f.adapter(t, target, spec.ListenerMeta{EventType: payment, Names: []string{"amount"}}, nil)

	staticCalls = 0
	evt, _ := f.events.New(4, nil)
	_ = ad.OnEvent(context.Background(), evt)
	if staticCalls != 4 {
		t.Errorf("staticCalls = %d, want 4", staticCalls)
	}
}

func TestNewAdapter_InstanceErrors(t *testing.T) {
	f := newFixture(t)
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "Reject")
	s, _ := spec.ListenerSpecFromTarget(target, spec.ListenerMeta{EventType: payment})
	decl, syms, _ := Synthesize(target, s)
	a, _ := f.emitter.Emit(decl, syms)
	u, err := f.installer.InstallArtifact(f.loader, a)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewAdapter(u, target, nil); !errors.Is(err, event.ErrConfiguration) {
		t.Errorf("nil instance: error = %v", err)
	}
	if _, err := NewAdapter(u, target, "not a shop"); !errors.Is(err, event.ErrConfiguration) {
		t.Errorf("wrong instance: error = %v", err)
	}
}

func TestNewAdapter_MissingAccessor(t *testing.T) {
	f := newFixture(t)
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "Reject")
	s, _ := spec.ListenerSpecFromTarget(target, spec.ListenerMeta{EventType: payment})
	decl, syms, err := Synthesize(target, s)
	if err != nil {
		t.Fatal(err)
	}
	decl.Name += "_partial"
	decl.Methods = decl.Methods[1:]
	a, _ := f.emitter.Emit(decl, syms)
	u, err := f.installer.InstallArtifact(f.loader, a)
	if err != nil {
		t.Fatal(err)
	}

	ad, err := NewAdapter(u, target, &shop{})
	if err == nil || !strings.Contains(err.Error(), MethodPriority) {
		t.Fatalf("error = %v, want one naming %s", err, MethodPriority)
	}
	if ad != nil {
		t.Errorf("adapter = %v, want nil", ad)
	}
}

func TestSynthesize_OwnerNotVisible(t *testing.T) {
	e, _ := emit.NewEmitter()
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "Reject")
	s, _ := spec.ListenerSpecFromTarget(target, spec.ListenerMeta{EventType: payment})
	decl, syms, err := Synthesize(target, s)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := e.Emit(decl, syms)

	_, err = install.NewInstaller(e).InstallArtifact(install.NewLoader("isolated", nil), a)
	if !errors.Is(err, event.ErrLookup) {
		t.Errorf("error = %v, want lookup error", err)
	}
	if !strings.Contains(err.Error(), "shop") {
		t.Errorf("error %q should name the owner type", err)
	}
}

func TestSynthesize_Invalid(t *testing.T) {
	target, _ := typedesc.MethodOf(reflect.TypeFor[*shop](), "Reject")
	if _, _, err := Synthesize(target, spec.ListenerSpec{}); !errors.Is(err, event.ErrConfiguration) {
		t.Errorf("error = %v, want configuration error", err)
	}
	if _, _, err := Synthesize(typedesc.Target{}, spec.ListenerSpec{EventType: payment}); !errors.Is(err, event.ErrConfiguration) {
		t.Errorf("error = %v, want configuration error", err)
	}
}
