package event

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/eventsys/internal/typedesc"
)

func TestPriority_String(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityFirst, "first"},
		{PriorityNormal, "normal"},
		{PriorityLast, "last"},
		{Priority(99), "unknown"},
		{Priority(-1), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Priority(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority(" High ")
	if !ok || p != PriorityHigh {
		t.Errorf("ParsePriority(High) = %v, %v", p, ok)
	}
	p, ok = ParsePriority("urgent")
	if ok || p != PriorityNormal {
		t.Errorf("ParsePriority(urgent) = %v, %v", p, ok)
	}
}

func TestValueProperty(t *testing.T) {
	p := NewValueProperty("amount", typedesc.Int, 1)

	if err := p.Set(int64(7)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if p.Get() != 7 {
		t.Errorf("Get() = %#v, want 7", p.Get())
	}
	if err := p.Set("seven"); err == nil {
		t.Error("expected error setting a string on an int property")
	}
}

func TestFuncProperty_ReadOnly(t *testing.T) {
	p := NewFuncProperty("id", typedesc.String, func() any { return "x" }, nil)

	if p.Writable() {
		t.Error("Writable() = true for read-only property")
	}
	if err := p.Set("y"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Set() error = %v, want ErrReadOnly", err)
	}
	if p.Get() != "x" {
		t.Errorf("Get() = %v", p.Get())
	}
}

func TestFindProperty(t *testing.T) {
	props := []Property{
		NewValueProperty("amount", typedesc.Int, 1),
		NewValueProperty("memo", typedesc.String, "hi"),
	}

	if _, ok := FindProperty(props, "amount", typedesc.Int); !ok {
		t.Error("expected amount:int")
	}
	if _, ok := FindProperty(props, "amount", typedesc.String); ok {
		t.Error("amount:string should not match")
	}
	if _, ok := FindProperty(props, "amount", typedesc.Any); !ok {
		t.Error("amount:any should match")
	}
	if _, ok := FindProperty(props, "missing", nil); ok {
		t.Error("missing should not match")
	}
}

func TestCancellableType(t *testing.T) {
	if !CancellableType.AssignableTo(EventType) {
		t.Error("Cancellable should extend Event")
	}
	if _, ok := CancellableType.Method("isCancelled"); !ok {
		t.Error("Cancellable should declare isCancelled")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Type: "bank.Factory", Method: "create", Parameter: "amount", Reason: "no match"}

	if !errors.Is(err, ErrConfiguration) {
		t.Error("ConfigError should match ErrConfiguration")
	}
	msg := err.Error()
	for _, want := range []string{"bank.Factory.create", "parameter amount", "no match"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestInstallError(t *testing.T) {
	err := &InstallError{Name: "a.B", Loader: "root", Err: ErrDuplicateArtifact}

	if !errors.Is(err, ErrInstallation) {
		t.Error("InstallError should match ErrInstallation")
	}
	if !errors.Is(err, ErrDuplicateArtifact) {
		t.Error("InstallError should unwrap to ErrDuplicateArtifact")
	}
	var ie *InstallError
	if !errors.As(err, &ie) || ie.Name != "a.B" {
		t.Error("errors.As should find the InstallError")
	}
}

func TestLookupError(t *testing.T) {
	err := &LookupError{Symbol: "pkg.Owner", Loader: "child"}
	if !errors.Is(err, ErrLookup) {
		t.Error("LookupError should match ErrLookup")
	}
	if !strings.Contains(err.Error(), "pkg.Owner") {
		t.Errorf("Error() = %q", err.Error())
	}
}
