package emit

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Artifact is the output of the emitter.
type Artifact struct {
	// Decl is the declaration the payload encodes.
	Decl *TypeDecl

	// Bytes is the binary payload.
	Bytes []byte

	// Symbols is the bundled link table.
	Symbols Symbols

	readable func() string
}

// Name returns the fully-qualified artifact name.
func (a *Artifact) Name() string {
	return a.Decl.Name
}

// Readable returns the human-readable listing. It is rendered on first use.
func (a *Artifact) Readable() string {
	if a.readable == nil {
		return Render(a.Decl)
	}
	return a.readable()
}

// Emitter encodes declarations. It is safe for concurrent use.
type Emitter struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewEmitter creates an emitter producing deterministic payloads.
func NewEmitter() (*Emitter, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return &Emitter{enc: enc, dec: dec}, nil
}

// Emit encodes decl and bundles symbols with it.
func (e *Emitter) Emit(decl *TypeDecl, symbols Symbols) (*Artifact, error) {
	if decl == nil || decl.Name == "" {
		return nil, fmt.Errorf("emit: declaration has no name")
	}
	payload, err := e.enc.Marshal(decl)
	if err != nil {
		return nil, fmt.Errorf("emit %s: %w", decl.Name, err)
	}
	return &Artifact{
		Decl:     decl,
		Bytes:    payload,
		Symbols:  symbols,
		readable: sync.OnceValue(func() string { return Render(decl) }),
	}, nil
}

// Decode parses a payload produced by Emit.
func (e *Emitter) Decode(payload []byte) (*TypeDecl, error) {
	var decl TypeDecl
	if err := e.dec.Unmarshal(payload, &decl); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &decl, nil
}

// Render produces the human-readable listing of decl.
func Render(decl *TypeDecl) string {
	var b strings.Builder

	fmt.Fprintf(&b, "// %s artifact\n", decl.Kind)
	fmt.Fprintf(&b, "type %s struct", decl.Name)
	if len(decl.Implements) > 0 {
		fmt.Fprintf(&b, " // implements %s", strings.Join(decl.Implements, ", "))
	}
	b.WriteString(" {\n")
	for _, f := range decl.Fields {
		mut := ""
		if f.Mutable {
			mut = " // mutable"
		}
		fmt.Fprintf(&b, "\t%s %s%s\n", f.Name, f.Type, mut)
	}
	b.WriteString("}\n")

	if len(decl.Requires) > 0 {
		reqs := append([]string(nil), decl.Requires...)
		sort.Strings(reqs)
		fmt.Fprintf(&b, "\n// requires %s\n", strings.Join(reqs, ", "))
	}

	if len(decl.Ctor) > 0 {
		fmt.Fprintf(&b, "\nfunc new(%s)\n", strings.Join(decl.Ctor, ", "))
	}

	for _, m := range decl.Methods {
		fmt.Fprintf(&b, "\nfunc (this) %s(%s)", m.Name, strings.Join(m.Params, ", "))
		if m.Returns != "" {
			fmt.Fprintf(&b, " %s", m.Returns)
		}
		b.WriteString(" {\n\t")
		b.WriteString(renderOp(m.Body))
		b.WriteString("\n}\n")
	}
	return b.String()
}

func renderOp(op Op) string {
	switch op.Code {
	case OpLoadField:
		return "return this." + op.Field
	case OpStoreField:
		return "this." + op.Field + " = $0"
	case OpReturnConst:
		return fmt.Sprintf("return %v", op.Const)
	case OpInvokeStatic:
		return "return " + op.Symbol + "(this, $...)"
	case OpInvokeDefault:
		return "return this." + op.Symbol + "($...)"
	case OpConstruct:
		args := make([]string, len(op.Args))
		for i, a := range op.Args {
			switch a.Kind {
			case ArgParam:
				args[i] = fmt.Sprintf("$%d", a.Index)
			default:
				args[i] = fmt.Sprintf("%v", a.Literal)
			}
		}
		return "return new " + op.Symbol + "(" + strings.Join(args, ", ") + ")"
	case OpDispatch:
		parts := make([]string, len(op.Fetch))
		for i, f := range op.Fetch {
			mode := "value"
			if f.Property {
				mode = "property"
			}
			null := "skip"
			if f.Nullable {
				null = "nil"
			}
			parts[i] = fmt.Sprintf("%s %s:%s ?%s", mode, f.Name, f.Type, null)
		}
		return "dispatch " + op.Symbol + "(event, " + strings.Join(parts, ", ") + ")"
	default:
		return "// " + op.Code.String()
	}
}
