// Package emit is the code-emission backend. Synthesizers describe the type
// they want as a TypeDecl; the Emitter encodes it into a binary payload and
// a human-readable listing. The installer decodes and links declarations.
//
// Method bodies are restricted to a fixed set of single operations: field
// access, constants, static delegation, construction and listener dispatch.
package emit

// Artifact kinds.
const (
	KindEvent    = "event"
	KindFactory  = "factory"
	KindListener = "listener"
)

// OpCode selects the operation a method body performs.
type OpCode uint8

const (
	// OpLoadField returns the value of Field.
	OpLoadField OpCode = iota + 1

	// OpStoreField stores argument 0 into Field.
	OpStoreField

	// OpReturnConst returns Const, coerced to the method's return type.
	OpReturnConst

	// OpInvokeStatic calls the static body Symbol with the receiving object
	// followed by the method arguments.
	OpInvokeStatic

	// OpInvokeDefault calls the default body Symbol with the receiving
	// object as self.
	OpInvokeDefault

	// OpConstruct instantiates the unit Symbol with Args.
	OpConstruct

	// OpDispatch resolves Fetch against the event argument and calls the
	// listener target Symbol.
	OpDispatch
)

var opNames = map[OpCode]string{
	OpLoadField:     "load",
	OpStoreField:    "store",
	OpReturnConst:   "const",
	OpInvokeStatic:  "invokestatic",
	OpInvokeDefault: "invokedefault",
	OpConstruct:     "new",
	OpDispatch:      "dispatch",
}

// String returns the mnemonic.
func (c OpCode) String() string {
	if s, ok := opNames[c]; ok {
		return s
	}
	return "unknown"
}

// ArgKind selects where a constructor argument comes from.
type ArgKind uint8

const (
	// ArgParam takes method argument Index.
	ArgParam ArgKind = iota + 1

	// ArgLiteral uses Literal.
	ArgLiteral
)

// Arg is a constructor argument.
type Arg struct {
	Kind    ArgKind `cbor:"1,keyasint"`
	Index   int     `cbor:"2,keyasint,omitempty"`
	Literal any     `cbor:"3,keyasint"`
}

// Fetch resolves one listener parameter from the event.
type Fetch struct {
	Name     string `cbor:"1,keyasint"`
	Type     string `cbor:"2,keyasint"`
	Nullable bool   `cbor:"3,keyasint,omitempty"`
	Property bool   `cbor:"4,keyasint,omitempty"`
}

// Op is a method body.
type Op struct {
	Code   OpCode  `cbor:"1,keyasint"`
	Field  string  `cbor:"2,keyasint,omitempty"`
	Symbol string  `cbor:"3,keyasint,omitempty"`
	Const  any     `cbor:"4,keyasint"`
	Args   []Arg   `cbor:"5,keyasint,omitempty"`
	Fetch  []Fetch `cbor:"6,keyasint,omitempty"`
}

// Field is an instance field. Type is a symbol naming its type.
type Field struct {
	Name    string `cbor:"1,keyasint"`
	Type    string `cbor:"2,keyasint"`
	Mutable bool   `cbor:"3,keyasint,omitempty"`
}

// Method is a method declaration. Params and Returns are type symbols;
// an empty Returns means no result.
type Method struct {
	Name    string   `cbor:"1,keyasint"`
	Params  []string `cbor:"2,keyasint,omitempty"`
	Returns string   `cbor:"3,keyasint,omitempty"`
	Body    Op       `cbor:"4,keyasint"`
}

// TypeDecl is the abstract description of a synthesized type.
type TypeDecl struct {
	// Name is the fully-qualified artifact name.
	Name string `cbor:"1,keyasint"`

	Kind string `cbor:"2,keyasint"`

	// Implements lists the capability symbols the type implements. The
	// first entry is the primary type.
	Implements []string `cbor:"3,keyasint,omitempty"`

	Fields []Field `cbor:"4,keyasint,omitempty"`

	// Ctor lists the field names bound by the constructor, in order.
	Ctor []string `cbor:"5,keyasint,omitempty"`

	Methods []Method `cbor:"6,keyasint,omitempty"`

	// Requires lists symbols that must be visible from the installing
	// loader rather than bundled with the artifact.
	Requires []string `cbor:"7,keyasint,omitempty"`
}

// Method returns the method named name.
func (d *TypeDecl) Method(name string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// FieldIndex returns the index of the named field, or -1.
func (d *TypeDecl) FieldIndex(name string) int {
	for i, f := range d.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Symbols is the link table bundled with an artifact: type symbols map to
// typedesc.Type, static and default bodies to typedesc.Body, constructed
// units and listener targets to their runtime values.
type Symbols map[string]any
