// Package expr implements the immutable expression tree Sever's
// evaluators (package ad) and lowering builders (package model) consume.
//
// A tree is built once and never mutated afterwards; evaluators walk it
// read-only. The variant kinds form a closed algebraic sum:
// Literal, Variable, Operator, Call, Index, Field, Array, Cast and
// Sample. Evaluators switch on Kind rather than calling an interface
// method per kind; Kind is a plain integer tag, so the compiler does not
// check those switches for exhaustiveness, and each evaluator's default
// branch decides what an unhandled variant does.
package expr

// Kind tags the concrete variant of an Expr.
type Kind int

const (
	KindLiteral Kind = iota
	KindVariable
	KindOperator
	KindCall
	KindIndex
	KindField
	KindArray
	KindCast
	KindSample
)

// String returns the kind's name, chiefly for error messages.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "variable"
	case KindOperator:
		return "operator"
	case KindCall:
		return "call"
	case KindIndex:
		return "index"
	case KindField:
		return "field"
	case KindArray:
		return "array"
	case KindCast:
		return "cast"
	case KindSample:
		return "sample"
	default:
		return "unknown"
	}
}

// Op enumerates the operator kinds an Operator node may carry.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpBitNot
)

// LiteralTag tags the kind of value a Literal node carries.
type LiteralTag int

const (
	LitInt LiteralTag = iota
	LitFloat
	LitBool
	LitString
	LitNull
)

// Expr is an immutable node of the expression tree. Exactly one of the
// per-kind fields is meaningful, selected by Kind; the zero value of the
// others is unused. Expr is built through the constructor functions
// below and never mutated after construction.
type Expr struct {
	kind Kind

	// Literal
	litTag LiteralTag
	litI   int64
	litF   float64
	litB   bool
	litS   string

	// Variable
	name string

	// Operator / Call / Array / Index / Field / Cast / Sample share
	// an ordered argument list.
	op   Op
	args []*Expr

	// Cast target type name and Field selector name. (Call and Sample
	// keep their function / distribution name in `name` above.)
	field string

	// Index: base and index are args[0], args[1].
}

// Kind reports the node's variant.
func (e *Expr) Kind() Kind { return e.kind }

// --- Literal ---

func NewIntLiteral(v int64) *Expr   { return &Expr{kind: KindLiteral, litTag: LitInt, litI: v} }
func NewFloatLiteral(v float64) *Expr { return &Expr{kind: KindLiteral, litTag: LitFloat, litF: v} }
func NewBoolLiteral(v bool) *Expr   { return &Expr{kind: KindLiteral, litTag: LitBool, litB: v} }
func NewStringLiteral(v string) *Expr { return &Expr{kind: KindLiteral, litTag: LitString, litS: v} }
func NewNullLiteral() *Expr          { return &Expr{kind: KindLiteral, litTag: LitNull} }

// LiteralTag reports which literal variant a Literal node holds.
func (e *Expr) LiteralTag() LiteralTag { return e.litTag }

// IntValue returns the literal's integer value (LitInt only).
func (e *Expr) IntValue() int64 { return e.litI }

// FloatValue returns the literal's float value (LitFloat only).
func (e *Expr) FloatValue() float64 { return e.litF }

// BoolValue returns the literal's bool value (LitBool only).
func (e *Expr) BoolValue() bool { return e.litB }

// StringValue returns the literal's string value (LitString only).
func (e *Expr) StringValue() string { return e.litS }

// --- Variable ---

// NewVariable constructs a Variable node referencing name.
func NewVariable(name string) *Expr { return &Expr{kind: KindVariable, name: name} }

// Name returns the referenced name for Variable, Call and Sample nodes.
// A Field node's selector is returned by Field, not Name.
func (e *Expr) Name() string { return e.name }

// --- Operator ---

// NewOperator constructs an Operator node of kind op over args, in order.
func NewOperator(op Op, args ...*Expr) *Expr {
	return &Expr{kind: KindOperator, op: op, args: append([]*Expr(nil), args...)}
}

// Operator returns the operator kind (Operator nodes only).
func (e *Expr) Operator() Op { return e.op }

// Args returns the node's ordered argument list (Operator, Call, Index,
// Field, Array, Cast, Sample).
func (e *Expr) Args() []*Expr { return e.args }

// --- Call ---

// NewCall constructs a Call node invoking name with args, in order.
func NewCall(name string, args ...*Expr) *Expr {
	return &Expr{kind: KindCall, name: name, args: append([]*Expr(nil), args...)}
}

// --- Index ---

// NewIndex constructs an Index node selecting index into base.
func NewIndex(base, index *Expr) *Expr {
	return &Expr{kind: KindIndex, args: []*Expr{base, index}}
}

// Base returns the collection operand of an Index node.
func (e *Expr) Base() *Expr { return e.args[0] }

// IndexArg returns the index operand of an Index node.
func (e *Expr) IndexArg() *Expr { return e.args[1] }

// --- Field ---

// NewField constructs a Field node selecting field off base.
func NewField(base *Expr, field string) *Expr {
	return &Expr{kind: KindField, args: []*Expr{base}, field: field}
}

// Field returns the selected field name (Field nodes only).
func (e *Expr) Field() string { return e.field }

// --- Array ---

// NewArray constructs an Array literal node from elems, in order.
func NewArray(elems ...*Expr) *Expr {
	return &Expr{kind: KindArray, args: append([]*Expr(nil), elems...)}
}

// --- Cast ---

// NewCast constructs a Cast node converting value to typ.
func NewCast(typ string, value *Expr) *Expr {
	return &Expr{kind: KindCast, field: typ, args: []*Expr{value}}
}

// CastType returns the target type name (Cast nodes only).
func (e *Expr) CastType() string { return e.field }

// CastValue returns the operand being cast (Cast nodes only).
func (e *Expr) CastValue() *Expr { return e.args[0] }

// --- Sample ---

// NewSample constructs a Sample node drawing from the named distribution
// with the given parameter arguments, in order.
func NewSample(distribution string, params ...*Expr) *Expr {
	return &Expr{kind: KindSample, name: distribution, args: append([]*Expr(nil), params...)}
}
