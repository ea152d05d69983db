package luabridge

// ArithOp identifies an arithmetic, bitwise or concatenation operator
// dispatched to a host object.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpIDiv
	OpBAnd
	OpBOr
	OpBXor
	OpBNot
	OpShl
	OpShr
	OpConcat
)

var arithOpNames = [...]string{
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpDiv:    "div",
	OpMod:    "mod",
	OpPow:    "pow",
	OpNeg:    "unm",
	OpIDiv:   "idiv",
	OpBAnd:   "band",
	OpBOr:    "bor",
	OpBXor:   "bxor",
	OpBNot:   "bnot",
	OpShl:    "shl",
	OpShr:    "shr",
	OpConcat: "concat",
}

func (op ArithOp) String() string {
	if int(op) < len(arithOpNames) {
		return arithOpNames[op]
	}
	return "unknown"
}

// IsUnary reports whether the operator takes no right-hand operand.
func (op ArithOp) IsUnary() bool {
	return op == OpNeg || op == OpBNot
}

// The capability interfaces below are the generic operator protocol of the
// bridge. The dispatcher checks which of them a wrapped host object
// implements instead of probing members by name; an object may implement
// any subset.

// Gettable is implemented by host objects that support indexed reads.
// A missing member is reported with an error matching errors.KeyNotFound;
// the dispatcher translates it to nil on the interpreter side so scripts
// can probe for optional members.
type Gettable interface {
	Get(key any) (any, error)
}

// Settable is implemented by host objects that support indexed writes.
type Settable interface {
	Set(key, value any) error
}

// Callable is implemented by host objects that can be invoked. A result of
// type []any is expanded into multiple interpreter return values; any other
// result becomes a single return value.
type Callable interface {
	Call(args ...any) (any, error)
}

// Lengthable is implemented by host objects with a length.
type Lengthable interface {
	Len() (int, error)
}

// Comparable is implemented by host objects supporting equality and
// ordering against arbitrary operands.
type Comparable interface {
	Equal(other any) (bool, error)
	Less(other any) (bool, error)
}

// Stringable is implemented by host objects with a custom string form.
// It is satisfied by fmt.Stringer.
type Stringable interface {
	String() string
}

// Arithmetic is implemented by host objects supporting operator dispatch.
// rhs is nil for unary operators.
type Arithmetic interface {
	Arith(op ArithOp, rhs any) (any, error)
}

// Func adapts a plain Go function to the Callable capability, so it can be
// defined as a global or exposed in a module and called from scripts.
type Func func(args ...any) (any, error)

// Call implements Callable.
func (f Func) Call(args ...any) (any, error) {
	return f(args...)
}
