// Package ir defines the typed, register-based mid-level representation
// consumed by the code generator. Values are produced by an earlier frontend
// phase; this package only models them.
package ir

// BuiltinClass identifies classes with specialized runtime layouts.
type BuiltinClass int

const (
	// NotBuiltin marks a regular user-defined class.
	NotBuiltin BuiltinClass = iota
	IntClass
	FloatClass
	StringClass
	ArrayClass
	BoolClass
	NilClass
	ByteArrayClass
	ChannelClass
)

// RegisterID refers to a register within a single method.
type RegisterID int

// NoRegister marks instructions that discard their result.
const NoRegister RegisterID = -1

// RegisterKind describes what a register holds at the ABI level.
type RegisterKind int

const (
	// ValueRegister holds a single tagged pointer-sized word.
	ValueRegister RegisterKind = iota

	// ResultRegister holds a (tag, value) composite as produced by methods
	// that may throw.
	ResultRegister
)

// Register is a typed virtual register local to one method. Each register
// maps to exactly one stack slot in the generated function.
type Register struct {
	ID   RegisterID
	Kind RegisterKind
}

// BlockID refers to a basic block within a single method.
type BlockID int

// Block is a basic block. The final instruction must be a terminator; all
// other instructions must not be.
type Block struct {
	Instructions []Instruction
}

// Successors returns the blocks reachable from this block's terminator.
func (b *Block) Successors() []BlockID {
	if len(b.Instructions) == 0 {
		return nil
	}
	term, ok := b.Instructions[len(b.Instructions)-1].(Terminator)
	if !ok {
		return nil
	}
	return term.Successors()
}

// Field is a user-defined field of a class. Indexes are assigned by the
// frontend and are dense, starting at zero.
type Field struct {
	Name  string
	Index int
}

// Class describes a class and its methods. Builtin classes are defined by
// the standard library but still registered through module setup so their
// method tables exist at runtime.
type Class struct {
	Name    string
	Module  *Module
	Builtin BuiltinClass

	// Process marks async classes. Instances are processes and reserve
	// runtime-internal state between the header and the first field.
	Process bool

	// Closure marks closure classes. Their methods occupy the two reserved
	// table slots and are never hashed.
	Closure bool

	Fields  []*Field
	Methods []*Method
}

// Trait declares a set of abstract methods. Trait methods carry the identity
// that dynamic call sites dispatch on.
type Trait struct {
	Name    string
	Module  *Module
	Methods []*Method
}

// Method is a single compiled function: either a concrete method with a
// body, or an abstract trait method (nil Blocks) that only provides dispatch
// identity.
type Method struct {
	Name  string
	Class *Class // nil for trait methods
	Trait *Trait // nil for class methods

	// Implements points at the trait method this method provides, if any.
	Implements *Method

	// Async methods compile to the context calling convention and can only
	// be invoked through Send.
	Async bool

	// Throws selects the result-composite return convention.
	Throws bool

	// Static methods take no receiver.
	Static bool

	// Arguments lists the registers that receive the function parameters in
	// order. For instance methods the receiver is the first entry. Async
	// methods fill the receiver register from the running process; the
	// remaining arguments arrive through the message.
	Arguments []RegisterID

	Registers []Register
	Blocks    []*Block
}

// ExternReturn describes what an extern function returns.
type ExternReturn int

const (
	ExternReturnsValue ExternReturn = iota
	ExternReturnsNone
)

// ExternFunction declares a function provided by the runtime library or
// another native library, invoked by symbol name.
type ExternFunction struct {
	Name    string
	Params  int
	Returns ExternReturn
}

// Constant is a named module constant. Values are materialized as permanent
// objects during module setup.
type Constant struct {
	Name   string
	Module *Module
	Value  ConstantValue
}

// Module is a single compilation unit.
type Module struct {
	Name    string
	Imports []string

	Classes   []*Class
	Traits    []*Trait
	Constants []*Constant
	Externs   []*ExternFunction
}

// Program is a whole-program view over all modules. Modules appear in
// declaration order; setup functions run in this order at program start.
type Program struct {
	Modules []*Module

	// EntryClass is the process class whose EntryMethod starts the program.
	EntryClass  *Class
	EntryMethod *Method
}

// EachMethod calls fn for every concrete class method in the program, in
// declaration order.
func (p *Program) EachMethod(fn func(*Module, *Class, *Method)) {
	for _, mod := range p.Modules {
		for _, class := range mod.Classes {
			for _, method := range class.Methods {
				fn(mod, class, method)
			}
		}
	}
}
