package ir

// Instruction is a single IR operation. Instructions read and write
// registers; control flow is expressed through terminators.
type Instruction interface {
	instruction()
}

// Terminator is an instruction that ends a basic block.
type Terminator interface {
	Instruction
	Successors() []BlockID
}

// Literal and value instructions.

// Int stores an integer literal into a register.
type Int struct {
	Register RegisterID
	Value    int64
}

// Float stores a float literal into a register.
type Float struct {
	Register RegisterID
	Value    float64
}

// String stores a string literal into a register. The literal is
// materialized as a permanent string.
type String struct {
	Register RegisterID
	Value    string
}

// Bool stores the true or false singleton into a register.
type Bool struct {
	Register RegisterID
	Value    bool
}

// Nil stores the nil singleton into a register.
type Nil struct {
	Register RegisterID
}

// MoveRegister copies Source into Target.
type MoveRegister struct {
	Source RegisterID
	Target RegisterID
}

// GetConstant loads a module constant into a register.
type GetConstant struct {
	Register RegisterID
	Constant *Constant
}

// Allocate heap-allocates an instance of Class and stores the owned pointer.
type Allocate struct {
	Register RegisterID
	Class    *Class
}

// Spawn creates a new process of the given async class.
type Spawn struct {
	Register RegisterID
	Class    *Class
}

// Free releases an object's memory without running any dropper.
type Free struct {
	Register RegisterID
}

// Reference produces a borrow of Value: the reference count is incremented
// and the result word carries the ref tag bit.
type Reference struct {
	Register RegisterID
	Value    RegisterID
}

// Increment increments a non-shared object's reference count.
type Increment struct {
	Register RegisterID
}

// Decrement decrements a non-shared object's reference count.
type Decrement struct {
	Register RegisterID
}

// IncrementAtomic increments a shared object's reference count with
// acquire-release ordering.
type IncrementAtomic struct {
	Register RegisterID
}

// CheckRefs verifies no references remain before an object is dropped and
// panics otherwise.
type CheckRefs struct {
	Register RegisterID
}

// Field instructions.

// GetField loads a field from an instance of Class.
type GetField struct {
	Register RegisterID
	Receiver RegisterID
	Class    *Class
	Field    *Field
}

// SetField stores Value into a field of an instance of Class.
type SetField struct {
	Receiver RegisterID
	Class    *Class
	Field    *Field
	Value    RegisterID
}

// FieldPointer stores the address of a field into a register.
type FieldPointer struct {
	Register RegisterID
	Receiver RegisterID
	Class    *Class
	Field    *Field
}

// Raw pointer instructions.

// Pointer stores the address of another register's stack slot.
type Pointer struct {
	Register RegisterID
	Value    RegisterID
}

// ReadPointer reads a value word from a raw address.
type ReadPointer struct {
	Register RegisterID
	Address  RegisterID
}

// WritePointer writes a value word to a raw address.
type WritePointer struct {
	Address RegisterID
	Value   RegisterID
}

// Call instructions.

// CallStatic calls a statically resolved method without dispatch.
type CallStatic struct {
	Register  RegisterID
	Method    *Method
	Arguments []RegisterID
}

// CallInstance calls a method on a receiver whose class is statically known.
type CallInstance struct {
	Register  RegisterID
	Receiver  RegisterID
	Method    *Method
	Arguments []RegisterID
}

// CallDynamic calls a trait method on a receiver whose class is only known
// at runtime, using hash-based dispatch.
type CallDynamic struct {
	Register  RegisterID
	Receiver  RegisterID
	Method    *Method
	Arguments []RegisterID
}

// CallClosure calls a closure through its reserved call slot.
type CallClosure struct {
	Register  RegisterID
	Receiver  RegisterID
	Arguments []RegisterID
}

// CallDropper calls a value's dropper through its reserved table slot.
type CallDropper struct {
	Register RegisterID
	Receiver RegisterID
}

// CallExtern calls a function provided by the runtime or another native
// library.
type CallExtern struct {
	Register  RegisterID
	Function  *ExternFunction
	Arguments []RegisterID
}

// CallBuiltin applies a built-in operation.
type CallBuiltin struct {
	Register  RegisterID
	Builtin   Builtin
	Arguments []RegisterID
}

// Send delivers an async message to a process. It never blocks and produces
// no value.
type Send struct {
	Receiver  RegisterID
	Method    *Method
	Arguments []RegisterID
}

// ResultValue extracts the value component from a result composite.
type ResultValue struct {
	Register RegisterID
	Value    RegisterID
}

// Preempt is a cooperative scheduling point.
type Preempt struct{}

// Terminators.

// Goto jumps unconditionally.
type Goto struct {
	Block BlockID
}

// Branch jumps to IfTrue when Condition holds the true singleton.
type Branch struct {
	Condition RegisterID
	IfTrue    BlockID
	IfFalse   BlockID
}

// Switch jumps to Blocks[n] for an integer condition with value n.
type Switch struct {
	Value  RegisterID
	Blocks []BlockID
}

// BranchResult branches on a result composite's tag.
type BranchResult struct {
	Value RegisterID
	Ok    BlockID
	Error BlockID
}

// DecrementAtomic decrements a shared object's reference count and branches
// on whether the count reached zero.
type DecrementAtomic struct {
	Register RegisterID
	Zero     BlockID
	NonZero  BlockID
}

// Return returns a value. In a throwing method the value is wrapped in an
// ok-tagged result.
type Return struct {
	Value RegisterID
}

// Throw returns an error-tagged result. Only valid in throwing methods.
type Throw struct {
	Value RegisterID
}

// Finish signals completion of the current message. Only valid in async
// methods.
type Finish struct {
	Terminate bool
}

func (Int) instruction()             {}
func (Float) instruction()           {}
func (String) instruction()          {}
func (Bool) instruction()            {}
func (Nil) instruction()             {}
func (MoveRegister) instruction()    {}
func (GetConstant) instruction()     {}
func (Allocate) instruction()        {}
func (Spawn) instruction()           {}
func (Free) instruction()            {}
func (Reference) instruction()       {}
func (Increment) instruction()       {}
func (Decrement) instruction()       {}
func (IncrementAtomic) instruction() {}
func (CheckRefs) instruction()       {}
func (GetField) instruction()        {}
func (SetField) instruction()        {}
func (FieldPointer) instruction()    {}
func (Pointer) instruction()         {}
func (ReadPointer) instruction()     {}
func (WritePointer) instruction()    {}
func (CallStatic) instruction()      {}
func (CallInstance) instruction()    {}
func (CallDynamic) instruction()     {}
func (CallClosure) instruction()     {}
func (CallDropper) instruction()     {}
func (CallExtern) instruction()      {}
func (CallBuiltin) instruction()     {}
func (Send) instruction()            {}
func (ResultValue) instruction()     {}
func (Preempt) instruction()         {}
func (Goto) instruction()            {}
func (Branch) instruction()          {}
func (Switch) instruction()          {}
func (BranchResult) instruction()    {}
func (DecrementAtomic) instruction() {}
func (Return) instruction()          {}
func (Throw) instruction()           {}
func (Finish) instruction()          {}

func (g Goto) Successors() []BlockID { return []BlockID{g.Block} }

func (b Branch) Successors() []BlockID { return []BlockID{b.IfTrue, b.IfFalse} }

func (s Switch) Successors() []BlockID { return s.Blocks }

func (b BranchResult) Successors() []BlockID { return []BlockID{b.Ok, b.Error} }

func (d DecrementAtomic) Successors() []BlockID { return []BlockID{d.Zero, d.NonZero} }

func (Return) Successors() []BlockID { return nil }

func (Throw) Successors() []BlockID { return nil }

func (Finish) Successors() []BlockID { return nil }
