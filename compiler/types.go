package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

// Types holds the LLVM shapes of the runtime object model. One set is built
// per module compilation, as LLVM types are owned by their context.
//
// Pointers are all opaque; the structs here exist so loads, stores and GEPs
// can name the layout they operate on.
type Types struct {
	Pointer llvm.Type
	Void    llvm.Type

	// Header is { class: ptr, kind: i8, refs: i32 }.
	Header llvm.Type

	// Method is one method table slot: { hash: i64, code: ptr }.
	Method llvm.Type

	// State mirrors the leading, generated-code-visible fields of the
	// runtime state struct. The runtime appends private fields after these,
	// which is fine as the state is only ever used through pointers.
	State llvm.Type

	// Context is the argument to async methods: { state, process, args }.
	Context llvm.Type

	// MethodCounts is one i16 per built-in class, passed to runtime_new.
	MethodCounts llvm.Type

	// Message is { method: ptr, length: i8, args: [0 x ptr] }.
	Message llvm.Type

	// Result is the by-value return of throwing methods: { tag: i8, value:
	// ptr }.
	Result llvm.Type

	// RuntimeResult is the by-value return of fallible runtime calls. The
	// tag is a word rather than a byte.
	RuntimeResult llvm.Type

	// BoxedInt and BoxedFloat describe heap instances of the scalar
	// classes, with the payload directly after the header.
	BoxedInt   llvm.Type
	BoxedFloat llvm.Type

	// EmptyClass is a class object with a zero-length method table, used to
	// index into classes only known at run time.
	EmptyClass llvm.Type

	// Classes maps every class to its class object type, method table
	// included. Instances maps every class to its heap instance type.
	Classes   map[*ir.Class]llvm.Type
	Instances map[*ir.Class]llvm.Type
}

func NewTypes(ctx llvm.Context, layouts *Layouts, program *ir.Program) *Types {
	ptr := llvm.PointerType(ctx.Int8Type(), 0)

	types := &Types{
		Pointer: ptr,
		Void:    ctx.VoidType(),
		Header: ctx.StructType([]llvm.Type{
			ptr,             // class
			ctx.Int8Type(),  // kind
			ctx.Int32Type(), // references
		}, false),
		Method: ctx.StructType([]llvm.Type{
			ctx.Int64Type(), // hash
			ptr,             // code
		}, false),
		Context: ctx.StructType([]llvm.Type{
			ptr, // state
			ptr, // process
			ptr, // arguments
		}, false),
		Message: ctx.StructType([]llvm.Type{
			ptr,                    // method
			ctx.Int8Type(),         // length
			llvm.ArrayType(ptr, 0), // arguments
		}, false),
		Result: ctx.StructType([]llvm.Type{
			ctx.Int8Type(), // tag
			ptr,            // value
		}, false),
		RuntimeResult: ctx.StructType([]llvm.Type{
			ctx.Int64Type(), // tag
			ptr,             // value
		}, false),
		Classes:   make(map[*ir.Class]llvm.Type),
		Instances: make(map[*ir.Class]llvm.Type),
	}

	types.BoxedInt = ctx.StructType([]llvm.Type{
		types.Header,
		ctx.Int64Type(),
	}, false)
	types.BoxedFloat = ctx.StructType([]llvm.Type{
		types.Header,
		ctx.DoubleType(),
	}, false)

	statePtrs := make([]llvm.Type, abi.StateHashKey1Index+1)
	for i := range statePtrs {
		statePtrs[i] = ptr
	}
	types.State = ctx.StructType(statePtrs, false)

	counts := make([]llvm.Type, 8)
	for i := range counts {
		counts[i] = ctx.Int16Type()
	}
	types.MethodCounts = ctx.StructType(counts, false)

	types.EmptyClass = types.classType(ctx, 0)

	// Instance structs are forward-declared first so field types can refer
	// to other classes regardless of declaration order.
	for _, mod := range program.Modules {
		for _, class := range mod.Classes {
			name := mod.Name + "::" + class.Name
			types.Classes[class] = types.namedClassType(
				ctx,
				name+"::class",
				layouts.Classes[class].MethodTableSize,
			)
			types.Instances[class] = ctx.StructCreateNamed(name)
		}
	}

	for _, mod := range program.Modules {
		for _, class := range mod.Classes {
			types.Instances[class].StructSetBody(types.instanceBody(ctx, layouts, class), false)
		}
	}

	return types
}

// classType returns the class object struct for a table with the given slot
// count: { name, instance_size: i32, method_count: i16, methods: [N x slot] }.
func (t *Types) classType(ctx llvm.Context, slots int) llvm.Type {
	return ctx.StructType([]llvm.Type{
		t.Pointer,                       // name
		ctx.Int32Type(),                 // instance size
		ctx.Int16Type(),                 // method count
		llvm.ArrayType(t.Method, slots), // method table
	}, false)
}

func (t *Types) namedClassType(ctx llvm.Context, name string, slots int) llvm.Type {
	typ := ctx.StructCreateNamed(name)
	typ.StructSetBody([]llvm.Type{
		t.Pointer,
		ctx.Int32Type(),
		ctx.Int16Type(),
		llvm.ArrayType(t.Method, slots),
	}, false)
	return typ
}

func (t *Types) instanceBody(ctx llvm.Context, layouts *Layouts, class *ir.Class) []llvm.Type {
	switch class.Builtin {
	case ir.IntClass:
		return []llvm.Type{t.Header, ctx.Int64Type()}
	case ir.FloatClass:
		return []llvm.Type{t.Header, ctx.DoubleType()}
	case ir.BoolClass, ir.NilClass:
		return []llvm.Type{t.Header}
	case ir.StringClass:
		return []llvm.Type{t.Header, ctx.Int64Type(), t.Pointer}
	case ir.ArrayClass, ir.ByteArrayClass:
		// The payload is a runtime-owned vector; generated code never
		// reaches into it.
		return []llvm.Type{t.Header, llvm.ArrayType(ctx.Int8Type(), 24)}
	case ir.ChannelClass:
		return []llvm.Type{t.Header, t.Pointer}
	}

	fields := []llvm.Type{t.Header}

	// Processes reserve space for runtime-internal state between the header
	// and the first user field. The generated code never touches it, so a
	// byte array covering it is enough.
	if class.Process {
		reserved := layouts.Target.ProcessSize - abi.HeaderSize
		fields = append(fields, llvm.ArrayType(ctx.Int8Type(), reserved))
	}

	for range class.Fields {
		fields = append(fields, t.Pointer)
	}

	return fields
}

// SyncSignature returns the function type of a synchronous method: (state,
// process, [receiver,] args...) returning a value or, for throwing methods,
// a result by value. The receiver, when present, is the method's first
// argument register, so no extra parameter is added for it.
func (t *Types) SyncSignature(method *ir.Method) llvm.Type {
	params := []llvm.Type{t.Pointer, t.Pointer}

	for range method.Arguments {
		params = append(params, t.Pointer)
	}

	if method.Throws {
		return llvm.FunctionType(t.Result, params, false)
	}
	return llvm.FunctionType(t.Pointer, params, false)
}

// AsyncSignature returns the function type of an asynchronous method. The
// arguments travel inside the context's message, not on the call stack.
func (t *Types) AsyncSignature() llvm.Type {
	return llvm.FunctionType(t.Void, []llvm.Type{t.Pointer}, false)
}

// Signature returns the native function type matching the method's calling
// convention.
func (t *Types) Signature(method *ir.Method) llvm.Type {
	if method.Async {
		return t.AsyncSignature()
	}
	return t.SyncSignature(method)
}

// SetupSignature is the type of per-module setup functions.
func (t *Types) SetupSignature() llvm.Type {
	return llvm.FunctionType(t.Void, []llvm.Type{t.Pointer}, false)
}
