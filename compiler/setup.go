package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

// compileSetup emits the module's setup function. It runs once at program
// start, before any message is scheduled: it creates the module's class
// objects, fills their method tables, and materializes constants and
// interned literals as permanent objects.
func (c *Compiler) compileSetup() {
	fn := c.setupFunction(c.mod)
	entry := c.ctx.AddBasicBlock(fn.value, "")
	c.builder.SetInsertPointAtEnd(entry)

	state := fn.value.Params()[0]

	for _, class := range c.mod.Classes {
		c.setupClass(state, class)
	}

	for _, constant := range c.mod.Constants {
		value := c.permanentValue(state, constant.Value)
		c.builder.CreateStore(value, c.constantGlobal(constant))
	}

	// Literals were interned while lowering method bodies, so these globals
	// exist by now.
	for _, lit := range c.literals {
		c.builder.CreateStore(c.permanentValue(state, lit.value), lit.global)
	}

	c.builder.CreateRetVoid()
}

// setupClass creates or resolves the class object and writes every method's
// (hash, code) pair into its table slot.
func (c *Compiler) setupClass(state llvm.Value, class *ir.Class) {
	layout := c.layouts.Classes[class]

	var obj llvm.Value
	if index, ok := builtinClassIndex(class.Builtin); ok {
		// The runtime allocates the built-in class objects; their tables
		// are sized through the counts passed to runtime creation.
		obj = c.loadStateField(state, index)
	} else {
		name := c.stringBytes(class.Name)
		size := llvm.ConstInt(c.ctx.Int32Type(), uint64(layout.InstanceSize), false)
		methods := llvm.ConstInt(c.ctx.Int16Type(), uint64(layout.MethodTableSize), false)

		create := ClassObject
		if class.Process {
			create = ClassProcess
		}

		obj = c.callRuntime(create, []llvm.Value{name, size, methods}, class.Name)
	}

	c.builder.CreateStore(obj, c.classGlobal(class))

	for _, method := range class.Methods {
		info := c.layouts.Methods[method]
		slot := llvm.ConstInt(c.ctx.Int32Type(), uint64(info.Index), false)
		entry := c.methodSlot(obj, slot)

		hash := c.builder.CreateStructGEP(c.types.Method, entry, abi.MethodHashIndex, "")
		c.builder.CreateStore(llvm.ConstInt(c.ctx.Int64Type(), info.Hash, false), hash)

		code := c.builder.CreateStructGEP(c.types.Method, entry, abi.MethodFunctionIndex, "")
		c.builder.CreateStore(c.methodFunction(method).value, code)
	}
}

// permanentValue materializes a constant value as a permanent object.
// Arrays build depth first, so element objects exist before the pushes.
func (c *Compiler) permanentValue(state llvm.Value, value ir.ConstantValue) llvm.Value {
	switch v := value.(type) {
	case ir.IntValue:
		if abi.FitsInt(int64(v)) {
			word := llvm.ConstInt(c.ctx.Int64Type(), uint64(abi.TagInt(int64(v))), false)
			return c.builder.CreateIntToPtr(word, c.types.Pointer, "")
		}

		class := c.loadStateField(state, abi.StateIntClassIndex)
		return c.callRuntime(IntBoxedPermanent, []llvm.Value{class, constInt64(c.ctx, int64(v))}, "")
	case ir.FloatValue:
		class := c.loadStateField(state, abi.StateFloatClassIndex)
		payload := llvm.ConstFloat(c.ctx.DoubleType(), float64(v))
		return c.callRuntime(FloatBoxedPermanent, []llvm.Value{class, payload}, "")
	case ir.StringValue:
		bytes := c.stringBytes(string(v))
		size := llvm.ConstInt(c.ctx.Int64Type(), uint64(len(v)), false)
		return c.callRuntime(StringNewPermanent, []llvm.Value{state, bytes, size}, "")
	case ir.ArrayValue:
		length := llvm.ConstInt(c.ctx.Int64Type(), uint64(len(v)), false)
		arr := c.callRuntime(ArrayNewPermanent, []llvm.Value{state, length}, "")

		for _, elem := range v {
			c.callRuntime(ArrayPush, []llvm.Value{state, arr, c.permanentValue(state, elem)}, "")
		}

		return arr
	default:
		panic("constant values are ints, floats, strings or arrays")
	}
}

func (c *Compiler) loadStateField(state llvm.Value, index int) llvm.Value {
	field := c.builder.CreateStructGEP(c.types.State, state, index, "")
	return c.builder.CreateLoad(c.types.Pointer, field, "")
}

// methodSlot returns the address of a method table slot for a class object
// value.
func (c *Compiler) methodSlot(class llvm.Value, slot llvm.Value) llvm.Value {
	i32 := c.ctx.Int32Type()

	return c.builder.CreateInBoundsGEP(
		c.types.EmptyClass,
		class,
		[]llvm.Value{
			llvm.ConstInt(i32, 0, false),
			llvm.ConstInt(i32, abi.ClassMethodsIndex, false),
			slot,
		},
		"",
	)
}

// builtinClassIndex maps a built-in class to the state field holding its
// runtime-created class object.
func builtinClassIndex(builtin ir.BuiltinClass) (int, bool) {
	switch builtin {
	case ir.IntClass:
		return abi.StateIntClassIndex, true
	case ir.FloatClass:
		return abi.StateFloatClassIndex, true
	case ir.StringClass:
		return abi.StateStringClassIndex, true
	case ir.ArrayClass:
		return abi.StateArrayClassIndex, true
	case ir.BoolClass:
		return abi.StateBoolClassIndex, true
	case ir.NilClass:
		return abi.StateNilClassIndex, true
	case ir.ByteArrayClass:
		return abi.StateByteArrayClassIndex, true
	case ir.ChannelClass:
		return abi.StateChannelClassIndex, true
	default:
		return 0, false
	}
}
