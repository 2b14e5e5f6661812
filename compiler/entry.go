package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/ir"
)

// methodCountsOrder is the field order of the runtime's method counts
// struct.
var methodCountsOrder = []ir.BuiltinClass{
	ir.IntClass,
	ir.FloatClass,
	ir.StringClass,
	ir.ArrayClass,
	ir.BoolClass,
	ir.NilClass,
	ir.ByteArrayClass,
	ir.ChannelClass,
}

// CompileMain emits the executable entry point: create the runtime, run
// every module's setup in declaration order, start the entry process, and
// tear the runtime down once the program finishes.
func (c *Compiler) CompileMain() {
	typ := llvm.FunctionType(c.ctx.Int32Type(), nil, false)
	fn := llvm.AddFunction(c.module, "main", typ)
	c.builder.SetInsertPointAtEnd(c.ctx.AddBasicBlock(fn, ""))

	counts := c.methodCountsGlobal()
	runtime := c.callRuntime(RuntimeNew, []llvm.Value{counts}, "runtime")
	state := c.callRuntime(RuntimeState, []llvm.Value{runtime}, "state")

	for _, mod := range c.program.Modules {
		setup := c.setupFunction(mod)
		c.builder.CreateCall(setup.llvmType, setup.value, []llvm.Value{state}, "")
	}

	class := c.builder.CreateLoad(c.types.Pointer, c.classGlobal(c.program.EntryClass), "")
	method := c.methodFunction(c.program.EntryMethod)

	c.callRuntime(RuntimeStart, []llvm.Value{runtime, class, method.value}, "")
	c.callRuntime(RuntimeDrop, []llvm.Value{runtime}, "")
	c.builder.CreateRet(llvm.ConstInt(c.ctx.Int32Type(), 0, false))
}

// methodCountsGlobal builds the constant passed to runtime creation, sizing
// the built-in classes' method tables.
func (c *Compiler) methodCountsGlobal() llvm.Value {
	sizes := make(map[ir.BuiltinClass]int)

	for _, mod := range c.program.Modules {
		for _, class := range mod.Classes {
			if class.Builtin != ir.NotBuiltin {
				sizes[class.Builtin] = c.layouts.Classes[class].MethodTableSize
			}
		}
	}

	fields := make([]llvm.Value, len(methodCountsOrder))
	for i, builtin := range methodCountsOrder {
		fields[i] = llvm.ConstInt(c.ctx.Int16Type(), uint64(sizes[builtin]), false)
	}

	global := llvm.AddGlobal(c.module, c.types.MethodCounts, "method_counts")
	global.SetInitializer(llvm.ConstStruct(fields, false))
	global.SetLinkage(llvm.PrivateLinkage)
	global.SetGlobalConstant(true)
	return global
}

// setupFunction declares, or returns the existing declaration of, a
// module's setup function.
func (c *Compiler) setupFunction(mod *ir.Module) Function {
	typ := c.types.SetupSignature()
	name := c.names.Setup[mod]

	if fn := c.module.NamedFunction(name); !fn.IsNil() {
		return Function{value: fn, llvmType: typ}
	}

	return Function{value: llvm.AddFunction(c.module, name, typ), llvmType: typ}
}
