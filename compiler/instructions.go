package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

func (l *lowering) instruction(ins ir.Instruction) error {
	b := l.c.builder
	types := l.c.types

	switch ins := ins.(type) {
	case ir.Int:
		if abi.FitsInt(ins.Value) {
			word := uint64(abi.TagInt(ins.Value))
			val := b.CreateIntToPtr(
				llvm.ConstInt(l.c.ctx.Int64Type(), word, false),
				types.Pointer,
				"",
			)
			l.storeRegister(ins.Register, val)
		} else {
			global := l.c.literalGlobal(ir.IntValue(ins.Value))
			l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, global, ""))
		}
	case ir.Float:
		global := l.c.literalGlobal(ir.FloatValue(ins.Value))
		l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, global, ""))
	case ir.String:
		global := l.c.literalGlobal(ir.StringValue(ins.Value))
		l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, global, ""))
	case ir.Bool:
		index := abi.StateFalseIndex
		if ins.Value {
			index = abi.StateTrueIndex
		}
		l.storeRegister(ins.Register, l.loadField(types.State, l.state(), index, ""))
	case ir.Nil:
		l.storeRegister(ins.Register, l.loadField(types.State, l.state(), abi.StateNilIndex, ""))
	case ir.MoveRegister:
		typ := l.registerType(ins.Source)
		val := b.CreateLoad(typ, l.variables[ins.Source], "")
		b.CreateStore(val, l.variables[ins.Target])
	case ir.GetConstant:
		global := l.c.constantGlobal(ins.Constant)
		l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, global, ""))
	case ir.Allocate:
		class := b.CreateLoad(types.Pointer, l.c.classGlobal(ins.Class), "")
		obj := l.c.callRuntime(ObjectNew, []llvm.Value{class}, "")
		l.storeRegister(ins.Register, obj)
	case ir.Spawn:
		class := b.CreateLoad(types.Pointer, l.c.classGlobal(ins.Class), "")
		proc := l.c.callRuntime(ProcessNew, []llvm.Value{l.process(), class}, "")
		l.storeRegister(ins.Register, proc)
	case ir.Free:
		l.c.callRuntime(ObjectFree, []llvm.Value{l.loadRegister(ins.Register)}, "")
	case ir.Reference:
		word := l.loadRegister(ins.Value)
		l.modifyRefs(l.untagged(word), 1)

		raw := b.CreatePtrToInt(word, l.c.ctx.Int64Type(), "")
		tagged := b.CreateOr(raw, llvm.ConstInt(l.c.ctx.Int64Type(), abi.RefMask, false), "")
		l.storeRegister(ins.Register, b.CreateIntToPtr(tagged, types.Pointer, ""))
	case ir.Increment:
		l.modifyRefs(l.untagged(l.loadRegister(ins.Register)), 1)
	case ir.Decrement:
		l.modifyRefs(l.untagged(l.loadRegister(ins.Register)), -1)
	case ir.IncrementAtomic:
		refs := l.refsPointer(l.loadRegister(ins.Register))
		one := llvm.ConstInt(l.c.ctx.Int32Type(), 1, false)
		b.CreateAtomicRMW(llvm.AtomicRMWBinOpAdd, refs, one, llvm.AtomicOrderingAcquireRelease, false)
	case ir.CheckRefs:
		l.checkRefs(ins)
	case ir.GetField:
		field := l.fieldPointer(ins.Class, ins.Receiver, ins.Field)
		l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, field, ""))
	case ir.SetField:
		field := l.fieldPointer(ins.Class, ins.Receiver, ins.Field)
		b.CreateStore(l.loadRegister(ins.Value), field)
	case ir.FieldPointer:
		l.storeRegister(ins.Register, l.fieldPointer(ins.Class, ins.Receiver, ins.Field))
	case ir.Pointer:
		l.storeRegister(ins.Register, l.variables[ins.Value])
	case ir.ReadPointer:
		addr := l.loadRegister(ins.Address)
		l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, addr, ""))
	case ir.WritePointer:
		b.CreateStore(l.loadRegister(ins.Value), l.loadRegister(ins.Address))
	case ir.CallStatic:
		args := []llvm.Value{l.state(), l.process()}
		args = l.appendArguments(args, ins.Arguments)
		l.call(ins.Register, ins.Method, args)
	case ir.CallInstance:
		args := []llvm.Value{l.state(), l.process(), l.loadRegister(ins.Receiver)}
		args = l.appendArguments(args, ins.Arguments)
		l.call(ins.Register, ins.Method, args)
	case ir.CallDynamic:
		l.callDynamic(ins)
	case ir.CallClosure:
		l.callClosure(ins)
	case ir.CallDropper:
		l.callDropper(ins)
	case ir.CallExtern:
		fn := l.c.externFunction(ins.Function)
		args := l.appendArguments(nil, ins.Arguments)
		ret := b.CreateCall(fn.llvmType, fn.value, args, "")

		if ins.Function.Returns == ir.ExternReturnsValue && ins.Register != ir.NoRegister {
			l.storeRegister(ins.Register, ret)
		}
	case ir.CallBuiltin:
		return l.builtin(ins)
	case ir.Send:
		l.send(ins)
	case ir.ResultValue:
		value := b.CreateStructGEP(types.Result, l.variables[ins.Value], abi.ResultValueIndex, "")
		l.storeRegister(ins.Register, b.CreateLoad(types.Pointer, value, ""))
	case ir.Preempt:
		l.c.callRuntime(ProcessYield, []llvm.Value{l.process()}, "")
	case ir.Goto:
		b.CreateBr(l.blocks[ins.Block])
	case ir.Branch:
		cond := l.loadRegister(ins.Condition)
		yes := l.loadField(types.State, l.state(), abi.StateTrueIndex, "")
		eq := b.CreateICmp(llvm.IntEQ, cond, yes, "")
		b.CreateCondBr(eq, l.blocks[ins.IfTrue], l.blocks[ins.IfFalse])
	case ir.Switch:
		value := l.readInt(l.loadRegister(ins.Value))
		sw := b.CreateSwitch(value, l.blocks[ins.Blocks[0]], len(ins.Blocks)-1)

		for i, block := range ins.Blocks[1:] {
			val := llvm.ConstInt(l.c.ctx.Int64Type(), uint64(i)+1, false)
			sw.AddCase(val, l.blocks[block])
		}
	case ir.BranchResult:
		tag := b.CreateStructGEP(types.Result, l.variables[ins.Value], abi.ResultTagIndex, "")
		loaded := b.CreateLoad(l.c.ctx.Int8Type(), tag, "")
		ok := llvm.ConstInt(l.c.ctx.Int8Type(), abi.ResultOkTag, false)
		eq := b.CreateICmp(llvm.IntEQ, loaded, ok, "")
		b.CreateCondBr(eq, l.blocks[ins.Ok], l.blocks[ins.Error])
	case ir.DecrementAtomic:
		refs := l.refsPointer(l.loadRegister(ins.Register))
		one := llvm.ConstInt(l.c.ctx.Int32Type(), 1, false)
		old := b.CreateAtomicRMW(llvm.AtomicRMWBinOpSub, refs, one, llvm.AtomicOrderingAcquireRelease, false)
		zero := b.CreateICmp(llvm.IntEQ, old, one, "")
		b.CreateCondBr(zero, l.blocks[ins.Zero], l.blocks[ins.NonZero])
	case ir.Return:
		value := l.loadRegister(ins.Value)
		if l.method.Throws {
			b.CreateRet(l.newResult(abi.ResultOkTag, value))
		} else {
			b.CreateRet(value)
		}
	case ir.Throw:
		b.CreateRet(l.newResult(abi.ResultErrorTag, l.loadRegister(ins.Value)))
	case ir.Finish:
		terminate := llvm.ConstInt(l.c.ctx.Int1Type(), 0, false)
		if ins.Terminate {
			terminate = llvm.ConstInt(l.c.ctx.Int1Type(), 1, false)
		}
		l.c.callRuntime(ProcessFinishMessage, []llvm.Value{l.process(), terminate}, "")
		b.CreateUnreachable()
	default:
		return ErrUnknownInstruction
	}

	return nil
}

func (l *lowering) registerType(reg ir.RegisterID) llvm.Type {
	if l.method.Registers[reg].Kind == ir.ResultRegister {
		return l.c.types.Result
	}
	return l.c.types.Pointer
}

func (l *lowering) appendArguments(args []llvm.Value, regs []ir.RegisterID) []llvm.Value {
	for _, reg := range regs {
		args = append(args, l.loadRegister(reg))
	}
	return args
}

// call emits a direct call and stores the returned value or result
// composite, if any.
func (l *lowering) call(reg ir.RegisterID, method *ir.Method, args []llvm.Value) {
	fn := l.c.methodFunction(method)
	ret := l.c.builder.CreateCall(fn.llvmType, fn.value, args, "")

	if reg != ir.NoRegister {
		l.c.builder.CreateStore(ret, l.variables[reg])
	}
}

// newResult builds a result composite by value.
func (l *lowering) newResult(tag uint64, value llvm.Value) llvm.Value {
	b := l.c.builder
	res := llvm.Undef(l.c.types.Result)
	res = b.CreateInsertValue(res, llvm.ConstInt(l.c.ctx.Int8Type(), tag, false), abi.ResultTagIndex, "")
	return b.CreateInsertValue(res, value, abi.ResultValueIndex, "")
}

// untagged strips the tag bits from a value word, yielding the object
// address. Borrow words carry a tag bit in the pointer itself, so every
// header access has to mask first.
func (l *lowering) untagged(value llvm.Value) llvm.Value {
	b := l.c.builder
	raw := b.CreatePtrToInt(value, l.c.ctx.Int64Type(), "")
	masked := b.CreateAnd(raw, llvm.ConstInt(l.c.ctx.Int64Type(), abi.UntagMask, false), "")
	return b.CreateIntToPtr(masked, l.c.types.Pointer, "")
}

// refsPointer returns the address of an object's reference count field.
func (l *lowering) refsPointer(object llvm.Value) llvm.Value {
	return l.c.builder.CreateStructGEP(l.c.types.Header, l.untagged(object), abi.HeaderRefsIndex, "")
}

// modifyRefs adjusts a non-shared object's reference count. The object
// pointer must already be untagged.
func (l *lowering) modifyRefs(object llvm.Value, amount int64) {
	b := l.c.builder
	i32 := l.c.ctx.Int32Type()

	refs := b.CreateStructGEP(l.c.types.Header, object, abi.HeaderRefsIndex, "")
	current := b.CreateLoad(i32, refs, "")
	updated := b.CreateAdd(current, llvm.ConstInt(i32, uint64(uint32(int32(amount))), false), "")
	b.CreateStore(updated, refs)
}

// classPointer loads an object's class from its header. The object pointer
// must already be untagged.
func (l *lowering) classPointer(object llvm.Value) llvm.Value {
	b := l.c.builder
	field := b.CreateStructGEP(l.c.types.Header, object, abi.HeaderClassIndex, "")
	return b.CreateLoad(l.c.types.Pointer, field, "")
}

// fieldPointer computes the address of a user field. Processes reserve
// runtime state between the header and the first field, shifting every
// index.
func (l *lowering) fieldPointer(class *ir.Class, receiver ir.RegisterID, field *ir.Field) llvm.Value {
	obj := l.untagged(l.loadRegister(receiver))

	offset := abi.FieldOffset
	if class.Process {
		offset = abi.ProcessFieldOffset
	}

	return l.c.builder.CreateStructGEP(l.c.types.Instances[class], obj, offset+field.Index, "")
}

// checkRefs panics when an object about to be dropped still has references.
func (l *lowering) checkRefs(ins ir.CheckRefs) {
	b := l.c.builder
	i32 := l.c.ctx.Int32Type()

	value := l.loadRegister(ins.Register)
	refs := b.CreateLoad(i32, l.refsPointer(value), "")
	zero := b.CreateICmp(llvm.IntEQ, refs, llvm.ConstInt(i32, 0, false), "")

	okBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	panicBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	b.CreateCondBr(zero, okBlock, panicBlock)

	b.SetInsertPointAtEnd(panicBlock)
	l.c.callRuntime(ReferenceCountError, []llvm.Value{l.process(), value}, "")
	b.CreateUnreachable()

	b.SetInsertPointAtEnd(okBlock)
}

// callThroughSlot calls the function stored in a fixed method table slot,
// used for droppers and closures where the slot index is a compile time
// constant.
func (l *lowering) callThroughSlot(reg ir.RegisterID, receiver ir.RegisterID, slot int, extra []ir.RegisterID) {
	b := l.c.builder
	types := l.c.types

	obj := l.untagged(l.loadRegister(receiver))
	class := l.classPointer(obj)
	entry := l.c.methodSlot(class, llvm.ConstInt(l.c.ctx.Int32Type(), uint64(slot), false))
	code := b.CreateStructGEP(types.Method, entry, abi.MethodFunctionIndex, "")
	fn := b.CreateLoad(types.Pointer, code, "")

	args := []llvm.Value{l.state(), l.process(), l.loadRegister(receiver)}
	args = l.appendArguments(args, extra)

	params := make([]llvm.Type, len(args))
	for i := range params {
		params[i] = types.Pointer
	}

	ret := types.Pointer
	if reg != ir.NoRegister && l.method.Registers[reg].Kind == ir.ResultRegister {
		ret = types.Result
	}

	typ := llvm.FunctionType(ret, params, false)
	val := b.CreateCall(typ, fn, args, "")

	if reg != ir.NoRegister {
		b.CreateStore(val, l.variables[reg])
	}
}

func (l *lowering) callClosure(ins ir.CallClosure) {
	l.callThroughSlot(ins.Register, ins.Receiver, abi.ClosureCallIndex, ins.Arguments)
}

func (l *lowering) callDropper(ins ir.CallDropper) {
	l.callThroughSlot(ins.Register, ins.Receiver, abi.DropperIndex, nil)
}

// send builds a message sized to the argument count, copies the argument
// words into it, and hands it to the runtime. The send never blocks and
// produces no value.
func (l *lowering) send(ins ir.Send) {
	b := l.c.builder
	types := l.c.types

	fn := l.c.methodFunction(ins.Method)
	length := llvm.ConstInt(l.c.ctx.Int8Type(), uint64(len(ins.Arguments)), false)
	message := l.c.callRuntime(MessageNew, []llvm.Value{fn.value, length}, "message")

	for i, reg := range ins.Arguments {
		slot := b.CreateInBoundsGEP(
			types.Message,
			message,
			[]llvm.Value{
				llvm.ConstInt(l.c.ctx.Int32Type(), 0, false),
				llvm.ConstInt(l.c.ctx.Int32Type(), abi.MessageArgumentsIndex, false),
				llvm.ConstInt(l.c.ctx.Int32Type(), uint64(i), false),
			},
			"",
		)
		b.CreateStore(l.loadRegister(reg), slot)
	}

	args := []llvm.Value{l.state(), l.process(), l.loadRegister(ins.Receiver), message}
	l.c.callRuntime(ProcessSendMessage, args, "")
}
