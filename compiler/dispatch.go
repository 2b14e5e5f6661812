package compiler

import (
	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

// callDynamic dispatches a trait method on a receiver whose class is only
// known at run time. The slot is the method's name hash masked to the
// receiving class's table length; when any implementing class had to probe
// past that slot, a probe loop compares slot hashes until it finds the
// method.
func (l *lowering) callDynamic(ins ir.CallDynamic) {
	b := l.c.builder
	types := l.c.types
	i64 := l.c.ctx.Int64Type()

	info := l.c.layouts.Methods[ins.Method]
	hash := llvm.ConstInt(i64, info.Hash, false)
	receiver := l.loadRegister(ins.Receiver)

	class := l.receiverClass(receiver)

	// The table length lives in the class object, so the mask is a runtime
	// value.
	lenField := b.CreateStructGEP(types.EmptyClass, class, abi.ClassMethodsCountIndex, "")
	length := b.CreateZExt(b.CreateLoad(l.c.ctx.Int16Type(), lenField, ""), i64, "")
	mask := b.CreateSub(length, llvm.ConstInt(i64, 1, false), "")

	var code llvm.Value

	if info.Collision {
		startBlock := b.GetInsertBlock()
		probeBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
		callBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

		b.CreateBr(probeBlock)

		b.SetInsertPointAtEnd(probeBlock)
		index := b.CreatePHI(i64, "")
		slot := b.CreateAnd(index, mask, "")
		entry := l.c.methodSlot(class, slot)
		entryHash := b.CreateLoad(i64, b.CreateStructGEP(types.Method, entry, abi.MethodHashIndex, ""), "")
		next := b.CreateAdd(index, llvm.ConstInt(i64, 1, false), "")
		index.AddIncoming([]llvm.Value{hash, next}, []llvm.BasicBlock{startBlock, probeBlock})

		found := b.CreateICmp(llvm.IntEQ, entryHash, hash, "")
		b.CreateCondBr(found, callBlock, probeBlock)

		b.SetInsertPointAtEnd(callBlock)
		code = b.CreateLoad(types.Pointer, b.CreateStructGEP(types.Method, entry, abi.MethodFunctionIndex, ""), "")
	} else {
		slot := b.CreateAnd(hash, mask, "")
		entry := l.c.methodSlot(class, slot)
		code = b.CreateLoad(types.Pointer, b.CreateStructGEP(types.Method, entry, abi.MethodFunctionIndex, ""), "")
	}

	args := []llvm.Value{l.state(), l.process(), receiver}
	args = l.appendArguments(args, ins.Arguments)

	typ := types.Signature(ins.Method)
	ret := b.CreateCall(typ, code, args, "")

	if ins.Register != ir.NoRegister {
		b.CreateStore(ret, l.variables[ins.Register])
	}
}

// receiverClass resolves a receiver word to its class object. Tagged
// integers have no header; their class is the state's Int class.
func (l *lowering) receiverClass(receiver llvm.Value) llvm.Value {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()

	raw := b.CreatePtrToInt(receiver, i64, "")
	bit := b.CreateAnd(raw, llvm.ConstInt(i64, abi.IntMask, false), "")
	tagged := b.CreateICmp(llvm.IntEQ, bit, llvm.ConstInt(i64, abi.IntMask, false), "")

	tagBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	heapBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	joinBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	b.CreateCondBr(tagged, tagBlock, heapBlock)

	b.SetInsertPointAtEnd(tagBlock)
	intClass := l.loadField(l.c.types.State, l.state(), abi.StateIntClassIndex, "")
	b.CreateBr(joinBlock)

	b.SetInsertPointAtEnd(heapBlock)
	heapClass := l.classPointer(l.untagged(receiver))
	b.CreateBr(joinBlock)

	b.SetInsertPointAtEnd(joinBlock)
	phi := b.CreatePHI(l.c.types.Pointer, "")
	phi.AddIncoming([]llvm.Value{intClass, heapClass}, []llvm.BasicBlock{tagBlock, heapBlock})
	return phi
}
