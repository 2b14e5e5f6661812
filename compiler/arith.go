package compiler

import (
	"math"

	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

// Panic messages for arithmetic guards. These conditions abort the process;
// they are not catchable errors.
const (
	overflowMessage = "Int operation overflowed"
	divisionMessage = "Int division by zero"
	shiftMessage    = "Shift amount too large"
)

// constInt64 builds an i64 constant from a signed value.
func constInt64(ctx llvm.Context, v int64) llvm.Value {
	return llvm.ConstInt(ctx.Int64Type(), uint64(v), true)
}

func (l *lowering) builtin(ins ir.CallBuiltin) error {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()

	switch ins.Builtin {
	case ir.IntAdd:
		l.checkedIntOp("llvm.sadd.with.overflow.i64", ins)
	case ir.IntSub:
		l.checkedIntOp("llvm.ssub.with.overflow.i64", ins)
	case ir.IntMul:
		l.checkedIntOp("llvm.smul.with.overflow.i64", ins)
	case ir.IntDiv:
		l.intDivision(ins, false)
	case ir.IntRem:
		l.intDivision(ins, true)
	case ir.IntBitAnd:
		lhs, rhs := l.intOperands(ins)
		l.storeBuiltin(ins.Register, l.newInt(b.CreateAnd(lhs, rhs, "")))
	case ir.IntBitOr:
		lhs, rhs := l.intOperands(ins)
		l.storeBuiltin(ins.Register, l.newInt(b.CreateOr(lhs, rhs, "")))
	case ir.IntBitXor:
		lhs, rhs := l.intOperands(ins)
		l.storeBuiltin(ins.Register, l.newInt(b.CreateXor(lhs, rhs, "")))
	case ir.IntBitNot:
		val := l.readInt(l.loadRegister(ins.Arguments[0]))
		l.storeBuiltin(ins.Register, l.newInt(b.CreateNot(val, "")))
	case ir.IntShl:
		l.intShift(ins, func(lhs, rhs llvm.Value) llvm.Value {
			return b.CreateShl(lhs, rhs, "")
		})
	case ir.IntShr:
		l.intShift(ins, func(lhs, rhs llvm.Value) llvm.Value {
			return b.CreateAShr(lhs, rhs, "")
		})
	case ir.IntUnsignedShr:
		l.intShift(ins, func(lhs, rhs llvm.Value) llvm.Value {
			return b.CreateLShr(lhs, rhs, "")
		})
	case ir.IntEq:
		l.intCompare(ins, llvm.IntEQ)
	case ir.IntNe:
		l.intCompare(ins, llvm.IntNE)
	case ir.IntGt:
		l.intCompare(ins, llvm.IntSGT)
	case ir.IntGe:
		l.intCompare(ins, llvm.IntSGE)
	case ir.IntLt:
		l.intCompare(ins, llvm.IntSLT)
	case ir.IntLe:
		l.intCompare(ins, llvm.IntSLE)
	case ir.IntToFloat:
		val := l.readInt(l.loadRegister(ins.Arguments[0]))
		l.storeBuiltin(ins.Register, l.newFloat(b.CreateSIToFP(val, l.c.ctx.DoubleType(), "")))
	case ir.FloatAdd:
		lhs, rhs := l.floatOperands(ins)
		l.storeBuiltin(ins.Register, l.newFloat(b.CreateFAdd(lhs, rhs, "")))
	case ir.FloatSub:
		lhs, rhs := l.floatOperands(ins)
		l.storeBuiltin(ins.Register, l.newFloat(b.CreateFSub(lhs, rhs, "")))
	case ir.FloatMul:
		lhs, rhs := l.floatOperands(ins)
		l.storeBuiltin(ins.Register, l.newFloat(b.CreateFMul(lhs, rhs, "")))
	case ir.FloatDiv:
		lhs, rhs := l.floatOperands(ins)
		l.storeBuiltin(ins.Register, l.newFloat(b.CreateFDiv(lhs, rhs, "")))
	case ir.FloatMod:
		// Sign follows the divisor, so a plain frem needs an adjustment
		// round.
		lhs, rhs := l.floatOperands(ins)
		rem := b.CreateFRem(b.CreateFAdd(b.CreateFRem(lhs, rhs, ""), rhs, ""), rhs, "")
		l.storeBuiltin(ins.Register, l.newFloat(rem))
	case ir.FloatCeil:
		l.floatIntrinsic(ins, "llvm.ceil.f64")
	case ir.FloatFloor:
		l.floatIntrinsic(ins, "llvm.floor.f64")
	case ir.FloatRound:
		l.floatIntrinsic(ins, "llvm.round.f64")
	case ir.FloatEq:
		l.floatCompare(ins, llvm.FloatOEQ)
	case ir.FloatGt:
		l.floatCompare(ins, llvm.FloatOGT)
	case ir.FloatGe:
		l.floatCompare(ins, llvm.FloatOGE)
	case ir.FloatLt:
		l.floatCompare(ins, llvm.FloatOLT)
	case ir.FloatLe:
		l.floatCompare(ins, llvm.FloatOLE)
	case ir.FloatIsNan:
		val := l.readFloat(l.loadRegister(ins.Arguments[0]))
		l.storeBuiltin(ins.Register, l.newBool(b.CreateFCmp(llvm.FloatUNO, val, val, "")))
	case ir.FloatIsInf:
		f64 := l.c.ctx.DoubleType()
		val := l.readFloat(l.loadRegister(ins.Arguments[0]))
		fabs := l.c.intrinsic("llvm.fabs.f64", f64, []llvm.Type{f64})
		pos := b.CreateCall(fabs.llvmType, fabs.value, []llvm.Value{val}, "")
		inf := llvm.ConstFloat(f64, math.Inf(1))
		l.storeBuiltin(ins.Register, l.newBool(b.CreateFCmp(llvm.FloatOEQ, pos, inf, "")))
	case ir.FloatToBits:
		val := l.readFloat(l.loadRegister(ins.Arguments[0]))
		l.storeBuiltin(ins.Register, l.newInt(b.CreateBitCast(val, i64, "")))
	case ir.FloatFromBits:
		val := l.readInt(l.loadRegister(ins.Arguments[0]))
		l.storeBuiltin(ins.Register, l.newFloat(b.CreateBitCast(val, l.c.ctx.DoubleType(), "")))
	case ir.FloatToInt:
		// Saturates at the i64 range bounds instead of producing poison.
		val := l.readFloat(l.loadRegister(ins.Arguments[0]))
		fn := l.c.intrinsic("llvm.fptosi.sat.i64.f64", i64, []llvm.Type{l.c.ctx.DoubleType()})
		res := b.CreateCall(fn.llvmType, fn.value, []llvm.Value{val}, "")
		l.storeBuiltin(ins.Register, l.newInt(res))
	case ir.StringConcat:
		l.stringConcat(ins)
	case ir.StringEq:
		args := []llvm.Value{
			l.state(),
			l.loadRegister(ins.Arguments[0]),
			l.loadRegister(ins.Arguments[1]),
		}
		l.storeBuiltin(ins.Register, l.c.callRuntime(StringEquals, args, ""))
	case ir.StringSize:
		args := []llvm.Value{l.state(), l.loadRegister(ins.Arguments[0])}
		l.storeBuiltin(ins.Register, l.c.callRuntime(StringSize, args, ""))
	case ir.Panic:
		message := l.loadRegister(ins.Arguments[0])
		l.c.callRuntime(ProcessPanic, []llvm.Value{l.process(), message}, "")
		b.CreateUnreachable()

		// The panic never returns, but the containing block may carry more
		// instructions plus its terminator. They land in a fresh
		// unreachable block, keeping the function well formed.
		rest := l.c.ctx.AddBasicBlock(l.fn.value, "")
		b.SetInsertPointAtEnd(rest)
	case ir.ProcessSuspend:
		nanos := l.readInt(l.loadRegister(ins.Arguments[0]))
		args := []llvm.Value{l.state(), l.process(), nanos}
		l.storeBuiltin(ins.Register, l.c.callRuntime(ProcessSuspend, args, ""))
	case ir.ChannelNew:
		capacity := l.readInt(l.loadRegister(ins.Arguments[0]))
		args := []llvm.Value{l.state(), capacity}
		l.storeBuiltin(ins.Register, l.c.callRuntime(ChannelNew, args, ""))
	case ir.ChannelSend:
		args := []llvm.Value{
			l.state(),
			l.process(),
			l.loadRegister(ins.Arguments[0]),
			l.loadRegister(ins.Arguments[1]),
		}
		l.storeBuiltin(ins.Register, l.c.callRuntime(ChannelSend, args, ""))
	case ir.ChannelReceive:
		args := []llvm.Value{l.process(), l.loadRegister(ins.Arguments[0])}
		l.storeBuiltin(ins.Register, l.c.callRuntime(ChannelReceive, args, ""))
	case ir.ChannelTryReceive:
		args := []llvm.Value{l.process(), l.loadRegister(ins.Arguments[0])}
		l.storeRuntimeResult(ins.Register, l.c.callRuntime(ChannelTryReceive, args, ""))
	case ir.ChannelReceiveUntil:
		deadline := l.readInt(l.loadRegister(ins.Arguments[1]))
		args := []llvm.Value{
			l.state(),
			l.process(),
			l.loadRegister(ins.Arguments[0]),
			deadline,
		}
		l.storeRuntimeResult(ins.Register, l.c.callRuntime(ChannelReceiveUntil, args, ""))
	case ir.ChannelDrop:
		args := []llvm.Value{l.state(), l.loadRegister(ins.Arguments[0])}
		l.storeBuiltin(ins.Register, l.c.callRuntime(ChannelDrop, args, ""))
	default:
		return ErrUnknownBuiltin
	}

	return nil
}

func (l *lowering) storeBuiltin(reg ir.RegisterID, value llvm.Value) {
	if reg != ir.NoRegister {
		l.storeRegister(reg, value)
	}
}

func (l *lowering) intOperands(ins ir.CallBuiltin) (llvm.Value, llvm.Value) {
	lhs := l.readInt(l.loadRegister(ins.Arguments[0]))
	rhs := l.readInt(l.loadRegister(ins.Arguments[1]))
	return lhs, rhs
}

func (l *lowering) floatOperands(ins ir.CallBuiltin) (llvm.Value, llvm.Value) {
	lhs := l.readFloat(l.loadRegister(ins.Arguments[0]))
	rhs := l.readFloat(l.loadRegister(ins.Arguments[1]))
	return lhs, rhs
}

func (l *lowering) intCompare(ins ir.CallBuiltin, pred llvm.IntPredicate) {
	lhs, rhs := l.intOperands(ins)
	l.storeBuiltin(ins.Register, l.newBool(l.c.builder.CreateICmp(pred, lhs, rhs, "")))
}

func (l *lowering) floatCompare(ins ir.CallBuiltin, pred llvm.FloatPredicate) {
	lhs, rhs := l.floatOperands(ins)
	l.storeBuiltin(ins.Register, l.newBool(l.c.builder.CreateFCmp(pred, lhs, rhs, "")))
}

func (l *lowering) floatIntrinsic(ins ir.CallBuiltin, name string) {
	f64 := l.c.ctx.DoubleType()
	val := l.readFloat(l.loadRegister(ins.Arguments[0]))
	fn := l.c.intrinsic(name, f64, []llvm.Type{f64})
	res := l.c.builder.CreateCall(fn.llvmType, fn.value, []llvm.Value{val}, "")
	l.storeBuiltin(ins.Register, l.newFloat(res))
}

// checkedIntOp applies an overflow-checked integer operation. Overflow
// aborts the process instead of wrapping.
func (l *lowering) checkedIntOp(name string, ins ir.CallBuiltin) {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()
	lhs, rhs := l.intOperands(ins)

	pairType := l.c.ctx.StructType([]llvm.Type{i64, l.c.ctx.Int1Type()}, false)
	fn := l.c.intrinsic(name, pairType, []llvm.Type{i64, i64})
	pair := b.CreateCall(fn.llvmType, fn.value, []llvm.Value{lhs, rhs}, "")
	value := b.CreateExtractValue(pair, 0, "")
	flag := b.CreateExtractValue(pair, 1, "")

	panicBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	okBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	b.CreateCondBr(flag, panicBlock, okBlock)

	b.SetInsertPointAtEnd(panicBlock)
	l.abort(overflowMessage)

	b.SetInsertPointAtEnd(okBlock)
	l.storeBuiltin(ins.Register, l.newInt(value))
}

// intDivision guards the divisor against zero and the lone i64 pair the
// native instructions leave undefined.
func (l *lowering) intDivision(ins ir.CallBuiltin, rem bool) {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()
	lhs, rhs := l.intOperands(ins)

	zeroBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	checkBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	overflowBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	okBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	zero := b.CreateICmp(llvm.IntEQ, rhs, llvm.ConstInt(i64, 0, false), "")
	b.CreateCondBr(zero, zeroBlock, checkBlock)

	b.SetInsertPointAtEnd(zeroBlock)
	l.abort(divisionMessage)

	b.SetInsertPointAtEnd(checkBlock)
	minLhs := b.CreateICmp(llvm.IntEQ, lhs, constInt64(l.c.ctx, math.MinInt64), "")
	negOne := b.CreateICmp(llvm.IntEQ, rhs, constInt64(l.c.ctx, -1), "")
	b.CreateCondBr(b.CreateAnd(minLhs, negOne, ""), overflowBlock, okBlock)

	b.SetInsertPointAtEnd(overflowBlock)
	l.abort(overflowMessage)

	b.SetInsertPointAtEnd(okBlock)

	var res llvm.Value
	if rem {
		res = b.CreateSRem(lhs, rhs, "")
	} else {
		res = b.CreateSDiv(lhs, rhs, "")
	}

	l.storeBuiltin(ins.Register, l.newInt(res))
}

// intShift guards the shift amount against the operand width.
func (l *lowering) intShift(ins ir.CallBuiltin, op func(lhs, rhs llvm.Value) llvm.Value) {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()
	lhs, rhs := l.intOperands(ins)

	panicBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	okBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	tooBig := b.CreateICmp(llvm.IntUGE, rhs, llvm.ConstInt(i64, 64, false), "")
	b.CreateCondBr(tooBig, panicBlock, okBlock)

	b.SetInsertPointAtEnd(panicBlock)
	l.abort(shiftMessage)

	b.SetInsertPointAtEnd(okBlock)
	l.storeBuiltin(ins.Register, l.newInt(op(lhs, rhs)))
}

func (l *lowering) stringConcat(ins ir.CallBuiltin) {
	b := l.c.builder
	i32 := l.c.ctx.Int32Type()
	arrType := llvm.ArrayType(l.c.types.Pointer, len(ins.Arguments))
	arr := b.CreateAlloca(arrType, "")

	for i, reg := range ins.Arguments {
		slot := b.CreateInBoundsGEP(
			arrType,
			arr,
			[]llvm.Value{
				llvm.ConstInt(i32, 0, false),
				llvm.ConstInt(i32, uint64(i), false),
			},
			"",
		)
		b.CreateStore(l.loadRegister(reg), slot)
	}

	length := llvm.ConstInt(l.c.ctx.Int64Type(), uint64(len(ins.Arguments)), false)
	res := l.c.callRuntime(StringConcat, []llvm.Value{l.state(), arr, length}, "")
	l.storeBuiltin(ins.Register, res)
}

// readInt unboxes an integer word: tagged words shift the value out
// arithmetically, anything else is a heap box holding the payload after the
// header.
func (l *lowering) readInt(word llvm.Value) llvm.Value {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()

	raw := b.CreatePtrToInt(word, i64, "")
	bit := b.CreateAnd(raw, llvm.ConstInt(i64, abi.IntMask, false), "")
	tagged := b.CreateICmp(llvm.IntEQ, bit, llvm.ConstInt(i64, abi.IntMask, false), "")

	tagBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	boxBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	joinBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	b.CreateCondBr(tagged, tagBlock, boxBlock)

	b.SetInsertPointAtEnd(tagBlock)
	inline := b.CreateAShr(raw, llvm.ConstInt(i64, abi.IntShift, false), "")
	b.CreateBr(joinBlock)

	b.SetInsertPointAtEnd(boxBlock)
	payload := b.CreateStructGEP(l.c.types.BoxedInt, word, abi.BoxedIntValueIndex, "")
	boxed := b.CreateLoad(i64, payload, "")
	b.CreateBr(joinBlock)

	b.SetInsertPointAtEnd(joinBlock)
	phi := b.CreatePHI(i64, "")
	phi.AddIncoming([]llvm.Value{inline, boxed}, []llvm.BasicBlock{tagBlock, boxBlock})
	return phi
}

// readFloat loads the payload of a float box. Floats are never tagged.
func (l *lowering) readFloat(word llvm.Value) llvm.Value {
	b := l.c.builder
	payload := b.CreateStructGEP(l.c.types.BoxedFloat, word, abi.BoxedFloatValueIndex, "")
	return b.CreateLoad(l.c.ctx.DoubleType(), payload, "")
}

// newInt boxes an integer result, preferring the inline tagged encoding and
// falling back to a heap box when the value needs all 64 bits.
func (l *lowering) newInt(value llvm.Value) llvm.Value {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()

	min := constInt64(l.c.ctx, abi.MinInt)
	max := constInt64(l.c.ctx, abi.MaxInt)
	fits := b.CreateAnd(
		b.CreateICmp(llvm.IntSGE, value, min, ""),
		b.CreateICmp(llvm.IntSLE, value, max, ""),
		"",
	)

	tagBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	boxBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")
	joinBlock := l.c.ctx.AddBasicBlock(l.fn.value, "")

	b.CreateCondBr(fits, tagBlock, boxBlock)

	b.SetInsertPointAtEnd(tagBlock)
	shifted := b.CreateShl(value, llvm.ConstInt(i64, abi.IntShift, false), "")
	word := b.CreateOr(shifted, llvm.ConstInt(i64, abi.IntMask, false), "")
	inline := b.CreateIntToPtr(word, l.c.types.Pointer, "")
	b.CreateBr(joinBlock)

	b.SetInsertPointAtEnd(boxBlock)
	class := l.loadField(l.c.types.State, l.state(), abi.StateIntClassIndex, "")
	boxed := l.c.callRuntime(IntBoxed, []llvm.Value{class, value}, "")
	b.CreateBr(joinBlock)

	b.SetInsertPointAtEnd(joinBlock)
	phi := b.CreatePHI(l.c.types.Pointer, "")
	phi.AddIncoming([]llvm.Value{inline, boxed}, []llvm.BasicBlock{tagBlock, boxBlock})
	return phi
}

func (l *lowering) newFloat(value llvm.Value) llvm.Value {
	class := l.loadField(l.c.types.State, l.state(), abi.StateFloatClassIndex, "")
	return l.c.callRuntime(FloatBoxed, []llvm.Value{class, value}, "")
}

func (l *lowering) newBool(cond llvm.Value) llvm.Value {
	yes := l.loadField(l.c.types.State, l.state(), abi.StateTrueIndex, "")
	no := l.loadField(l.c.types.State, l.state(), abi.StateFalseIndex, "")
	return l.c.builder.CreateSelect(cond, yes, no, "")
}

// abort emits an unconditional panic with a static message. The caller is
// responsible for block placement.
func (l *lowering) abort(message string) {
	b := l.c.builder
	bytes := l.c.stringBytes(message)
	size := llvm.ConstInt(l.c.ctx.Int64Type(), uint64(len(message)), false)
	str := l.c.callRuntime(StringNewPermanent, []llvm.Value{l.state(), bytes, size}, "")
	l.c.callRuntime(ProcessPanic, []llvm.Value{l.process(), str}, "")
	b.CreateUnreachable()
}

// storeRuntimeResult rewrites a runtime call result into the method result
// encoding: a byte tag with ok as zero, and the none case carrying the nil
// singleton.
func (l *lowering) storeRuntimeResult(reg ir.RegisterID, res llvm.Value) {
	b := l.c.builder
	i64 := l.c.ctx.Int64Type()
	i8 := l.c.ctx.Int8Type()

	rawTag := b.CreateExtractValue(res, 0, "")
	value := b.CreateExtractValue(res, 1, "")

	okWord := llvm.ConstInt(i64, abi.RuntimeResultOk, false)
	noneWord := llvm.ConstInt(i64, abi.RuntimeResultNone, false)

	failed := b.CreateICmp(llvm.IntNE, rawTag, okWord, "")
	tag := b.CreateZExt(failed, i8, "")

	none := b.CreateICmp(llvm.IntEQ, rawTag, noneWord, "")
	nilValue := l.loadField(l.c.types.State, l.state(), abi.StateNilIndex, "")
	value = b.CreateSelect(none, nilValue, value, "")

	out := llvm.Undef(l.c.types.Result)
	out = b.CreateInsertValue(out, tag, abi.ResultTagIndex, "")
	out = b.CreateInsertValue(out, value, abi.ResultValueIndex, "")

	if reg != ir.NoRegister {
		b.CreateStore(out, l.variables[reg])
	}
}
