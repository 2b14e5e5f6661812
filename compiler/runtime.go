package compiler

import (
	"tinygo.org/x/go-llvm"
)

// RuntimeFunction identifies one function exported by the runtime library.
// Generated code only ever reaches the runtime through these symbols; the
// signatures here are the ABI contract between the two sides.
type RuntimeFunction int

const (
	RuntimeNew RuntimeFunction = iota
	RuntimeDrop
	RuntimeStart
	RuntimeState
	ClassObject
	ClassProcess
	ObjectNew
	ObjectFree
	AllocError
	ReferenceCountError
	ProcessNew
	ProcessPanic
	ProcessYield
	ProcessSuspend
	ProcessFinishMessage
	ProcessSendMessage
	MessageNew
	IntBoxed
	IntBoxedPermanent
	FloatBoxed
	FloatBoxedPermanent
	StringNewPermanent
	StringConcat
	StringEquals
	StringSize
	ArrayNewPermanent
	ArrayPush
	ChannelNew
	ChannelSend
	ChannelReceive
	ChannelTryReceive
	ChannelReceiveUntil
	ChannelDrop
)

func (f RuntimeFunction) Name() string {
	switch f {
	case RuntimeNew:
		return "aster_runtime_new"
	case RuntimeDrop:
		return "aster_runtime_drop"
	case RuntimeStart:
		return "aster_runtime_start"
	case RuntimeState:
		return "aster_runtime_state"
	case ClassObject:
		return "aster_class_object"
	case ClassProcess:
		return "aster_class_process"
	case ObjectNew:
		return "aster_object_new"
	case ObjectFree:
		return "aster_free"
	case AllocError:
		return "aster_alloc_error"
	case ReferenceCountError:
		return "aster_reference_count_error"
	case ProcessNew:
		return "aster_process_new"
	case ProcessPanic:
		return "aster_process_panic"
	case ProcessYield:
		return "aster_process_yield"
	case ProcessSuspend:
		return "aster_process_suspend"
	case ProcessFinishMessage:
		return "aster_process_finish_message"
	case ProcessSendMessage:
		return "aster_process_send_message"
	case MessageNew:
		return "aster_message_new"
	case IntBoxed:
		return "aster_int_boxed"
	case IntBoxedPermanent:
		return "aster_int_boxed_permanent"
	case FloatBoxed:
		return "aster_float_boxed"
	case FloatBoxedPermanent:
		return "aster_float_boxed_permanent"
	case StringNewPermanent:
		return "aster_string_new_permanent"
	case StringConcat:
		return "aster_string_concat"
	case StringEquals:
		return "aster_string_equals"
	case StringSize:
		return "aster_string_size"
	case ArrayNewPermanent:
		return "aster_array_new_permanent"
	case ArrayPush:
		return "aster_array_push"
	case ChannelNew:
		return "aster_channel_new"
	case ChannelSend:
		return "aster_channel_send"
	case ChannelReceive:
		return "aster_channel_receive"
	case ChannelTryReceive:
		return "aster_channel_try_receive"
	case ChannelReceiveUntil:
		return "aster_channel_receive_until"
	case ChannelDrop:
		return "aster_channel_drop"
	default:
		panic("unknown runtime function")
	}
}

// signature returns the function's LLVM type. Pointers are opaque, so only
// arity and the few integer widths matter here.
func (f RuntimeFunction) signature(ctx llvm.Context, types *Types) llvm.Type {
	ptr := types.Pointer
	i8 := ctx.Int8Type()
	i16 := ctx.Int16Type()
	i32 := ctx.Int32Type()
	i64 := ctx.Int64Type()
	f64 := ctx.DoubleType()

	switch f {
	case RuntimeNew:
		return llvm.FunctionType(ptr, []llvm.Type{ptr}, false)
	case RuntimeDrop:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr}, false)
	case RuntimeStart:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr, ptr, ptr}, false)
	case RuntimeState:
		return llvm.FunctionType(ptr, []llvm.Type{ptr}, false)
	case ClassObject, ClassProcess:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, i32, i16}, false)
	case ObjectNew:
		return llvm.FunctionType(ptr, []llvm.Type{ptr}, false)
	case ObjectFree:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr}, false)
	case AllocError:
		return llvm.FunctionType(types.Void, []llvm.Type{i64}, false)
	case ReferenceCountError:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr, ptr}, false)
	case ProcessNew:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr}, false)
	case ProcessPanic:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr, ptr}, false)
	case ProcessYield:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr}, false)
	case ProcessSuspend:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr, i64}, false)
	case ProcessFinishMessage:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr, ctx.Int1Type()}, false)
	case ProcessSendMessage:
		return llvm.FunctionType(types.Void, []llvm.Type{ptr, ptr, ptr, ptr}, false)
	case MessageNew:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, i8}, false)
	case IntBoxed, IntBoxedPermanent:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, i64}, false)
	case FloatBoxed, FloatBoxedPermanent:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, f64}, false)
	case StringNewPermanent:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr, i64}, false)
	case StringConcat:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr, i64}, false)
	case StringEquals:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr, ptr}, false)
	case StringSize:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr}, false)
	case ArrayNewPermanent:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, i64}, false)
	case ArrayPush:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr, ptr}, false)
	case ChannelNew:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, i64}, false)
	case ChannelSend:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr, ptr, ptr}, false)
	case ChannelReceive:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr}, false)
	case ChannelTryReceive:
		return llvm.FunctionType(types.RuntimeResult, []llvm.Type{ptr, ptr}, false)
	case ChannelReceiveUntil:
		return llvm.FunctionType(types.RuntimeResult, []llvm.Type{ptr, ptr, ptr, i64}, false)
	case ChannelDrop:
		return llvm.FunctionType(ptr, []llvm.Type{ptr, ptr}, false)
	default:
		panic("unknown runtime function")
	}
}
