package ir

// Builtin enumerates the operations lowered directly to native code or to
// dedicated runtime primitives, rather than compiled method calls.
type Builtin int

const (
	IntAdd Builtin = iota
	IntSub
	IntMul
	IntDiv
	IntRem
	IntBitAnd
	IntBitOr
	IntBitXor
	IntBitNot
	IntShl
	IntShr
	IntUnsignedShr
	IntEq
	IntNe
	IntGt
	IntGe
	IntLt
	IntLe
	IntToFloat

	FloatAdd
	FloatSub
	FloatMul
	FloatDiv
	FloatMod
	FloatCeil
	FloatFloor
	FloatRound
	FloatEq
	FloatGt
	FloatGe
	FloatLt
	FloatLe
	FloatIsNan
	FloatIsInf
	FloatToBits
	FloatFromBits
	FloatToInt

	StringConcat
	StringEq
	StringSize

	Panic

	ProcessSuspend
	ChannelNew
	ChannelSend
	ChannelReceive
	ChannelTryReceive
	ChannelReceiveUntil
	ChannelDrop
)

var builtinNames = map[Builtin]string{
	IntAdd:              "int_add",
	IntSub:              "int_sub",
	IntMul:              "int_mul",
	IntDiv:              "int_div",
	IntRem:              "int_rem",
	IntBitAnd:           "int_bit_and",
	IntBitOr:            "int_bit_or",
	IntBitXor:           "int_bit_xor",
	IntBitNot:           "int_bit_not",
	IntShl:              "int_shl",
	IntShr:              "int_shr",
	IntUnsignedShr:      "int_unsigned_shr",
	IntEq:               "int_eq",
	IntNe:               "int_ne",
	IntGt:               "int_gt",
	IntGe:               "int_ge",
	IntLt:               "int_lt",
	IntLe:               "int_le",
	IntToFloat:          "int_to_float",
	FloatAdd:            "float_add",
	FloatSub:            "float_sub",
	FloatMul:            "float_mul",
	FloatDiv:            "float_div",
	FloatMod:            "float_mod",
	FloatCeil:           "float_ceil",
	FloatFloor:          "float_floor",
	FloatRound:          "float_round",
	FloatEq:             "float_eq",
	FloatGt:             "float_gt",
	FloatGe:             "float_ge",
	FloatLt:             "float_lt",
	FloatLe:             "float_le",
	FloatIsNan:          "float_is_nan",
	FloatIsInf:          "float_is_inf",
	FloatToBits:         "float_to_bits",
	FloatFromBits:       "float_from_bits",
	FloatToInt:          "float_to_int",
	StringConcat:        "string_concat",
	StringEq:            "string_eq",
	StringSize:          "string_size",
	Panic:               "panic",
	ProcessSuspend:      "process_suspend",
	ChannelNew:          "channel_new",
	ChannelSend:         "channel_send",
	ChannelReceive:      "channel_receive",
	ChannelTryReceive:   "channel_try_receive",
	ChannelReceiveUntil: "channel_receive_until",
	ChannelDrop:         "channel_drop",
}

func (b Builtin) String() string {
	if name, ok := builtinNames[b]; ok {
		return name
	}
	return "unknown"
}
