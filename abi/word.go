// Package abi centralizes the bit-level contract between generated code and
// the runtime library: the tagged word encoding, object header layout, and
// the fixed indices of runtime structures. Code generation and tests share
// these definitions so the tagging invariants live in one place.
package abi

// A value word is either a heap pointer or an inline integer. The low two
// bits disambiguate:
//
//	00  owned heap pointer
//	01  tagged integer, value in the upper 63 bits
//	10  borrowed (ref) pointer to the same object
//
// Anything not covered by the tag bits is resolved through the kind byte in
// the object header.
const (
	IntMask   = 0b001
	IntShift  = 1
	RefMask   = 0b010
	TagMask   = 0b011
	UntagMask = ^uint64(TagMask)

	// MinInt and MaxInt bound the values representable as tagged integers.
	MinInt = int64(-1) << 62
	MaxInt = int64(1)<<62 - 1
)

// Kind byte values, stored in the object header. These must match the
// runtime library.
const (
	OwnedKind     = 0
	RefKind       = 1
	AtomicKind    = 2
	PermanentKind = 3
	IntKind       = 4
	FloatKind     = 5
)

// Word is a pointer-sized tagged value as generated code manipulates it.
type Word uint64

// TagInt encodes an integer as a tagged word. The value must be within
// [MinInt, MaxInt].
func TagInt(v int64) Word {
	return Word(uint64(v)<<IntShift | IntMask)
}

// FitsInt reports whether v can be encoded as a tagged integer.
func FitsInt(v int64) bool {
	return v >= MinInt && v <= MaxInt
}

// FromPointer wraps an untagged heap address.
func FromPointer(addr uint64) Word {
	return Word(addr)
}

// Ref marks the word as a borrowed pointer.
func (w Word) Ref() Word {
	return w | RefMask
}

// IsTaggedInt reports whether the word carries an inline integer.
func (w Word) IsTaggedInt() bool {
	return w&IntMask == IntMask
}

// IsRef reports whether the word carries the borrow bit.
func (w Word) IsRef() bool {
	return w&TagMask == RefMask
}

// Int decodes a tagged integer, preserving the sign.
func (w Word) Int() int64 {
	return int64(w) >> IntShift
}

// Pointer strips the tag bits, yielding the heap address.
func (w Word) Pointer() uint64 {
	return uint64(w) & UntagMask
}

// Object header: { class: pointer, kind: u8, refs: u32 }, 16 bytes total on
// 64-bit targets.
const (
	HeaderClassIndex = 0
	HeaderKindIndex  = 1
	HeaderRefsIndex  = 2
	HeaderSize       = 16
)

// Field offsets within instance structs. The header occupies the first
// field; processes additionally reserve runtime-internal state before the
// first user field.
const (
	FieldOffset        = 1
	ProcessFieldOffset = 2
)

// Class object: { name, instance_size: u32, method_count: u16, methods }.
const (
	ClassNameIndex         = 0
	ClassInstanceSizeIndex = 1
	ClassMethodsCountIndex = 2
	ClassMethodsIndex      = 3
)

// Method table entries are (hash, code) pairs.
const (
	MethodHashIndex     = 0
	MethodFunctionIndex = 1
)

// Reserved method table slots for closures. Every class reserves slot 0 for
// its dropper.
const (
	DropperIndex     = 0
	ClosureCallIndex = 1
)

// Boxed Int and Float instances store their payload directly after the
// header.
const (
	BoxedIntValueIndex   = 1
	BoxedFloatValueIndex = 1
)

// Context structure for the async calling convention.
const (
	ContextStateIndex   = 0
	ContextProcessIndex = 1
	ContextArgsIndex    = 2
)

// Message structure: { method: fn*, length: u8, args: [N x pointer] }.
const (
	MessageMethodIndex    = 0
	MessageLengthIndex    = 1
	MessageArgumentsIndex = 2
)

// Result structure: { tag: u8, value: pointer }.
const (
	ResultTagIndex   = 0
	ResultValueIndex = 1

	ResultOkTag    = 0
	ResultErrorTag = 1
)

// Leading fields of the runtime state struct, in order. Generated code
// accesses these by index; the runtime must not reorder them.
const (
	StateTrueIndex = iota
	StateFalseIndex
	StateNilIndex
	StateIntClassIndex
	StateFloatClassIndex
	StateStringClassIndex
	StateArrayClassIndex
	StateBoolClassIndex
	StateNilClassIndex
	StateByteArrayClassIndex
	StateChannelClassIndex
	StateHashKey0Index
	StateHashKey1Index
)

// Runtime-call results carry a word-sized tag with an extra case for "no
// value", unlike the byte tag of method results.
const (
	RuntimeResultOk    = 0
	RuntimeResultNone  = 1
	RuntimeResultError = 2
)
