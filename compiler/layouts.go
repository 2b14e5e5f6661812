package compiler

import (
	"golang.org/x/exp/slices"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

// Method table sizes are multiplied by this value in an attempt to reduce
// the amount of collisions when performing dynamic dispatch. Each slot is
// only two words, so the memory cost is a small one-time constant, whereas a
// collision costs on every dynamic call.
const MethodTableFactor = 4

// Frontend-generated method names with reserved table slots.
const (
	DropperMethod = "$dropper"
	CallMethod    = "call"
)

// roundMethods rounds the given value up to the nearest power of two.
func roundMethods(value int) int {
	if value == 0 {
		return 0
	}

	value--
	value |= value >> 1
	value |= value >> 2
	value |= value >> 4
	value |= value >> 8
	value |= value >> 16
	value |= value >> 32
	value++

	return value
}

// MethodInfo is the placement of one method: its slot in the owning class'
// table, its dispatch hash, and whether probing is needed when dispatching
// on it.
type MethodInfo struct {
	Index     uint16
	Hash      uint64
	Collision bool
}

// ClassLayout is the precomputed memory shape of one class.
type ClassLayout struct {
	// InstanceSize is the heap size of one instance in bytes, header
	// included.
	InstanceSize uint32

	// MethodTableSize is the number of (hash, code) slots; always zero or a
	// power of two.
	MethodTableSize int
}

// Layouts holds the whole-program tables produced before code generation:
// per-class memory layouts and per-method dispatch placements. Built once
// and passed by reference through every lowering call.
type Layouts struct {
	Target  TargetInfo
	Classes map[*ir.Class]ClassLayout
	Methods map[*ir.Method]MethodInfo
}

// NewLayouts computes class layouts and method table placements for the
// whole program.
//
// Classes are processed in a deterministic order: with conflicting hashes,
// iteration order decides which method probes forward, so it has to be
// stable between compilations.
//
// Collision flags propagate in a second pass, after all slots are assigned:
// a slot conflict is discovered at the colliding implementation, but dynamic
// call sites only ever know the trait method's identity, so the flag has to
// land there too.
func NewLayouts(program *ir.Program, target TargetInfo) *Layouts {
	layouts := &Layouts{
		Target:  target,
		Classes: make(map[*ir.Class]ClassLayout),
		Methods: make(map[*ir.Method]MethodInfo),
	}
	hasher := NewMethodHasher()

	// Trait methods are hashed before any slot assignment so their hashes
	// exist for dynamic call sites regardless of table processing order.
	for _, mod := range program.Modules {
		for _, trait := range mod.Traits {
			for _, method := range trait.Methods {
				layouts.Methods[method] = MethodInfo{Hash: hasher.Hash(method.Name)}
			}
		}
	}

	classes := make([]*ir.Class, 0)
	for _, mod := range program.Modules {
		classes = append(classes, mod.Classes...)
	}
	slices.SortFunc(classes, func(a, b *ir.Class) bool {
		return classKey(a) < classKey(b)
	})

	collided := make([]*ir.Method, 0)

	for _, class := range classes {
		size := roundMethods(len(class.Methods)) * MethodTableFactor
		layouts.Classes[class] = ClassLayout{
			InstanceSize:    instanceSize(class, target),
			MethodTableSize: size,
		}

		if size == 0 {
			continue
		}

		buckets := make([]bool, size)
		maxBucket := size - 1

		// The dropper slot is claimed first so no method ever hashes into it,
		// regardless of processing order.
		buckets[abi.DropperIndex] = true

		for _, method := range class.Methods {
			hash := hasher.Hash(method.Name)
			collision := false
			var index int

			switch {
			case class.Closure:
				// Closures use a fixed layout so their methods are called by
				// slot, never by hash.
				switch method.Name {
				case DropperMethod:
					index = abi.DropperIndex
				case CallMethod:
					index = abi.ClosureCallIndex
				default:
					panic("closures only define a dropper and a call method")
				}
			case method.Name == DropperMethod:
				// Droppers always go in slot 0 so they can be called without
				// knowing the type.
				index = abi.DropperIndex
			default:
				index = int(hash) & (size - 1)

				for buckets[index] {
					collision = true
					index = (index + 1) & maxBucket
				}
			}

			buckets[index] = true
			layouts.Methods[method] = MethodInfo{
				Index:     uint16(index),
				Hash:      hash,
				Collision: collision,
			}

			if collision {
				collided = append(collided, method)
			}
		}
	}

	// Second pass: patch the flag onto the trait methods dispatch actually
	// targets.
	for _, method := range collided {
		if orig := method.Implements; orig != nil {
			info := layouts.Methods[orig]
			info.Collision = true
			layouts.Methods[orig] = info
		}
	}

	return layouts
}

func classKey(class *ir.Class) string {
	if class.Module == nil {
		return class.Name
	}
	return class.Module.Name + "." + class.Name
}

// instanceSize computes the heap size of one instance. Built-in classes use
// their specialized runtime layouts; user classes are a header followed by
// one word per field, and processes reserve runtime-internal state between
// the two.
func instanceSize(class *ir.Class, target TargetInfo) uint32 {
	switch class.Builtin {
	case ir.IntClass, ir.FloatClass:
		return abi.HeaderSize + 8
	case ir.BoolClass, ir.NilClass:
		return abi.HeaderSize
	case ir.StringClass:
		return abi.HeaderSize + 16
	case ir.ArrayClass, ir.ByteArrayClass:
		return abi.HeaderSize + 24
	case ir.ChannelClass:
		return abi.HeaderSize + 8
	}

	if class.Process {
		return uint32(target.ProcessSize) + uint32(len(class.Fields))*8
	}
	return abi.HeaderSize + uint32(len(class.Fields))*8
}
