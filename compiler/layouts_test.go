package compiler

import (
	"fmt"
	"testing"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

func testClass(name string, methods ...string) *ir.Class {
	class := &ir.Class{Name: name}
	for _, m := range methods {
		class.Methods = append(class.Methods, &ir.Method{Name: m, Class: class})
	}
	return class
}

func testProgram(classes ...*ir.Class) *ir.Program {
	mod := &ir.Module{Name: "main", Classes: classes}
	for _, class := range classes {
		class.Module = mod
	}
	return &ir.Program{Modules: []*ir.Module{mod}}
}

// baseHash returns the hash a name gets when no other name conflicts with
// it, using a throwaway hasher.
func baseHash(name string) uint64 {
	return NewMethodHasher().Hash(name)
}

// maskCollision finds two distinct names whose hashes land on the same slot
// of a table with the given mask, skipping the dropper slot.
func maskCollision(t *testing.T, mask uint64) (string, string) {
	t.Helper()

	seen := make(map[uint64]string)
	for i := 0; i < 10000; i++ {
		name := fmt.Sprintf("method%d", i)
		slot := baseHash(name) & mask
		if slot == abi.DropperIndex {
			continue
		}
		if prev, ok := seen[slot]; ok {
			return prev, name
		}
		seen[slot] = name
	}

	t.Fatal("no masked hash collision found")
	return "", ""
}

func TestMethodTableSizes(t *testing.T) {
	tests := []struct {
		methods int
		want    int
	}{
		{0, 0},
		{1, 4},
		{2, 8},
		{3, 16},
		{4, 16},
		{5, 32},
		{16, 64},
		{17, 128},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d methods", tc.methods), func(t *testing.T) {
			names := make([]string, tc.methods)
			for i := range names {
				names[i] = fmt.Sprintf("m%d", i)
			}
			class := testClass("Thing", names...)
			layouts := NewLayouts(testProgram(class), TargetInfo{ProcessSize: 112})

			layout := layouts.Classes[class]
			if layout.MethodTableSize != tc.want {
				t.Errorf("table size = %d, want %d", layout.MethodTableSize, tc.want)
			}
			if size := layout.MethodTableSize; size&(size-1) != 0 {
				t.Errorf("table size %d is not a power of two", size)
			}
		})
	}
}

func TestMethodSlotsInRange(t *testing.T) {
	names := make([]string, 23)
	for i := range names {
		names[i] = fmt.Sprintf("m%d", i)
	}
	class := testClass("Thing", names...)
	layouts := NewLayouts(testProgram(class), TargetInfo{ProcessSize: 112})

	size := layouts.Classes[class].MethodTableSize
	used := make(map[uint16]string)
	for _, method := range class.Methods {
		info := layouts.Methods[method]
		if int(info.Index) >= size {
			t.Errorf("method %s placed at %d, table has %d slots", method.Name, info.Index, size)
		}
		if prev, ok := used[info.Index]; ok {
			t.Errorf("methods %s and %s share slot %d", prev, method.Name, info.Index)
		}
		used[info.Index] = method.Name
	}
}

func TestDropperSlot(t *testing.T) {
	class := testClass("Thing", "a", DropperMethod, "b", "c")
	layouts := NewLayouts(testProgram(class), TargetInfo{ProcessSize: 112})

	for _, method := range class.Methods {
		info := layouts.Methods[method]
		if method.Name == DropperMethod {
			if info.Index != abi.DropperIndex {
				t.Errorf("dropper placed at %d, want %d", info.Index, abi.DropperIndex)
			}
		} else if info.Index == abi.DropperIndex {
			t.Errorf("method %s stole the dropper slot", method.Name)
		}
	}
}

func TestCollisionFlags(t *testing.T) {
	// Two methods sized into an 8 slot table, landing on the same slot.
	first, second := maskCollision(t, 7)
	class := testClass("Thing", first, second)
	layouts := NewLayouts(testProgram(class), TargetInfo{ProcessSize: 112})

	if size := layouts.Classes[class].MethodTableSize; size != 8 {
		t.Fatalf("table size = %d, want 8", size)
	}

	firstInfo := layouts.Methods[class.Methods[0]]
	secondInfo := layouts.Methods[class.Methods[1]]

	if firstInfo.Collision {
		t.Error("first method flagged as colliding")
	}
	if !secondInfo.Collision {
		t.Error("second method not flagged as colliding")
	}
	if firstInfo.Index == secondInfo.Index {
		t.Errorf("both methods placed at slot %d", firstInfo.Index)
	}
}

func TestTraitCollisionPropagation(t *testing.T) {
	first, second := maskCollision(t, 7)

	class := testClass("Thing", first, second)
	mod := &ir.Module{Name: "main", Classes: []*ir.Class{class}}
	class.Module = mod

	trait := &ir.Trait{Name: "Speak", Module: mod}
	traitMethod := &ir.Method{Name: second, Trait: trait}
	trait.Methods = []*ir.Method{traitMethod}
	mod.Traits = []*ir.Trait{trait}

	class.Methods[1].Implements = traitMethod

	program := &ir.Program{Modules: []*ir.Module{mod}}
	layouts := NewLayouts(program, TargetInfo{ProcessSize: 112})

	info := layouts.Methods[traitMethod]
	if !info.Collision {
		t.Error("collision not propagated to the trait method")
	}
	if got, want := info.Hash, layouts.Methods[class.Methods[1]].Hash; got != want {
		t.Errorf("trait method hash = %d, implementation hash = %d", got, want)
	}
}

func TestClosureLayout(t *testing.T) {
	class := testClass("Closure17", DropperMethod, CallMethod)
	class.Closure = true
	layouts := NewLayouts(testProgram(class), TargetInfo{ProcessSize: 112})

	dropper := layouts.Methods[class.Methods[0]]
	call := layouts.Methods[class.Methods[1]]

	if dropper.Index != abi.DropperIndex {
		t.Errorf("closure dropper placed at %d, want %d", dropper.Index, abi.DropperIndex)
	}
	if call.Index != abi.ClosureCallIndex {
		t.Errorf("closure call placed at %d, want %d", call.Index, abi.ClosureCallIndex)
	}
}

func TestInstanceSizes(t *testing.T) {
	target := TargetInfo{ProcessSize: 112}

	tests := []struct {
		name  string
		class *ir.Class
		want  uint32
	}{
		{"int", &ir.Class{Name: "Int", Builtin: ir.IntClass}, 24},
		{"float", &ir.Class{Name: "Float", Builtin: ir.FloatClass}, 24},
		{"bool", &ir.Class{Name: "Bool", Builtin: ir.BoolClass}, 16},
		{"nil", &ir.Class{Name: "Nil", Builtin: ir.NilClass}, 16},
		{"string", &ir.Class{Name: "String", Builtin: ir.StringClass}, 32},
		{"array", &ir.Class{Name: "Array", Builtin: ir.ArrayClass}, 40},
		{"byte array", &ir.Class{Name: "ByteArray", Builtin: ir.ByteArrayClass}, 40},
		{"channel", &ir.Class{Name: "Channel", Builtin: ir.ChannelClass}, 24},
		{
			"user class",
			&ir.Class{
				Name:   "Pair",
				Fields: []*ir.Field{{Name: "a", Index: 0}, {Name: "b", Index: 1}},
			},
			32,
		},
		{
			"process",
			&ir.Class{
				Name:    "Counter",
				Process: true,
				Fields:  []*ir.Field{{Name: "value", Index: 0}},
			},
			120,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			layouts := NewLayouts(testProgram(tc.class), target)
			if got := layouts.Classes[tc.class].InstanceSize; got != tc.want {
				t.Errorf("instance size = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLayoutsDeterministic(t *testing.T) {
	build := func() *Layouts {
		a := testClass("A", "one", "two", "three")
		b := testClass("B", "one", "four", "five", "six", "seven")
		return NewLayouts(testProgram(a, b), TargetInfo{ProcessSize: 112})
	}

	left := build()
	right := build()

	index := func(l *Layouts) map[string]MethodInfo {
		out := make(map[string]MethodInfo)
		for method, info := range l.Methods {
			out[method.Class.Name+"."+method.Name] = info
		}
		return out
	}

	li, ri := index(left), index(right)
	for name, info := range li {
		if other := ri[name]; other != info {
			t.Errorf("%s placed at %+v in one run, %+v in another", name, info, other)
		}
	}
}
