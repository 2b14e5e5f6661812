package compiler

import (
	"testing"

	"github.com/aster-lang/aster/ir"
)

func TestSymbolNames(t *testing.T) {
	mod := &ir.Module{Name: "main"}
	class := &ir.Class{Name: "Counter", Module: mod}
	method := &ir.Method{Name: "increment", Class: class}
	constant := &ir.Constant{Name: "LIMIT", Module: mod, Value: ir.IntValue(100)}

	class.Methods = []*ir.Method{method}
	mod.Classes = []*ir.Class{class}
	mod.Constants = []*ir.Constant{constant}

	program := &ir.Program{Modules: []*ir.Module{mod}}
	names := NewSymbolNames(program)

	tests := []struct {
		got  string
		want string
	}{
		{names.Classes[class], "1T_main::Counter"},
		{names.Methods[method], "1M_main::Counter.increment"},
		{names.Constants[constant], "1C_main::LIMIT"},
		{names.Setup[mod], "1M_main::$setup"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSymbolNamesDistinctAcrossModules(t *testing.T) {
	// Same class/method names in different modules must yield different
	// symbols.
	var methods []*ir.Method
	var modules []*ir.Module

	for _, name := range []string{"std.string", "std.int"} {
		mod := &ir.Module{Name: name}
		class := &ir.Class{Name: "Formatter", Module: mod}
		method := &ir.Method{Name: "format", Class: class}
		class.Methods = []*ir.Method{method}
		mod.Classes = []*ir.Class{class}
		modules = append(modules, mod)
		methods = append(methods, method)
	}

	names := NewSymbolNames(&ir.Program{Modules: modules})

	if names.Methods[methods[0]] == names.Methods[methods[1]] {
		t.Fatalf("methods in different modules share symbol %q", names.Methods[methods[0]])
	}
}
