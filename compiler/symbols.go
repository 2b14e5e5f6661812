package compiler

import (
	"fmt"

	"github.com/aster-lang/aster/ir"
)

// symbolVersion is baked into every global symbol name and bumped whenever
// the generated-code ABI changes incompatibly, so objects from different ABI
// versions fail to link instead of misbehaving.
const symbolVersion = 1

// SetupFunction is the per-module setup routine's method name component.
const SetupFunction = "$setup"

// SymbolNames maps program entities to their deterministic global symbol
// names. Built once, before any code generation, and read-only afterwards.
type SymbolNames struct {
	Classes   map[*ir.Class]string
	Methods   map[*ir.Method]string
	Constants map[*ir.Constant]string
	Setup     map[*ir.Module]string
}

func NewSymbolNames(program *ir.Program) *SymbolNames {
	names := &SymbolNames{
		Classes:   make(map[*ir.Class]string),
		Methods:   make(map[*ir.Method]string),
		Constants: make(map[*ir.Constant]string),
		Setup:     make(map[*ir.Module]string),
	}

	for _, mod := range program.Modules {
		for _, class := range mod.Classes {
			names.Classes[class] = classSymbol(mod, class)

			for _, method := range class.Methods {
				names.Methods[method] = methodSymbol(mod, class, method)
			}
		}

		for _, constant := range mod.Constants {
			names.Constants[constant] = constantSymbol(mod, constant)
		}

		names.Setup[mod] = fmt.Sprintf("%dM_%s::%s", symbolVersion, mod.Name, SetupFunction)
	}

	return names
}

func classSymbol(mod *ir.Module, class *ir.Class) string {
	return fmt.Sprintf("%dT_%s::%s", symbolVersion, mod.Name, class.Name)
}

func methodSymbol(mod *ir.Module, class *ir.Class, method *ir.Method) string {
	return fmt.Sprintf("%dM_%s::%s.%s", symbolVersion, mod.Name, class.Name, method.Name)
}

func constantSymbol(mod *ir.Module, constant *ir.Constant) string {
	return fmt.Sprintf("%dC_%s::%s", symbolVersion, mod.Name, constant.Name)
}
