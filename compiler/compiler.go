package compiler

import (
	"errors"
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/ir"
)

// Function pairs a declared function with its type. Pointers are opaque, so
// the type can't be recovered from the value when building calls.
type Function struct {
	value    llvm.Value
	llvmType llvm.Type
}

// literalKey interns method-body literals so each distinct value gets one
// global per module.
type literalKey struct {
	kind  byte
	int   int64
	float float64
	str   string
}

// literal is one interned literal: its value and the pointer-sized global
// that setup fills with the permanent object.
type literal struct {
	value  ir.ConstantValue
	global llvm.Value
}

// Compiler lowers one IR module into one LLVM module. Each instance owns its
// LLVM context, so separate instances can run on separate goroutines.
type Compiler struct {
	program *ir.Program
	mod     *ir.Module
	layouts *Layouts
	names   *SymbolNames
	options Options

	ctx     llvm.Context
	module  llvm.Module
	builder llvm.Builder
	types   *Types

	functions  map[*ir.Method]Function
	externs    map[*ir.ExternFunction]Function
	runtime    map[RuntimeFunction]Function
	intrinsics map[string]Function
	globals    map[string]llvm.Value

	literals    []*literal
	literalKeys map[literalKey]*literal
}

func NewCompiler(program *ir.Program, mod *ir.Module, layouts *Layouts, names *SymbolNames, options Options) *Compiler {
	// Create the LLVM context
	ctx := llvm.NewContext()

	// Create the module
	module := ctx.NewModule(mod.Name)
	module.SetTarget(options.Target.Triple)

	// Create the instruction builder
	builder := ctx.NewBuilder()

	return &Compiler{
		program:     program,
		mod:         mod,
		layouts:     layouts,
		names:       names,
		options:     options,
		ctx:         ctx,
		module:      module,
		builder:     builder,
		types:       NewTypes(ctx, layouts, program),
		functions:   make(map[*ir.Method]Function),
		externs:     make(map[*ir.ExternFunction]Function),
		runtime:     make(map[RuntimeFunction]Function),
		intrinsics:  make(map[string]Function),
		globals:     make(map[string]llvm.Value),
		literalKeys: make(map[literalKey]*literal),
	}
}

// Compile lowers every method of the module and then emits the module's
// setup function.
func (c *Compiler) Compile() error {
	log.Debugf("compiling %s", c.mod.Name)

	for _, class := range c.mod.Classes {
		for _, method := range class.Methods {
			if err := c.compileMethod(method); err != nil {
				return fmt.Errorf("%s.%s: %w", class.Name, method.Name, err)
			}
		}
	}

	c.compileSetup()

	if c.options.Verify {
		if err := c.Verify(); err != nil {
			if c.options.Verbosity >= Debug {
				log.Debugf("rejected module %s:\n%s", c.mod.Name, c.IRText())
			}
			return err
		}
	}
	return nil
}

// Verify runs the LLVM module verifier.
func (c *Compiler) Verify() error {
	if err := llvm.VerifyModule(c.module, llvm.ReturnStatusAction); err != nil {
		return errors.Join(ErrVerifyFailed, err)
	}
	return nil
}

// Optimize runs the pass pipeline selected by the options. Debug builds
// still promote register slots so the output is not pathological.
func (c *Compiler) Optimize(machine llvm.TargetMachine) error {
	passes := "function(mem2reg)"
	if c.options.Opt == OptRelease {
		passes = "default<O2>"
	}

	po := llvm.NewPassBuilderOptions()
	defer po.Dispose()

	return c.module.RunPasses(passes, machine, po)
}

// EmitObject compiles the module to object code for the given machine.
func (c *Compiler) EmitObject(machine llvm.TargetMachine) ([]byte, error) {
	buf, err := machine.EmitToMemoryBuffer(c.module, llvm.ObjectFile)
	if err != nil {
		return nil, err
	}
	defer buf.Dispose()

	// The buffer is freed with the dispose above, so hand out a copy.
	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// IRText returns the module's textual IR.
func (c *Compiler) IRText() string {
	return c.module.String()
}

// Module returns the generated LLVM module.
func (c *Compiler) Module() llvm.Module {
	return c.module
}

func (c *Compiler) Dispose() {
	c.builder.Dispose()
	c.module.Dispose()
	c.ctx.Dispose()
}

// runtimeFunction returns the declaration for a runtime library function,
// adding it to the module on first use.
func (c *Compiler) runtimeFunction(f RuntimeFunction) Function {
	if fn, ok := c.runtime[f]; ok {
		return fn
	}

	typ := f.signature(c.ctx, c.types)
	fn := Function{value: llvm.AddFunction(c.module, f.Name(), typ), llvmType: typ}
	c.runtime[f] = fn
	return fn
}

func (c *Compiler) callRuntime(f RuntimeFunction, args []llvm.Value, name string) llvm.Value {
	fn := c.runtimeFunction(f)
	return c.builder.CreateCall(fn.llvmType, fn.value, args, name)
}

// methodFunction returns the declaration for a method, adding it to the
// module on first use. Methods of other modules stay declarations; the
// linker resolves them against that module's object file.
func (c *Compiler) methodFunction(method *ir.Method) Function {
	if fn, ok := c.functions[method]; ok {
		return fn
	}

	typ := c.types.Signature(method)
	fn := Function{value: llvm.AddFunction(c.module, c.names.Methods[method], typ), llvmType: typ}
	c.functions[method] = fn
	return fn
}

// externFunction returns the declaration for an extern function. Parameters
// and results are pointer-sized words; richer foreign signatures are the
// frontend's responsibility to rule out.
func (c *Compiler) externFunction(ext *ir.ExternFunction) Function {
	if fn, ok := c.externs[ext]; ok {
		return fn
	}

	params := make([]llvm.Type, ext.Params)
	for i := range params {
		params[i] = c.types.Pointer
	}

	ret := c.types.Pointer
	if ext.Returns == ir.ExternReturnsNone {
		ret = c.types.Void
	}

	typ := llvm.FunctionType(ret, params, false)
	fn := Function{value: llvm.AddFunction(c.module, ext.Name, typ), llvmType: typ}
	c.externs[ext] = fn
	return fn
}

// intrinsic declares an LLVM intrinsic by its mangled name.
func (c *Compiler) intrinsic(name string, ret llvm.Type, params []llvm.Type) Function {
	if fn, ok := c.intrinsics[name]; ok {
		return fn
	}

	typ := llvm.FunctionType(ret, params, false)
	fn := Function{value: llvm.AddFunction(c.module, name, typ), llvmType: typ}
	c.intrinsics[name] = fn
	return fn
}

// classGlobal returns the pointer-sized global holding a class object
// pointer. The defining module initializes it to null and fills it during
// setup; other modules only declare it.
func (c *Compiler) classGlobal(class *ir.Class) llvm.Value {
	name := c.names.Classes[class]
	if global, ok := c.globals[name]; ok {
		return global
	}

	global := llvm.AddGlobal(c.module, c.types.Pointer, name)
	if class.Module == c.mod {
		global.SetInitializer(llvm.ConstNull(c.types.Pointer))
	}

	c.globals[name] = global
	return global
}

// constantGlobal returns the pointer-sized global holding a module
// constant's permanent value.
func (c *Compiler) constantGlobal(constant *ir.Constant) llvm.Value {
	name := c.names.Constants[constant]
	if global, ok := c.globals[name]; ok {
		return global
	}

	global := llvm.AddGlobal(c.module, c.types.Pointer, name)
	if constant.Module == c.mod {
		global.SetInitializer(llvm.ConstNull(c.types.Pointer))
	}

	c.globals[name] = global
	return global
}

// literalGlobal interns a method-body literal, returning the global that
// setup fills with its permanent value.
func (c *Compiler) literalGlobal(value ir.ConstantValue) llvm.Value {
	key := keyForLiteral(value)
	if lit, ok := c.literalKeys[key]; ok {
		return lit.global
	}

	name := fmt.Sprintf("%dL_%s_%d", symbolVersion, c.mod.Name, len(c.literals))
	global := llvm.AddGlobal(c.module, c.types.Pointer, name)
	global.SetInitializer(llvm.ConstNull(c.types.Pointer))

	lit := &literal{value: value, global: global}
	c.literals = append(c.literals, lit)
	c.literalKeys[key] = lit
	return global
}

func keyForLiteral(value ir.ConstantValue) literalKey {
	switch v := value.(type) {
	case ir.IntValue:
		return literalKey{kind: 'i', int: int64(v)}
	case ir.FloatValue:
		return literalKey{kind: 'f', float: float64(v)}
	case ir.StringValue:
		return literalKey{kind: 's', str: string(v)}
	default:
		panic("only scalar literals appear in method bodies")
	}
}

// stringBytes creates a private constant byte array holding the value plus
// a trailing NUL, returning the global. Used for class names and string
// literal payloads.
func (c *Compiler) stringBytes(value string) llvm.Value {
	data := c.ctx.ConstString(value, true)
	global := llvm.AddGlobal(c.module, data.Type(), "")
	global.SetInitializer(data)
	global.SetLinkage(llvm.PrivateLinkage)
	global.SetUnnamedAddr(true)
	global.SetGlobalConstant(true)
	return global
}
