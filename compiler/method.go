package compiler

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/aster-lang/aster/abi"
	"github.com/aster-lang/aster/ir"
)

// lowering carries the state for translating one method body into one
// native function.
type lowering struct {
	c      *Compiler
	method *ir.Method
	fn     Function

	// blocks maps IR block IDs to their LLVM blocks. All blocks exist
	// before any instruction is emitted, so terminators can always resolve
	// their targets.
	blocks []llvm.BasicBlock

	// variables maps register IDs to stack slots. Every register gets
	// exactly one slot, allocated in the entry block, so the promotion pass
	// can turn them into SSA values.
	variables []llvm.Value

	stateVar llvm.Value
	procVar  llvm.Value
}

func (c *Compiler) compileMethod(method *ir.Method) error {
	low := &lowering{c: c, method: method, fn: c.methodFunction(method)}
	return low.run()
}

func (l *lowering) run() error {
	entry := l.c.ctx.AddBasicBlock(l.fn.value, "")
	l.c.builder.SetInsertPointAtEnd(entry)
	l.defineRegisterVariables()

	if l.method.Async {
		l.asyncPrologue()
	} else {
		l.syncPrologue()
	}

	l.blocks = make([]llvm.BasicBlock, len(l.method.Blocks))
	for i := range l.method.Blocks {
		l.blocks[i] = l.c.ctx.AddBasicBlock(l.fn.value, fmt.Sprintf("bb%d", i))
	}

	l.c.builder.CreateBr(l.blocks[0])

	// Fill blocks breadth-first over successor edges. An explicit queue
	// handles arbitrarily deep graphs; the visited set handles loops.
	visited := make([]bool, len(l.method.Blocks))
	queue := []ir.BlockID{0}
	visited[0] = true

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		l.c.builder.SetInsertPointAtEnd(l.blocks[id])

		for _, ins := range l.method.Blocks[id].Instructions {
			if err := l.instruction(ins); err != nil {
				return err
			}
		}

		for _, succ := range l.method.Blocks[id].Successors() {
			if int(succ) >= len(visited) {
				return ErrUnknownBlock
			}
			if !visited[succ] {
				visited[succ] = true
				queue = append(queue, succ)
			}
		}
	}

	// Blocks nothing jumps to are never filled; close them.
	for i, ok := range visited {
		if !ok {
			l.c.builder.SetInsertPointAtEnd(l.blocks[i])
			l.c.builder.CreateUnreachable()
		}
	}

	return nil
}

func (l *lowering) defineRegisterVariables() {
	l.variables = make([]llvm.Value, len(l.method.Registers))

	for i, reg := range l.method.Registers {
		typ := l.c.types.Pointer
		if reg.Kind == ir.ResultRegister {
			typ = l.c.types.Result
		}
		l.variables[i] = l.c.builder.CreateAlloca(typ, fmt.Sprintf("r%d", i))
	}

	l.stateVar = l.c.builder.CreateAlloca(l.c.types.Pointer, "state")
	l.procVar = l.c.builder.CreateAlloca(l.c.types.Pointer, "process")
}

// syncPrologue spills the native arguments into their register slots:
// (state, process, [receiver,] args...).
func (l *lowering) syncPrologue() {
	params := l.fn.value.Params()

	l.c.builder.CreateStore(params[0], l.stateVar)
	l.c.builder.CreateStore(params[1], l.procVar)

	for i, reg := range l.method.Arguments {
		l.c.builder.CreateStore(params[2+i], l.variables[reg])
	}
}

// asyncPrologue destructures the context argument. The arguments travel in
// a heap array built by the sender; the receiver never does, as the running
// process is the receiver.
func (l *lowering) asyncPrologue() {
	b := l.c.builder
	types := l.c.types
	ctxPtr := l.fn.value.Params()[0]

	state := l.loadField(types.Context, ctxPtr, abi.ContextStateIndex, "state")
	b.CreateStore(state, l.stateVar)

	proc := l.loadField(types.Context, ctxPtr, abi.ContextProcessIndex, "process")
	b.CreateStore(proc, l.procVar)

	args := l.loadField(types.Context, ctxPtr, abi.ContextArgsIndex, "args")

	b.CreateStore(proc, l.variables[l.method.Arguments[0]])

	for i, reg := range l.method.Arguments[1:] {
		slot := b.CreateGEP(
			types.Pointer,
			args,
			[]llvm.Value{llvm.ConstInt(l.c.ctx.Int32Type(), uint64(i), false)},
			"",
		)
		b.CreateStore(b.CreateLoad(types.Pointer, slot, ""), l.variables[reg])
	}

	// The sender heap-allocates the context for this one call; once
	// destructured it is dead.
	l.c.callRuntime(ObjectFree, []llvm.Value{ctxPtr}, "")
}

// loadField loads a pointer-sized field from a struct.
func (l *lowering) loadField(typ llvm.Type, value llvm.Value, index int, name string) llvm.Value {
	field := l.c.builder.CreateStructGEP(typ, value, index, "")
	return l.c.builder.CreateLoad(l.c.types.Pointer, field, name)
}

// state and process load the current state and process pointers from their
// entry slots.
func (l *lowering) state() llvm.Value {
	return l.c.builder.CreateLoad(l.c.types.Pointer, l.stateVar, "state")
}

func (l *lowering) process() llvm.Value {
	return l.c.builder.CreateLoad(l.c.types.Pointer, l.procVar, "process")
}

// loadRegister and storeRegister access a register's stack slot as a
// pointer-sized word.
func (l *lowering) loadRegister(reg ir.RegisterID) llvm.Value {
	return l.c.builder.CreateLoad(l.c.types.Pointer, l.variables[reg], "")
}

func (l *lowering) storeRegister(reg ir.RegisterID, value llvm.Value) {
	l.c.builder.CreateStore(value, l.variables[reg])
}
