package ir

import (
	"fmt"
)

// Validate checks the structural invariants the code generator relies on: a
// present entry process, and for every method a terminated CFG whose
// instructions only refer to known registers and blocks. Violations indicate
// a bug in an earlier compiler phase.
func (p *Program) Validate() error {
	if p.EntryClass == nil || !p.EntryClass.Process {
		return ErrNoEntryProcess
	}
	if p.EntryMethod == nil || !p.EntryMethod.Async {
		return ErrEntryNotAsync
	}

	var err error
	p.EachMethod(func(mod *Module, class *Class, method *Method) {
		if err != nil {
			return
		}
		if verr := method.validate(); verr != nil {
			err = fmt.Errorf("%s.%s.%s: %w", mod.Name, class.Name, method.Name, verr)
		}
	})
	return err
}

func (m *Method) validate() error {
	if len(m.Blocks) == 0 {
		return ErrNoBlocks
	}

	for id, block := range m.Blocks {
		if len(block.Instructions) == 0 {
			return fmt.Errorf("block %d: %w", id, ErrMissingTerminator)
		}

		for i, ins := range block.Instructions {
			last := i == len(block.Instructions)-1
			_, isTerm := ins.(Terminator)
			if last && !isTerm {
				return fmt.Errorf("block %d: %w", id, ErrMissingTerminator)
			}
			if !last && isTerm {
				return fmt.Errorf("block %d: %w", id, ErrEarlyTerminator)
			}

			for _, reg := range registerOperands(ins) {
				if reg == NoRegister {
					continue
				}
				if int(reg) < 0 || int(reg) >= len(m.Registers) {
					return fmt.Errorf("block %d: r%d: %w", id, reg, ErrRegisterOutOfRange)
				}
			}
			if isTerm {
				for _, target := range ins.(Terminator).Successors() {
					if int(target) < 0 || int(target) >= len(m.Blocks) {
						return fmt.Errorf("block %d: b%d: %w", id, target, ErrBlockOutOfRange)
					}
				}
			}
		}
	}

	for _, arg := range m.Arguments {
		if int(arg) < 0 || int(arg) >= len(m.Registers) {
			return fmt.Errorf("argument r%d: %w", arg, ErrRegisterOutOfRange)
		}
	}
	return nil
}

func registerOperands(ins Instruction) []RegisterID {
	switch v := ins.(type) {
	case Int:
		return []RegisterID{v.Register}
	case Float:
		return []RegisterID{v.Register}
	case String:
		return []RegisterID{v.Register}
	case Bool:
		return []RegisterID{v.Register}
	case Nil:
		return []RegisterID{v.Register}
	case MoveRegister:
		return []RegisterID{v.Source, v.Target}
	case GetConstant:
		return []RegisterID{v.Register}
	case Allocate:
		return []RegisterID{v.Register}
	case Spawn:
		return []RegisterID{v.Register}
	case Free:
		return []RegisterID{v.Register}
	case Reference:
		return []RegisterID{v.Register, v.Value}
	case Increment:
		return []RegisterID{v.Register}
	case Decrement:
		return []RegisterID{v.Register}
	case IncrementAtomic:
		return []RegisterID{v.Register}
	case CheckRefs:
		return []RegisterID{v.Register}
	case GetField:
		return []RegisterID{v.Register, v.Receiver}
	case SetField:
		return []RegisterID{v.Receiver, v.Value}
	case FieldPointer:
		return []RegisterID{v.Register, v.Receiver}
	case Pointer:
		return []RegisterID{v.Register, v.Value}
	case ReadPointer:
		return []RegisterID{v.Register, v.Address}
	case WritePointer:
		return []RegisterID{v.Address, v.Value}
	case CallStatic:
		return append([]RegisterID{v.Register}, v.Arguments...)
	case CallInstance:
		return append([]RegisterID{v.Register, v.Receiver}, v.Arguments...)
	case CallDynamic:
		return append([]RegisterID{v.Register, v.Receiver}, v.Arguments...)
	case CallClosure:
		return append([]RegisterID{v.Register, v.Receiver}, v.Arguments...)
	case CallDropper:
		return []RegisterID{v.Register, v.Receiver}
	case CallExtern:
		return append([]RegisterID{v.Register}, v.Arguments...)
	case CallBuiltin:
		return append([]RegisterID{v.Register}, v.Arguments...)
	case Send:
		return append([]RegisterID{v.Receiver}, v.Arguments...)
	case ResultValue:
		return []RegisterID{v.Register, v.Value}
	case Branch:
		return []RegisterID{v.Condition}
	case Switch:
		return []RegisterID{v.Value}
	case BranchResult:
		return []RegisterID{v.Value}
	case DecrementAtomic:
		return []RegisterID{v.Register}
	case Return:
		return []RegisterID{v.Value}
	case Throw:
		return []RegisterID{v.Value}
	default:
		return nil
	}
}
