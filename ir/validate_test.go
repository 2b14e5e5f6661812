package ir

import (
	"errors"
	"testing"
)

// validProgram builds the smallest program that passes validation: a Main
// process whose async main method immediately finishes.
func validProgram() *Program {
	method := &Method{
		Name:      "main",
		Async:     true,
		Arguments: []RegisterID{0},
		Registers: []Register{{ID: 0}},
		Blocks: []*Block{{
			Instructions: []Instruction{Finish{}},
		}},
	}
	class := &Class{Name: "Main", Process: true, Methods: []*Method{method}}
	method.Class = class

	mod := &Module{Name: "main", Classes: []*Class{class}}
	class.Module = mod

	return &Program{Modules: []*Module{mod}, EntryClass: class, EntryMethod: method}
}

func TestValidateAccepts(t *testing.T) {
	program := validProgram()
	if err := program.Validate(); err != nil {
		t.Fatalf("Validate() error: %s", err)
	}

	// Discarded results use NoRegister, which is never range checked.
	method := program.EntryMethod
	method.Blocks = []*Block{{
		Instructions: []Instruction{
			CallBuiltin{Register: NoRegister, Builtin: ProcessSuspend, Arguments: []RegisterID{0}},
			Finish{},
		},
	}}
	if err := program.Validate(); err != nil {
		t.Fatalf("Validate() rejected NoRegister: %s", err)
	}
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Program)
		want   error
	}{
		{"missing entry class", func(p *Program) { p.EntryClass = nil }, ErrNoEntryProcess},
		{"entry class is not a process", func(p *Program) { p.EntryClass.Process = false }, ErrNoEntryProcess},
		{"missing entry method", func(p *Program) { p.EntryMethod = nil }, ErrEntryNotAsync},
		{"entry method is not async", func(p *Program) { p.EntryMethod.Async = false }, ErrEntryNotAsync},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			program := validProgram()
			tc.mutate(program)

			if err := program.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateMethods(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Method)
		want   error
	}{
		{
			"no blocks",
			func(m *Method) { m.Blocks = nil },
			ErrNoBlocks,
		},
		{
			"empty block",
			func(m *Method) { m.Blocks = []*Block{{}} },
			ErrMissingTerminator,
		},
		{
			"missing terminator",
			func(m *Method) {
				m.Blocks = []*Block{{Instructions: []Instruction{Nil{Register: 0}}}}
			},
			ErrMissingTerminator,
		},
		{
			"terminator mid block",
			func(m *Method) {
				m.Blocks = []*Block{{Instructions: []Instruction{
					Finish{},
					Nil{Register: 0},
				}}}
			},
			ErrEarlyTerminator,
		},
		{
			"register out of range",
			func(m *Method) {
				m.Blocks = []*Block{{Instructions: []Instruction{
					Int{Register: 9, Value: 1},
					Finish{},
				}}}
			},
			ErrRegisterOutOfRange,
		},
		{
			"argument out of range",
			func(m *Method) { m.Arguments = []RegisterID{5} },
			ErrRegisterOutOfRange,
		},
		{
			"branch target out of range",
			func(m *Method) {
				m.Blocks = []*Block{{Instructions: []Instruction{Goto{Block: 7}}}}
			},
			ErrBlockOutOfRange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			program := validProgram()
			tc.mutate(program.EntryMethod)

			if err := program.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Validate() error = %v, want %v", err, tc.want)
			}
		})
	}
}
