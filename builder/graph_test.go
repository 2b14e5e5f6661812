package builder

import (
	"errors"
	"testing"

	"github.com/aster-lang/aster/ir"
)

func TestModuleOrder(t *testing.T) {
	tests := []struct {
		name    string
		modules []*ir.Module
		want    []string
	}{
		{
			name: "imports come before importers",
			modules: []*ir.Module{
				{Name: "main", Imports: []string{"std::process"}},
				{Name: "std::process", Imports: []string{"std::string"}},
				{Name: "std::string"},
			},
			want: []string{"std::string", "std::process", "main"},
		},
		{
			name: "declaration order breaks ties",
			modules: []*ir.Module{
				{Name: "b"},
				{Name: "a"},
				{Name: "c"},
			},
			want: []string{"b", "a", "c"},
		},
		{
			name: "diamond",
			modules: []*ir.Module{
				{Name: "main", Imports: []string{"left", "right"}},
				{Name: "left", Imports: []string{"base"}},
				{Name: "right", Imports: []string{"base"}},
				{Name: "base"},
			},
			want: []string{"base", "left", "right", "main"},
		},
		{
			name: "unknown imports are ignored",
			modules: []*ir.Module{
				{Name: "main", Imports: []string{"std::io"}},
			},
			want: []string{"main"},
		},
		{
			name: "self imports are ignored",
			modules: []*ir.Module{
				{Name: "main", Imports: []string{"main"}},
			},
			want: []string{"main"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order, err := moduleOrder(&ir.Program{Modules: tc.modules})
			if err != nil {
				t.Fatalf("moduleOrder() error: %s", err)
			}
			if len(order) != len(tc.want) {
				t.Fatalf("moduleOrder() returned %d modules, want %d", len(order), len(tc.want))
			}
			for i, mod := range order {
				if mod.Name != tc.want[i] {
					t.Errorf("order[%d] = %s, want %s", i, mod.Name, tc.want[i])
				}
			}
		})
	}
}

func TestModuleOrderCycle(t *testing.T) {
	program := &ir.Program{
		Modules: []*ir.Module{
			{Name: "a", Imports: []string{"b"}},
			{Name: "b", Imports: []string{"a"}},
		},
	}

	if _, err := moduleOrder(program); !errors.Is(err, ErrImportCycle) {
		t.Fatalf("moduleOrder() error = %v, want an import cycle error", err)
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"main", "main.o"},
		{"std::process", "std.process.o"},
		{"$main", "_main.o"},
	}

	for _, tc := range tests {
		if got := objectName(tc.module); got != tc.want {
			t.Errorf("objectName(%q) = %q, want %q", tc.module, got, tc.want)
		}
	}
}
