package builder

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/aster-lang/aster/ir"
)

// moduleOrder sorts the program's modules so that imported modules come
// before their importers. Declaration order breaks ties, which keeps the
// result stable across runs. Import cycles are rejected.
func moduleOrder(program *ir.Program) ([]*ir.Module, error) {
	g := multi.NewDirectedGraph()
	indices := make(map[string]int64, len(program.Modules))

	for i, mod := range program.Modules {
		g.AddNode(multi.Node(int64(i)))
		indices[mod.Name] = int64(i)
	}

	for i, mod := range program.Modules {
		for _, name := range mod.Imports {
			from, ok := indices[name]
			if !ok || from == int64(i) {
				continue
			}
			g.SetLine(g.NewLine(multi.Node(from), multi.Node(int64(i))))
		}
	}

	sorted, err := topo.SortStabilized(g, nil)
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			return nil, fmt.Errorf("%w: %s", ErrImportCycle, cycleNames(program, cycles))
		}
		return nil, err
	}

	order := make([]*ir.Module, len(sorted))
	for i, node := range sorted {
		order[i] = program.Modules[int(node.ID())]
	}
	return order, nil
}

func cycleNames(program *ir.Program, cycles topo.Unorderable) string {
	names := make([]string, 0, len(cycles))
	for _, cycle := range cycles {
		parts := make([]string, len(cycle))
		for i, node := range cycle {
			parts[i] = program.Modules[int(node.ID())].Name
		}
		names = append(names, strings.Join(parts, ", "))
	}
	return strings.Join(names, "; ")
}
