package builder

import (
	"github.com/aster-lang/aster/compiler"
	"github.com/aster-lang/aster/targets"
)

// ResolveTarget turns a manifest or command line target name into a target
// descriptor. An empty name selects the host.
func ResolveTarget(name string) (compiler.TargetInfo, error) {
	if name == "" {
		return targets.Native()
	}
	return targets.All().FindByName(name)
}
