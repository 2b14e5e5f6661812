package builder

import (
	"runtime"

	"github.com/aster-lang/aster/compiler"
)

type Options struct {
	// Target describes the machine the program is generated for.
	Target compiler.TargetInfo

	Optimization compiler.Opt
	Verbosity    compiler.Verbosity

	// BuildDir receives object files, IR dumps and the incremental cache.
	BuildDir string

	// Output is the executable path. Empty disables linking.
	Output string

	// Runtime is the path of the runtime static library handed to the
	// linker.
	Runtime string

	// NumJobs caps parallel module compilation. Zero means one worker per
	// CPU.
	NumJobs int

	WriteIR bool
	Verify  bool
}

func (o Options) jobs(modules int) int {
	n := o.NumJobs
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > modules {
		n = modules
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (o Options) compilerOptions() compiler.Options {
	return compiler.Options{
		Target:    o.Target,
		Opt:       o.Optimization,
		Verbosity: o.Verbosity,
		WriteIR:   o.WriteIR,
		Verify:    o.Verify,
	}
}
