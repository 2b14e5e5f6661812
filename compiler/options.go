package compiler

type Verbosity int

const (
	Quiet Verbosity = iota
	Info
	Warning
	Debug
)

// Opt selects how much optimization runs over each generated module. The
// promote-slots-to-registers pass always runs; OptRelease additionally runs
// the default O2 pipeline.
type Opt int

const (
	OptDebug Opt = iota
	OptRelease
)

type Options struct {
	Target    TargetInfo
	Opt       Opt
	Verbosity Verbosity

	// WriteIR additionally writes each module's textual IR next to its
	// object file.
	WriteIR bool

	// Verify runs the module verifier after each module is generated.
	Verify bool
}
