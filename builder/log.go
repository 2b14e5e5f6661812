package builder

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/aster-lang/aster/compiler"
)

var log = commonlog.GetLogger("aster.builder")

// ConfigureLogging maps a build verbosity onto the logging backend. Call it
// once, before Build.
func ConfigureLogging(verbosity compiler.Verbosity, path *string) {
	level := 0
	switch verbosity {
	case compiler.Quiet:
		level = -4
	case compiler.Warning:
		level = 0
	case compiler.Info:
		level = 1
	case compiler.Debug:
		level = 2
	}
	commonlog.Configure(level, path)
}
