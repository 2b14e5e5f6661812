package builder

import "errors"

var (
	ErrNoModules      = errors.New("program contains no modules")
	ErrNoEntry        = errors.New("program does not declare an entry process")
	ErrImportCycle    = errors.New("module imports form a cycle")
	ErrManifestName   = errors.New("manifest does not name the package")
	ErrManifestEntry  = errors.New("manifest does not name the entry module")
	ErrNoLinkerDriver = errors.New("no C compiler driver found for linking")
	ErrLinkFailed     = errors.New("linking failed")
)
