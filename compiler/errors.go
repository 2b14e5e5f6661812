package compiler

import "errors"

var (
	ErrTargetMissingCpu        = errors.New("target is missing CPU value")
	ErrTargetMissingTriple     = errors.New("target is missing target triple value")
	ErrTargetInformationFailed = errors.New("failed to get target information")
	ErrUnknownBlock            = errors.New("terminator refers to a block that was never created")
	ErrUnknownInstruction      = errors.New("instruction has no lowering")
	ErrUnknownBuiltin          = errors.New("builtin has no lowering")
	ErrVerifyFailed            = errors.New("module verification failed")
)
