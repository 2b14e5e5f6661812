package ir

import "errors"

var (
	ErrNoBlocks           = errors.New("method has no basic blocks")
	ErrMissingTerminator  = errors.New("basic block does not end in a terminator")
	ErrEarlyTerminator    = errors.New("terminator before the end of its block")
	ErrRegisterOutOfRange = errors.New("instruction refers to an unknown register")
	ErrBlockOutOfRange    = errors.New("terminator refers to an unknown block")
	ErrNoEntryProcess     = errors.New("program has no entry process class")
	ErrEntryNotAsync      = errors.New("program entry method is not async")
)
