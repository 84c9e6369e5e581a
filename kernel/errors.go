package kernel

import "github.com/pkg/errors"

// Errors crossing the user/kernel boundary. Handlers turn all of them into a
// -1 result.
var (
	ErrOutOfBounds     = errors.New("address out of bounds")
	ErrCopyFault       = errors.New("copy fault")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownCall     = errors.New("unknown system call")
	ErrInterrupted     = errors.New("interrupted")
)

var (
	ErrUnknownFile = errors.New("unknown file")
	ErrNoChild     = errors.New("no child processes")
	ErrNoProcess   = errors.New("no such process")
	ErrProcLimit   = errors.New("process table full")
	ErrBadConfig   = errors.New("bad kernel config")
)
