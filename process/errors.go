package process

import (
	"errors"
	"fmt"
)

// OSError is a failed OS memory primitive. Err is the platform error.
type OSError struct {
	Op   string
	Addr ProcessMemoryAddress
	Size ProcessMemorySize
	Err  error
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%s at %s (%d bytes): %v", e.Op, e.Addr, uint(e.Size), e.Err)
}

func (e *OSError) Unwrap() error { return e.Err }

func (e *OSError) Is(target error) bool { return target == ErrOSTransfer }

// ShortTransferError is an OS call that reported success but moved fewer
// bytes than requested. It carries no platform error code.
type ShortTransferError struct {
	Op          string
	Addr        ProcessMemoryAddress
	Requested   int
	Transferred int
}

func (e *ShortTransferError) Error() string {
	return fmt.Sprintf("%s at %s: transferred %d of %d bytes", e.Op, e.Addr, e.Transferred, e.Requested)
}

func (e *ShortTransferError) Is(target error) bool { return target == ErrShortTransfer }

// ChainError is a pointer chain failure at a 1-based Depth. Null is set when
// the dereferenced pointer was zero; otherwise Err holds the read failure.
type ChainError struct {
	Depth    int
	Location ProcessMemoryAddress
	Null     bool
	Err      error
}

func (e *ChainError) Error() string {
	if e.Null {
		return fmt.Sprintf("null pointer at depth %d (read at %s)", e.Depth, e.Location)
	}
	return fmt.Sprintf("pointer read failed at depth %d (read at %s): %v", e.Depth, e.Location, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }

func (e *ChainError) Is(target error) bool {
	if e.Null {
		return target == ErrNullPointerInChain
	}
	return target == ErrChainRead
}

// ChainDepth returns the depth carried by a *ChainError in err's chain.
func ChainDepth(err error) (int, bool) {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Depth, true
	}
	return 0, false
}
