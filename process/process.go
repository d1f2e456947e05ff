// Package process provides the address model, error kinds and the portable
// memory algorithms (typed access, protected writes, pointer chains) that
// run on top of a platform's raw process memory primitives.
package process

import "errors"

var (
	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrInvalidAddress is returned before any OS call when an address is
	// negative, too wide for the host, or the requested range wraps.
	ErrInvalidAddress = errors.New("invalid address")

	ErrProcessNotFound = errors.New("process not found")
	ErrModuleNotFound  = errors.New("module not found")

	// ErrHandleAcquisitionFailed is returned when the process exists but a
	// handle with memory access rights could not be opened, usually for lack
	// of privilege.
	ErrHandleAcquisitionFailed = errors.New("failed to open process handle")

	// ErrOSTransfer is matched by every *OSError.
	ErrOSTransfer = errors.New("memory transfer failed")

	// ErrShortTransfer is matched by every *ShortTransferError: the OS call
	// succeeded but moved fewer bytes than requested.
	ErrShortTransfer = errors.New("short transfer")

	// ErrProtectionChange is returned by a forced write when the page
	// protection could not be relaxed. The write was not retried.
	ErrProtectionChange = errors.New("failed to change page protection")

	// ErrForcedWrite is returned when the write still failed after the page
	// protection was relaxed.
	ErrForcedWrite = errors.New("forced write failed")

	ErrNullPointerInChain = errors.New("null pointer in chain")
	ErrChainRead          = errors.New("pointer chain read failed")

	ErrInvalidHexPatch = errors.New("invalid hex patch")
	ErrDecode          = errors.New("invalid utf-8 string")

	// ErrUnsupportedPlatform is returned by the live backend on hosts without
	// handle based process memory primitives.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)
