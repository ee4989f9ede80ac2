package downloader

import (
	"errors"
	"fmt"
)

var (
	// ErrTransfer matches every *TransferError.
	ErrTransfer = errors.New("transfer failed")
	// ErrNoMirror is returned when no configured mirror answers a probe.
	ErrNoMirror = errors.New("no mirror available")
	// ErrStalled is wrapped by a TransferError whose body stopped arriving.
	ErrStalled = errors.New("transfer stalled")
)

// TransferError is a failed HTTP exchange: a transport error or a non-success status.
type TransferError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer of %s failed: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transfer of %s failed: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransfer.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}
