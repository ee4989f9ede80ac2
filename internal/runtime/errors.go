package runtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNoArtifact matches every *ResolutionError.
	ErrNoArtifact = errors.New("no runtime artifact matches")
	// ErrNoCatalogs is returned when the registry is empty.
	ErrNoCatalogs = errors.New("no runtime catalogs registered")
	// ErrExecutableMissing is returned when an unpacked runtime lacks its executable.
	ErrExecutableMissing = errors.New("runtime executable missing after install")
)

// ResolutionError reports that no catalog build matches the host.
type ResolutionError struct {
	OS        string
	Arch      string
	ImageType string
	Major     int
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no %s %d build found for %s/%s", e.ImageType, e.Major, e.OS, e.Arch)
}

// Is reports whether target is ErrNoArtifact.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrNoArtifact
}
