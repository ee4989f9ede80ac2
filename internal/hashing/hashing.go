// Package hashing computes the content digests used to compare local files with
// remote manifests and runtime catalogs.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrChecksumMismatch is matched by every ChecksumError.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ChecksumError reports a file whose digest differs from the expected one.
type ChecksumError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s. Expected: %s Actual: %s", e.Path, e.Expected, e.Actual)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// Reader streams r through SHA-256 and returns the lowercase hex digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the SHA-256 hex digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}

// Equal compares two hex digests ignoring case and surrounding whitespace.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Verify hashes path and returns a *ChecksumError when it does not match expected.
func Verify(path, expected string) error {
	actual, err := File(path)
	if err != nil {
		return err
	}
	if !Equal(actual, expected) {
		return &ChecksumError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}
