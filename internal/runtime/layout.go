package runtime

import (
	"fmt"
	"os"
	"path/filepath"
)

// InstallDir returns <root>/runtime/<imageType>-<major>.
func InstallDir(root, imageType string, major int) string {
	return filepath.Join(root, "runtime", fmt.Sprintf("%s-%d", imageType, major))
}

// Normalize hoists the children of a single wrapping directory into dir and
// removes the wrapper. It reports whether anything was moved.
func Normalize(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to read install directory: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return false, nil
	}

	// The wrapper is renamed first so a child sharing its name can take its place.
	wrapper := filepath.Join(dir, entries[0].Name())
	staging, err := os.MkdirTemp(dir, ".normalize-")
	if err != nil {
		return false, fmt.Errorf("failed to create staging directory: %w", err)
	}
	moved := filepath.Join(staging, "root")
	if err := os.Rename(wrapper, moved); err != nil {
		_ = os.Remove(staging)
		return false, fmt.Errorf("failed to stage %s: %w", entries[0].Name(), err)
	}

	children, err := os.ReadDir(moved)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", entries[0].Name(), err)
	}
	for _, child := range children {
		if err := os.Rename(filepath.Join(moved, child.Name()), filepath.Join(dir, child.Name())); err != nil {
			return false, fmt.Errorf("failed to move %s: %w", child.Name(), err)
		}
	}

	if err := os.RemoveAll(staging); err != nil {
		return true, fmt.Errorf("failed to remove staging directory: %w", err)
	}
	return true, nil
}
