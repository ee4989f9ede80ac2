// Package platform maps the host operating system and architecture onto the
// labels used by runtime catalogs, and computes runtime executable locations.
package platform

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform represents a target OS/Architecture combination
type Platform struct {
	OS         string // windows, linux, mac
	Arch       string // x64, x32, aarch64, arm
	FileExt    string // zip, tar.gz
	Classifier string // os-arch
}

// PredefinedPlatforms returns the combinations runtime catalogs publish builds for
func PredefinedPlatforms() []Platform {
	return []Platform{
		buildPlatform("windows", "x64"),
		buildPlatform("windows", "x32"),
		buildPlatform("windows", "aarch64"),
		buildPlatform("mac", "x64"),
		buildPlatform("mac", "aarch64"),
		buildPlatform("linux", "x64"),
		buildPlatform("linux", "aarch64"),
		buildPlatform("linux", "arm"),
	}
}

// FindPlatform finds a platform by its os-arch classifier.
// GOOS/GOARCH pairs such as "darwin/arm64" are also accepted.
func FindPlatform(platformStr string) (Platform, error) {
	for _, p := range PredefinedPlatforms() {
		if p.Classifier == platformStr {
			return p, nil
		}
	}

	if goos, goarch, ok := strings.Cut(platformStr, "/"); ok && goos != "" && goarch != "" {
		return Detect(goos, goarch), nil
	}

	return Platform{}, fmt.Errorf("unknown platform: %s", platformStr)
}

// CurrentPlatform returns the platform for the current system
func CurrentPlatform() Platform {
	return Detect(runtime.GOOS, runtime.GOARCH)
}

// Detect maps a GOOS/GOARCH pair to catalog labels.
// Apple Silicon hosts query x64 builds, which run under Rosetta.
func Detect(goos, goarch string) Platform {
	os := mapOS(goos)
	arch := mapArch(goarch)
	if goos == "darwin" && goarch == "arm64" {
		arch = "x64"
	}
	return buildPlatform(os, arch)
}

// IsWindows reports whether executables need the .exe suffix.
func (p Platform) IsWindows() bool {
	return p.OS == "windows"
}

// ExecutablePath returns where the named runtime binary lives below root.
func (p Platform) ExecutablePath(root, name string) string {
	switch p.OS {
	case "mac":
		return filepath.Join(root, "Contents", "Home", "bin", name)
	case "windows":
		return filepath.Join(root, "bin", name+".exe")
	default:
		return filepath.Join(root, "bin", name)
	}
}

// mapOS converts Go's GOOS to our platform OS naming
func mapOS(goos string) string {
	switch goos {
	case "windows":
		return "windows"
	case "darwin":
		return "mac"
	case "linux":
		return "linux"
	default:
		return goos
	}
}

// mapArch converts Go's GOARCH to our platform architecture naming
func mapArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x32"
	case "arm64":
		return "aarch64"
	case "arm":
		return "arm"
	default:
		return goarch
	}
}

// buildPlatform constructs a Platform from OS and architecture strings
func buildPlatform(os, arch string) Platform {
	fileExt := "tar.gz"
	if os == "windows" {
		fileExt = "zip"
	}

	return Platform{
		OS:         os,
		Arch:       arch,
		FileExt:    fileExt,
		Classifier: fmt.Sprintf("%s-%s", os, arch),
	}
}
