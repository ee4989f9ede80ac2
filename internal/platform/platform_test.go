package platform

import (
	"path/filepath"
	"runtime"
	"testing"
)

// TestPredefinedPlatforms tests that all expected platforms are defined
func TestPredefinedPlatforms(t *testing.T) {
	platforms := PredefinedPlatforms()

	if got := len(platforms); got != 8 {
		t.Fatalf("PredefinedPlatforms() count = %d, want 8", got)
	}

	for i, p := range platforms {
		if p.OS == "" {
			t.Errorf("Platform[%d].OS is empty", i)
		}
		if p.Arch == "" {
			t.Errorf("Platform[%d].Arch is empty", i)
		}
		if p.FileExt == "" {
			t.Errorf("Platform[%d].FileExt is empty", i)
		}
		if p.Classifier != p.OS+"-"+p.Arch {
			t.Errorf("Platform[%d].Classifier = %q", i, p.Classifier)
		}
	}

	expectedCombinations := []struct {
		os   string
		arch string
		ext  string
	}{
		{"windows", "x64", "zip"},
		{"windows", "x32", "zip"},
		{"mac", "x64", "tar.gz"},
		{"linux", "x64", "tar.gz"},
		{"linux", "aarch64", "tar.gz"},
		{"linux", "arm", "tar.gz"},
	}

	for _, expected := range expectedCombinations {
		found := false
		for _, p := range platforms {
			if p.OS == expected.os && p.Arch == expected.arch && p.FileExt == expected.ext {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected platform %s-%s with extension %s not found",
				expected.os, expected.arch, expected.ext)
		}
	}
}

// TestDetect covers the fixed OS/arch table, including the Apple Silicon mapping
func TestDetect(t *testing.T) {
	tests := []struct {
		goos, goarch string
		wantOS       string
		wantArch     string
	}{
		{"windows", "amd64", "windows", "x64"},
		{"windows", "386", "windows", "x32"},
		{"windows", "arm64", "windows", "aarch64"},
		{"linux", "amd64", "linux", "x64"},
		{"linux", "arm64", "linux", "aarch64"},
		{"linux", "arm", "linux", "arm"},
		{"darwin", "amd64", "mac", "x64"},
		{"darwin", "arm64", "mac", "x64"},
		{"freebsd", "riscv64", "freebsd", "riscv64"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			p := Detect(tt.goos, tt.goarch)
			if p.OS != tt.wantOS || p.Arch != tt.wantArch {
				t.Errorf("Detect(%q, %q) = %s/%s, want %s/%s",
					tt.goos, tt.goarch, p.OS, p.Arch, tt.wantOS, tt.wantArch)
			}
		})
	}
}

// TestFindPlatform tests finding platforms by classifier or GOOS/GOARCH
func TestFindPlatform(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOS   string
		wantArch string
		wantErr  bool
	}{
		{name: "classifier", input: "linux-aarch64", wantOS: "linux", wantArch: "aarch64"},
		{name: "classifier windows x32", input: "windows-x32", wantOS: "windows", wantArch: "x32"},
		{name: "goos/goarch", input: "darwin/arm64", wantOS: "mac", wantArch: "x64"},
		{name: "unknown", input: "plan9-mips", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "half pair", input: "linux/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FindPlatform(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("FindPlatform(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindPlatform(%q) error = %v", tt.input, err)
			}
			if p.OS != tt.wantOS || p.Arch != tt.wantArch {
				t.Errorf("FindPlatform(%q) = %s/%s", tt.input, p.OS, p.Arch)
			}
		})
	}
}

// TestCurrentPlatform tests that the host maps to a non-empty platform
func TestCurrentPlatform(t *testing.T) {
	p := CurrentPlatform()
	want := Detect(runtime.GOOS, runtime.GOARCH)
	if p != want {
		t.Errorf("CurrentPlatform() = %+v, want %+v", p, want)
	}
}

// TestExecutablePath tests per-OS runtime binary locations
func TestExecutablePath(t *testing.T) {
	root := filepath.Join("game", "runtime", "jdk-17")

	tests := []struct {
		os   string
		want string
	}{
		{"mac", filepath.Join(root, "Contents", "Home", "bin", "java")},
		{"windows", filepath.Join(root, "bin", "java.exe")},
		{"linux", filepath.Join(root, "bin", "java")},
	}

	for _, tt := range tests {
		t.Run(tt.os, func(t *testing.T) {
			p := Platform{OS: tt.os}
			if got := p.ExecutablePath(root, "java"); got != tt.want {
				t.Errorf("ExecutablePath() = %s, want %s", got, tt.want)
			}
		})
	}
}
