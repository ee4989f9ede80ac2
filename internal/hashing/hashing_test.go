package hashing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sha256("hello world")
const helloWorldSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestReader(t *testing.T) {
	got, err := Reader(strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	if got != helloWorldSHA256 {
		t.Errorf("Reader() = %s, want %s", got, helloWorldSHA256)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if got != helloWorldSHA256 {
		t.Errorf("File() = %s, want %s", got, helloWorldSHA256)
	}

	if _, err := File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("File() on missing path expected error")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "abc", "abc", true},
		{"case differs", "ABC", "abc", true},
		{"whitespace", " abc\n", "abc", true},
		{"different", "abc", "abd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Verify(path, strings.ToUpper(helloWorldSHA256)); err != nil {
		t.Errorf("Verify() with matching digest error = %v", err)
	}

	err := Verify(path, "deadbeef")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Verify() error = %v, want ErrChecksumMismatch", err)
	}
	var csErr *ChecksumError
	if !errors.As(err, &csErr) {
		t.Fatalf("Verify() error type = %T, want *ChecksumError", err)
	}
	if csErr.Actual != helloWorldSHA256 || csErr.Expected != "deadbeef" {
		t.Errorf("ChecksumError = %+v", csErr)
	}
}
