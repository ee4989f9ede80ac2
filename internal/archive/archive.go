// Package archive extracts runtime archives (zip and tar.gz) into a directory.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

var (
	// ErrExtraction matches every *ExtractionError.
	ErrExtraction = errors.New("extraction failed")
	// ErrUnsupportedFormat is returned when an archive is neither zip nor gzip.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("entry escapes destination")
)

// ExtractionError reports a failure while unpacking an archive. Entry is empty
// when the failure is not tied to a single member.
type ExtractionError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("failed to extract %s from %s: %v", e.Entry, e.Archive, e.Err)
	}
	return fmt.Sprintf("failed to extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// Format identifies an archive container.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTarGz Format = "tar.gz"
)

// ProgressFunc is called after each extracted entry. total is -1 when the
// format does not expose an entry count up front.
type ProgressFunc func(entries, total int)

// Detect sniffs the archive header, falling back to the file extension.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read archive header: %w", err)
	}

	kind, _ := filetype.Match(head[:n])
	switch kind.Extension {
	case "zip":
		return FormatZip, nil
	case "gz":
		return FormatTarGz, nil
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Extract unpacks archivePath into dest and returns the number of entries written.
// Entries are written through an os.Root on dest, so no write follows a
// symlink out of the tree.
func Extract(ctx context.Context, archivePath, dest string, progress ProgressFunc) (int, error) {
	if progress == nil {
		progress = func(int, int) {}
	}

	format, err := Detect(archivePath)
	if err != nil {
		return 0, &ExtractionError{Archive: archivePath, Err: err}
	}
	x, err := newExtractor(dest)
	if err != nil {
		return 0, &ExtractionError{Archive: archivePath, Err: err}
	}
	defer func() {
		_ = x.close()
	}()

	switch format {
	case FormatZip:
		return extractZip(ctx, archivePath, x, progress)
	default:
		return extractTarGz(ctx, archivePath, x, progress)
	}
}

// extractor writes entries below one destination directory.
type extractor struct {
	dest string // symlink-free path of the destination
	root *os.Root
}

func newExtractor(dest string) (*extractor, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	root, err := os.OpenRoot(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	return &extractor{dest: resolved, root: root}, nil
}

func (x *extractor) close() error {
	return x.root.Close()
}

// cleanName turns an archive member name into a relative OS path, rejecting
// absolute paths and parent escapes. The archive root itself is ".".
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.FromSlash(cleaned), nil
}

func (x *extractor) mkdirAll(name string) error {
	if name == "." {
		return nil
	}
	parts := strings.Split(name, string(filepath.Separator))
	for i := range parts {
		dir := filepath.Join(parts[:i+1]...)
		if err := x.root.Mkdir(dir, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (x *extractor) writeFile(name string, r io.Reader, mode os.FileMode) error {
	if err := x.mkdirAll(filepath.Dir(name)); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0644
	}
	out, err := x.root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	return out.Close()
}

// parentDir creates the parent of name and returns its symlink-free path,
// which must lie inside the destination.
func (x *extractor) parentDir(name string) (string, error) {
	parent := filepath.Dir(name)
	if err := x.mkdirAll(parent); err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(x.dest, parent))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", parent, err)
	}
	if !within(x.dest, resolved) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return resolved, nil
}

// symlink creates name pointing at target. Targets must be relative and
// canonical (".." only as leading components) and must resolve inside the
// destination from the link's real parent directory.
func (x *extractor) symlink(name, target string) error {
	if err := checkLinkTarget(target); err != nil {
		return err
	}
	parent, err := x.parentDir(name)
	if err != nil {
		return err
	}
	if !within(x.dest, filepath.Join(parent, filepath.FromSlash(target))) {
		return fmt.Errorf("%w: link to %q", ErrUnsafePath, target)
	}
	link := filepath.Join(parent, filepath.Base(name))
	_ = os.Remove(link)
	return os.Symlink(target, link)
}

// hardlink creates name as a hard link to the regular file source.
func (x *extractor) hardlink(name, source string) error {
	src, err := cleanName(source)
	if err != nil {
		return err
	}
	realSrc, err := filepath.EvalSymlinks(filepath.Join(x.dest, src))
	if err != nil {
		return fmt.Errorf("failed to resolve link source %s: %w", source, err)
	}
	if !within(x.dest, realSrc) {
		return fmt.Errorf("%w: link to %q", ErrUnsafePath, source)
	}
	parent, err := x.parentDir(name)
	if err != nil {
		return err
	}
	link := filepath.Join(parent, filepath.Base(name))
	_ = os.Remove(link)
	return os.Link(realSrc, link)
}

func checkLinkTarget(target string) error {
	if target == "" || filepath.IsAbs(target) || strings.HasPrefix(target, "/") || strings.Contains(target, "\\") {
		return fmt.Errorf("%w: link to %q", ErrUnsafePath, target)
	}
	named := false
	for _, part := range strings.Split(target, "/") {
		switch part {
		case "", ".":
		case "..":
			if named {
				return fmt.Errorf("%w: link to %q", ErrUnsafePath, target)
			}
		default:
			named = true
		}
	}
	return nil
}

func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
