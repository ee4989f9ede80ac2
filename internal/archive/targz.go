package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

func extractTarGz(ctx context.Context, archivePath string, x *extractor, progress ProgressFunc) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, &ExtractionError{Archive: archivePath, Err: fmt.Errorf("failed to open archive: %w", err)}
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, &ExtractionError{Archive: archivePath, Err: fmt.Errorf("failed to open gzip stream: %w", err)}
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, &ExtractionError{Archive: archivePath, Err: err}
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return count, &ExtractionError{Archive: archivePath, Err: fmt.Errorf("failed to read tar header: %w", err)}
		}
		if err := extractTarEntry(x, hdr, tr); err != nil {
			return count, &ExtractionError{Archive: archivePath, Entry: hdr.Name, Err: err}
		}
		count++
		progress(count, -1)
	}
	return count, nil
}

func extractTarEntry(x *extractor, hdr *tar.Header, r io.Reader) error {
	name, err := cleanName(hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return x.mkdirAll(name)
	case tar.TypeReg:
		return x.writeFile(name, r, hdr.FileInfo().Mode().Perm())
	case tar.TypeSymlink:
		return x.symlink(name, hdr.Linkname)
	case tar.TypeLink:
		return x.hardlink(name, hdr.Linkname)
	default:
		// Device nodes, FIFOs and PAX records carry nothing a runtime needs.
		return nil
	}
}
