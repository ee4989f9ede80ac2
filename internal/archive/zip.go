package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

func extractZip(ctx context.Context, archivePath string, x *extractor, progress ProgressFunc) (int, error) {
	zr, err := zip.OpenReader(archivePath)
	// Insecure names are rejected per entry by cleanName.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return 0, &ExtractionError{Archive: archivePath, Err: fmt.Errorf("failed to open zip: %w", err)}
	}
	defer func() {
		_ = zr.Close()
	}()

	total := len(zr.File)
	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return i, &ExtractionError{Archive: archivePath, Err: err}
		}
		if err := extractZipEntry(x, f); err != nil {
			return i, &ExtractionError{Archive: archivePath, Entry: f.Name, Err: err}
		}
		progress(i+1, total)
	}
	return total, nil
}

func extractZipEntry(x *extractor, f *zip.File) error {
	name, err := cleanName(f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	switch {
	case mode.IsDir():
		return x.mkdirAll(name)
	case mode&os.ModeSymlink != 0:
		rc, err := f.Open()
		if err != nil {
			return err
		}
		link, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
		return x.symlink(name, string(link))
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()
	return x.writeFile(name, rc, mode.Perm())
}
