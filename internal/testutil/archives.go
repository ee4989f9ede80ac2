package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Entry describes one member of a generated archive. Names ending in "/" are
// directories; a non-empty Link makes the entry a symlink to Link.
type Entry struct {
	Name string
	Body string
	Mode os.FileMode
	Link string
}

// BuildZip returns a zip archive containing entries in order.
func BuildZip(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		mode := e.Mode
		body := e.Body
		switch {
		case strings.HasSuffix(e.Name, "/"):
			mode = os.ModeDir | 0755
			hdr.Method = zip.Store
		case e.Link != "":
			mode = os.ModeSymlink | 0777
			body = e.Link
		case mode == 0:
			mode = 0644
		}
		hdr.SetMode(mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("failed to add zip entry %s: %v", e.Name, err)
		}
		if !strings.HasSuffix(e.Name, "/") {
			if _, err := w.Write([]byte(body)); err != nil {
				t.Fatalf("failed to write zip entry %s: %v", e.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// BuildTarGz returns a gzip-compressed tar archive containing entries in order.
func BuildTarGz(t testing.TB, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: int64(e.Mode.Perm())}
		switch {
		case strings.HasSuffix(e.Name, "/"):
			hdr.Typeflag = tar.TypeDir
			if hdr.Mode == 0 {
				hdr.Mode = 0755
			}
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			hdr.Mode = 0777
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
			if hdr.Mode == 0 {
				hdr.Mode = 0644
			}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to add tar entry %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write tar entry %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}
	return buf.Bytes()
}

// JDKLayout returns the entries of a minimal runtime archive wrapped in a
// single top-level directory, the way vendor archives are shipped.
func JDKLayout(wrapper string) []Entry {
	return []Entry{
		{Name: wrapper + "/"},
		{Name: path.Join(wrapper, "bin") + "/"},
		{Name: path.Join(wrapper, "bin", "java"), Body: "#!/bin/sh\necho java\n", Mode: 0644},
		{Name: path.Join(wrapper, "release"), Body: "JAVA_VERSION=\"17.0.8\"\n"},
	}
}
