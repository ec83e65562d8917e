// Package archive extracts tar, tar.gz, tar.zst, and zip archives,
// adapted from the teacher's pkg/archive: same zip-slip guard, with
// entries extracted in one pass in archive order (parent directories are
// created as needed), generalized to also serve a bare tar stream that is
// already decompressed (the pantry tarball sync case).
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Extract extracts the archive at src into dest, dispatching on file
// extension. Supports .zip, .tar, .tar.gz, .tgz, and .tar.zst.
func Extract(src, dest string) error {
	if strings.HasSuffix(src, ".zip") {
		return extractZip(src, dest)
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", src, err)
	}
	defer f.Close()

	var r io.Reader = f

	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating gzip reader for %s: %w", src, err)
		}
		defer gz.Close()
		r = gz

	case strings.HasSuffix(src, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating zstd reader for %s: %w", src, err)
		}
		defer zr.Close()
		r = zr

	case strings.HasSuffix(src, ".tar"):
		// Plain tar: r is already the file.

	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}

	return ExtractTar(r, dest)
}

// ExtractTar extracts a tar stream (already decompressed) into dest.
func ExtractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		if err := extractEntry(header.Name, header.FileInfo(), dest, func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening zip archive %s: %w", src, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractEntry(f.Name, f.FileInfo(), dest, func() (io.ReadCloser, error) {
			return f.Open()
		}); err != nil {
			return err
		}
	}
	return nil
}

// extractEntry writes a single archive entry under dest, guarding
// against zip-slip path traversal.
func extractEntry(name string, info os.FileInfo, dest string, opener func() (io.ReadCloser, error)) error {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal file path in archive: %s", name)
	}

	if info.IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent dir for %s: %w", target, err)
	}

	rc, err := opener()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("creating file %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}
