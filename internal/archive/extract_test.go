package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildTar(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf
}

func TestExtractTarWritesFiles(t *testing.T) {
	dest := t.TempDir()
	buf := buildTar(t, map[string]string{
		"bin/tool":      "#!/bin/sh\necho hi\n",
		"share/doc/x.md": "docs",
	})

	if err := ExtractTar(buf, dest); err != nil {
		t.Fatalf("ExtractTar: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "bin", "tool"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "#!/bin/sh\necho hi\n" {
		t.Errorf("extracted content mismatch: %q", data)
	}
}

func TestExtractTarRejectsZipSlip(t *testing.T) {
	dest := t.TempDir()
	buf := buildTar(t, map[string]string{
		"../../etc/passwd": "pwned",
	})

	if err := ExtractTar(buf, dest); err == nil {
		t.Error("ExtractTar should reject a path-traversal entry")
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	src := filepath.Join(t.TempDir(), "archive.rar")
	if err := os.WriteFile(src, []byte("not an archive"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Extract(src, t.TempDir()); err == nil {
		t.Error("Extract should reject an unrecognized extension")
	}
}
