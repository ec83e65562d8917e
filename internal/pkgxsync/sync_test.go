package pkgxsync

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkgx-run/pkgx/internal/pkgxconfig"
	"github.com/pkgx-run/pkgx/internal/types"
)

func buildPantryTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	body := "provides:\n  - curl\n"
	if err := tw.WriteHeader(&tar.Header{Name: "projects/curl.se/package.yml", Mode: 0o644, Size: int64(len(body))}); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func newTestConfig(t *testing.T, tarballURL string) pkgxconfig.Config {
	t.Helper()
	t.Setenv("PKGX_DIR", t.TempDir())
	t.Setenv("PKGX_PANTRY_DIR", filepath.Join(t.TempDir(), "pantry"))
	t.Setenv("PKGX_PANTRY_TARBALL_URL", tarballURL)
	cfg, err := pkgxconfig.Init()
	if err != nil {
		t.Fatalf("pkgxconfig.Init: %v", err)
	}
	return cfg
}

func TestShouldTrueWhenPantryTreeAbsent(t *testing.T) {
	cfg := newTestConfig(t, "http://unused.test")
	if !Should(cfg) {
		t.Error("Should() should be true before any sync has happened")
	}
}

func TestReplaceUnpacksAndRebuildsIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buildPantryTarball(t))
	}))
	defer srv.Close()

	cfg := newTestConfig(t, srv.URL)

	db, err := Replace(context.Background(), cfg, types.Linux)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	defer db.Close()

	if Should(cfg) {
		t.Error("Should() should be false immediately after a successful sync")
	}

	project, err := db.Which("curl")
	if err != nil {
		t.Fatalf("Which: %v", err)
	}
	if project != "curl.se" {
		t.Errorf("Which(curl) = %q, want curl.se", project)
	}
}

func TestReplaceReleasesLockOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := newTestConfig(t, srv.URL)

	if _, err := Replace(context.Background(), cfg, types.Linux); err == nil {
		t.Fatal("Replace should fail on a 500 tarball response")
	}

	lockPath := filepath.Join(filepath.Dir(cfg.PantryDir()), ".pantry.lock")
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock file should exist on disk: %v", err)
	}

	// A second Replace must be able to acquire the lock immediately; if
	// the first call leaked it, this would hang or fail.
	if _, err := Replace(context.Background(), cfg, types.Linux); err == nil {
		t.Fatal("second Replace should also fail against the same broken server")
	}
}
