package inventory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkgx-run/pkgx/internal/types"
)

func TestGetParsesVersionsDroppingGarbageLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.2.3\n\nnot-a-version\n1.3.0\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	req, _ := types.ParsePackageReq("zlib.org")

	versions, err := c.Get(context.Background(), req, types.Linux, types.X8664)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2 (garbage line dropped)", len(versions))
	}
}

func TestGetEmptyResponseIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(""))
	}))
	defer srv.Close()

	c := New(srv.URL)
	req, _ := types.ParsePackageReq("zlib.org")

	if _, err := c.Get(context.Background(), req, types.Linux, types.X8664); err == nil {
		t.Error("Get should fail on an empty versions file")
	}
}

func TestGetNon200IsUnavailableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	req, _ := types.ParsePackageReq("zlib.org")

	_, err := c.Get(context.Background(), req, types.Linux, types.X8664)
	if err == nil {
		t.Fatal("Get should fail on a 404")
	}
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("error should be an *UnavailableError, got %T: %v", err, err)
	}
}

func TestSelectPicksMaxSatisfying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.0.0\n1.5.0\n2.0.0\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	req, _ := types.ParsePackageReq("zlib.org^1")

	v, ok, err := c.Select(context.Background(), req, types.Linux, types.X8664)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !ok {
		t.Fatal("Select should find a satisfying version")
	}
	if v.String() != "1.5.0" {
		t.Errorf("Select() = %s, want 1.5.0", v)
	}
}

func TestSelectNoneSatisfies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.0.0\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	req, _ := types.ParsePackageReq("zlib.org@9")

	_, ok, err := c.Select(context.Background(), req, types.Linux, types.X8664)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok {
		t.Error("Select should report no match for an unsatisfiable constraint")
	}
}
