// Package pkgxconfig resolves the cache/install roots and distribution URL
// consumed by the rest of the pipeline from the process environment into
// an immutable struct with read-only accessors (Config is a pointer to
// that struct, not an interface).
package pkgxconfig

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

const (
	defaultDistURL = "https://dist.pkgx.dev"

	// pantryTarballURL is the compile-time constant source of the pantry
	// tarball, per spec §4.1. It can still be overridden per-invocation
	// via PKGX_PANTRY_TARBALL_URL for testing.
	pantryTarballURL = "https://pkgx.dev/pantry.tar.gz"
)

// config holds the resolved directories and URLs for one invocation.
// Immutable after Init.
type config struct {
	distURL           string
	pantryDir         string
	pantryTarballURL  string
	pkgxDir           string
	pkgxLvl           int
}

// Config provides read-only access to the resolved paths and URLs.
type Config = *config

// Init resolves configuration from the process environment and the
// current working directory. It is read once at startup and treated as
// an immutable input to the rest of the pipeline.
func Init() (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	c := &config{
		distURL:          envOr("PKGX_DIST_URL", defaultDistURL),
		pantryTarballURL: envOr("PKGX_PANTRY_TARBALL_URL", pantryTarballURL),
		pkgxLvl:          pkgxLvlFromEnv(),
	}

	if v, ok := os.LookupEnv("PKGX_PANTRY_DIR"); ok {
		if filepath.IsAbs(v) {
			c.pantryDir = v
		} else {
			c.pantryDir = filepath.Join(cwd, v)
		}
	} else {
		c.pantryDir = filepath.Join(xdg.CacheHome, "pkgx", "pantry")
	}

	if v, ok := os.LookupEnv("PKGX_DIR"); ok {
		c.pkgxDir = v
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		if runtime.GOOS == "darwin" {
			c.pkgxDir = filepath.Join(home, "Library", "pkgs")
		} else {
			c.pkgxDir = filepath.Join(home, ".pkgx")
		}
	}

	return c, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func pkgxLvlFromEnv() int {
	v, ok := os.LookupEnv("PKGX_LVL")
	if !ok {
		return 0
	}
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0
		}
		n = n*10 + int(v[i]-'0')
	}
	return n
}

// DistURL is the base URL for version and tarball downloads.
func (c *config) DistURL() string { return c.distURL }

// PantryDir is the pantry tree's root location.
func (c *config) PantryDir() string { return c.pantryDir }

// PantryTarballURL is the source URL of the pantry tarball.
func (c *config) PantryTarballURL() string { return c.pantryTarballURL }

// PkgxDir is the installation root (the cellar).
func (c *config) PkgxDir() string { return c.pkgxDir }

// PkgxLvl is the current recursion depth, read once at startup.
func (c *config) PkgxLvl() int { return c.pkgxLvl }

// IndexPath is the path to the pantry index database, stored alongside
// (as a sibling of) the pantry tree per spec §6 persisted layout.
func (c *config) IndexPath() string {
	return filepath.Join(filepath.Dir(c.pantryDir), "pantry.db")
}
