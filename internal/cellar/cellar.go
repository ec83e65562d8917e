// Package cellar enumerates installed artifacts on disk and resolves a
// package request against the locally available versions, the way the
// teacher's pkg/cache inspects the filesystem directly rather than going
// through a database for local state.
package cellar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkgx-run/pkgx/internal/pkgxconfig"
	"github.com/pkgx-run/pkgx/internal/types"
)

// NotFoundError indicates the cellar has no installation satisfying req.
type NotFoundError struct {
	Req types.PackageReq
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("installation not found: %s", e.Req)
}

// Cellar is the local installation store rooted at a config's PkgxDir.
type Cellar struct {
	cfg pkgxconfig.Config
}

// New returns a Cellar rooted at cfg.PkgxDir().
func New(cfg pkgxconfig.Config) *Cellar {
	return &Cellar{cfg: cfg}
}

// Dst is the canonical install path for pkg: <pkgx_dir>/<project>/v<raw>.
func (c *Cellar) Dst(pkg types.Package) string {
	return filepath.Join(c.cfg.PkgxDir(), pkg.Project, "v"+pkg.Version.String())
}

// Ls enumerates installed versions of project, sorted by (project,
// version) ascending. Directories that don't parse as versions, or that
// parse but are empty (a legacy marker of a failed install), are skipped
// silently.
func (c *Cellar) Ls(project string) ([]types.Installation, error) {
	dir := filepath.Join(c.cfg.PkgxDir(), project)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var out []types.Installation
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "var" || !strings.HasPrefix(name, "v") {
			continue
		}

		v, err := types.ParseVersion(name[1:])
		if err != nil {
			continue
		}

		path := filepath.Join(dir, name)
		empty, err := isEmptyDir(path)
		if err != nil || empty {
			continue
		}

		out = append(out, types.Installation{
			Path:    path,
			Package: types.Package{Project: project, Version: v},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Package.Project != out[j].Package.Project {
			return out[i].Package.Project < out[j].Package.Project
		}
		return out[i].Package.Version.LessThan(out[j].Package.Version)
	})

	return out, nil
}

// Resolve picks the maximum locally installed version of req.Project
// that satisfies req.Constraint.
func (c *Cellar) Resolve(req types.PackageReq) (types.Installation, error) {
	installs, err := c.Ls(req.Project)
	if err != nil {
		return types.Installation{}, err
	}

	var best *types.Installation
	for i := range installs {
		if !req.Constraint.Satisfies(installs[i].Package.Version) {
			continue
		}
		if best == nil || installs[i].Package.Version.Compare(best.Package.Version) > 0 {
			best = &installs[i]
		}
	}

	if best == nil {
		return types.Installation{}, &NotFoundError{Req: req}
	}
	return *best, nil
}

// Has is Resolve swallowing the not-found error.
func (c *Cellar) Has(req types.PackageReq) (types.Installation, bool) {
	inst, err := c.Resolve(req)
	if err != nil {
		return types.Installation{}, false
	}
	return inst, true
}

func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == nil {
		return false, nil
	}
	return true, nil
}
