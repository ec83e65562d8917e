// Package resolve splits a hydrated request list into the subset already
// satisfied by local installations and the subset that must be fetched
// at a concrete pending version, per spec §4.8.
package resolve

import (
	"context"
	"fmt"

	"github.com/pkgx-run/pkgx/internal/cellar"
	"github.com/pkgx-run/pkgx/internal/types"
)

// Inventory is the subset of inventory.Client that resolve needs.
type Inventory interface {
	Select(ctx context.Context, req types.PackageReq, platform types.Platform, arch types.Arch) (types.Version, bool, error)
}

// NotFoundError means neither the cellar nor the inventory could satisfy
// req.
type NotFoundError struct {
	Req types.PackageReq
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no installed or available version satisfies %s", e.Req)
}

// Resolution is the outcome of resolving a hydrated request list.
type Resolution struct {
	Pkgs      []types.Package
	Installed []types.Installation
	Pending   []types.Package
}

// Resolve walks reqs (already in hydrate's depth order) and, for each,
// prefers a satisfying local installation over an inventory lookup.
func Resolve(ctx context.Context, reqs []types.PackageReq, c *cellar.Cellar, inv Inventory, platform types.Platform, arch types.Arch) (Resolution, error) {
	var res Resolution

	for _, req := range reqs {
		if inst, ok := c.Has(req); ok {
			res.Installed = append(res.Installed, inst)
			res.Pkgs = append(res.Pkgs, inst.Package)
			continue
		}

		version, ok, err := inv.Select(ctx, req, platform, arch)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolving %s: %w", req, err)
		}
		if !ok {
			return Resolution{}, &NotFoundError{Req: req}
		}

		pkg := types.Package{Project: req.Project, Version: version}
		res.Pkgs = append(res.Pkgs, pkg)
		res.Pending = append(res.Pending, pkg)
	}

	return res, nil
}
