package install

import (
	"context"

	"github.com/pkgx-run/pkgx/internal/cellar"
	"github.com/pkgx-run/pkgx/internal/pkgxconfig"
	"github.com/pkgx-run/pkgx/internal/progress"
	"github.com/pkgx-run/pkgx/internal/types"

	"golang.org/x/sync/errgroup"
)

// Multi concurrently installs every package in pending, aggregating
// download progress into a single shared sink (per spec §4.9: "Launch
// installs in parallel as concurrent tasks; do not serialize"). If any
// task fails, the first error is returned once every task has finished;
// in-flight tasks are never cancelled, matching spec §5's "no forcible
// cancellation" rule. golang.org/x/sync/errgroup is the idiomatic
// fan-out-and-collect-first-error primitive already present in every
// example repo's go.mod that does concurrent I/O.
func Multi(ctx context.Context, pending []types.Package, cfg pkgxconfig.Config, c *cellar.Cellar, platform types.Platform, arch types.Arch, sink progress.Sink) ([]types.Installation, error) {
	if sink == nil {
		sink = progress.Noop{}
	}

	installs := make([]types.Installation, len(pending))

	// A plain errgroup.Group, not errgroup.WithContext: per spec §5/§4.9,
	// a failing install must not cancel its still-in-flight siblings, so
	// every task shares the caller's ctx directly rather than a
	// group-derived one that errgroup cancels on first error.
	var g errgroup.Group
	for i, pkg := range pending {
		i, pkg := i, pkg
		g.Go(func() error {
			inst, err := Install(ctx, pkg, cfg, c, platform, arch, sink)
			if err != nil {
				return err
			}
			installs[i] = inst
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return installs, nil
}
