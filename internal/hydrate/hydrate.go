// Package hydrate expands a seed set of package requests into the full
// constraint-intersected dependency closure, depth-ordered for
// deterministic downstream installation. The worklist/constraint-
// accumulator shape follows pipg's internal/resolver BFS dependency
// walk, generalized from a flat name->specifiers map to a depth-tracked
// node map so that diamonds collapse without cycles in the ownership
// graph (spec §9's "flat map keyed by project" design note).
package hydrate

import (
	"fmt"
	"sort"

	"github.com/pkgx-run/pkgx/internal/types"
)

// DepsFunc returns the direct dependencies of a project.
type DepsFunc func(project string) ([]types.PackageReq, error)

type node struct {
	req   types.PackageReq
	depth int
	order int
}

// Hydrate computes the constraint-intersected, depth-ordered dependency
// list for seeds, per spec §4.6.
func Hydrate(seeds []types.PackageReq, deps DepsFunc) ([]types.PackageReq, error) {
	condensed, err := types.CondensePackageReqs(seeds)
	if err != nil {
		return nil, fmt.Errorf("hydrating: %w", err)
	}

	nodes := make(map[string]*node, len(condensed))
	var worklist []string
	seq := 0

	for _, req := range condensed {
		nodes[req.Project] = &node{req: req, depth: 0, order: seq}
		worklist = append(worklist, req.Project)
		seq++
	}

	for len(worklist) > 0 {
		project := worklist[0]
		worklist = worklist[1:]

		current := nodes[project]

		children, err := deps(project)
		if err != nil {
			return nil, fmt.Errorf("hydrating dependencies of %s: %w", project, err)
		}

		for _, childReq := range children {
			existing, ok := nodes[childReq.Project]
			if !ok {
				n := &node{req: childReq, depth: current.depth + 1, order: seq}
				seq++
				nodes[childReq.Project] = n
				worklist = append(worklist, childReq.Project)
				continue
			}

			merged, err := existing.req.Constraint.Intersect(childReq.Constraint)
			if err != nil {
				return nil, fmt.Errorf("hydrating %s: %w", childReq.Project, err)
			}
			existing.req.Constraint = merged
			// Depth is not revised: existing nodes keep their original
			// depth per spec §4.6 step 3.
		}
	}

	out := make([]types.PackageReq, 0, len(nodes))
	orderedKeys := make([]string, 0, len(nodes))
	for k := range nodes {
		orderedKeys = append(orderedKeys, k)
	}
	sort.SliceStable(orderedKeys, func(i, j int) bool {
		a, b := nodes[orderedKeys[i]], nodes[orderedKeys[j]]
		return a.order < b.order
	})
	sort.SliceStable(orderedKeys, func(i, j int) bool {
		a, b := nodes[orderedKeys[i]], nodes[orderedKeys[j]]
		return a.depth < b.depth
	})

	for _, k := range orderedKeys {
		out = append(out, nodes[k].req)
	}

	return out, nil
}
