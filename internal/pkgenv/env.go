// Package pkgenv computes the environment-variable block exposed to the
// target program from the final installation set, per spec §4.10.
package pkgenv

import (
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkgx-run/pkgx/internal/pantrydb"
	"github.com/pkgx-run/pkgx/internal/types"
)

// orderedSet de-duplicates values while preserving first-seen order.
type orderedSet struct {
	seen   map[string]bool
	values []string
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[v] {
		return
	}
	s.seen[v] = true
	s.values = append(s.values, v)
}

// Block is the computed environment: variable name to an ordered,
// de-duplicated list of values.
type Block map[string][]string

var pathSuffixes = map[string][]string{
	"PATH":            {"bin", "sbin"},
	"MANPATH":         {"man", "share/man"},
	"PKG_CONFIG_PATH": {"share/pkgconfig", "lib/pkgconfig"},
	"XDG_DATA_DIRS":   {"share"},
	"LIBRARY_PATH":    {"lib"},
	"CPATH":           {"include"},
}

// orderedVars fixes a stable iteration order over pathSuffixes, used by
// Map when visiting each installation and by Mix when emitting keys that
// are absent from the process environment, matching the teacher's habit
// of iterating maps through an explicit slice. Block itself is a map and
// carries no key order.
var orderedVars = []string{"PATH", "MANPATH", "PKG_CONFIG_PATH", "XDG_DATA_DIRS", "LIBRARY_PATH", "CPATH"}

// Map computes the environment block for a set of installations, per
// spec §4.10: per-installation path suffixes, the cmake.org special
// case, and the LD_LIBRARY_PATH / DYLD_FALLBACK_LIBRARY_PATH overlays.
func Map(installs []types.Installation) Block {
	sets := make(map[string]*orderedSet, len(orderedVars)+2)

	hasCmake := false
	seenProjects := make(map[string]bool, len(installs))
	for _, inst := range installs {
		if seenProjects[inst.Package.Project] {
			slog.Warn("env is being duped", "project", inst.Package.Project)
		}
		seenProjects[inst.Package.Project] = true

		if inst.Package.Project == "cmake.org" {
			hasCmake = true
		}

		for _, name := range orderedVars {
			set, ok := sets[name]
			if !ok {
				set = &orderedSet{}
				sets[name] = set
			}
			for _, suffix := range pathSuffixes[name] {
				set.add(filepath.Join(inst.Path, suffix))
			}
		}
	}

	if hasCmake {
		set := &orderedSet{}
		for _, inst := range installs {
			if inst.Package.Project == "cmake.org" {
				set.add(inst.Path)
			}
		}
		sets["CMAKE_PREFIX_PATH"] = set
	}

	if lib, ok := sets["LIBRARY_PATH"]; ok {
		ld := &orderedSet{}
		for _, v := range lib.values {
			ld.add(v)
		}
		sets["LD_LIBRARY_PATH"] = ld

		if runtime.GOOS == "darwin" {
			dyld := &orderedSet{}
			for _, v := range lib.values {
				dyld.add(v)
			}
			sets["DYLD_FALLBACK_LIBRARY_PATH"] = dyld
		}
	}

	out := make(Block)
	for name, set := range sets {
		if len(set.values) == 0 {
			continue
		}
		out[name] = set.values
	}
	return out
}

// Mix overlays the computed block on top of the process's existing
// environment, per spec §4.10: "computed_values_joined_with_colon +
// ':' + existing" when the block provides the key, else the existing
// value unchanged.
func Mix(block Block, processEnv []string) []string {
	existing := make(map[string]string, len(processEnv))
	var keys []string
	for _, kv := range processEnv {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if _, ok := existing[parts[0]]; !ok {
			keys = append(keys, parts[0])
		}
		existing[parts[0]] = parts[1]
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if values, ok := block[k]; ok {
			out = append(out, k+"="+strings.Join(values, ":")+":"+existing[k])
		} else {
			out = append(out, k+"="+existing[k])
		}
	}

	// Keys present only in the computed block (never seen in the
	// process environment) still need to be set.
	for _, name := range orderedVars {
		if _, alreadyEmitted := existing[name]; alreadyEmitted {
			continue
		}
		if values, ok := block[name]; ok {
			out = append(out, name+"="+strings.Join(values, ":"))
		}
	}
	for _, name := range []string{"LD_LIBRARY_PATH", "DYLD_FALLBACK_LIBRARY_PATH", "CMAKE_PREFIX_PATH"} {
		if _, alreadyEmitted := existing[name]; alreadyEmitted {
			continue
		}
		if values, ok := block[name]; ok {
			out = append(out, name+"="+strings.Join(values, ":"))
		}
	}

	return out
}

// MixRuntime layers each installation's runtime.env templates on top of
// env, substituting {{prefix}} with that installation's path.
// Collisions append with the platform path separator, per spec §9's
// resolved Open Question.
func MixRuntime(env []string, installs []types.Installation, db *pantrydb.DB) ([]string, error) {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}

	accum := make(map[string]string)
	var order []string

	for _, inst := range installs {
		vars, err := db.RuntimeEnvForProject(inst.Package.Project)
		if err != nil {
			return nil, err
		}
		for key, template := range vars {
			value := strings.ReplaceAll(template, "{{prefix}}", inst.Path)
			if existing, ok := accum[key]; ok {
				accum[key] = existing + sep + value
			} else {
				accum[key] = value
				order = append(order, key)
			}
		}
	}

	out := append([]string(nil), env...)
	for _, key := range order {
		out = append(out, key+"="+accum[key])
	}
	return out, nil
}
