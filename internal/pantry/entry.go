// Package pantry parses package manifests out of the synchronized pantry
// tree, the way the teacher's pkg/recipe loads per-package definitions —
// except our manifests are static YAML (package.yml), not Starlark
// scripts, since the spec carries no plugin/scripting surface.
package pantry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkgx-run/pkgx/internal/types"
	"gopkg.in/yaml.v3"
)

// Entry is the in-memory form of a project's package.yml.
type Entry struct {
	Project      string
	Dependencies []types.PackageReq
	Programs     []string
	Companions   []types.PackageReq
	Env          map[string]string
}

// rawManifest mirrors package.yml's on-disk shape. Dependency/companion
// maps use raw strings so that platform gating and bare-digit caret
// promotion (both spec §4.3) can be applied uniformly.
type rawManifest struct {
	Dependencies yaml.Node `yaml:"dependencies"`
	Companions   yaml.Node `yaml:"companions"`
	Provides     yaml.Node `yaml:"provides"`
	Runtime      struct {
		Env map[string]string `yaml:"env"`
	} `yaml:"runtime"`
}

var platformKeys = map[string]bool{"linux": true, "darwin": true, "windows": true}

// Walk visits every projects/**/package.yml manifest under pantryDir,
// calling fn with the parsed Entry. Parse failures are skipped silently
// (a debug-level warning is logged, matching spec §4.3).
func Walk(pantryDir string, platform types.Platform, fn func(Entry)) error {
	root := filepath.Join(pantryDir, "projects")

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "package.yml" {
			return nil
		}

		project, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			slog.Debug("skipping manifest with unresolvable project path", "path", path, "error", err)
			return nil
		}
		project = filepath.ToSlash(project)

		entry, err := parseManifest(path, project, platform)
		if err != nil {
			slog.Debug("skipping unparseable manifest", "project", project, "error", err)
			return nil
		}

		fn(entry)
		return nil
	})
}

func parseManifest(path, project string, platform types.Platform) (Entry, error) {
	data, err := readFile(path)
	if err != nil {
		return Entry{}, err
	}

	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Entry{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	deps, err := decodeReqMap(raw.Dependencies, platform)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing %s dependencies: %w", path, err)
	}

	companions, err := decodeReqMap(raw.Companions, platform)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing %s companions: %w", path, err)
	}

	programs, err := decodeProvides(raw.Provides, platform)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing %s provides: %w", path, err)
	}

	return Entry{
		Project:      project,
		Dependencies: deps,
		Companions:   companions,
		Programs:     programs,
		Env:          raw.Runtime.Env,
	}, nil
}

// decodeReqMap decodes a dependencies/companions mapping node, applying
// platform gating (a key named linux/darwin/windows only contributes
// when it names the current platform) and bare-leading-digit caret
// promotion ("1.2" -> "^1.2").
func decodeReqMap(node yaml.Node, platform types.Platform) ([]types.PackageReq, error) {
	if node.Kind == 0 {
		return nil, nil
	}

	var m map[string]yaml.Node
	if err := node.Decode(&m); err != nil {
		return nil, err
	}

	var out []types.PackageReq
	for key, v := range m {
		if platformKeys[key] {
			if key != string(platform) {
				continue
			}
			var nested map[string]string
			if err := v.Decode(&nested); err != nil {
				return nil, err
			}
			reqs, err := reqsFromStringMap(nested)
			if err != nil {
				return nil, err
			}
			out = append(out, reqs...)
			continue
		}

		var constraint string
		if err := v.Decode(&constraint); err != nil {
			return nil, err
		}
		req, err := reqFromPair(key, constraint)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}

	return out, nil
}

func reqsFromStringMap(m map[string]string) ([]types.PackageReq, error) {
	var out []types.PackageReq
	for k, v := range m {
		req, err := reqFromPair(k, v)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func reqFromPair(project, constraint string) (types.PackageReq, error) {
	constraint = promoteBareDigit(constraint)
	r, err := types.ParseVersionRange(constraint)
	if err != nil {
		return types.PackageReq{}, err
	}
	return types.PackageReq{Project: project, Constraint: r}, nil
}

// promoteBareDigit turns a bare leading-digit constraint like "1.2" into
// the caret form "^1.2", per spec §4.3.
func promoteBareDigit(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "^" + s
	}
	return s
}

// decodeProvides decodes a provides node, which is either a flat list of
// program names, or a map keyed by platform whose values are lists.
func decodeProvides(node yaml.Node, platform types.Platform) ([]string, error) {
	if node.Kind == 0 {
		return nil, nil
	}

	if node.Kind == yaml.SequenceNode {
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var m map[string][]string
	if err := node.Decode(&m); err != nil {
		return nil, err
	}
	return m[string(platform)], nil
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
