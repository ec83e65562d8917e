package pexec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LookupProgram resolves the target executable per spec §4.12: an
// absolute or relative path (containing "/") is used/resolved directly;
// a bare name is scanned for across the combined PATH (computed PATH
// first, then inherited).
func LookupProgram(nameOrPath string, computedPath []string, inheritedPathEnv string, cwd string) (string, error) {
	if strings.Contains(nameOrPath, "/") {
		if strings.HasPrefix(nameOrPath, "/") {
			return nameOrPath, nil
		}
		return filepath.Join(cwd, nameOrPath), nil
	}

	dirs := append(append([]string{}, computedPath...), strings.Split(inheritedPathEnv, string(os.PathListSeparator))...)

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, nameOrPath)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("program not found on PATH: %s", nameOrPath)
}
