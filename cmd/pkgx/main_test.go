package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkgx-run/pkgx/internal/pantrydb"
	"github.com/pkgx-run/pkgx/internal/types"
)

func buildNodePantryDB(t *testing.T) *pantrydb.DB {
	t.Helper()
	pantryDir := t.TempDir()
	dir := filepath.Join(pantryDir, "projects", "nodejs.org")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	manifest := "provides:\n  - node\n"
	if err := os.WriteFile(filepath.Join(dir, "package.yml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	indexPath := filepath.Join(t.TempDir(), "pantry.db")
	db, err := pantrydb.Cache(indexPath, pantryDir, types.Linux)
	if err != nil {
		t.Fatalf("Cache: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProgramTokenConstraintSeedsDependencyNotWhichLookup mirrors the
// `pkgx node@18 --eval '1+1'` scenario: the constraint must be split off
// before the pantry is queried by bare program name, and carried through
// to the dependency seed rather than discarded.
func TestProgramTokenConstraintSeedsDependencyNotWhichLookup(t *testing.T) {
	db := buildNodePantryDB(t)

	p, err := parseArgs([]string{"node@18", "--eval", "1+1"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	req, err := types.ParsePackageReq(p.program)
	if err != nil {
		t.Fatalf("ParsePackageReq: %v", err)
	}
	if req.Project != "node" {
		t.Fatalf("req.Project = %q, want node", req.Project)
	}
	if req.Constraint.String() == types.Any().String() {
		t.Fatalf("req.Constraint should carry the @18 pin, got Any()")
	}

	project, err := db.Which(req.Project)
	if err != nil {
		t.Fatalf("db.Which(%q): %v", req.Project, err)
	}
	if project != "nodejs.org" {
		t.Errorf("db.Which(node) = %q, want nodejs.org", project)
	}
}

func TestParseArgsSplitsSpecsAndProgram(t *testing.T) {
	p, err := parseArgs([]string{"+curl.se@8", "+zlib.org", "node", "--", "script.js", "--flag"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	if len(p.specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(p.specs))
	}
	if p.program != "node" {
		t.Errorf("program = %q, want node", p.program)
	}
	if !p.findProgram {
		t.Error("findProgram should be true for a bare program name")
	}
	if len(p.progArgs) != 3 || p.progArgs[0] != "--" || p.progArgs[1] != "script.js" || p.progArgs[2] != "--flag" {
		t.Errorf("progArgs = %v, want [-- script.js --flag]", p.progArgs)
	}
}

func TestParseArgsCollectsProgArgsWithoutExplicitSeparator(t *testing.T) {
	p, err := parseArgs([]string{"node@18", "--eval", "1+1"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.program != "node@18" {
		t.Errorf("program = %q, want node@18", p.program)
	}
	if len(p.progArgs) != 2 || p.progArgs[0] != "--eval" || p.progArgs[1] != "1+1" {
		t.Errorf("progArgs = %v, want [--eval 1+1]", p.progArgs)
	}
}

func TestParseArgsPathProgramSkipsLookup(t *testing.T) {
	p, err := parseArgs([]string{"./my-script.sh"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if p.findProgram {
		t.Error("findProgram should be false for a path containing a slash")
	}
}

func TestParseArgsFlags(t *testing.T) {
	p, err := parseArgs([]string{"--silent", "-j", "+curl.se"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !p.silent || !p.jsonOutput {
		t.Errorf("silent=%v jsonOutput=%v, want both true", p.silent, p.jsonOutput)
	}
}

func TestParseArgsHelp(t *testing.T) {
	_, err := parseArgs([]string{"--help"})
	if _, ok := err.(*usageError); !ok {
		t.Errorf("parseArgs([--help]) error = %T, want *usageError", err)
	}
}

func TestParseArgsUnknownFlag(t *testing.T) {
	if _, err := parseArgs([]string{"--bogus"}); err == nil {
		t.Error("parseArgs should reject an unrecognized flag")
	}
}

func TestSetEnvReplacesExistingKey(t *testing.T) {
	env := []string{"PATH=/bin", "PKGX_LVL=2"}
	got := setEnv(env, "PKGX_LVL", "3")

	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2 (replaced in place)", len(got))
	}
	if got[1] != "PKGX_LVL=3" {
		t.Errorf("got[1] = %q, want PKGX_LVL=3", got[1])
	}
}

func TestSetEnvAppendsNewKey(t *testing.T) {
	got := setEnv([]string{"PATH=/bin"}, "PKGX_LVL", "1")
	if len(got) != 2 || got[1] != "PKGX_LVL=1" {
		t.Errorf("got = %v, want [PATH=/bin PKGX_LVL=1]", got)
	}
}
