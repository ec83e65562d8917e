// pkgx assembles a hermetic environment for the requested packages and
// execs the target program under it. CLI argument parsing here is
// deliberately thin (per spec §1, argument parsing and progress
// rendering are external collaborators); the pipeline itself lives in
// internal/.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkgx-run/pkgx/internal/cellar"
	"github.com/pkgx-run/pkgx/internal/hydrate"
	"github.com/pkgx-run/pkgx/internal/install"
	"github.com/pkgx-run/pkgx/internal/inventory"
	"github.com/pkgx-run/pkgx/internal/pantrydb"
	"github.com/pkgx-run/pkgx/internal/pexec"
	"github.com/pkgx-run/pkgx/internal/pkgenv"
	"github.com/pkgx-run/pkgx/internal/pkgxconfig"
	"github.com/pkgx-run/pkgx/internal/pkgxsync"
	"github.com/pkgx-run/pkgx/internal/progress"
	"github.com/pkgx-run/pkgx/internal/resolve"
	"github.com/pkgx-run/pkgx/internal/types"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	code, err := run(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pkgx: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}

type parsedArgs struct {
	silent      bool
	jsonOutput  bool
	specs       []types.PackageReq
	program     string
	findProgram bool
	progArgs    []string
}

func parseArgs(args []string) (parsedArgs, error) {
	var p parsedArgs
	i := 0

	for ; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			// Everything after a standalone "--" is collected; the first
			// collected token is the program.
			i++
			if i < len(args) {
				p.program = args[i]
				p.findProgram = !strings.Contains(args[i], "/")
				i++
			}
			p.progArgs = append([]string{}, args[i:]...)
			return p, nil

		case a == "--help":
			return p, &usageError{}

		case a == "--version":
			return p, &versionRequest{}

		case a == "--silent" || a == "-s":
			p.silent = true

		case a == "--json" || a == "-j":
			p.jsonOutput = true

		case strings.HasPrefix(a, "+"):
			req, err := types.ParsePackageReq(a[1:])
			if err != nil {
				return p, fmt.Errorf("parsing package spec %q: %w", a, err)
			}
			p.specs = append(p.specs, req)

		case strings.HasPrefix(a, "-"):
			return p, fmt.Errorf("unknown flag: %s", a)

		default:
			// Once the program token is found, every remaining token is
			// forwarded verbatim as argv. A later literal "--" is not
			// special here; it only matters when no program token precedes
			// it, handled by the case above.
			p.program = a
			p.findProgram = !strings.Contains(a, "/")
			i++
			p.progArgs = append([]string{}, args[i:]...)
			return p, nil
		}
	}

	return p, nil
}

type usageError struct{}

func (*usageError) Error() string { return "usage: pkgx [+pkg@constraint...] <program|path> [-- arg...]" }

type versionRequest struct{}

func (*versionRequest) Error() string { return "version requested" }

func run(ctx context.Context, args []string) (int, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		var ue *usageError
		var vr *versionRequest
		switch {
		case errors.As(err, &ue):
			fmt.Fprintln(os.Stderr, ue.Error())
			return 0, nil
		case errors.As(err, &vr):
			fmt.Println("pkgx (development build)")
			return 0, nil
		default:
			return 1, err
		}
	}

	if parsed.program == "" && len(parsed.specs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pkgx [+pkg@constraint...] <program|path> [-- arg...]")
		return 2, nil
	}

	cfg, err := pkgxconfig.Init()
	if err != nil {
		return 1, fmt.Errorf("initializing config: %w", err)
	}

	platform, err := types.CurrentPlatform()
	if err != nil {
		return 1, err
	}
	arch, err := types.CurrentArch()
	if err != nil {
		return 1, err
	}

	db, syncedAlready, err := ensurePantry(ctx, cfg, platform)
	if err != nil {
		return 1, fmt.Errorf("loading pantry: %w", err)
	}
	defer db.Close()

	seeds := append([]types.PackageReq{}, parsed.specs...)

	if parsed.program != "" && parsed.findProgram {
		req, err := types.ParsePackageReq(parsed.program)
		if err != nil {
			return 1, fmt.Errorf("parsing program %q: %w", parsed.program, err)
		}
		// invoke e.g. `node` rather than `node@20`
		parsed.program = req.Project

		project, err := resolveProgramProject(ctx, db, cfg, platform, req.Project, &syncedAlready)
		if err != nil {
			return 1, err
		}
		seeds = append(seeds, types.PackageReq{Project: project, Constraint: req.Constraint})
	}

	seedProjects := make([]string, len(seeds))
	for i, s := range seeds {
		seedProjects[i] = s.Project
	}
	companions, err := db.CompanionsForProjects(seedProjects)
	if err != nil {
		return 1, fmt.Errorf("loading companions: %w", err)
	}
	seeds = append(seeds, companions...)

	hydrated, err := hydrate.Hydrate(seeds, db.DepsForProject)
	if err != nil {
		return 1, fmt.Errorf("hydrating dependencies: %w", err)
	}

	c := cellar.New(cfg)
	invClient := inventory.New(cfg.DistURL())

	res, err := resolve.Resolve(ctx, hydrated, c, invClient, platform, arch)
	if err != nil {
		return 1, err
	}

	var sink progress.Sink = progress.Noop{}
	if !parsed.silent {
		sink = &progress.Counter{}
	}

	pendingInstalls, err := install.Multi(ctx, res.Pending, cfg, c, platform, arch, sink)
	if err != nil {
		return 1, fmt.Errorf("installing packages: %w", err)
	}

	allInstalls := append(append([]types.Installation{}, res.Installed...), pendingInstalls...)

	block := pkgenv.Map(allInstalls)
	envList := pkgenv.Mix(block, os.Environ())
	envList, err = pkgenv.MixRuntime(envList, allInstalls, db)
	if err != nil {
		return 1, fmt.Errorf("computing runtime environment: %w", err)
	}

	if parsed.program == "" {
		printEnv(block, parsed.jsonOutput, res.Pkgs)
		return 0, nil
	}

	lvl, err := pexec.NextLvl(cfg.PkgxLvl())
	if err != nil {
		return 1, err
	}
	envList = setEnv(envList, "PKGX_LVL", fmt.Sprintf("%d", lvl))

	cwd, err := os.Getwd()
	if err != nil {
		return 1, err
	}

	exePath, err := pexec.LookupProgram(parsed.program, block["PATH"], os.Getenv("PATH"), cwd)
	if err != nil {
		if !syncedAlready {
			if _, syncErr := pkgxsync.Replace(ctx, cfg, platform); syncErr == nil {
				exePath, err = pexec.LookupProgram(parsed.program, block["PATH"], os.Getenv("PATH"), cwd)
			}
		}
		if err != nil {
			return 1, fmt.Errorf("program not found: %s", parsed.program)
		}
	}

	if err := pexec.Exec(exePath, parsed.progArgs, envList); err != nil {
		return 1, err
	}

	return 0, nil
}

// ensurePantry opens the pantry index, triggering a sync first if the
// tree hasn't been fetched yet (spec §4.5/S4).
func ensurePantry(ctx context.Context, cfg pkgxconfig.Config, platform types.Platform) (*pantrydb.DB, bool, error) {
	if pkgxsync.Should(cfg) {
		db, err := pkgxsync.Replace(ctx, cfg, platform)
		if err != nil {
			return nil, false, err
		}
		return db, true, nil
	}

	db, err := pantrydb.Open(cfg.IndexPath())
	if err != nil {
		return nil, false, err
	}
	return db, false, nil
}

// resolveProgramProject maps a bare program name to its providing
// project, re-syncing once if it's unknown (spec §4.5, S5).
func resolveProgramProject(ctx context.Context, db *pantrydb.DB, cfg pkgxconfig.Config, platform types.Platform, program string, syncedAlready *bool) (string, error) {
	project, err := db.Which(program)
	if err == nil {
		return project, nil
	}

	var notFound *pantrydb.NotFoundError
	if !errors.As(err, &notFound) || *syncedAlready {
		return "", err
	}

	newDB, syncErr := pkgxsync.Replace(ctx, cfg, platform)
	if syncErr != nil {
		return "", err
	}
	*db = *newDB
	*syncedAlready = true

	return db.Which(program)
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func printEnv(block pkgenv.Block, jsonOutput bool, pkgs []types.Package) {
	if jsonOutput {
		names := make([]string, len(pkgs))
		for i, p := range pkgs {
			names[i] = p.String()
		}
		out := struct {
			Pkgs []string            `json:"pkgs"`
			Env  map[string][]string `json:"env"`
		}{Pkgs: names, Env: block}
		data, _ := json.Marshal(out)
		fmt.Println(string(data))
		return
	}

	for key, values := range block {
		joined := strings.Join(values, ":")
		fmt.Printf("%s=\"%s${%s:+:$%s}\"\n", key, joined, key, key)
	}
}
