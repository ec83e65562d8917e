// Package pantrydb builds and queries an embedded relational index over
// the parsed pantry manifests, following the teacher's pattern of
// rebuilding a small on-disk store wholesale rather than mutating it
// incrementally (compare teacher's pkg/repository repo.json rewrite).
package pantrydb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkgx-run/pkgx/internal/pantry"
	"github.com/pkgx-run/pkgx/internal/types"

	_ "modernc.org/sqlite"
)

// DB wraps the open index connection.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE provides (project TEXT NOT NULL, program TEXT NOT NULL);
CREATE TABLE dependencies (project TEXT NOT NULL, pkgspec TEXT NOT NULL);
CREATE TABLE companions (project TEXT NOT NULL, pkgspec TEXT NOT NULL);
CREATE TABLE runtime_env (project TEXT NOT NULL, envline TEXT NOT NULL);

CREATE INDEX idx_provides_project ON provides(project);
CREATE INDEX idx_provides_program ON provides(program);
CREATE INDEX idx_dependencies_project ON dependencies(project);
CREATE INDEX idx_companions_project ON companions(project);
`

// Cache rebuilds the index at indexPath from the manifests under
// pantryDir, per spec §4.4: delete any existing database, open fresh,
// apply bulk-insert pragmas, create the schema, and insert every
// project's rows inside one transaction.
func Cache(indexPath, pantryDir string, platform types.Platform) (*DB, error) {
	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale pantry index: %w", err)
	}

	conn, err := sql.Open("sqlite", indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening pantry index: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = OFF",
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating pantry index schema: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("starting pantry index transaction: %w", err)
	}

	provides, err := tx.Prepare("INSERT INTO provides (project, program) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, err
	}
	deps, err := tx.Prepare("INSERT INTO dependencies (project, pkgspec) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, err
	}
	companions, err := tx.Prepare("INSERT INTO companions (project, pkgspec) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, err
	}
	runtimeEnv, err := tx.Prepare("INSERT INTO runtime_env (project, envline) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, err
	}

	var walkErr error
	count := 0
	walkErr = pantry.Walk(pantryDir, platform, func(e pantry.Entry) {
		count++
		for _, prog := range e.Programs {
			if _, err := provides.Exec(e.Project, prog); err != nil {
				walkErr = err
			}
		}
		for _, d := range e.Dependencies {
			if _, err := deps.Exec(e.Project, d.String()); err != nil {
				walkErr = err
			}
		}
		for _, c := range e.Companions {
			if _, err := companions.Exec(e.Project, c.String()); err != nil {
				walkErr = err
			}
		}
		for k, v := range e.Env {
			if _, err := runtimeEnv.Exec(e.Project, k+"="+v); err != nil {
				walkErr = err
			}
		}
	})

	provides.Close()
	deps.Close()
	companions.Close()
	runtimeEnv.Close()

	if walkErr != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("indexing pantry: %w", walkErr)
	}

	if err := tx.Commit(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("committing pantry index: %w", err)
	}

	slog.Debug("pantry index rebuilt", "projects", count, "path", indexPath)

	return &DB{conn: conn}, nil
}

// Open opens an existing index without rebuilding it.
func Open(indexPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening pantry index: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DepsForProject parses each dependency row for project into a
// PackageReq.
func (db *DB) DepsForProject(project string) ([]types.PackageReq, error) {
	return db.reqsFrom("dependencies", project)
}

// CompanionsForProjects unions the companion rows across every project
// in projects.
func (db *DB) CompanionsForProjects(projects []string) ([]types.PackageReq, error) {
	var out []types.PackageReq
	for _, p := range projects {
		reqs, err := db.reqsFrom("companions", p)
		if err != nil {
			return nil, err
		}
		out = append(out, reqs...)
	}
	return out, nil
}

func (db *DB) reqsFrom(table, project string) ([]types.PackageReq, error) {
	rows, err := db.conn.Query(fmt.Sprintf("SELECT pkgspec FROM %s WHERE project = ?", table), project)
	if err != nil {
		return nil, fmt.Errorf("querying %s for %s: %w", table, project, err)
	}
	defer rows.Close()

	var out []types.PackageReq
	for rows.Next() {
		var pkgspec string
		if err := rows.Scan(&pkgspec); err != nil {
			return nil, err
		}
		parts := strings.SplitN(pkgspec, " ", 2)
		if len(parts) != 2 {
			continue
		}
		constraint, err := types.ParseVersionRange(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parsing stored pkgspec %q: %w", pkgspec, err)
		}
		out = append(out, types.PackageReq{Project: parts[0], Constraint: constraint})
	}
	return out, rows.Err()
}

// AmbiguousError is returned by Which when more than one project
// provides the requested program.
type AmbiguousError struct {
	Program    string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous program %q: provided by %s", e.Program, strings.Join(e.Candidates, ", "))
}

// NotFoundError is returned by Which when no project provides the
// requested program.
type NotFoundError struct {
	Program string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Program)
}

// Which resolves a program name to the project that provides it. It
// distinguishes none (NotFoundError), exactly one (returned), and many
// (AmbiguousError).
func (db *DB) Which(program string) (string, error) {
	rows, err := db.conn.Query("SELECT DISTINCT project FROM provides WHERE program = ?", program)
	if err != nil {
		return "", fmt.Errorf("querying provides for %s: %w", program, err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(projects) {
	case 0:
		return "", &NotFoundError{Program: program}
	case 1:
		return projects[0], nil
	default:
		return "", &AmbiguousError{Program: program, Candidates: projects}
	}
}

// RuntimeEnvForProject splits each envline row for project on its first
// "=" into a key/value map.
func (db *DB) RuntimeEnvForProject(project string) (map[string]string, error) {
	rows, err := db.conn.Query("SELECT envline FROM runtime_env WHERE project = ?", project)
	if err != nil {
		return nil, fmt.Errorf("querying runtime_env for %s: %w", project, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out, rows.Err()
}
