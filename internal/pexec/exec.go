// Package pexec replaces the current process image with the target
// program, the way the teacher's main.go hands off to syscall.Exec after
// building the final argv/env — generalized to golang.org/x/sys/unix,
// the actively maintained surface for execve, and to the spec's
// PKGX_LVL fork-bomb guard.
package pexec

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MaxLvl is the recursion depth at which pkgx refuses to exec further.
const MaxLvl = 10

// LvlExceededError signals the fork-bomb guard tripped.
type LvlExceededError struct {
	Lvl int
}

func (e *LvlExceededError) Error() string {
	return fmt.Sprintf("PKGX_LVL reached %d, refusing to exec", e.Lvl)
}

// NextLvl increments currentLvl and fails once it reaches MaxLvl.
func NextLvl(currentLvl int) (int, error) {
	next := currentLvl + 1
	if next >= MaxLvl {
		return next, &LvlExceededError{Lvl: next}
	}
	return next, nil
}

// Exec replaces the current process image with cmd, passing cmd as
// argv[0] followed by args, and env as the new environment. It does not
// return on success. Argument or environment strings containing NUL
// bytes are rejected before the syscall.
func Exec(cmd string, args []string, env []string) error {
	if err := checkNoNUL(cmd); err != nil {
		return err
	}
	for _, a := range args {
		if err := checkNoNUL(a); err != nil {
			return err
		}
	}
	for _, e := range env {
		if err := checkNoNUL(e); err != nil {
			return err
		}
	}

	argv := append([]string{cmd}, args...)

	if err := unix.Exec(cmd, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", cmd, err)
	}
	// unix.Exec only returns on error.
	return nil
}

func checkNoNUL(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return fmt.Errorf("argument or environment string contains a NUL byte: %q", s)
		}
	}
	return nil
}
