package types

import (
	"fmt"
	"strings"
)

// rangeKind tags how a VersionRange was produced so that Format can
// reproduce the same textual grammar it was parsed from.
type rangeKind int

const (
	kindAny rangeKind = iota
	kindSingle
	kindCaret
	kindTilde
	kindAt
	kindExplicitRange
)

// VersionRange is a single version constraint: Any, an exact Single
// version, or a Contiguous [lo, hi) interval. The data model in principle
// allows a set of disjoint constraints (a union of alternatives); every
// constraint this package parses or produces from Intersect is a single
// constraint, since no corner of the grammar in §3 ever yields a union.
type VersionRange struct {
	kind        rangeKind
	lo          Version
	hi          Version
	hiInclusive bool
}

// Any matches every version.
func Any() VersionRange {
	return VersionRange{kind: kindAny}
}

// ParseVersionRange parses one of the canonical forms: "*", "=X.Y",
// "^X", "~X.Y", "@X.Y", or ">=A<B".
func ParseVersionRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "" || s == "*":
		return Any(), nil

	case strings.HasPrefix(s, ">="):
		rest := s[2:]
		idx := strings.Index(rest, "<")
		if idx < 0 {
			return VersionRange{}, fmt.Errorf("parsing version range %q: missing '<' upper bound", s)
		}
		lo, err := ParseVersion(rest[:idx])
		if err != nil {
			return VersionRange{}, fmt.Errorf("parsing version range %q: %w", s, err)
		}
		hi, err := ParseVersion(rest[idx+1:])
		if err != nil {
			return VersionRange{}, fmt.Errorf("parsing version range %q: %w", s, err)
		}
		return VersionRange{kind: kindExplicitRange, lo: lo, hi: hi}, nil

	case strings.HasPrefix(s, "="):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return VersionRange{}, fmt.Errorf("parsing version range %q: %w", s, err)
		}
		return VersionRange{kind: kindSingle, lo: v, hi: v, hiInclusive: true}, nil

	case strings.HasPrefix(s, "^"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return VersionRange{}, fmt.Errorf("parsing version range %q: %w", s, err)
		}
		hi := Version{raw: fmt.Sprintf("%d", v.component(0)+1), components: []uint64{v.component(0) + 1}}
		return VersionRange{kind: kindCaret, lo: v, hi: hi}, nil

	case strings.HasPrefix(s, "~"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return VersionRange{}, fmt.Errorf("parsing version range %q: %w", s, err)
		}
		hi := tildeCeiling(v)
		return VersionRange{kind: kindTilde, lo: v, hi: hi}, nil

	case strings.HasPrefix(s, "@"):
		v, err := ParseVersion(s[1:])
		if err != nil {
			return VersionRange{}, fmt.Errorf("parsing version range %q: %w", s, err)
		}
		hi := prefixExtensionCeiling(v)
		return VersionRange{kind: kindAt, lo: v, hi: hi}, nil

	default:
		return VersionRange{}, fmt.Errorf("parsing version range %q: unrecognized operator", s)
	}
}

// tildeCeiling bumps the second component (minor) if present, otherwise
// the first (major): ~1.2 => [1.2, 1.3); ~1 => [1, 2).
func tildeCeiling(v Version) Version {
	if len(v.components) >= 2 {
		c := append([]uint64(nil), v.components[:2]...)
		c[1]++
		return Version{raw: joinInts(c), components: c}
	}
	c := []uint64{v.component(0) + 1}
	return Version{raw: joinInts(c), components: c}
}

// prefixExtensionCeiling implements the "@" prefix-extension-by-one rule:
// the last given component is incremented, extending the version by one
// unit at the precision the user specified: @3.2 => [3.2, 3.3).
//
// This is informational per the spec's Open Question on "@" semantics;
// Format always renders an "@" range in the ">=A<B" explicit form, so the
// caller's original "@" text is not reproduced (see Format below).
func prefixExtensionCeiling(v Version) Version {
	n := len(v.components)
	if n == 0 {
		n = 1
	}
	c := append([]uint64(nil), v.components...)
	for len(c) < n {
		c = append(c, 0)
	}
	c[n-1]++
	return Version{raw: joinInts(c), components: c}
}

func joinInts(vals []uint64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ".")
}

// Satisfies reports whether v falls within the range.
func (r VersionRange) Satisfies(v Version) bool {
	switch r.kind {
	case kindAny:
		return true
	case kindSingle:
		return v.Equal(r.lo)
	default:
		if v.Compare(r.lo) < 0 {
			return false
		}
		return v.Compare(r.hi) < 0
	}
}

// Format renders the range back to its canonical input grammar. The "@"
// form always renders as ">=A<B" per the spec's Open Question, since the
// prefix-extension rule cannot be guaranteed to round-trip.
func (r VersionRange) Format() string {
	switch r.kind {
	case kindAny:
		return "*"
	case kindSingle:
		return "=" + r.lo.String()
	case kindCaret:
		return "^" + r.lo.String()
	case kindTilde:
		return "~" + r.lo.String()
	case kindAt, kindExplicitRange:
		return fmt.Sprintf(">=%s<%s", r.lo.String(), r.hi.String())
	default:
		return "*"
	}
}

// String is an alias for Format, so VersionRange satisfies fmt.Stringer.
func (r VersionRange) String() string {
	return r.Format()
}

// Intersect computes the constraint satisfying both r and other. Fails
// when the resulting interval is empty.
func (r VersionRange) Intersect(other VersionRange) (VersionRange, error) {
	if r.kind == kindAny {
		return other, nil
	}
	if other.kind == kindAny {
		return r, nil
	}

	lo := r.lo
	loFromOther := false
	if other.lo.Compare(lo) > 0 {
		lo = other.lo
		loFromOther = true
	}

	hi, hiInclusive, hiFromOther := r.hi, r.hiInclusive, false
	switch cmp := other.hi.Compare(hi); {
	case cmp < 0:
		hi, hiInclusive, hiFromOther = other.hi, other.hiInclusive, true
	case cmp == 0:
		// Tie: an exclusive bound is tighter than an inclusive one.
		if !other.hiInclusive && hiInclusive {
			hiInclusive = false
		}
	}

	if hiInclusive {
		if lo.Compare(hi) > 0 {
			return VersionRange{}, fmt.Errorf("intersecting %q and %q: empty range", r.Format(), other.Format())
		}
	} else if lo.Compare(hi) >= 0 {
		return VersionRange{}, fmt.Errorf("intersecting %q and %q: empty range", r.Format(), other.Format())
	}

	// Preserve the operand's own kind/format when the interval is
	// unchanged, so Intersect(Any) == self (and repeated self-intersect)
	// round-trips exactly.
	if !loFromOther && !hiFromOther {
		return r, nil
	}
	if loFromOther && hiFromOther && other.lo.Equal(lo) && other.hi.Equal(hi) && other.hiInclusive == hiInclusive {
		return other, nil
	}

	if hiInclusive && lo.Equal(hi) {
		return VersionRange{kind: kindSingle, lo: lo, hi: hi, hiInclusive: true}, nil
	}

	return VersionRange{kind: kindExplicitRange, lo: lo, hi: hi, hiInclusive: hiInclusive}, nil
}
