package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
// The zero value is a valid version that compares below every parsed version.
type Version struct {
	v *mm.Version
}

// Constraint is a semantic version constraint.
//
// Examples:
// - ">=1.2.0 <2.0.0"
// - "^1.0.0"
// - "~1.4"
type Constraint struct {
	c   *mm.Constraints
	raw string
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// ParseLenient accepts everything ParseVersion does plus dotted qualifiers
// ("1.0.1.Final"), which are kept as build metadata and ignored for ordering.
// An empty string yields the zero version.
func ParseLenient(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Version{}, nil
	}
	if v, err := mm.NewVersion(raw); err == nil {
		return Version{v: v}, nil
	}
	parts := strings.SplitN(raw, ".", 4)
	if len(parts) == 4 && !strings.ContainsAny(parts[2], "-+") {
		return ParseVersion(strings.Join(parts[:3], ".") + "+" + parts[3])
	}
	return ParseVersion(raw)
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c, raw: raw}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// IsZero reports whether v carries no parsed version.
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return "0.0.0"
	}
	return v.v.Original()
}

// IsZero reports whether c is the empty (match-anything) constraint.
func (c Constraint) IsZero() bool {
	return c.c == nil
}

func (c Constraint) String() string {
	return c.raw
}

// Satisfies reports whether v satisfies c. The zero version satisfies
// nothing except the zero constraint.
func Satisfies(v Version, c Constraint) bool {
	if c.c == nil {
		return true
	}
	if v.v == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}
