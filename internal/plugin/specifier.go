package plugin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

type operator string

const (
	opArbitrary  operator = "==="
	opCompatible operator = "~="
	opEqual      operator = "=="
	opNotEqual   operator = "!="
	opGreaterEq  operator = ">="
	opLessEq     operator = "<="
	opGreater    operator = ">"
	opLess       operator = "<"
)

// longest operators first so "===" is not read as "==".
var operators = []operator{
	opArbitrary, opCompatible, opEqual, opNotEqual,
	opGreaterEq, opLessEq, opGreater, opLess,
}

type clause struct {
	op       operator
	raw      string
	version  *semver.Version
	release  []uint64 // release segments as written
	wildcard bool
}

// Specifier is a set of comma separated version clauses in the PEP 440 style
// ("== 2", "~= 2.0", ">= 2.1, < 3"). A version must satisfy every clause.
// Missing release segments compare as zero.
type Specifier struct {
	raw     string
	clauses []clause
}

// ParseSpecifier parses a version specifier.
func ParseSpecifier(s string) (*Specifier, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty specifier", ErrInvalidSpecifier)
	}
	spec := &Specifier{raw: s}
	for part := range strings.SplitSeq(s, ",") {
		c, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		spec.clauses = append(spec.clauses, c)
	}
	return spec, nil
}

func parseClause(s string) (clause, error) {
	var c clause
	for _, op := range operators {
		if rest, ok := strings.CutPrefix(s, string(op)); ok {
			c.op = op
			c.raw = strings.TrimSpace(rest)
			break
		}
	}
	if c.op == "" || c.raw == "" {
		return c, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s)
	}
	if c.op == opArbitrary {
		return c, nil
	}

	v := c.raw
	if strings.HasSuffix(v, ".*") {
		if c.op != opEqual && c.op != opNotEqual {
			return c, fmt.Errorf("%w: wildcard only allowed with == and !=: %q", ErrInvalidSpecifier, s)
		}
		c.wildcard = true
		v = strings.TrimSuffix(v, ".*")
	}

	release, err := releaseSegments(v)
	if err != nil {
		return c, fmt.Errorf("%w: %q: %w", ErrInvalidSpecifier, s, err)
	}
	if c.wildcard && strings.ContainsAny(v, "-+") {
		return c, fmt.Errorf("%w: wildcard on a pre-release: %q", ErrInvalidSpecifier, s)
	}
	if c.op == opCompatible && len(release) < 2 {
		return c, fmt.Errorf("%w: ~= needs at least two release segments: %q", ErrInvalidSpecifier, s)
	}
	c.release = release

	c.version, err = semver.NewVersion(v)
	if err != nil {
		return c, fmt.Errorf("%w: %q: %w", ErrInvalidSpecifier, s, err)
	}
	return c, nil
}

// releaseSegments returns the numeric dot separated segments before any
// pre-release or build suffix.
func releaseSegments(v string) ([]uint64, error) {
	end := strings.IndexAny(v, "-+")
	if end < 0 {
		end = len(v)
	}
	parts := strings.Split(strings.TrimPrefix(v[:end], "v"), ".")
	if len(parts) > 3 {
		return nil, fmt.Errorf("too many release segments")
	}
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid release segment %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

// String returns the specifier as it was written.
func (s *Specifier) String() string {
	return s.raw
}

// Check reports whether version satisfies every clause.
func (s *Specifier) Check(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	for _, c := range s.clauses {
		if !c.check(version, v) {
			return false
		}
	}
	return true
}

func (c clause) check(raw string, v *semver.Version) bool {
	switch c.op {
	case opArbitrary:
		return strings.EqualFold(strings.TrimSpace(raw), c.raw)
	case opEqual:
		if c.wildcard {
			return hasReleasePrefix(v, c.release)
		}
		return v.Equal(c.version)
	case opNotEqual:
		if c.wildcard {
			return !hasReleasePrefix(v, c.release)
		}
		return !v.Equal(c.version)
	case opGreaterEq:
		return v.Compare(c.version) >= 0
	case opLessEq:
		return v.Compare(c.version) <= 0
	case opGreater:
		return v.Compare(c.version) > 0
	case opLess:
		return v.Compare(c.version) < 0
	case opCompatible:
		// ~= 2.1 is >= 2.1, == 2.*
		return v.Compare(c.version) >= 0 && hasReleasePrefix(v, c.release[:len(c.release)-1])
	}
	return false
}

func hasReleasePrefix(v *semver.Version, prefix []uint64) bool {
	segments := []uint64{v.Major(), v.Minor(), v.Patch()}
	for i, p := range prefix {
		if segments[i] != p {
			return false
		}
	}
	return true
}
