// Package semver decides whether package versions satisfy the requirement
// expressions found in resolved dependency graphs.
//
// Requirements use the caret/tilde/wildcard comparator syntax of the Rust
// ecosystem: a bare version like "1.2.3" is shorthand for "^1.2.3", "~1.2"
// locks the minor version, "1.*" is a positional wildcard, and comma-separated
// comparators form a conjunction (">=1.2, <2.0"). Pre-release candidates only
// satisfy requirements that themselves reference a pre-release; build metadata
// is ignored for comparison.
//
// Malformed input is never treated as a silent non-match. Both [Matches] and
// [ParseRequirement] surface a [*ParseError] so that corrupt upstream data is
// visible to the caller.
package semver

import (
	"fmt"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// ParseError reports a malformed version or requirement string.
type ParseError struct {
	Input string // the offending string
	Err   error  // underlying parser error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Requirement is a parsed, reusable version requirement.
type Requirement struct {
	raw        string
	constraint *mmsemver.Constraints
}

// String returns the original requirement text.
func (r *Requirement) String() string { return r.raw }

// ParseRequirement parses a requirement expression.
// Returns a *ParseError if the expression is malformed.
func ParseRequirement(req string) (*Requirement, error) {
	c, err := mmsemver.NewConstraint(normalize(req))
	if err != nil {
		return nil, &ParseError{Input: req, Err: err}
	}
	return &Requirement{raw: req, constraint: c}, nil
}

// Check reports whether the candidate version satisfies the requirement.
func (r *Requirement) Check(candidate *mmsemver.Version) bool {
	return r.constraint.Check(candidate)
}

// Matches reports whether candidate satisfies requirement.
// Returns a *ParseError if either string is malformed.
func Matches(requirement, candidate string) (bool, error) {
	r, err := ParseRequirement(requirement)
	if err != nil {
		return false, err
	}
	v, err := ParseVersion(candidate)
	if err != nil {
		return false, err
	}
	return r.Check(v), nil
}

// ParseVersion parses a semantic version string.
// Returns a *ParseError if the string is malformed.
func ParseVersion(version string) (*mmsemver.Version, error) {
	v, err := mmsemver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return nil, &ParseError{Input: version, Err: err}
	}
	return v, nil
}

// Compare returns -1, 0 or 1 if a is less than, equal to or greater than b.
// Build metadata is ignored, pre-release precedence follows the semver spec.
func Compare(a, b string) (int, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Compatible reports whether two versions are interchangeable under the
// lenient rule used for archive comparisons: equal majors when either major
// is non-zero, otherwise equal minors when either minor is non-zero,
// otherwise equal patch levels.
func Compatible(a, b string) (bool, error) {
	va, err := ParseVersion(a)
	if err != nil {
		return false, err
	}
	vb, err := ParseVersion(b)
	if err != nil {
		return false, err
	}
	if va.Major() > 0 || vb.Major() > 0 {
		return va.Major() == vb.Major(), nil
	}
	if va.Minor() > 0 || vb.Minor() > 0 {
		return va.Minor() == vb.Minor(), nil
	}
	return va.Patch() == vb.Patch(), nil
}

// normalize rewrites cargo-style requirement syntax into the comparator
// grammar understood by the underlying constraint parser. The only rewrite
// needed is the implicit caret: a comparator that begins with a digit, like
// "1.2.3" or "0.4", means "^1.2.3" / "^0.4".
func normalize(req string) string {
	parts := strings.Split(req, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" && p != "*" && p[0] >= '0' && p[0] <= '9' && !strings.ContainsAny(p, "*") {
			p = "^" + p
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}
