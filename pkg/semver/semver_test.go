package semver

import (
	"errors"
	"testing"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name        string
		requirement string
		candidate   string
		want        bool
	}{
		{"CaretExact", "^1.2.3", "1.2.3", true},
		{"CaretPatchAbove", "^1.2.3", "1.2.9", true},
		{"CaretMinorAbove", "^1.2.3", "1.9.0", true},
		{"CaretMajorAbove", "^1.2.3", "2.0.0", false},
		{"CaretBelow", "^1.2.3", "1.2.2", false},
		{"CaretZeroMajor", "^0.4.1", "0.4.9", true},
		{"CaretZeroMajorMinorBump", "^0.4.1", "0.5.0", false},
		{"ImplicitCaret", "1.2.3", "1.4.0", true},
		{"ImplicitCaretMajor", "1.2.3", "2.0.0", false},
		{"TildePatch", "~1.2", "1.2.9", true},
		{"TildeMinorBump", "~1.2", "1.3.0", false},
		{"TildeFullTriple", "~1.2.3", "1.2.7", true},
		{"TildeFullTripleMinor", "~1.2.3", "1.3.0", false},
		{"WildcardAny", "*", "0.0.1", true},
		{"WildcardMajor", "1.*", "1.9.3", true},
		{"WildcardMajorMiss", "1.*", "2.0.0", false},
		{"Exact", "=1.2.3", "1.2.3", true},
		{"ExactMiss", "=1.2.3", "1.2.4", false},
		{"Conjunction", ">=1.2, <2.0", "1.5.0", true},
		{"ConjunctionUpperBound", ">=1.2, <2.0", "2.0.0", false},
		{"PrereleaseNotMatched", "^1.2.3", "1.2.4-alpha.1", false},
		{"PrereleaseExplicit", "^1.2.3-alpha", "1.2.3-beta", true},
		{"BuildMetadataIgnored", "=1.2.3", "1.2.3+build.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(tt.requirement, tt.candidate)
			if err != nil {
				t.Fatalf("Matches(%q, %q): %v", tt.requirement, tt.candidate, err)
			}
			if got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.requirement, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestMatchesMalformed(t *testing.T) {
	tests := []struct {
		name        string
		requirement string
		candidate   string
	}{
		{"GarbageRequirement", "not-a-requirement!!", "1.0.0"},
		{"GarbageCandidate", "^1.0", "one.two.three"},
		{"EmptyCandidate", "^1.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Matches(tt.requirement, tt.candidate)
			if err == nil {
				t.Fatalf("Matches(%q, %q): expected error", tt.requirement, tt.candidate)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("error %v is not a *ParseError", err)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"SameMajor", "1.2.0", "1.9.4", true},
		{"DifferentMajor", "1.2.0", "2.0.0", false},
		{"ZeroMajorSameMinor", "0.4.1", "0.4.9", true},
		{"ZeroMajorDifferentMinor", "0.4.1", "0.5.0", false},
		{"ZeroZeroSamePatch", "0.0.3", "0.0.3", true},
		{"ZeroZeroDifferentPatch", "0.0.3", "0.0.4", false},
		{"MixedZeroMajor", "0.4.1", "1.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compatible(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compatible(%q, %q): %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("Compatible(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"Less", "1.2.0", "1.3.0", -1},
		{"Equal", "2.0.0", "2.0.0", 0},
		{"Greater", "2.1.0", "2.0.9", 1},
		{"TwoPartCoerced", "1.0", "1.0.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Compare(%q, %q): %v", tt.a, tt.b, err)
			}
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
