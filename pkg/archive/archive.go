// Package archive answers "is this package version available in the
// distribution archive?" for resolved dependency graphs.
//
// The package talks to an archive index service over HTTP, classifies the
// answer into a [Status], and caches results per (name, version) for the
// lifetime of the process. Lookups never fail the run: network trouble
// degrades to [LookupFailed] so the rest of the tree can still be reported.
package archive

import (
	"context"
	"fmt"
	"time"
)

// StatusKind classifies one package version against the archive.
type StatusKind int

const (
	// Missing means the archive has no package of this name at all.
	Missing StatusKind = iota
	// InArchive means the stable suite carries a compatible version.
	InArchive
	// InNewQueue means the package sits in the staging/NEW review queue.
	InNewQueue
	// Outdated means the stable suite carries only older versions.
	Outdated
	// Newer means the stable suite carries a higher, incompatible version.
	Newer
	// NotPackageable marks path and git sources, which have no archive
	// presence by definition.
	NotPackageable
	// LookupFailed means the archive could not be queried for this key.
	LookupFailed
)

func (k StatusKind) String() string {
	switch k {
	case Missing:
		return "missing"
	case InArchive:
		return "in archive"
	case InNewQueue:
		return "in NEW queue"
	case Outdated:
		return "outdated"
	case Newer:
		return "newer in archive"
	case NotPackageable:
		return "not packageable"
	case LookupFailed:
		return "lookup failed"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

// Status is the archive's answer for one (name, version) key.
type Status struct {
	Kind           StatusKind
	ArchiveVersion string        // suite version with the revision stripped, if any
	QueueAge       time.Duration // time in the NEW queue, for InNewQueue
	Exact          bool          // archive version equals the requested version
	Reason         string        // human-readable cause, for LookupFailed
}

// Satisfying reports whether the status needs no packaging work.
func (s Status) Satisfying() bool {
	return s.Kind == InArchive || s.Kind == NotPackageable
}

// Annotation renders the status as the short text shown next to a package.
func (s Status) Annotation() string {
	switch s.Kind {
	case InArchive:
		if s.Exact {
			return "in archive"
		}
		return fmt.Sprintf("in archive (%s)", s.ArchiveVersion)
	case InNewQueue:
		if s.QueueAge > 0 {
			return fmt.Sprintf("in NEW queue (%s)", formatAge(s.QueueAge))
		}
		return "in NEW queue"
	case Outdated:
		return fmt.Sprintf("outdated (%s)", s.ArchiveVersion)
	case Newer:
		return fmt.Sprintf("archive has newer %s", s.ArchiveVersion)
	case LookupFailed:
		if s.Reason != "" {
			return "lookup failed: " + s.Reason
		}
		return "lookup failed"
	default:
		return s.Kind.String()
	}
}

// Oracle answers archive availability queries. Implementations must be safe
// for concurrent use; a failed lookup is reported as a LookupFailed status,
// never as an error.
type Oracle interface {
	Lookup(ctx context.Context, name, version string) Status
}

func formatAge(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days >= 2:
		return fmt.Sprintf("%d days", days)
	case days == 1:
		return "1 day"
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return "<1h"
	}
}
