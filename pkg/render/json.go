package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/depgraph"
	"github.com/debstat/debstat/pkg/status"
)

// PackageJSON is the machine-readable record for one tree row.
type PackageJSON struct {
	Name           string  `json:"name"`
	Version        string  `json:"version"`
	Source         string  `json:"source"`
	Depth          int     `json:"depth"`
	Status         string  `json:"status"`
	License        string  `json:"license,omitempty"`
	Repository     string  `json:"repository,omitempty"`
	ArchiveVersion string  `json:"archive_version,omitempty"`
	QueueAgeDays   float64 `json:"queue_age_days,omitempty"`
	Blocking       bool    `json:"blocking"`
	Reason         string  `json:"reason,omitempty"`
	Dedup          bool    `json:"elided,omitempty"`
	Cycle          bool    `json:"cycle,omitempty"`
}

// Report is the whole-run JSON envelope.
type Report struct {
	ReportID    string        `json:"report_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Suite       string        `json:"suite"`
	Totals      Totals        `json:"totals"`
	Packages    []PackageJSON `json:"packages"`
}

// Totals summarizes the archive presence across all rendered rows,
// counting each package once.
type Totals struct {
	Packages     int `json:"packages"`
	InArchive    int `json:"in_archive"`
	InNewQueue   int `json:"in_new_queue"`
	Outdated     int `json:"outdated"`
	Missing      int `json:"missing"`
	LookupFailed int `json:"lookup_failed"`
	Blocking     int `json:"blocking"`
}

// WriteJSONLines renders the tree as one JSON object per line, in the same
// order as the text tree.
func WriteJSONLines(w io.Writer, g *depgraph.Graph, statuses status.Map, opts Options) error {
	rows, err := jsonRows(g, statuses, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport renders the whole run as a single JSON document with a
// report envelope.
func WriteReport(w io.Writer, g *depgraph.Graph, statuses status.Map, suite string, opts Options) error {
	rows, err := jsonRows(g, statuses, opts)
	if err != nil {
		return err
	}
	report := Report{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Suite:       suite,
		Totals:      tally(g, statuses),
		Packages:    rows,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func jsonRows(g *depgraph.Graph, statuses status.Map, opts Options) ([]PackageJSON, error) {
	opts.Color = false
	lines, err := Lines(g, statuses, opts)
	if err != nil {
		return nil, err
	}
	rows := make([]PackageJSON, 0, len(lines))
	for _, l := range lines {
		if l.Header {
			continue
		}
		st := statuses[l.ID]
		row := PackageJSON{
			Name:           l.ID.Name,
			Version:        l.ID.Version,
			Source:         l.ID.Source.String(),
			Depth:          l.Depth,
			Status:         st.Archive.Kind.String(),
			ArchiveVersion: st.Archive.ArchiveVersion,
			Blocking:       st.Blocking,
			Reason:         st.Archive.Reason,
			Dedup:          l.Dedup,
			Cycle:          l.Cycle,
		}
		if n, ok := g.Node(l.ID); ok {
			row.License = n.License
			row.Repository = n.Repository
		}
		if st.Archive.Kind == archive.InNewQueue {
			row.QueueAgeDays = st.Archive.QueueAge.Hours() / 24
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func tally(g *depgraph.Graph, statuses status.Map) Totals {
	var t Totals
	for _, n := range g.Nodes() {
		st, ok := statuses[n.ID]
		if !ok {
			continue
		}
		t.Packages++
		if st.Blocking {
			t.Blocking++
		}
		switch st.Archive.Kind {
		case archive.InArchive:
			t.InArchive++
		case archive.InNewQueue:
			t.InNewQueue++
		case archive.Outdated:
			t.Outdated++
		case archive.Missing:
			t.Missing++
		case archive.LookupFailed:
			t.LookupFailed++
		}
	}
	return t
}
