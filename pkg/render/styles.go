package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/debstat/debstat/pkg/archive"
)

var (
	colorGreen   = lipgloss.Color("35")  // in archive
	colorBlue    = lipgloss.Color("75")  // NEW queue
	colorYellow  = lipgloss.Color("220") // outdated
	colorRed     = lipgloss.Color("167") // missing
	colorMagenta = lipgloss.Color("170") // lookup failed
	colorCyan    = lipgloss.Color("36")  // newer in archive
	colorDim     = lipgloss.Color("240") // path/git sources, markers
)

// styles holds the per-status text styles. With color disabled every style
// is a no-op and output is plain text.
type styles struct {
	color   bool
	green   lipgloss.Style
	blue    lipgloss.Style
	yellow  lipgloss.Style
	red     lipgloss.Style
	magenta lipgloss.Style
	cyan    lipgloss.Style
	dim     lipgloss.Style
	plain   lipgloss.Style
}

func newStyles(color bool) styles {
	s := styles{color: color, plain: lipgloss.NewStyle()}
	if !color {
		s.green, s.blue, s.yellow, s.red = s.plain, s.plain, s.plain, s.plain
		s.magenta, s.cyan, s.dim = s.plain, s.plain, s.plain
		return s
	}
	s.green = lipgloss.NewStyle().Foreground(colorGreen)
	s.blue = lipgloss.NewStyle().Foreground(colorBlue)
	s.yellow = lipgloss.NewStyle().Foreground(colorYellow)
	s.red = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	s.magenta = lipgloss.NewStyle().Foreground(colorMagenta)
	s.cyan = lipgloss.NewStyle().Foreground(colorCyan)
	s.dim = lipgloss.NewStyle().Foreground(colorDim)
	return s
}

func (s styles) forKind(k archive.StatusKind) lipgloss.Style {
	switch k {
	case archive.InArchive:
		return s.green
	case archive.InNewQueue:
		return s.blue
	case archive.Outdated:
		return s.yellow
	case archive.Missing:
		return s.red
	case archive.Newer:
		return s.cyan
	case archive.LookupFailed:
		return s.magenta
	case archive.NotPackageable:
		return s.dim
	default:
		return s.plain
	}
}

func glyph(k archive.StatusKind, ascii bool) string {
	switch k {
	case archive.InArchive:
		if ascii {
			return "+"
		}
		return "✓"
	case archive.InNewQueue:
		if ascii {
			return "~"
		}
		return "⧖"
	case archive.Outdated:
		return "!"
	case archive.Missing:
		if ascii {
			return "x"
		}
		return "✗"
	case archive.Newer:
		if ascii {
			return "^"
		}
		return "↑"
	case archive.LookupFailed:
		return "?"
	default:
		return ""
	}
}
