package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/haivivi/rtring/pkg/ringbuf"
)

// Theme holds the colors of the ring view.
type Theme struct {
	Primary  lipgloss.Color
	Readable lipgloss.Color
	Pending  lipgloss.Color
	Dim      lipgloss.Color
}

// DefaultTheme is used by the ringctl commands.
var DefaultTheme = Theme{
	Primary:  lipgloss.Color("#00ff9f"),
	Readable: lipgloss.Color("#58a6ff"),
	Pending:  lipgloss.Color("#d29922"),
	Dim:      lipgloss.Color("#6e7681"),
}

// Styles are derived from a Theme.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Readable lipgloss.Style
	Pending  lipgloss.Style
	Free     lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:    lipgloss.NewStyle().Foreground(t.Dim),
		Readable: lipgloss.NewStyle().Foreground(t.Readable),
		Pending:  lipgloss.NewStyle().Foreground(t.Pending).Underline(true),
		Free:     lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Region classifies a storage byte.
type Region int

const (
	RegionFree Region = iota
	RegionReadable
	RegionPending
)

// RegionOf reports which region byte i of snap lies in.
func RegionOf(snap ringbuf.Snapshot, i int) Region {
	switch {
	case within(snap.Tail, snap.Head, i):
		return RegionReadable
	case within(snap.Head, snap.Pending, i):
		return RegionPending
	default:
		return RegionFree
	}
}

// within reports whether i is in the circular half-open range [from, to).
func within(from, to, i int) bool {
	if from <= to {
		return i >= from && i < to
	}
	return i >= from || i < to
}

// RenderSnapshot draws snap as a hex dump, cols bytes per row, with
// readable and pending bytes highlighted.
func RenderSnapshot(st Styles, snap ringbuf.Snapshot, cols int) string {
	if cols <= 0 {
		cols = 16
	}
	var b strings.Builder
	b.WriteString(st.Title.Render(fmt.Sprintf("ring %s", FormatBytes(int64(snap.Capacity)))))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%s %d  %s %d  %s %d  %s %d",
		st.Label.Render("head"), snap.Head,
		st.Label.Render("tail"), snap.Tail,
		st.Label.Render("readable"), snap.Readable(),
		st.Label.Render("uncommitted"), snap.Uncommitted(),
	)
	if snap.Invalidated {
		b.WriteString("  " + st.Pending.Render("rollback pending"))
	}
	b.WriteByte('\n')

	for row := 0; row < len(snap.Data); row += cols {
		b.WriteString(st.Label.Render(fmt.Sprintf("%08x", row)))
		for i := row; i < min(row+cols, len(snap.Data)); i++ {
			cell := fmt.Sprintf("%02x", snap.Data[i])
			switch RegionOf(snap, i) {
			case RegionReadable:
				cell = st.Readable.Render(cell)
			case RegionPending:
				cell = st.Pending.Render(cell)
			default:
				cell = st.Free.Render(cell)
			}
			b.WriteByte(' ')
			b.WriteString(cell)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
