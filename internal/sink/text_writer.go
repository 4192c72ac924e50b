package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"netplayer/internal/packet"
)

// TextWriter prints each record's log line. With color enabled the parts of the
// line are styled; styling is dropped automatically when out is not a terminal.
type TextWriter struct {
	out    io.Writer
	color  bool
	styles lineStyles
}

type lineStyles struct {
	elapsed lipgloss.Style
	dest    lipgloss.Style
	source  lipgloss.Style
	payload lipgloss.Style
	bad     lipgloss.Style
}

func NewTextWriter(out io.Writer, color bool) *TextWriter {
	r := lipgloss.NewRenderer(out)
	return &TextWriter{
		out:   out,
		color: color,
		styles: lineStyles{
			elapsed: r.NewStyle().Foreground(lipgloss.Color("8")),
			dest:    r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
			source:  r.NewStyle().Foreground(lipgloss.Color("14")),
			payload: r.NewStyle().Foreground(lipgloss.Color("10")),
			bad:     r.NewStyle().Foreground(lipgloss.Color("9")),
		},
	}
}

func (w *TextWriter) WriteRecord(r Record) error {
	line := r.Line
	if w.color {
		line = w.styles.render(r)
	}
	_, err := fmt.Fprintln(w.out, line)
	return err
}

func (s lineStyles) render(r Record) string {
	if r.Malformed {
		return s.bad.Render(r.Line)
	}
	var b strings.Builder
	b.WriteString(s.elapsed.Render("[" + packet.FormatElapsed(r.ElapsedMS) + "]"))
	b.WriteString(":")
	b.WriteString(s.dest.Render(fmt.Sprintf("(%d)", r.Dest)))
	b.WriteString(" Message from ")
	b.WriteString(s.source.Render(fmt.Sprint(r.Source)))
	b.WriteString(" - ")
	b.WriteString(s.payload.Render("'" + r.Payload + "'"))
	return b.String()
}
