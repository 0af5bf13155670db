package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ligustah/impfwidget/pkg/widget"
)

// Renderer writes a widget to w.
type Renderer interface {
	Render(w io.Writer, wdg widget.Widget) error
	ContentType() string
}

// Format names a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	// Color enables ANSI colours in text output.
	Color bool

	// Indent pretty-prints JSON output.
	Indent bool
}

// New returns the renderer for format.
func New(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatText, "":
		return &Text{Color: opts.Color}, nil
	case FormatJSON:
		return &JSON{Indent: opts.Indent}, nil
	default:
		return nil, fmt.Errorf("render: unknown format %q", format)
	}
}

// JSON encodes the widget as JSON.
type JSON struct {
	Indent bool
}

func (r *JSON) ContentType() string {
	return "application/json"
}

func (r *JSON) Render(w io.Writer, wdg widget.Widget) error {
	enc := json.NewEncoder(w)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(wdg); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return nil
}

// pointsPerCell converts layout points to terminal columns.
const pointsPerCell = 4

// blankLineSpacer is the smallest vertical spacer that emits a blank line.
const blankLineSpacer = 10

// Text draws the widget on a character grid. Horizontal stacks place their
// children side by side, vertical stacks place them one below the other.
type Text struct {
	Color bool
}

func (r *Text) ContentType() string {
	return "text/plain; charset=utf-8"
}

func (r *Text) Render(w io.Writer, wdg widget.Widget) error {
	lines := r.node(wdg.Root, widget.Vertical)

	// Drop trailing blank lines left by state bar and spacers.
	end := len(lines)
	for end > 0 && strings.TrimRight(lines[end-1].s, " ") == "" {
		end--
	}

	var sb strings.Builder
	for _, l := range lines[:end] {
		sb.WriteString(strings.TrimRight(l.s, " "))
		sb.WriteByte('\n')
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	return nil
}

// line is rendered text with its visible width.
type line struct {
	s string
	w int
}

func (r *Text) node(n widget.Node, parent widget.Direction) []line {
	switch n.Kind {
	case widget.KindText:
		return []line{{s: r.style(n), w: runewidth.StringWidth(n.Text)}}
	case widget.KindSpacer:
		return spacer(n.Length, parent)
	case widget.KindStack:
		var lines []line
		if n.Direction == widget.Horizontal {
			lines = r.row(n.Children)
		} else {
			lines = r.column(n.Children)
		}
		if n.Padding != nil && n.Padding.Leading > 0 {
			lines = indent(lines, cells(n.Padding.Leading))
		}
		return lines
	default:
		return nil
	}
}

func (r *Text) column(children []widget.Node) []line {
	var out []line
	for _, c := range children {
		out = append(out, r.node(c, widget.Vertical)...)
	}
	return out
}

func (r *Text) row(children []widget.Node) []line {
	var blocks [][]line
	height := 0
	for _, c := range children {
		b := r.node(c, widget.Horizontal)
		if len(b) == 0 {
			continue
		}
		blocks = append(blocks, b)
		height = max(height, len(b))
	}

	out := make([]line, height)
	for _, b := range blocks {
		width := 0
		for _, l := range b {
			width = max(width, l.w)
		}
		for i := range out {
			cell := line{}
			if i < len(b) {
				cell = b[i]
			}
			out[i].s += cell.s + strings.Repeat(" ", width-cell.w)
			out[i].w += width
		}
	}
	return out
}

func (r *Text) style(n widget.Node) string {
	if !r.Color {
		return n.Text
	}

	var codes []string
	if n.Font != nil && n.Font.Weight == widget.WeightBold {
		codes = append(codes, "1")
	}
	if rgb, ok := parseHex(n.Color); ok {
		codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", rgb[0], rgb[1], rgb[2]))
	}
	if len(codes) == 0 {
		return n.Text
	}
	return "\x1b[" + strings.Join(codes, ";") + "m" + n.Text + "\x1b[0m"
}

func spacer(length float64, parent widget.Direction) []line {
	if parent == widget.Vertical {
		if length >= blankLineSpacer {
			return []line{{}}
		}
		return nil
	}
	w := 1
	if length > 0 {
		w = cells(length)
	}
	return []line{{s: strings.Repeat(" ", w), w: w}}
}

func indent(lines []line, n int) []line {
	pad := strings.Repeat(" ", n)
	out := make([]line, len(lines))
	for i, l := range lines {
		out[i] = line{s: pad + l.s, w: l.w + n}
	}
	return out
}

func cells(points float64) int {
	return int(math.Ceil(points / pointsPerCell))
}

// parseHex parses #rgb, #rrggbb or #rrggbbaa. Alpha is ignored.
func parseHex(s string) ([3]uint8, bool) {
	var rgb [3]uint8
	s = strings.TrimPrefix(s, "#")

	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6, 8:
		s = s[:6]
	default:
		return rgb, false
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb, false
	}
	rgb[0], rgb[1], rgb[2] = uint8(v>>16), uint8(v>>8), uint8(v)
	return rgb, true
}
