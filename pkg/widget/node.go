package widget

// Kind identifies a layout node.
type Kind string

const (
	// KindStack groups children horizontally or vertically.
	KindStack Kind = "stack"
	// KindText is a single run of text.
	KindText Kind = "text"
	// KindSpacer is empty space. A zero length means flexible.
	KindSpacer Kind = "spacer"
)

// Direction is the layout axis of a stack.
type Direction string

const (
	Horizontal Direction = "h"
	Vertical   Direction = "v"
)

// Padding is stack padding in points.
type Padding struct {
	Top      float64 `json:"top"`
	Leading  float64 `json:"leading"`
	Bottom   float64 `json:"bottom"`
	Trailing float64 `json:"trailing"`
}

// Weight is a font weight.
type Weight string

const (
	WeightMedium Weight = "medium"
	WeightBold   Weight = "bold"
)

// Font is a system font description.
type Font struct {
	Size   float64 `json:"size"`
	Weight Weight  `json:"weight"`
}

// Node is one element of the layout tree. Which fields are meaningful
// depends on Kind.
type Node struct {
	Kind Kind `json:"kind"`

	// Stack
	Direction    Direction `json:"direction,omitempty"`
	Padding      *Padding  `json:"padding,omitempty"`
	Background   string    `json:"background,omitempty"`
	CornerRadius float64   `json:"corner_radius,omitempty"`
	Children     []Node    `json:"children,omitempty"`

	// Text
	Text      string  `json:"text,omitempty"`
	Font      *Font   `json:"font,omitempty"`
	Color     string  `json:"color,omitempty"`
	LineLimit int     `json:"line_limit,omitempty"`
	MinScale  float64 `json:"min_scale,omitempty"`

	// Spacer
	Length float64 `json:"length,omitempty"`
}

// StackOption configures a stack node.
type StackOption func(*Node)

// WithPadding sets stack padding.
func WithPadding(top, leading, bottom, trailing float64) StackOption {
	return func(n *Node) {
		n.Padding = &Padding{Top: top, Leading: leading, Bottom: bottom, Trailing: trailing}
	}
}

// WithBackground sets the stack background colour.
func WithBackground(color string) StackOption {
	return func(n *Node) {
		n.Background = color
	}
}

// WithCornerRadius rounds the stack corners.
func WithCornerRadius(radius float64) StackOption {
	return func(n *Node) {
		n.CornerRadius = radius
	}
}

// Stack creates a stack node.
func Stack(dir Direction, opts ...StackOption) Node {
	n := Node{Kind: KindStack, Direction: dir}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

// Add returns a copy of the stack with children appended. The receiver is
// not modified.
func (n Node) Add(children ...Node) Node {
	merged := make([]Node, 0, len(n.Children)+len(children))
	merged = append(merged, n.Children...)
	n.Children = append(merged, children...)
	return n
}

// Text creates a text node. A positive maxLines with minScale below 1
// reserves one extra line for the scaled-down text.
func Text(text string, font Font, color string, maxLines int, minScale float64) Node {
	lineLimit := maxLines
	if maxLines > 0 && minScale < 1 {
		lineLimit = maxLines + 1
	}
	return Node{
		Kind:      KindText,
		Text:      text,
		Font:      &font,
		Color:     color,
		LineLimit: lineLimit,
		MinScale:  minScale,
	}
}

// Spacer creates a spacer. Pass 0 for a flexible spacer.
func Spacer(length float64) Node {
	return Node{Kind: KindSpacer, Length: length}
}

// Walk calls fn for n and every descendant in depth-first order.
func (n Node) Walk(fn func(Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Texts returns the text of every text node under n, in order.
func (n Node) Texts() []string {
	var out []string
	n.Walk(func(c Node) {
		if c.Kind == KindText {
			out = append(out, c.Text)
		}
	})
	return out
}
