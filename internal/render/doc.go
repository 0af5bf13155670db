// Package render draws a widget layout tree.
//
// A [Renderer] is the host side of the widget: it receives a finished
// [widget.Widget] and writes it somewhere. Two renderers are provided:
//   - [Text]: terminal output, optionally with ANSI colours
//   - [JSON]: the tree itself, for remote widget hosts
package render
