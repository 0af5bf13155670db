// Package widget builds the vaccination widget as a data-only layout tree.
//
// The tree is made of three node kinds:
//   - stack: horizontal or vertical group with padding, background and radius
//   - text: a run of text with font, colour and line limit
//   - spacer: fixed or flexible space
//
// [Build] never draws anything. A renderer walks [Widget.Root] and decides
// how stacks, texts and spacers look on its target.
//
// # Layout
//
//	[💉] Impffortschritt
//	     05.01.2021 09:30
//	┌───────────────────────────────┐
//	│ 60↑ERSTIMPFUNG                │  small: count row + bar
//	│ 0,00%▩▩▩▩▩▩▩▩▩▩               │  medium: percent + bar
//	└───────────────────────────────┘
//
// Each bar has ten segments; segment i is green iff percent > i*10.
package widget
