// Package viz renders closed-loop runs for people.
//
// Runs are drawn as [Panel]s, one per controlled variable (measured value
// against its setpoint) and one per manipulated variable (controller
// command). A panel can be drawn in the terminal with [Chart] or written as
// a PNG with [WritePNG]. [Viewer] is an interactive browser over stored
// runs.
//
// # Key Bindings
//
//	↑/↓, k/j  - Select run
//	Tab       - Next panel
//	Shift+Tab - Previous panel
//	T         - Cycle color themes
//	?         - Toggle full help
//	Q         - Quit
package viz
