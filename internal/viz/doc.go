// Package viz provides the live terminal view of a rendering session.
//
// The view is a Bubble Tea program:
//
//   - [Model]: drives a [sim.Session] one frame per tick
//   - [Canvas]: braille downsample of the grayscale pixel buffer
//   - Theme selection with 4 built-in color schemes
//
// The first tick runs calibration; every later tick renders one frame
// within the session's budget.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Recalibrate with another pass
//	T     - Cycle color themes
//	+/-   - Double/halve the frame budget
//	↑/↓   - Raise/lower the dot threshold
//	?     - Show help overlay
//	Q     - Quit
package viz
