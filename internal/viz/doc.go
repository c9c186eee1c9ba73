// Package viz renders solver traces, sweeps and embeddings in the terminal.
//
//   - [PlotTrace] and [PlotSweep]: asciigraph line plots
//   - [Canvas] and [Scatter]: Braille scatter of 2D coordinates
//   - [SweepModel]: Bubble Tea view of a running sweep
//
// # Key Bindings
//
//	q, ctrl+c - stop the sweep and exit
package viz
