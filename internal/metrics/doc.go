// Package metrics turns panel queries into normalized series. It renders the
// Slurm usage and capacity PromQL templates, resolves lookback windows
// against a single run clock and tags capacity series so the chart builder
// can draw them as an overlay.
package metrics
