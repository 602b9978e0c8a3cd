// Package beatgrid models the per-track beat grid: detected beat timestamps
// plus the tempo derived from them. Detection itself is delegated to an
// external tracker; this package validates and interprets its output.
package beatgrid
