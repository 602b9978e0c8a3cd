// Package logging assembles the structured slog loggers used across beatforge.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so stage code automatically tags log lines with
// asset names, stages, and correlation IDs. Prefer these constructors over
// hand-rolled slog setup so every component emits data with the same shape.
package logging
