// Package planner turns a clip pool, a track duration, and an optional beat
// grid into an ordered segment timeline for assembly.
package planner
