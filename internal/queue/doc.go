// Package queue persists pipeline state in SQLite: tracked assets with
// their lifecycle status, the per-track beat grid sidecar rows, and the
// history of assembled deliverables.
package queue
