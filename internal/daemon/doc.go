// Package daemon runs the background pipeline process: one watcher, one
// workflow manager, one instance lock.
package daemon
