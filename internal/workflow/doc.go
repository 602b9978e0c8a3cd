// Package workflow runs the folder-driven pipeline: watcher events become
// tasks, a bounded worker pool executes the stage handler bound to each
// folder, and the asset store records every transition. Failures leave the
// file in place for retry.
package workflow
