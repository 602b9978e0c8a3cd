// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// beatforge.toml and gracefully degrades to a no-op when notifications are
// disabled. Workflow code depends only on the Service interface.
package notifications
