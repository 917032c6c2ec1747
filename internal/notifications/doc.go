// Package notifications publishes task lifecycle events to ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so the
// workflow engine can publish unconditionally.
package notifications
