// Package api defines the wire-format types shared by the HTTP server and the
// CLI. It converts queue tasks into transport DTOs so clients never depend on
// store internals.
//
// DTOs use camelCase JSON tags. Statuses keep their upper-case names and
// timestamps use RFC3339 with milliseconds.
package api
