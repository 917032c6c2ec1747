// Package services defines shared utilities consumed by the pipeline stages
// and the external backends they call.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and FailureKind which
//     maps any stage error onto the user-facing failure classes (invalid
//     media, missing tool, backend timeout, backend failure).
//
// Backends live in subpackages (llm, whisper, translate).
package services
