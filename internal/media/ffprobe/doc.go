// Package ffprobe inspects media files with ffprobe.
//
// Inspect decodes ffprobe's JSON stream/format report. Prober builds on it to
// produce AudioInfo for transcription and to validate uploaded videos before
// any work is scheduled. Classify maps raw ffprobe diagnostics onto a closed
// set of categories with user-facing messages; it is pure and never fails.
package ffprobe
