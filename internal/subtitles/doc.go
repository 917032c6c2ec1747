// Package subtitles renders and persists the SRT artifact produced for a task.
//
// The pipeline emits a single placeholder cue pairing the source transcript
// with its translation. Text is NFC-normalized before truncation so composed
// and decomposed input produce the same cue.
package subtitles
