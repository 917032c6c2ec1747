// Package whisper implements the transcription backend.
//
// Transcriber owns audio extraction: it is handed the original video, runs
// the audio extractor, probes the resulting WAV and then either runs
// whisper.cpp (when both a binary and a model are configured) or returns a
// deterministic placeholder transcript whose length follows the audio
// duration.
package whisper
