// Package audio extracts speech-ready audio from uploaded videos.
//
// Extract transcodes the first audio track to a mono 16 kHz PCM WAV named
// <video stem>_extracted.wav inside the scratch directory. The output format
// is fixed because transcription backends assume it.
package audio
