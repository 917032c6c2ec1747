// Package deps locates the external media tools vidsub shells out to.
//
// Resolver finds ffmpeg and its companion ffprobe: first on PATH (verified by
// running "<tool> -version"), then from a per-platform bundle copied into the
// scratch directory, and finally by writing installation instructions and
// returning a ResolutionError. Resolved paths are cached for the life of the
// process; runnability is re-checked on every IsAvailable or Status call.
//
// CheckBinary reports whether an optional helper such as a whisper.cpp binary
// can be launched.
package deps
