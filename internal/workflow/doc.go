// Package workflow is the task lifecycle engine.
//
// Engine.Submit persists an upload, validates it and records the task as
// UPLOADED or UPLOAD_FAILED. Engine.Run moves a runnable task to PROCESSING
// and schedules it on the worker pool, where it advances through a fixed
// stage sequence:
//
//	10 starting               re-validate the source video
//	20 transcribing           Transcriber.Transcribe (owns audio extraction)
//	50 translating            Translator.Translate
//	70 segmenting             Translator.Segment
//	90 synthesizing subtitle  render and write <id>_subtitle.srt
//	100 completed
//
// Every transition goes through the task store's compare-and-update, so a
// reader always observes one of the snapshots above. A failing stage stops
// the run, keeps the last progress value and records a message prefixed by
// the failure kind ("invalid media", "media tool missing", "backend
// timeout", "backend failure"). Runs cannot be cancelled once started.
package workflow
