// Package translate implements the translation backend: whole-text
// translation between two languages and word segmentation for
// language-learning display.
//
// With an API key the work is delegated to a chat completion model through
// the llm client. Without one every call returns a deterministic placeholder
// so the pipeline runs offline.
package translate
