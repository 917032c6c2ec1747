// Package llm is a small client for OpenAI-compatible chat completion
// endpoints (OpenRouter by default).
//
// The translation backend uses Complete for free-text answers and
// CompleteJSON when it needs a structured reply. Requests are retried on
// HTTP 408/429/5xx, network timeouts and empty completions with exponential
// backoff; context cancellation stops retrying immediately.
//
// Errors carry the services markers: timeouts unwrap to services.ErrTimeout,
// retryable upstream failures to services.ErrTransient and everything else
// to services.ErrExternalTool.
package llm
