package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"vidsub/internal/config"
	"vidsub/internal/services/llm"
)

// CheckTranslation verifies that the translation API is reachable and the key
// is valid. It uses a 30-second timeout and a single attempt.
func CheckTranslation(ctx context.Context, cfg *config.Config) Result {
	const name = "Translation API"
	if cfg.Translation.APIKey == "" {
		return Result{Name: name, Passed: true, Detail: "not configured (placeholder mode)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.Translation.APIKey,
		BaseURL: cfg.Translation.BaseURL,
		Model:   cfg.Translation.Model,
		Referer: cfg.Translation.Referer,
		Title:   cfg.Translation.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Path: cfg.Translation.BaseURL, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Path: cfg.Translation.BaseURL, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	result := Result{Name: name, Path: path}
	if path == "" {
		result.Detail = "not configured"
		return result
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Detail = "does not exist"
			return result
		}
		result.Detail = fmt.Sprintf("stat: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Detail = "is not a directory"
		return result
	}
	if err := accessReadWrite(path); err != nil {
		result.Detail = fmt.Sprintf("insufficient permissions: %v", err)
		return result
	}
	result.Passed = true
	result.Detail = "read/write ok"
	return result
}

// summarizeLLMError produces a human-readable summary for health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
