package preflight

import (
	"context"

	"vidsub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Path   string
	Passed bool
	Detail string
}

// CheckDirectories verifies the upload, scratch and log roots.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// RunAll executes every applicable check. The translation endpoint is only
// contacted when an API key is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := CheckDirectories(cfg)
	if cfg.Translation.APIKey != "" {
		results = append(results, CheckTranslation(ctx, cfg))
	}
	return results
}
