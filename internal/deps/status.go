package deps

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ToolInfo describes one resolved executable.
type ToolInfo struct {
	Path       string `json:"path"`
	Exists     bool   `json:"exists"`
	SizeBytes  int64  `json:"size_bytes"`
	Executable bool   `json:"executable"`
	Runnable   bool   `json:"runnable"`
	Version    string `json:"version,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ToolStatus is recomputed on every call.
type ToolStatus struct {
	Platform         Platform `json:"platform"`
	Available        bool     `json:"available"`
	Source           Source   `json:"source,omitempty"`
	FFmpeg           ToolInfo `json:"ffmpeg"`
	FFprobe          ToolInfo `json:"ffprobe"`
	InstructionsPath string   `json:"instructions_path,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Status resolves the tools if needed and inspects each one.
func (r *Resolver) Status(ctx context.Context) ToolStatus {
	status := ToolStatus{Platform: r.platform}
	h, err := r.Resolve(ctx)
	if err != nil {
		status.Error = err.Error()
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			status.InstructionsPath = resErr.InstructionsPath
		}
		return status
	}
	status.Source = h.Source
	status.FFmpeg = r.inspect(ctx, h.FFmpeg)
	status.FFprobe = r.inspect(ctx, h.FFprobe)
	status.Available = status.FFmpeg.Runnable && status.FFprobe.Runnable
	return status
}

func (r *Resolver) inspect(ctx context.Context, path string) ToolInfo {
	info := ToolInfo{Path: path}
	resolved := path
	if lp, err := exec.LookPath(path); err == nil {
		resolved = lp
		info.Path = lp
	}
	if fi, err := os.Stat(resolved); err == nil {
		info.Exists = true
		info.SizeBytes = fi.Size()
		info.Executable = isExecutable(fi)
	}
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	out, err := r.run(probeCtx, path, "-version")
	if err != nil {
		info.Detail = err.Error()
		return info
	}
	info.Runnable = true
	info.Version = firstLine(string(out))
	return info
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
