package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"vidsub/internal/fileutil"
)

// FileSuffix is appended to the task id to name its subtitle file.
const FileSuffix = "_subtitle.srt"

// PathFor returns the subtitle location for a task inside dir.
func PathFor(dir string, taskID int64) string {
	return filepath.Join(dir, strconv.FormatInt(taskID, 10)+FileSuffix)
}

// Write replaces path with content, creating parent directories.
func Write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure subtitle directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write subtitle: %w", err)
	}
	return nil
}

// Read loads a subtitle file.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read subtitle: %w", err)
	}
	return string(data), nil
}
