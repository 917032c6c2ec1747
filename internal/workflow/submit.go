package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vidsub/internal/fileutil"
	"vidsub/internal/logging"
	"vidsub/internal/queue"
	"vidsub/internal/textutil"
)

// Submit stores the uploaded bytes under the upload directory and records a
// task. Rejected uploads are deleted and recorded as UPLOAD_FAILED with the
// reason in ErrorMessage; that is not an error for the caller. An error is
// returned only when no task could be recorded.
func (e *Engine) Submit(ctx context.Context, r io.Reader, originalName string) (*queue.Task, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}
	logger := logging.WithContext(ctx, e.logger)
	originalName = strings.TrimSpace(originalName)
	path := filepath.Join(e.opts.UploadDir, e.uploadName(originalName))

	size, saveErr := fileutil.SaveStream(r, path)
	if saveErr != nil {
		logging.ErrorWithContext(logger, "upload could not be stored", "upload_failed",
			logging.String("original_name", originalName),
			logging.Error(saveErr),
			logging.String(logging.FieldErrorHint, "check upload_dir permissions and free space"),
		)
		return e.store.Create(ctx, queue.Task{
			SourcePath:   path,
			OriginalName: originalName,
			Status:       queue.StatusUploadFailed,
			ErrorMessage: "upload could not be stored: " + saveErr.Error(),
		})
	}

	if err := e.validator.ValidateStructure(ctx, path, e.opts.RequireVideoStream); err != nil {
		message := failureMessage(newStageError("upload", err))
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.WarnWithContext(logger, "rejected upload could not be deleted", "upload_cleanup_failed",
				logging.String("path", path),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "orphaned file remains in upload_dir"),
			)
		}
		task, createErr := e.store.Create(ctx, queue.Task{
			SourcePath:   path,
			OriginalName: originalName,
			SizeBytes:    size,
			Status:       queue.StatusUploadFailed,
			ErrorMessage: message,
		})
		if createErr != nil {
			return nil, createErr
		}
		logging.WarnWithContext(logger, "upload rejected", "upload_rejected",
			logging.TaskID(task.ID),
			logging.String("original_name", originalName),
			logging.Int64("size_bytes", size),
			logging.String("reason", message),
			logging.String(logging.FieldImpact, "task recorded as UPLOAD_FAILED"),
			logging.String(logging.FieldErrorHint, "re-export or re-upload the video"),
		)
		return task, nil
	}

	task, err := e.store.Create(ctx, queue.Task{
		SourcePath:   path,
		OriginalName: originalName,
		SizeBytes:    size,
		Status:       queue.StatusUploaded,
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("record upload: %w", err)
	}
	logger.Info("upload accepted",
		logging.EventType("upload_accepted"),
		logging.TaskID(task.ID),
		logging.String("original_name", originalName),
		logging.String("source_path", path),
		logging.Int64("size_bytes", size),
	)
	return task, nil
}

// uploadName prefixes the sanitized client name with a millisecond timestamp
// and a random token so concurrent uploads never collide.
func (e *Engine) uploadName(originalName string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	stamp := strconv.FormatInt(e.opts.Now().UnixMilli(), 10)
	return stamp + "_" + token + "_" + textutil.SanitizeFileName(originalName)
}
