package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	casRetryAttempts        = 8
)

const taskColumns = "id, source_path, original_name, size_bytes, status, progress, current_step, subtitle_path, output_path, error_message, created_at, updated_at, version"

// SQLiteStore persists tasks in SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite initializes or connects to the task database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, task Task) (*Task, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Version = 1
	if task.Status == "" {
		task.Status = StatusUploading
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO tasks (
                source_path, original_name, size_bytes, status, progress, current_step,
                subtitle_path, output_path, error_message, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.SourcePath,
			task.OriginalName,
			task.SizeBytes,
			task.Status,
			task.Progress,
			nullableString(task.CurrentStep),
			nullableString(task.SubtitlePath),
			nullableString(task.OutputPath),
			nullableString(task.ErrorMessage),
			formatTime(task.CreatedAt),
			formatTime(task.UpdatedAt),
			task.Version,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	task.ID = id
	return task.Clone(), nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Update reads the row, applies mutate, and writes it back only if the version
// is unchanged, retrying on conflict.
func (s *SQLiteStore) Update(ctx context.Context, id int64, mutate MutateFunc) (*Task, error) {
	ctx = ensureContext(ctx)
	for attempt := 0; attempt < casRetryAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = nextTimestamp(current.UpdatedAt)
		next.Version = current.Version + 1
		if err := next.Validate(); err != nil {
			return nil, err
		}

		var affected int64
		err = retryOnBusy(ctx, func() error {
			res, execErr := s.db.ExecContext(ctx,
				`UPDATE tasks
                 SET source_path = ?, original_name = ?, size_bytes = ?, status = ?, progress = ?,
                     current_step = ?, subtitle_path = ?, output_path = ?, error_message = ?,
                     updated_at = ?, version = ?
                 WHERE id = ? AND version = ?`,
				next.SourcePath,
				next.OriginalName,
				next.SizeBytes,
				next.Status,
				next.Progress,
				nullableString(next.CurrentStep),
				nullableString(next.SubtitlePath),
				nullableString(next.OutputPath),
				nullableString(next.ErrorMessage),
				formatTime(next.UpdatedAt),
				next.Version,
				next.ID,
				current.Version,
			)
			if execErr != nil {
				return execErr
			}
			affected, execErr = res.RowsAffected()
			return execErr
		})
		if err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
		if affected == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("%w: task %d", ErrConflict, id)
}

func (s *SQLiteStore) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		task         Task
		status       string
		currentStep  sql.NullString
		subtitlePath sql.NullString
		outputPath   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&task.ID,
		&task.SourcePath,
		&task.OriginalName,
		&task.SizeBytes,
		&status,
		&task.Progress,
		&currentStep,
		&subtitlePath,
		&outputPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&task.Version,
	); err != nil {
		return nil, err
	}
	task.Status = Status(status)
	task.CurrentStep = currentStep.String
	task.SubtitlePath = subtitlePath.String
	task.OutputPath = outputPath.String
	task.ErrorMessage = errorMessage.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return &task, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// Fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
