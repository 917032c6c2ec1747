package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps tasks in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]*Task
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[int64]*Task)}
}

func (s *MemoryStore) Create(_ context.Context, task Task) (*Task, error) {
	task.Version = 1
	if task.Status == "" {
		task.Status = StatusUploading
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.nextID++
	task.ID = s.nextID
	s.tasks[task.ID] = &task
	return task.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return task.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, mutate MutateFunc) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
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
	s.tasks[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, statuses ...Status) ([]*Task, error) {
	filter := statusFilter(statuses)
	s.mu.RLock()
	out := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if filter != nil {
			if _, ok := filter[task.Status]; !ok {
				continue
			}
		}
		out = append(out, task.Clone())
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func sortNewestFirst(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
}
