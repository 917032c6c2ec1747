package workflow

import (
	"context"
	"sync"
)

// workerPool bounds concurrent runs with a semaphore. A size of zero or less
// runs every job on its own goroutine.
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	p := &workerPool{}
	if size > 0 {
		p.sem = make(chan struct{}, size)
	}
	return p
}

// Submit runs job in the background. If ctx ends before a slot frees up,
// abandoned is called instead of job.
func (p *workerPool) Submit(ctx context.Context, job func(), abandoned func(error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem == nil {
			job()
			return
		}
		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			job()
		case <-ctx.Done():
			if abandoned != nil {
				abandoned(ctx.Err())
			}
		}
	}()
}

// Wait blocks until every submitted job has returned.
func (p *workerPool) Wait() {
	p.wg.Wait()
}
