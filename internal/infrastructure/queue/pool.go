package queue

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

const channelBuffer = 256

// ErrPoolStopped is returned for work submitted after the pool shut down.
var ErrPoolStopped = errors.New("worker pool stopped")

type job struct {
	fn   func()
	done chan struct{}
}

// Pool runs CPU-bound jobs (password hashing) on a fixed set of workers so a
// burst of logins cannot occupy every request goroutine at once.
type Pool struct {
	jobs    chan job
	workers int
	stopped chan struct{}
	once    sync.Once
	log     zerolog.Logger
}

// NewPool creates a Pool with numWorkers workers.
// If numWorkers <= 0, runtime.NumCPU() is used.
func NewPool(numWorkers int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{
		jobs:    make(chan job, channelBuffer),
		workers: numWorkers,
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.runWorker(ctx, i)
		}
		go func() {
			<-ctx.Done()
			close(p.stopped)
		}()
	})
}

// Do runs fn on a worker and waits for it to finish.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := job{fn: fn, done: make(chan struct{})}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolStopped
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrPoolStopped
	}
}

// Depth is the number of jobs waiting for a worker.
func (p *Pool) Depth() int {
	return len(p.jobs)
}

// Workers is the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			p.run(id, j)
		}
	}
}

func (p *Pool) run(id int, j job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Int("worker_id", id).Msg("pool job panicked")
		}
	}()
	j.fn()
}
