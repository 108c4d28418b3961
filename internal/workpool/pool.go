// Package workpool runs generation tasks on a bounded set of worker
// goroutines. It backs the asynchronous variants of the generator
// operations.
package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of work. The context is the one passed to Submit.
type Task func(ctx context.Context) error

// Pool executes tasks with a fixed number of workers fed by a bounded queue.
type Pool struct {
	queueSize   int
	workerCount int

	// mu guards the queue against a concurrent Stop. Submit holds it for
	// reading while sending.
	mu      sync.RWMutex
	queue   chan job
	running atomic.Bool
	wg      sync.WaitGroup

	panicHandler PanicHandler

	submitted   atomic.Uint64
	processed   atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

type job struct {
	ctx  context.Context
	task Task
	done func(error)
}

// Option configures a Pool.
type Option func(*Pool)

// WithQueueSize sets the task queue size.
func WithQueueSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.queueSize = size
		}
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(count int) Option {
	return func(p *Pool) {
		if count > 0 {
			p.workerCount = count
		}
	}
}

// WithPanicHandler sets the handler called when a task panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(p *Pool) {
		p.panicHandler = h
	}
}

// New creates a stopped pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		queueSize:   256,
		workerCount: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return ErrAlreadyRunning
	}

	p.queue = make(chan job, p.queueSize)
	p.running.Store(true)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(p.queue)
	}
	return nil
}

// Stop stops accepting tasks and waits for queued tasks to finish or for
// ctx to be done.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running.Store(false)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues task. It blocks while the queue is full until ctx is done.
// Once queued, the task runs even if ctx is done by then. done, if not nil,
// receives the task result from the worker.
func (p *Pool) Submit(ctx context.Context, task Task, done func(error)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		return ErrNotRunning
	}

	select {
	case p.queue <- job{ctx: ctx, task: task, done: done}:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(queue <-chan job) {
	defer p.wg.Done()
	for j := range queue {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	p.processed.Add(1)
	start := time.Now()

	err := execute(j.ctx, j.task, p.panicHandler)
	p.totalTimeNs.Add(time.Since(start).Nanoseconds())

	var pe *PanicError
	switch {
	case asPanic(err, &pe):
		p.panicked.Add(1)
		p.failed.Add(1)
	case err != nil:
		p.failed.Add(1)
	default:
		p.succeeded.Add(1)
	}
	if j.done != nil {
		j.done(err)
	}
}

// IsRunning reports whether the pool accepts tasks.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// QueueDepth returns the number of queued tasks.
func (p *Pool) QueueDepth() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running.Load() {
		return 0
	}
	return len(p.queue)
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	processed := p.processed.Load()
	totalNs := p.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return Stats{
		Submitted:     p.submitted.Load(),
		Processed:     processed,
		Succeeded:     p.succeeded.Load(),
		Failed:        p.failed.Load(),
		Panicked:      p.panicked.Load(),
		QueueDepth:    p.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Stats contains pool statistics.
type Stats struct {
	// Submitted is the number of tasks accepted by Submit.
	Submitted uint64

	// Processed is the number of tasks taken by a worker.
	Processed uint64

	Succeeded uint64

	// Failed counts tasks that returned an error or panicked.
	Failed uint64

	Panicked uint64

	QueueDepth int

	TotalDuration time.Duration
	AvgDuration   time.Duration
}
