// Package prefetch warms the resolver cache with an asynchronous worker pool.
//
// Jobs are resolved through the same resolver a render uses, so a warmed
// cache answers later renders without any remote calls.
package prefetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/wikifetch/pkg/logger"
)

var (
	defaultNumWorkers   uint = 4
	defaultJobQueueSize uint = 256
)

// Kind is the kind of name a Job resolves.
type Kind string

const (
	KindTemplate Kind = "template"
	KindImage    Kind = "image"
)

// Job is a unit of work for the worker pool.
type Job struct {
	Kind Kind

	// Name is a raw template name or a raw image spec.
	Name string

	// Namespace is the image namespace for KindImage jobs.
	Namespace string
}

// Resolver is the part of resolver.Resolver the pool drives.
type Resolver interface {
	ResolveTemplate(ctx context.Context, raw string) (string, bool)
	ResolveImage(ctx context.Context, namespace, rawSpec string) (string, bool)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Resolver resolves each job. Required.
	Resolver Resolver

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Summary counts what the pool has done so far.
type Summary struct {
	Resolved int64 `json:"resolved"`
	Missing  int64 `json:"missing"`
	Dropped  int64 `json:"dropped"`
}

// Pool resolves prefetch jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// ctx is cancelled by Abort so in-flight resolutions stop early.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	resolved atomic.Int64
	missing  atomic.Int64
	dropped  atomic.Int64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Resolver == nil {
		return nil, errors.New("prefetch pool requires a resolver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "kind", job.Kind, "name", job.Name)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Error("job not queued, queue full, job dropped", "kind", job.Kind, "name", job.Name)
		return false
	}
}

// Submit blocks until job is queued or ctx is done. Use it when every job
// must run, e.g. when draining a manifest larger than the queue.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "kind", job.Kind, "name", job.Name)
		return nil
	case <-ctx.Done():
		p.dropped.Add(1)
		return ctx.Err()
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
	p.cancel()
}

// Abort cancels in-flight resolutions, then closes the pool. Queued jobs
// finish immediately as misses.
func (p *Pool) Abort() {
	p.cancel()
	p.Close()
}

// Summary returns the pool's counters.
func (p *Pool) Summary() Summary {
	return Summary{
		Resolved: p.resolved.Load(),
		Missing:  p.missing.Load(),
		Dropped:  p.dropped.Load(),
	}
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("prefetch worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	if p.ctx.Err() != nil {
		p.missing.Add(1)
		return
	}

	var ok bool
	switch job.Kind {
	case KindTemplate:
		_, ok = p.config.Resolver.ResolveTemplate(p.ctx, job.Name)
	case KindImage:
		_, ok = p.config.Resolver.ResolveImage(p.ctx, job.Namespace, job.Name)
	default:
		p.logger.Warn("unknown prefetch job kind", "kind", job.Kind, "name", job.Name)
	}

	if !ok {
		p.missing.Add(1)
		p.logger.Info("prefetch miss", "kind", job.Kind, "name", job.Name)
		return
	}

	p.resolved.Add(1)
	p.logger.Debug("prefetched", "kind", job.Kind, "name", job.Name)
}
