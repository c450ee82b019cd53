package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a Job
type Result interface {
	GetError() error
}

// Pool runs submitted jobs on a fixed number of goroutines and gathers
// their results as they complete.
type Pool struct {
	workers  int
	jobQueue chan Job
	results  chan Result
	ctx      context.Context
	cancel   context.CancelFunc

	wg        sync.WaitGroup
	collected chan []Result
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx; cancelling ctx stops it
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers:   workers,
		jobQueue:  make(chan Job, workers*2),
		results:   make(chan Result, workers*2),
		ctx:       ctx,
		cancel:    cancel,
		collected: make(chan []Result, 1),
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go func() {
		var out []Result
		for r := range p.results {
			out = append(out, r)
		}
		p.collected <- out
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns without queueing once the pool is stopped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait stops accepting jobs, lets queued ones finish and returns all results
// in completion order.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	out := <-p.collected
	p.cancel()
	return out
}

// Shutdown abandons queued jobs and returns what finished so far
func (p *Pool) Shutdown() []Result {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
	return <-p.collected
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
