// Package worker runs independent client operations (document downloads)
// with bounded concurrency and paces requests per host.
package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs queued jobs on a fixed number of goroutines. Every job sees the
// pool context, which ends with the parent context or Shutdown.
type Pool struct {
	size   int
	queue  chan Job
	out    chan Result
	ctx    context.Context
	stop   context.CancelFunc
	active sync.WaitGroup

	queueClosed sync.Once
	outClosed   sync.Once
}

// NewPool creates a pool whose jobs are cancelled with ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, stop := context.WithCancel(ctx)
	return &Pool{
		size:  workers,
		queue: make(chan Job, 2*workers),
		out:   make(chan Result, 2*workers),
		ctx:   ctx,
		stop:  stop,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.active.Add(p.size)
	for range p.size {
		go p.run()
	}
}

// run takes jobs until the queue is closed or the pool is cancelled. A
// finished result is dropped if nobody can receive it anymore.
func (p *Pool) run() {
	defer p.active.Done()
	for {
		var job Job
		select {
		case <-p.ctx.Done():
			return
		case next, open := <-p.queue:
			if !open {
				return
			}
			job = next
		}

		res := job.Execute(p.ctx)
		select {
		case p.out <- res:
		case <-p.ctx.Done():
			return
		}
	}
}

// Submit queues a job. It returns false when the pool has been cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.queue <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Wait closes the queue, waits for the workers and returns all results
func (p *Pool) Wait() []Result {
	p.closeQueue()
	return p.collect()
}

// Shutdown stops the pool without waiting for queued jobs
func (p *Pool) Shutdown() {
	p.stop()
	p.active.Wait()
	p.closeResults()
}

func (p *Pool) closeQueue() {
	p.queueClosed.Do(func() { close(p.queue) })
}

func (p *Pool) closeResults() {
	p.outClosed.Do(func() { close(p.out) })
}

// collect drains results until every worker has exited. It may run while
// jobs are still being submitted from another goroutine.
func (p *Pool) collect() []Result {
	go func() {
		p.active.Wait()
		p.closeResults()
		p.stop()
	}()

	var all []Result
	for res := range p.out {
		all = append(all, res)
	}
	return all
}
