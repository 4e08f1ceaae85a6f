package worker

import (
	"context"
	"sync"
)

// Job is one unit of pool work. Execute receives a context that ends
// when the pool is shut down or its parent context is cancelled.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a finished job
type Result interface {
	GetError() error
}

// Pool fans jobs out across a fixed number of workers. The pipeline uses
// one per verification pass: Start it, Submit a job per claim, then Wait
// to collect the outcomes. A pool is single-use; Wait tears it down.
type Pool struct {
	size    int
	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	drained sync.Once

	collected   []Result
	collectDone chan struct{}
}

// NewPool sizes a pool. Sizes below one run a single worker.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	return &Pool{
		size:    size,
		jobs:    make(chan Job, size*2),
		results: make(chan Result, size*2),
	}
}

// Start launches the workers. Jobs run under a context derived from ctx,
// so cancelling the caller's context stops the whole fan-out. Start must
// be called before Submit.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.collectDone = make(chan struct{})

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run()
	}

	go p.collect()
}

// collect drains results as the workers produce them. Draining from the
// start keeps Submit from wedging behind a full results buffer when the
// batch is larger than the pool's channel capacity.
func (p *Pool) collect() {
	defer close(p.collectDone)

	for r := range p.results {
		p.collected = append(p.collected, r)
	}
}

// run consumes jobs until the queue closes or the pool is cancelled
func (p *Pool) run() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			select {
			case p.results <- job.Execute(p.ctx):
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues one job. After shutdown the job is silently dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, lets the workers finish what was submitted and
// returns every result. Order follows completion, not submission.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	return p.collected
}

// Shutdown cancels the run context, discarding queued jobs. Jobs already
// executing see the cancellation through their context.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
}

func (p *Pool) closeResults() {
	p.drained.Do(func() {
		close(p.results)
	})
}
