package pool

import "sync"

// Pool runs jobs on a fixed number of goroutines. Jobs are
// queued in a buffered channel; Add blocks when the queue is
// full.
type Pool struct {
	workers int
	jobCh   chan func()

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func New(workerCount int, jobChanSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	return &Pool{
		workers: workerCount,
		jobCh:   make(chan func(), jobChanSize),
	}
}

// Start launches the workers. Calling Start more than once
// has no effect.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobCh {
				job()
			}
		}()
	}
}

// Add queues f. It reports false, without running f, once the
// pool is stopped.
func (p *Pool) Add(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return false
	}

	p.jobCh <- f
	return true
}

// Stop refuses new jobs, lets the queued ones finish and waits
// for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobCh)
	p.mu.Unlock()

	p.wg.Wait()
}
