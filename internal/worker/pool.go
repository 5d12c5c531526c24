package worker

import (
	"sync"

	"github.com/baharkarakas/hodl-ledger/internal/metrics"
)

type task func()

// Pool runs submitted tasks on n goroutines. With n == 1 tasks run one at a
// time in submission order, which is how the ledger's single writer is fed.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
	mu   sync.RWMutex
	done bool
}

func NewPool(n, queue int) *Pool {
	if n < 1 {
		n = 1
	}
	if queue < 1 {
		queue = 1024
	}
	p := &Pool{jobs: make(chan task, queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
				job()
			}
		}()
	}
	return p
}

// Submit enqueues f, blocking while the queue is full. It reports false
// once the pool is stopped.
func (p *Pool) Submit(f task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.done {
		return false
	}
	p.jobs <- f
	metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
	return true
}

// Stop drains queued tasks and waits for them to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
