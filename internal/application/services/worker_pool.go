package services

import (
	"errors"
	"sync"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/task"
)

var errPoolClosed = errors.New("worker pool closed")

type poolJob struct {
	handle *task.Handle
	run    func()
}

// workerPool runs queued jobs on a fixed set of goroutines.
// A limit of zero means the queue is unbounded.
type workerPool struct {
	name   string
	limit  int
	policy task.AdmissionPolicy

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	queue    []poolJob
	closed   bool

	wg   sync.WaitGroup
	done chan struct{}
}

func newWorkerPool(name string, size, limit int, policy task.AdmissionPolicy) *workerPool {
	if size < 1 {
		size = 1
	}
	if !policy.IsValid() {
		policy = task.AdmissionBlock
	}

	p := &workerPool{
		name:   name,
		limit:  limit,
		policy: policy,
		done:   make(chan struct{}),
	}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()

	return p
}

// enqueue admits job according to the pool's limit and policy.
func (p *workerPool) enqueue(job poolJob) error {
	return p.admit(job, p.policy == task.AdmissionBlock)
}

// tryEnqueue admits job only if there is room right now, whatever the policy.
func (p *workerPool) tryEnqueue(job poolJob) error {
	return p.admit(job, false)
}

func (p *workerPool) admit(job poolJob, wait bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.closed {
			return errPoolClosed
		}
		if p.limit <= 0 || len(p.queue) < p.limit {
			break
		}
		if !wait {
			return domain.ErrTaskRejected
		}
		p.notFull.Wait()
	}

	p.queue = append(p.queue, job)
	p.notEmpty.Signal()
	return nil
}

func (p *workerPool) work() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.notEmpty.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = poolJob{}
		p.queue = p.queue[1:]
		p.notFull.Signal()
		p.mu.Unlock()

		job.run()
	}
}

// pending returns the number of queued jobs not yet picked up by a worker.
func (p *workerPool) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// close stops admission; queued jobs are still drained.
func (p *workerPool) close() {
	p.mu.Lock()
	p.closed = true
	p.notEmpty.Broadcast()
	p.notFull.Broadcast()
	p.mu.Unlock()
}

// awaitTermination waits until every worker has exited or the deadline passes.
func (p *workerPool) awaitTermination(deadline time.Time) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

// terminate closes the pool and returns the jobs that never started.
func (p *workerPool) terminate() []poolJob {
	p.mu.Lock()
	p.closed = true
	dropped := p.queue
	p.queue = nil
	p.notEmpty.Broadcast()
	p.notFull.Broadcast()
	p.mu.Unlock()

	return dropped
}
