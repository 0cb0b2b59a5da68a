package gotlist

import (
	"errors"
	"log"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("gotlist: pool is closed")

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	mu sync.Mutex

	cond *sync.Cond

	// FIFO of tasks waiting for a worker.
	queue []func()

	closed bool

	workers int

	// Submitted tasks that did not return yet.
	pending sync.WaitGroup

	exited sync.WaitGroup

	// Logger for recovered panics, log.Default() if nil.
	Logger *log.Logger
}

// DefaultWorkers returns the number of physical cores, at least 1.
func DefaultWorkers() int {

	n := cpuid.CPU.PhysicalCores

	if n <= 0 {
		n = runtime.NumCPU()
	}

	if n < 1 {
		n = 1
	}

	return n
}

// NewPool starts a pool of workers goroutines, DefaultWorkers() if workers <= 0.
func NewPool(workers int) *Pool {

	if workers <= 0 {
		workers = DefaultWorkers()
	}

	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)

	p.exited.Add(workers)

	for i := 0; i < workers; i++ {
		go p.work()
	}

	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit queues task for execution, it never waits for a free worker.
func (p *Pool) Submit(task func()) error {

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.pending.Add(1)
	p.queue = append(p.queue, task)
	p.cond.Signal()

	return nil
}

// Wait blocks until all submitted tasks returned.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close stops the workers once the queue is drained.
func (p *Pool) Close() {

	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.exited.Wait()
}

func (p *Pool) work() {

	defer p.exited.Done()

	for {

		p.mu.Lock()

		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}

		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}

		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]

		p.mu.Unlock()

		p.run(task)
	}
}

// run executes one task, a panic never kills the worker.
func (p *Pool) run(task func()) {

	defer p.pending.Done()

	defer func() {
		if v := recover(); v != nil {
			p.logger().Printf("recovered task panic: %v", v)
		}
	}()

	task()
}

func (p *Pool) logger() *log.Logger {

	if p.Logger != nil {
		return p.Logger
	}

	return log.Default()
}
