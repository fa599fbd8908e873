package workers

import (
	"context"
	"errors"
	log "github.com/sirupsen/logrus"
	"runtime/debug"
	"sync"
)

var (
	ErrPoolFull    = errors.New("worker pool queue is full")
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task runs on a pool worker. The context is cancelled when the pool stops.
type Task func(ctx context.Context)

type job struct {
	name string
	task Task
}

// Pool runs submitted tasks on a fixed number of workers. Submit never blocks:
// when the queue is full the task is rejected.
type Pool struct {
	queue      chan job
	numWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	stopped    bool
	startOnce  sync.Once
}

func NewPool(numWorkers, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:      make(chan job, queueSize),
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *Pool) Start() {
	p.startOnce.Do(func() {
		log.Infof("starting worker pool with %d workers", p.numWorkers)
		for i := 0; i < p.numWorkers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

func (p *Pool) Submit(name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- job{name: name, task: task}:
		return nil
	default:
		return ErrPoolFull
	}
}

// Stop rejects new tasks, cancels running ones and waits for the workers to exit.
// Queued tasks still run with a cancelled context so they can record their outcome.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	log.Info("worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.queue {
		p.run(id, j)
	}
}

func (p *Pool) run(workerID int, j job) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("worker_id", workerID).
				Errorf("task %s panicked: %v\n%s", j.name, r, debug.Stack())
		}
	}()
	log.WithField("worker_id", workerID).Debugf("running task %s", j.name)
	j.task(p.ctx)
}
