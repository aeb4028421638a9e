// Package workerpool runs a fixed-size pool of goroutines under a shared
// tomb.Tomb, each pulling tasks off a shared channel until the tomb dies.
// Generalized from the teacher's internal/worker.go, which only ever fed it
// net.Conn tasks; here the task payload is any, so internal/netserver can
// feed it raw connections.
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction processes one task. An error return kills the shared tomb,
// per tomb.v2 semantics, which stops the whole pool.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// Pool is a bounded set of workers draining a shared task channel.
type Pool struct {
	n     int
	tasks chan any
}

// New constructs a pool sized for `size` concurrent workers.
func New(size int) Pool {
	return Pool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues a task for the next free worker.
func (p *Pool) AddTask(task any) {
	p.tasks <- task
}

// Setup keeps the pool topped up to its configured size until t dies,
// spawning a replacement worker whenever one exits.
func (p *Pool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", p.n).Msg("starting worker pool")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < p.n {
				t.Go(func() error {
					err := p.worker(t, work)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (p *Pool) worker(t *tomb.Tomb, work WorkerFunction) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-p.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting")
			return err
		}
	}
	return nil
}
