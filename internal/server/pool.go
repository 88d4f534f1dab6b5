package server

//
// pool.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

type connHandlerFunc func(ctx context.Context, conn net.Conn)

// workerPool run fixed number of workers that take connections from unbounded
// fifo queue. Each worker handle one connection until it is closed.
type workerPool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  *queue.Queue
	closed bool

	wg     sync.WaitGroup
	handle connHandlerFunc
}

func newWorkerPool(ctx context.Context, size int, handle connHandlerFunc) *workerPool {
	pool := &workerPool{
		queue:  queue.New(),
		handle: handle,
	}
	pool.cond = sync.NewCond(&pool.mu)

	pool.wg.Add(size)

	for idx := range size {
		go pool.worker(ctx, idx)
	}

	return pool
}

// submit enqueue connection; return false when pool is closed.
func (p *workerPool) submit(conn net.Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	p.queue.Add(conn)
	connectionsQueued.Inc()
	p.cond.Signal()

	return true
}

// close stop accepting new connections and return connections that wait in
// queue. Workers finish connections already taken.
func (p *workerPool) close() []net.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	pending := make([]net.Conn, 0, p.queue.Length())
	for p.queue.Length() > 0 {
		conn, _ := p.queue.Remove().(net.Conn)
		pending = append(pending, conn)

		connectionsQueued.Dec()
	}

	p.cond.Broadcast()

	return pending
}

// wait for all workers; return false on timeout.
func (p *workerPool) wait(timeout time.Duration) bool {
	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *workerPool) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.queue.Length()
}

func (p *workerPool) next() (net.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.Length() == 0 && !p.closed {
		p.cond.Wait()
	}

	if p.queue.Length() == 0 {
		return nil, false
	}

	conn, _ := p.queue.Remove().(net.Conn)
	connectionsQueued.Dec()

	return conn, true
}

func (p *workerPool) worker(ctx context.Context, idx int) {
	defer p.wg.Done()

	logger := log.Ctx(ctx)
	logger.Debug().Msgf("Worker: started worker=%d", idx)

	for {
		conn, ok := p.next()
		if !ok {
			logger.Debug().Msgf("Worker: stopped worker=%d", idx)

			return
		}

		connectionsActive.Inc()
		p.handle(ctx, conn)
		connectionsActive.Dec()
	}
}
