package server

//
// pool_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"net"
	"testing"
	"time"

	"gitlab.com/kabes/go-httpd/internal/assert"
)

func TestWorkerPoolQueue(t *testing.T) {
	release := make(chan struct{})
	handled := make(chan net.Conn, 10)

	pool := newWorkerPool(context.Background(), 1, func(_ context.Context, conn net.Conn) {
		handled <- conn

		<-release
	})

	conns := make([]net.Conn, 0, 3)

	for range 3 {
		client, srv := net.Pipe()
		t.Cleanup(func() { _ = client.Close() })

		conns = append(conns, srv)
		assert.True(t, pool.submit(srv))
	}

	// single worker take first connection; rest wait in queue
	select {
	case conn := <-handled:
		assert.Equal(t, conn, conns[0])
	case <-time.After(time.Second):
		t.Fatal("connection not handled")
	}

	assert.Equal(t, pool.pending(), 2)

	pending := pool.close()
	assert.Equal(t, len(pending), 2)
	assert.Equal(t, pending[0], conns[1])
	assert.Equal(t, pending[1], conns[2])
	assert.Equal(t, pool.pending(), 0)

	// closed pool reject new connections
	assert.True(t, !pool.submit(conns[0]))

	// worker still busy
	assert.True(t, !pool.wait(50*time.Millisecond))

	close(release)
	assert.True(t, pool.wait(time.Second))
}
