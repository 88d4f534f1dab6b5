package server

//
// server_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bufio"
	"context"
	"io"
	stdlog "log"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/infra/memory"
	"gitlab.com/kabes/go-httpd/internal/router"
	"gitlab.com/kabes/go-httpd/internal/session"
)

func prepareServer(t *testing.T, sessions bool) (context.Context, *Server) {
	t.Helper()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).With().Caller().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	ctx := log.Logger.WithContext(context.Background())

	cfg := &config.ServerConf{
		Address:         "127.0.0.1:0",
		WebRoot:         t.TempDir(),
		Workers:         2,
		ReadTimeout:     5 * time.Second,
		ShutdownTimeout: 200 * time.Millisecond,
	}

	rtr := testRouter()
	rtr.Get("/session", router.SessionInfo)

	var (
		srv *Server
		err error
	)

	if sessions {
		mgr, merr := session.NewManager(ctx, memory.New(), config.NewSessionConf())
		assert.NoErr(t, merr)

		srv, err = NewServer(cfg, rtr, mgr)
	} else {
		srv, err = NewServer(cfg, rtr, nil)
	}

	assert.NoErr(t, err)
	assert.NoErr(t, srv.Start(ctx))

	t.Cleanup(func() { _ = srv.Shutdown(ctx) })

	return ctx, srv
}

func dial(t *testing.T, srv *Server) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}

	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestServerInvalidConf(t *testing.T) {
	_, err := NewServer(&config.ServerConf{}, testRouter(), nil)
	assert.ErrSpec(t, err, "invalid server configuration")
}

func TestServerSessionRoundTrip(t *testing.T) {
	_, srv := prepareServer(t, true)

	conn := dial(t, srv)
	reader := bufio.NewReader(conn)

	// no cookie - new session
	_, err := conn.Write([]byte("GET /session HTTP/1.1\r\n\r\n"))
	assert.NoErr(t, err)

	resp := readResponse(t, reader)
	assert.Equal(t, resp.status, "HTTP/1.1 200 OK")
	assert.Contains(t, resp.body, `"visits":1`)

	setCookie := resp.header("set-cookie")
	assert.True(t, strings.HasPrefix(setCookie, "JSESSIONID="))
	assert.Contains(t, setCookie, "; Path=/; HttpOnly; SameSite=Lax")

	sid, _, _ := strings.Cut(strings.TrimPrefix(setCookie, "JSESSIONID="), ";")
	assert.Equal(t, len(sid), 20)

	// new connection with cookie - the same session with stored attributes
	conn2 := dial(t, srv)
	_, err = conn2.Write([]byte("GET /session HTTP/1.1\r\nCookie: other=1; JSESSIONID=" + sid +
		"\r\nConnection: close\r\n\r\n"))
	assert.NoErr(t, err)

	resp = readResponse(t, bufio.NewReader(conn2))
	assert.Contains(t, resp.body, `"visits":2`)
	assert.Contains(t, resp.body, `"session_id":"`+sid+`"`)
	assert.Equal(t, resp.header("set-cookie"), "JSESSIONID="+sid+"; Path=/; HttpOnly; SameSite=Lax")
}

func TestServerConcurrentClients(t *testing.T) {
	_, srv := prepareServer(t, false)

	var wg sync.WaitGroup

	// more clients than workers; connections are queued
	errs := make(chan string, 10)

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
			if err != nil {
				errs <- err.Error()

				return
			}
			defer conn.Close()

			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

			if _, err := conn.Write([]byte("GET /ping HTTP/1.1\r\nConnection: close\r\n\r\n")); err != nil {
				errs <- err.Error()

				return
			}

			data, err := io.ReadAll(conn)
			if err != nil {
				errs <- err.Error()

				return
			}

			if !strings.HasSuffix(string(data), "\r\n\r\nok") {
				errs <- "invalid response: " + string(data)
			}
		}()
	}

	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

func TestServerShutdownForceClose(t *testing.T) {
	ctx, srv := prepareServer(t, false)

	// idle keep-alive connection hold worker
	conn := dial(t, srv)
	_, err := conn.Write([]byte("GET /ping HTTP/1.1\r\n\r\n"))
	assert.NoErr(t, err)

	resp := readResponse(t, bufio.NewReader(conn))
	assert.Equal(t, resp.body, "ok")

	start := time.Now()
	assert.NoErr(t, srv.Shutdown(ctx))
	assert.True(t, time.Since(start) < 2*time.Second)

	// connection closed by server
	_, err = conn.Read(make([]byte, 1))
	assert.Err(t, err)

	// new connections are refused
	_, err = net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond)
	assert.Err(t, err)

	// second shutdown is no-op
	assert.NoErr(t, srv.Shutdown(ctx))
}
