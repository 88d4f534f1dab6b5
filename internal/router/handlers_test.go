package router

//
// handlers_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/kabes/go-httpd/internal/assert"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/infra/memory"
	"gitlab.com/kabes/go-httpd/internal/session"
	"gitlab.com/kabes/go-httpd/internal/web"
)

func TestPing(t *testing.T) {
	resp, err := Ping(context.Background(), newRequest(t, "GET", "/ping"))
	assert.NoErr(t, err)
	assert.Equal(t, string(resp.Body()), "ok")
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "Test counter."})
	reg.MustRegister(counter)
	counter.Inc()

	conf := &config.ServerConf{}
	handler := NewMetricsHandler(conf, reg)

	tests := []struct {
		remote string
		code   int
	}{
		{"127.0.0.1:1234", 200},
		{"[::1]:1234", 200},
		{"192.168.1.10:1234", 200},
		{"8.8.8.8:1234", 403},
		{"", 403},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			ctx := common.ContextWithRemoteAddr(context.Background(), tt.remote)

			resp, err := handler(ctx, newRequest(t, "GET", "/metrics"))
			assert.NoErr(t, err)
			assert.Equal(t, resp.Code(), tt.code)

			if tt.code == 200 {
				assert.Contains(t, string(resp.Body()), "test_counter_total 1")

				ctype, ok := resp.Header("Content-Type")
				assert.True(t, ok)
				assert.Contains(t, ctype, "text/plain")
			}
		})
	}
}

func TestSessionHandlers(t *testing.T) {
	ctx := context.Background()

	mgr, err := session.NewManager(ctx, memory.New(), config.NewSessionConf())
	assert.NoErr(t, err)

	req := newRequest(t, "GET", "/session")
	assert.NoErr(t, req.BindSession(ctx, mgr))

	for i := 1; i <= 3; i++ {
		resp, err := SessionInfo(ctx, req)
		assert.NoErr(t, err)
		assert.Contains(t, string(resp.Body()), `"visits":`+string(rune('0'+i)))
		assert.Contains(t, string(resp.Body()), `"session_id":"`+req.Session().ID()+`"`)
	}

	resp, err := SessionInvalidate(ctx, req)
	assert.NoErr(t, err)
	assert.Equal(t, resp.Code(), web.StatusOK)
	assert.True(t, req.Session().IsInvalidated())

	// no session bound
	_, err = SessionInfo(ctx, newRequest(t, "GET", "/session"))
	assert.Err(t, err)
}

func TestNewDefault(t *testing.T) {
	conf := &config.ServerConf{
		Address:       ":0",
		WebRoot:       prepareWebRoot(t),
		EnableMetrics: true,
	}
	assert.NoErr(t, conf.Validate())

	rtr := NewDefault(conf)
	assert.Equal(t, rtr.Routes(), []string{
		"GET /metrics", "GET /ping", "GET /session", "POST /session/invalidate",
	})

	resp := rtr.Resolve(context.Background(), newRequest(t, "GET", "/css/style.css"))
	assert.Equal(t, resp.Code(), web.StatusOK)
}
