package config

//
// server_test.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"testing"

	"gitlab.com/kabes/go-httpd/internal/assert"
)

func TestServerConfDefaults(t *testing.T) {
	cfg := ServerConf{Address: ":8000", WebRoot: "."}
	assert.NoErr(t, cfg.Validate())
	assert.Equal(t, cfg.Workers, DefaultWorkers)
	assert.Equal(t, cfg.ReadTimeout, DefaultReadTimeout)
	assert.Equal(t, cfg.AcceptTimeout, DefaultAcceptTimeout)
	assert.Equal(t, cfg.ShutdownTimeout, DefaultShutdownTimeout)
	assert.Equal(t, cfg.RouterMode, RouterStatic)
}

func TestServerConfInvalid(t *testing.T) {
	tests := []ServerConf{
		{Address: ""},
		{Address: ":8000", WebRoot: ".", Workers: -1},
		{Address: ":8000", WebRoot: ".", RouterMode: "xxx"},
		{Address: ":8000", WebRoot: "", RouterMode: RouterHybrid},
		{Address: ":8000", WebRoot: ".", MetricsAccessList: "10.0.0.0/33"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt), func(t *testing.T) {
			assert.Err(t, tt.Validate())
		})
	}
}

func TestAuthMetricsRequest(t *testing.T) {
	cfg := ServerConf{Address: ":8000", RouterMode: RouterAPI, MetricsAccessList: "192.168.1.0/24,10.1.1.1"}
	assert.NoErr(t, cfg.Validate())

	tests := []struct {
		addr    string
		allowed bool
	}{
		{"127.0.0.1:1234", true},
		{"[::1]:1234", true},
		{"localhost:80", true},
		{"192.168.1.22:4433", true},
		{"10.1.1.1:4433", true},
		{"10.1.1.2:4433", false},
		{"8.8.8.8:53", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, cfg.AuthMetricsRequest(tt.addr), tt.allowed)
		})
	}

	// without access list private networks are allowed
	cfg2 := ServerConf{Address: ":8000", RouterMode: RouterAPI}
	assert.NoErr(t, cfg2.Validate())
	assert.True(t, cfg2.AuthMetricsRequest("10.1.1.2:4433"))
	assert.True(t, !cfg2.AuthMetricsRequest("8.8.8.8:53"))
}
