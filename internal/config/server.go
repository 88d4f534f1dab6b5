package config

//
// server.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
)

// RouterMode select fallback used for requests not matched by any route.
type RouterMode string

const (
	RouterStatic = RouterMode("static")
	RouterAPI    = RouterMode("api")
	RouterHybrid = RouterMode("hybrid")
)

const (
	DefaultWorkers         = 10
	DefaultReadTimeout     = 10 * time.Second
	DefaultAcceptTimeout   = 3 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// ServerConf configure listener, worker pool and routing.
type ServerConf struct {
	Address string
	WebRoot string

	Workers         int
	ReadTimeout     time.Duration
	AcceptTimeout   time.Duration
	ShutdownTimeout time.Duration

	RouterMode RouterMode

	DebugFlags        DebugFlags
	EnableMetrics     bool
	MetricsAccessList string

	metricsAccessList *AccessList
}

func (c *ServerConf) Validate() error {
	if c.Address == "" {
		return aerr.ErrValidation.WithUserMsg("listen address can't be empty")
	}

	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	} else if c.Workers < 0 {
		return aerr.ErrValidation.WithUserMsg("number of workers must be positive")
	}

	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}

	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = DefaultAcceptTimeout
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	switch c.RouterMode {
	case "":
		c.RouterMode = RouterStatic
	case RouterStatic, RouterAPI, RouterHybrid:
	default:
		return aerr.ErrValidation.WithUserMsg("invalid router mode %q", c.RouterMode)
	}

	if c.RouterMode != RouterAPI && c.WebRoot == "" {
		return aerr.ErrValidation.WithUserMsg("web root can't be empty")
	}

	if c.MetricsAccessList != "" {
		al, err := NewAccessList(c.MetricsAccessList)
		if err != nil {
			return fmt.Errorf("validate metrics access list failed: %w", err)
		}

		c.metricsAccessList = al

		log.Logger.Debug().Object("metricsAccessList", al).Msg("metrics access list configured")
	}

	return nil
}

// AuthMetricsRequest check is client with remoteAddr allowed to read metrics.
// Loopback is always allowed; other addresses must be on access list or, when
// list is not configured, in private network.
func (c *ServerConf) AuthMetricsRequest(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	if host == "localhost" {
		return true
	}

	ip := net.ParseIP(host)

	switch {
	case ip == nil:
		return false
	case ip.IsLoopback():
		return true
	case c.metricsAccessList != nil:
		return c.metricsAccessList.HasAccess(ip)
	default:
		return ip.IsPrivate()
	}
}

//-------------------------------------------------------------

type AccessList struct {
	AllowedIPs  []net.IP
	AllowedNets []*net.IPNet
}

func NewAccessList(accesslist string) (*AccessList, error) {
	var (
		ips  []net.IP
		nets []*net.IPNet
	)

	for entry := range strings.SplitSeq(accesslist, ",") {
		entry = strings.TrimSpace(entry)

		if strings.Contains(entry, "/") {
			_, n, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, aerr.ErrValidation.WithUserMsg(
					"invalid entry in access list: entry=%q error=%q", entry, err)
			}

			nets = append(nets, n)
		} else {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, aerr.ErrValidation.WithUserMsg("invalid entry in access list: entry=%q", entry)
			}

			ips = append(ips, ip)
		}
	}

	return &AccessList{
		AllowedIPs:  ips,
		AllowedNets: nets,
	}, nil
}

func (a *AccessList) HasAccess(ip net.IP) bool {
	for _, i := range a.AllowedIPs {
		if i.Equal(ip) {
			return true
		}
	}

	for _, n := range a.AllowedNets {
		if n.Contains(ip) {
			return true
		}
	}

	return false
}

func (a *AccessList) MarshalZerologObject(event *zerolog.Event) {
	event.Interface("allowed_ips", a.AllowedIPs).
		Interface("allowed_nets", a.AllowedNets)
}
