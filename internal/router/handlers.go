package router

//
// handlers.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/web"
)

const visitsKey = "visits"

// Ping respond "ok"; used for health checks.
func Ping(_ context.Context, _ *web.Request) (*web.Response, error) {
	return web.Text("ok"), nil
}

// NewMetricsHandler create handler that expose prometheus metrics in text
// format. Access is limited by conf.AuthMetricsRequest.
func NewMetricsHandler(conf *config.ServerConf, gatherer prometheus.Gatherer) HandlerFunc {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return func(ctx context.Context, _ *web.Request) (*web.Response, error) {
		remote := common.ContextRemoteAddr(ctx)
		if !conf.AuthMetricsRequest(remote) {
			log.Ctx(ctx).Warn().Msgf("Metrics: access denied remote=%s", remote)

			return web.MustError(web.StatusForbidden), nil
		}

		var families []*dto.MetricFamily

		families, err := gatherer.Gather()
		if err != nil {
			return nil, aerr.Wrapf(err, "gather metrics failed")
		}

		var buf bytes.Buffer

		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return nil, aerr.Wrapf(err, "encode metrics failed").WithMeta("family", mf.GetName())
			}
		}

		return web.New(web.StatusOK, web.MimeText, buf.Bytes(), map[string]string{"Content-Type": string(format)})
	}
}

type sessionInfo struct {
	ID         string `json:"session_id"`
	Visits     int    `json:"visits"`
	CreatedAt  int64  `json:"created_at"`
	MaxIdleSec int    `json:"max_inactive_interval"`
}

// SessionInfo count visits in current session and return session details as json.
func SessionInfo(_ context.Context, req *web.Request) (*web.Response, error) {
	sess := req.Session()
	if sess == nil {
		return nil, aerr.New("no session bound to request")
	}

	visits, _ := sess.GetOr(visitsKey, 0).(int)
	visits++
	sess.Set(visitsKey, visits)

	info := sessionInfo{
		ID:         sess.ID(),
		Visits:     visits,
		CreatedAt:  sess.CreationTime().Unix(),
		MaxIdleSec: sess.MaxInactiveInterval(),
	}

	data, err := json.Marshal(info)
	if err != nil {
		return nil, aerr.Wrapf(err, "encode session info failed")
	}

	return web.JSON(string(data)), nil
}

// SessionInvalidate invalidate current session; client receive expired cookie.
func SessionInvalidate(ctx context.Context, req *web.Request) (*web.Response, error) {
	sess := req.Session()
	if sess == nil {
		return nil, aerr.New("no session bound to request")
	}

	sess.Invalidate(ctx)

	return web.JSON(`{"invalidated": true}`), nil
}
