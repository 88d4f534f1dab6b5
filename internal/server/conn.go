package server

//
// conn.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/common"
	"gitlab.com/kabes/go-httpd/internal/web"
)

// Router resolve request into response.
type Router interface {
	Resolve(ctx context.Context, req *web.Request) *web.Response
}

// connHandler serve requests from one connection until client close it,
// request ask for close or error occurred.
type connHandler struct {
	conn        net.Conn
	router      Router
	sessions    web.SessionProvider
	readTimeout time.Duration
	logBody     bool
	trace       bool
}

func (h *connHandler) serve(ctx context.Context) {
	connID := xid.New()
	remote := h.conn.RemoteAddr().String()

	llog := log.Ctx(ctx).With().
		Str(common.LogKeyConnID, connID.String()).
		Str(common.LogKeyRemoteAddr, remote).
		Logger()
	ctx = llog.WithContext(ctx)
	ctx = common.ContextWithRemoteAddr(ctx, remote)

	defer h.close(ctx)

	llog.Debug().Msgf("Conn: connection opened remote=%s", remote)

	reader := bufio.NewReader(h.conn)

	for {
		if !h.serveRequest(ctx, reader) {
			return
		}
	}
}

// serveRequest read, resolve and write single request. Return true when
// connection should be kept open.
func (h *connHandler) serveRequest(ctx context.Context, reader *bufio.Reader) bool {
	logger := log.Ctx(ctx)

	if err := h.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		logger.Debug().Err(err).Msgf("Conn: set read deadline error=%q", err)

		return false
	}

	req, err := web.ReadRequest(reader)
	if err != nil {
		return h.handleReadError(ctx, err)
	}

	start := time.Now()
	reqID := xid.New()
	llog := logger.With().Str(common.LogKeyReqID, reqID.String()).Logger()
	ctx = hlog.CtxWithID(llog.WithContext(ctx), reqID)

	if h.trace {
		var finish func()

		ctx, finish = common.NewTrace(ctx, "server", req.Path+" req_id="+reqID.String())
		defer finish()
	}

	llog.Info().Object("request", req).Msgf("Conn: request start method=%s path=%q", req.Method, req.Path)

	if h.logBody {
		llog.Debug().
			Interface(common.LogKeyRequestHeaders, req.Headers).
			Str(common.LogKeyRequestBody, string(req.RawBody)).
			Msg("Conn: request data")
	}

	resp, keepAlive := h.process(ctx, req)
	if !keepAlive {
		resp = resp.WithHeader("Connection", "close")
	}

	if err := h.write(ctx, resp, req.IsHead()); err != nil {
		return false
	}

	h.logFinished(ctx, req, resp, start)
	observeRequest(metricMethod(req.Method), resp.Code(), len(req.RawBody), len(resp.Body()), start)

	return keepAlive
}

// process resolve request and handle session. Return response and keep-alive flag.
func (h *connHandler) process(ctx context.Context, req *web.Request) (*web.Response, bool) {
	logger := log.Ctx(ctx)
	keepAlive := req.KeepAlive()

	if h.sessions != nil {
		if err := req.BindSession(ctx, h.sessions); err != nil {
			logger.Error().Err(err).Msgf("Conn: bind session error=%q", err)
			common.TraceErrorLazyPrintf(ctx, "Conn: bind session error=%q", err)

			return web.MustError(web.StatusInternalServerError), keepAlive
		}
	}

	resp, err := h.resolve(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msgf("Conn: resolve request error=%q", err)
		common.TraceErrorLazyPrintf(ctx, "Conn: resolve request error=%q", err)

		// after panic connection state is unknown
		return web.MustError(web.StatusInternalServerError), false
	}

	if err := req.SaveSession(ctx); err != nil {
		logger.Error().Err(err).Msgf("Conn: save session error=%q", err)
		common.TraceErrorLazyPrintf(ctx, "Conn: save session error=%q", err)

		return web.MustError(web.StatusInternalServerError), keepAlive
	}

	if c := req.SessionCookie(); c != nil {
		resp = resp.WithCookie(c)
	}

	return resp, keepAlive
}

func (h *connHandler) resolve(ctx context.Context, req *web.Request) (resp *web.Response, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		log.Ctx(ctx).Error().Str("stack", string(debug.Stack())).Msgf("Conn: panic when handling request: %v", rec)

		if e, ok := rec.(error); ok {
			err = aerr.Wrapf(e, "panic when handling request").WithTag(aerr.InternalError)
		} else {
			err = aerr.New("panic when handling request").WithMeta("panic", fmt.Sprintf("%v", rec)).
				WithTag(aerr.InternalError)
		}
	}()

	resp = h.router.Resolve(ctx, req)
	if resp == nil {
		return nil, aerr.New("router returned empty response").WithTag(aerr.InternalError)
	}

	return resp, nil
}

func (h *connHandler) handleReadError(ctx context.Context, err error) bool {
	logger := log.Ctx(ctx)

	var nerr net.Error

	switch {
	case errors.Is(err, io.EOF):
		logger.Debug().Msg("Conn: connection closed by client")
	case errors.As(err, &nerr) && nerr.Timeout():
		logger.Debug().Msg("Conn: read timeout")
	case aerr.HasTag(err, aerr.ProtocolError):
		logger.Warn().Err(err).Msgf("Conn: bad request error=%q", err)
		badRequestsTotal.Inc()

		resp := web.MustError(web.StatusBadRequest).WithHeader("Connection", "close")
		_ = h.write(ctx, resp, false)
	default:
		logger.Debug().Err(err).Msgf("Conn: read request error=%q", err)
	}

	return false
}

func (h *connHandler) write(ctx context.Context, resp *web.Response, headOnly bool) error {
	logger := log.Ctx(ctx)

	if err := h.conn.SetWriteDeadline(time.Now().Add(h.readTimeout)); err != nil {
		logger.Debug().Err(err).Msgf("Conn: set write deadline error=%q", err)
	}

	if err := web.WriteResponse(h.conn, resp, headOnly); err != nil {
		logger.Debug().Err(err).Msgf("Conn: write response error=%q", err)

		return err
	}

	return nil
}

func (h *connHandler) logFinished(ctx context.Context, req *web.Request, resp *web.Response, start time.Time) {
	logger := log.Ctx(ctx)

	if h.logBody {
		logger.Debug().
			Str(common.LogKeyResponseHeaders, string(resp.Serialize(true))).
			Str(common.LogKeyResponseBody, string(resp.Body())).
			Msg("Conn: response data")
	}

	loglevel := zerolog.InfoLevel
	if code := resp.Code(); code >= web.StatusBadRequest && code != web.StatusNotFound {
		loglevel = zerolog.WarnLevel
	}

	logger.WithLevel(loglevel).
		Object("response", resp).
		Dur("duration", time.Since(start)).
		Msgf("Conn: request finished method=%s path=%q status=%d", req.Method, req.Path, resp.Code())
}

func (h *connHandler) close(ctx context.Context) {
	if err := h.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Ctx(ctx).Debug().Err(err).Msgf("Conn: close connection error=%q", err)
	}

	log.Ctx(ctx).Debug().Msg("Conn: connection closed")
}

func metricMethod(method string) string {
	switch method {
	case "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS":
		return method
	}

	return "OTHER"
}
