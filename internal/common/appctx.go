package common

//
// appctx.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
)

//nolint:gochecknoglobals
var ctxRemoteAddrKey = any("ctxRemoteAddrKey")

// ContextRemoteAddr return address of connected client from context.
func ContextRemoteAddr(ctx context.Context) string {
	value, ok := ctx.Value(ctxRemoteAddrKey).(string)
	if ok {
		return value
	}

	return ""
}

// ContextWithRemoteAddr create new context with client address.
func ContextWithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ctxRemoteAddrKey, addr)
}
