//go:build !trace

package common

//
// tracing_disabled.go
// Copyright (C) 2026 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
)

const TracingAvailable = false

func TraceLazyPrintf(ctx context.Context, format string, a ...any) {
}

func TraceErrorLazyPrintf(ctx context.Context, format string, a ...any) {
}

type EventLog struct{}

func NewEventLog(pkg, domain string) *EventLog {
	return &EventLog{}
}

func (e *EventLog) Printf(format string, a ...any) {
}

func (e *EventLog) Errorf(format string, a ...any) {
}

func (f *EventLog) Close() {
}

func ContextWithEventLog(ctx context.Context, eventlog *EventLog) context.Context {
	return ctx
}

func EventLogPrintf(ctx context.Context, format string, a ...any) {
}

func EventLogErrorf(ctx context.Context, format string, a ...any) {
}

func NewTask(ctx context.Context, taskType string) (context.Context, func()) {
	return ctx, func() {}
}

func NewTrace(ctx context.Context, family, title string) (context.Context, func()) {
	return ctx, func() {}
}
