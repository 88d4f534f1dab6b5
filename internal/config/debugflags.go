package config

//
// debugflags.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/common"
)

//-------------------------------------------------------------

type DebugFlag string

const (
	// DebugMsgBody enable logging request and response headers and body.
	DebugMsgBody = DebugFlag("logbody")
	// DebugDo enable logging samber/do services.
	DebugDo = DebugFlag("do")
	// DebugRouter show defined routes.
	DebugRouter = DebugFlag("router")
	// DebugDBQueryMetrics enable metrics for query metrics.
	DebugDBQueryMetrics = DebugFlag("querymetrics")
	// DebugTrace enable event log with net/trace.
	DebugTrace = DebugFlag("trace")

	// DebugAll enable all debug flags.
	DebugAll = DebugFlag("all")
	// DebugNone disable all debug flags.
	DebugNone = DebugFlag("")
)

type DebugFlags []string

func NewDebugFLags(flags string) DebugFlags {
	df := DebugFlags(strings.Split(flags, ","))

	if !common.TracingAvailable && df.HasFlag(DebugTrace) {
		log.Logger.Warn().Msg("Tracing disabled due to compilation tag")
	}

	return df
}

func (d DebugFlags) String() string {
	return strings.Join(d, ",")
}

func (d DebugFlags) HasFlag(flag DebugFlag) bool {
	return slices.Contains(d, "all") || slices.Contains(d, string(flag))
}
