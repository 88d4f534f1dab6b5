package cli

//
// logging.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"io"
	stdlog "log"
	"log/syslog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/journald"
	"github.com/rs/zerolog/log"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"golang.org/x/term"
)

type logFormat string

const (
	logFormatConsole  = logFormat("console")
	logFormatLogfmt   = logFormat("logfmt")
	logFormatJSON     = logFormat("json")
	logFormatJournald = logFormat("journald")
	logFormatSyslog   = logFormat("syslog")

	syslogTag = "gohttpd"
)

// initializeLogger configure global logger: level and output format.
func initializeLogger(level, format string) error {
	zerolog.ErrorMarshalFunc = aerr.ErrorMarshalFunc //nolint:reassign

	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	writer, err := newLogWriter(resolveFormat(format, outputIsConsole()))
	if err != nil {
		return err
	}

	log.Logger = log.Output(writer).With().Timestamp().Caller().Logger()
	zerolog.SetGlobalLevel(lvl)

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, aerr.ErrInvalidConf.WithUserMsg("unknown log level %q", level)
	}

	return lvl, nil
}

// resolveFormat check log format name; empty or unknown format is replaced by
// console when output is terminal and logfmt otherwise.
func resolveFormat(format string, console bool) logFormat {
	switch lf := logFormat(strings.ToLower(format)); lf {
	case logFormatConsole, logFormatLogfmt, logFormatJSON, logFormatJournald, logFormatSyslog:
		return lf
	}

	if console {
		return logFormatConsole
	}

	return logFormatLogfmt
}

func newLogWriter(format logFormat) (io.Writer, error) {
	switch format {
	case logFormatJSON:
		return os.Stderr, nil
	case logFormatSyslog:
		syslogwriter, err := syslog.New(syslog.LOG_DAEMON, syslogTag)
		if err != nil {
			return nil, aerr.Wrapf(err, "init syslog failed").WithUserMsg("can't connect to syslog")
		}

		return zerolog.SyslogLevelWriter(syslogwriter), nil
	case logFormatJournald:
		return journald.NewJournalDWriter(), nil
	case logFormatLogfmt:
		return newLogfmtWriter(os.Stderr), nil
	case logFormatConsole:
	}

	return newConsoleWriter(os.Stderr, outputIsConsole()), nil
}

func outputIsConsole() bool {
	return term.IsTerminal(int(os.Stderr.Fd())) //nolint:gosec
}

// newConsoleWriter log only time on terminal and full date otherwise.
func newConsoleWriter(out io.Writer, console bool) zerolog.ConsoleWriter {
	tformat := time.RFC3339
	if console {
		tformat = time.TimeOnly
	}

	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:        out,
		NoColor:    !console,
		TimeFormat: tformat,
	}
}

// newLogfmtWriter write every field, message included, as key=value.
func newLogfmtWriter(out io.Writer) zerolog.ConsoleWriter {
	quoted := func(i any) string {
		s := fmt.Sprintf("%s", i)
		if strings.ContainsAny(s, " \"=") {
			return strconv.Quote(s)
		}

		return s
	}

	return zerolog.ConsoleWriter{ //nolint:exhaustruct
		Out:        out,
		NoColor:    true,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i any) string {
			if i == nil {
				return ""
			}

			return fmt.Sprintf("level=%s", i)
		},
		FormatTimestamp: func(i any) string { return fmt.Sprintf("ts=%s", i) },
		FormatMessage: func(i any) string {
			if i == nil {
				return "msg=<nil>"
			}

			return "msg=" + strconv.Quote(fmt.Sprintf("%s", i))
		},
		FormatCaller: func(i any) string {
			if i == nil {
				return "caller=UNKNOWN"
			}

			return "caller=" + quoted(i)
		},
		FormatErrFieldValue: func(i any) string {
			if i == nil {
				return "<nil>"
			}

			return strconv.Quote(fmt.Sprintf("%s", i))
		},
	}
}
