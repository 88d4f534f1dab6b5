package cli

//
// session.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/session"
)

func newSessionCleanupCmd() *cli.Command {
	return &cli.Command{
		Name:   "cleanup",
		Usage:  "remove expired sessions",
		Action: wrap(sessionCleanupCmd),
	}
}

func sessionCleanupCmd(ctx context.Context, _ *cli.Command, injector do.Injector) error {
	manager := do.MustInvoke[*session.Manager](injector)

	removed, err := manager.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup error: %w", err)
	}

	//nolint:forbidigo
	fmt.Printf("Removed sessions: %d\n", removed)

	return nil
}

// sessionCounter is implemented by storages that can count stored sessions.
type sessionCounter interface {
	Count(ctx context.Context) (int, error)
}

func newSessionCountCmd() *cli.Command {
	return &cli.Command{
		Name:   "count",
		Usage:  "show number of stored sessions (sql storages only)",
		Action: wrap(sessionCountCmd),
	}
}

func sessionCountCmd(ctx context.Context, _ *cli.Command, injector do.Injector) error {
	// manager initialize storage
	_ = do.MustInvoke[*session.Manager](injector)
	storage := do.MustInvoke[session.Storage](injector)

	counter, ok := storage.(sessionCounter)
	if !ok {
		return aerr.ErrInvalidConf.WithUserMsg("session storage not support counting sessions")
	}

	count, err := counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("count sessions error: %w", err)
	}

	//nolint:forbidigo
	fmt.Printf("Stored sessions: %d\n", count)

	return nil
}
