package cli

//
// main.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//
import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"gitlab.com/kabes/go-httpd/internal/aerr"
	"gitlab.com/kabes/go-httpd/internal/config"
	"gitlab.com/kabes/go-httpd/internal/cookie"
)

const envFileEnv = "GOHTTPD_ENV_FILE"

//nolint:forbidigo
func Main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "print-version",
		Aliases: []string{"V"},
		Usage:   "Print version.",
	}

	if err := loadEnvFile(os.Args); err != nil {
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}

	cli := &cli.Command{
		Name:    "go-httpd",
		Usage:   "simple http server with sessions",
		Version: config.VersionString,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:      "env-file",
				Usage:     "Load environment variables from file",
				Sources:   cli.EnvVars(envFileEnv),
				Config:    cli.StringConfig{TrimSpace: true},
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:    "log.level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("GOHTTPD_LOGLEVEL"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "log.format",
				Value:   "console",
				Usage:   "Log format (console, logfmt, json, journald, syslog)",
				Sources: cli.EnvVars("GOHTTPD_LOGFORMAT"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{Name: "debug", Usage: "Debug flags", Sources: cli.EnvVars("GOHTTPD_DEBUG")},
		}, sessionFlags()...),
		Commands: []*cli.Command{
			newStartServerCmd(),
			sessionSubCmd(),
			databaseSubCmd(),
		},
	}

	if err := cli.Run(context.Background(), os.Args); err != nil {
		if h := aerr.GetUserMessage(err); h != "" {
			fmt.Printf("Error: %s\n", h)
		} else {
			fmt.Printf("Error: %s\n", err.Error())
		}

		if cli.String("log.level") == "debug" {
			fmt.Printf("Error: %#+v\n", err)
		}

		os.Exit(1)
	}
}

func sessionSubCmd() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "manage stored sessions",
		Commands: []*cli.Command{
			newSessionCleanupCmd(),
			newSessionCountCmd(),
		},
	}
}

func databaseSubCmd() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "manage session database",
		Commands: []*cli.Command{
			newMigrateCmd(),
			newMaintenanceCmd(),
		},
	}
}

//---------------------------------------------------------------------

func sessionFlags() []cli.Flag {
	defaults := config.NewSessionConf()

	return []cli.Flag{
		&cli.StringFlag{
			Name:    "session-store",
			Value:   string(defaults.Storage),
			Usage:   "where store session data (memory, file, sqlite, postgres)",
			Sources: cli.EnvVars("GOHTTPD_SESSION_STORE"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:      "session-path",
			Value:     defaults.StoragePath,
			Usage:     "directory for file and sqlite session storage",
			Sources:   cli.EnvVars("GOHTTPD_SESSION_PATH"),
			Config:    cli.StringConfig{TrimSpace: true},
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    "session-db",
			Usage:   "postgres connection string for postgres session storage",
			Sources: cli.EnvVars("GOHTTPD_SESSION_DB"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.IntFlag{
			Name:    "session-ttl",
			Value:   defaults.DefaultTTL,
			Usage:   "max inactive interval of new sessions in seconds; negative - never expire",
			Sources: cli.EnvVars("GOHTTPD_SESSION_TTL"),
		},
		&cli.DurationFlag{
			Name:    "session-cleanup",
			Value:   defaults.CleanupInterval,
			Usage:   "interval of removing expired sessions",
			Sources: cli.EnvVars("GOHTTPD_SESSION_CLEANUP"),
		},
		&cli.StringFlag{
			Name:    "session-cookie",
			Value:   defaults.CookieName,
			Usage:   "name of session cookie",
			Sources: cli.EnvVars("GOHTTPD_SESSION_COOKIE"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.BoolFlag{
			Name:    "session-cookie-secure",
			Usage:   "use secure (https only) session cookie",
			Sources: cli.EnvVars("GOHTTPD_SESSION_COOKIE_SECURE"),
		},
		&cli.StringFlag{
			Name:    "session-cookie-samesite",
			Value:   defaults.CookieSameSite.String(),
			Usage:   "SameSite attribute of session cookie (lax, strict, none)",
			Sources: cli.EnvVars("GOHTTPD_SESSION_COOKIE_SAMESITE"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:    "session-cookie-domain",
			Usage:   "domain of session cookie",
			Sources: cli.EnvVars("GOHTTPD_SESSION_COOKIE_DOMAIN"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:    "session-cookie-path",
			Value:   defaults.CookiePath,
			Usage:   "path of session cookie",
			Sources: cli.EnvVars("GOHTTPD_SESSION_COOKIE_PATH"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
	}
}

func sessionConfFromCmd(clicmd *cli.Command) (*config.SessionConf, error) {
	conf := config.NewSessionConf()
	conf.Storage = config.StorageKind(strings.ToLower(clicmd.String("session-store")))
	conf.StoragePath = clicmd.String("session-path")
	conf.DBConnstr = clicmd.String("session-db")
	conf.DefaultTTL = int(clicmd.Int("session-ttl"))
	conf.CleanupInterval = clicmd.Duration("session-cleanup")
	conf.CookieName = clicmd.String("session-cookie")
	conf.CookieSecure = clicmd.Bool("session-cookie-secure")
	conf.CookieDomain = clicmd.String("session-cookie-domain")
	conf.CookiePath = clicmd.String("session-cookie-path")

	samesite, ok := cookie.ParseSameSite(clicmd.String("session-cookie-samesite"))
	if !ok {
		return nil, aerr.ErrInvalidConf.WithUserMsg("invalid session cookie SameSite %q",
			clicmd.String("session-cookie-samesite"))
	}

	conf.CookieSameSite = samesite

	if conf.CleanupInterval < time.Second {
		return nil, aerr.ErrInvalidConf.WithUserMsg("session cleanup interval must be at least 1s")
	}

	if err := conf.Validate(); err != nil {
		return nil, aerr.Wrapf(err, "session config validation failed")
	}

	return &conf, nil
}

// loadEnvFile load variables from file given by --env-file argument or GOHTTPD_ENV_FILE
// before flags are parsed. Missing default .env file is ignored.
func loadEnvFile(args []string) error {
	filename := os.Getenv(envFileEnv)
	explicit := filename != ""

	for idx, arg := range args {
		if name, ok := strings.CutPrefix(arg, "--env-file="); ok {
			filename, explicit = name, true
		} else if arg == "--env-file" && idx+1 < len(args) {
			filename, explicit = args[idx+1], true
		}
	}

	if !explicit {
		filename = ".env"
		if _, err := os.Stat(filename); err != nil {
			return nil
		}
	}

	if err := godotenv.Load(filename); err != nil {
		return aerr.Wrapf(err, "load env file failed").WithUserMsg("can't load env file %q", filename)
	}

	return nil
}
