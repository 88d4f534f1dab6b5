package config

//
// version.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Set by linker.
var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
	BuildUser = ""
	Branch    = ""
)

// VersionString is human readable version printed by --print-version.
var VersionString = BuildInfo().String()

// Build describe binary.
type Build struct {
	Version   string
	Revision  string
	Date      string
	User      string
	Branch    string
	Modified  bool
	GoVersion string
}

// BuildInfo return version information set by linker or, for dev builds,
// read from vcs data embedded by go toolchain.
func BuildInfo() Build {
	build := Build{
		Version:   Version,
		Revision:  Revision,
		Date:      BuildDate,
		User:      BuildUser,
		Branch:    Branch,
		GoVersion: runtime.Version(),
	}

	if Version != "dev" {
		return build
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build
	}

	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			build.Revision = kv.Value
		case "vcs.time":
			build.Date = kv.Value
		case "vcs.modified":
			build.Modified = kv.Value == "true"
		}
	}

	return build
}

func (b Build) String() string {
	if b.Version == "dev" {
		dirty := ""
		if b.Modified {
			dirty = " (modified)"
		}

		return fmt.Sprintf("dev, rev: %s at %s%s, %s", b.Revision, b.Date, dirty, b.GoVersion)
	}

	return fmt.Sprintf("%s, rev: %s, build: %s by %s from %s, %s",
		b.Version, b.Revision, b.Date, b.User, b.Branch, b.GoVersion)
}

func (b Build) MarshalZerologObject(event *zerolog.Event) {
	event.Str("version", b.Version).
		Str("revision", b.Revision).
		Str("date", b.Date).
		Bool("modified", b.Modified).
		Str("go", b.GoVersion)
}
