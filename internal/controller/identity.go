package controller

import (
	"fmt"
	"os"
	"os/user"
	"runtime"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var osNames = map[string]string{
	"darwin":  "macOS",
	"windows": "Windows",
	"linux":   "Linux",
}

// commitMessage builds the provenance subject line for sync commits,
// e.g. "Synced from macOS (alice@mbp)".
func commitMessage() string {
	return fmt.Sprintf("Synced from %s (%s@%s)", osDisplayName(runtime.GOOS), userName(), hostName())
}

func osDisplayName(goos string) string {
	if name, ok := osNames[goos]; ok {
		return name
	}
	return cases.Title(language.English).String(goos)
}

func userName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

func hostName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
