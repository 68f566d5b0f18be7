// File: internal/obslog/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thin wrapper over charmbracelet/log giving every package in this
// module a consistently-named, prefixed logger without each one
// constructing its own.

package obslog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the structured logger handed to every component that needs
// one (registry mirror, protocol handler, rtcycle engine, client).
type Logger = log.Logger

var root = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
})

// For returns a logger prefixed with component, sharing the root
// handler and level.
func For(component string) *Logger {
	return root.WithPrefix(component)
}

// SetLevel adjusts the root logger's level; every For() logger reflects
// the change since they share the underlying handler.
func SetLevel(level log.Level) {
	root.SetLevel(level)
}
