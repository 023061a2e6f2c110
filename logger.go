package serde

import (
	"log"
	"os"
)

// Logger represents the log interface
type Logger interface {
	Println(v ...interface{})
}

// Default logger
var logger Logger = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

var debug bool

// SetLogger rewrites the default logger
func SetLogger(l Logger) {
	if l != nil {
		logger = l
	}
}

// SetDebug toggles tracing of discarded input, such as unknown fields
// skipped under the lenient policy.
func SetDebug(enabled bool) {
	debug = enabled
}
