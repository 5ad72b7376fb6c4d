// Package logging provides JSON logging with size-based file rotation for
// codegraph. DefaultConfig writes to a log file under ~/.codegraph/logs/ and
// also to stderr at info level; DebugConfig is the same at debug level.
// codegraphd uses DefaultConfig with the level taken from its server config.
package logging
