// Package logging provides file-based JSON logging with size-based rotation
// for xfinder. Every CLI command writes its logs to a file under
// ~/.xfinder_index/logs/ and also to stderr; the --log-level flag sets the
// minimum level (info by default).
package logging
