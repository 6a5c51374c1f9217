// Package logs reads the daemon log file for the control CLI: a bounded
// tail of the most recent lines, plus incremental reads from a byte offset
// so `doorman logs --follow` can poll without re-reading the file.
package logs
