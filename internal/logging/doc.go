// Package logging wraps log/slog with doorman's handler setup and attribute
// helpers.
//
// New builds a logger from Options (level, format, output paths); components
// receive child loggers tagged with a standardized component attribute so log
// lines can be filtered per subsystem. The nop logger keeps optional loggers
// out of nil checks in library code.
package logging
