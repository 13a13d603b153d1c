package service

import "log/slog"

// ResolveLogger returns logger, or the process default when nil.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
