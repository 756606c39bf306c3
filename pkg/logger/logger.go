// Package logger is a small logging facade: the process wires one or more
// backends at startup and every package logs through the package-level
// functions with structured key/value pairs.
package logger

// Backend is a single logging sink.
type Backend interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

var backends []Backend

// Init installs the logging backends. Call once during process bootstrap,
// before anything logs; calls made with no backends installed are dropped.
func Init(b ...Backend) {
	backends = b
}

// Debug logs at DEBUG level on all backends.
func Debug(message string, keyvals ...any) {
	for _, b := range backends {
		b.Debug(message, keyvals...)
	}
}

// Info logs at INFO level on all backends.
func Info(message string, keyvals ...any) {
	for _, b := range backends {
		b.Info(message, keyvals...)
	}
}

// Warn logs at WARN level on all backends.
func Warn(message string, keyvals ...any) {
	for _, b := range backends {
		b.Warn(message, keyvals...)
	}
}

// Error logs at ERROR level on all backends.
func Error(message string, keyvals ...any) {
	for _, b := range backends {
		b.Error(message, keyvals...)
	}
}

// Fatal logs at FATAL level on all backends. Backends are expected to
// terminate the process; only bootstrap code should call this.
func Fatal(message string, keyvals ...any) {
	for _, b := range backends {
		b.Fatal(message, keyvals...)
	}
}
