package mock

import "log/slog"

// log receives the server's own diagnostics. It discards them unless a test
// calls 'SetLogger'.
var log Logger = slog.New(slog.DiscardHandler)

func SetLogger(l Logger) {
	log = l
}

// Logger is satisfied by '*slog.Logger' and '*clog.Logger'.
type Logger interface {
	Debug(string, ...any)
	Info(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
}
