// Package log is the structured logging abstraction used by sigresume packages.
//
// Library code accepts a [Logger] and defaults to [NewNoopLogger], so embedding
// a guard never writes to stderr unless the caller asks for it. The command
// line tool wires a zerolog logger through [NewZerologAdapterWithLogger].
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("checkpoint", log.Stringer("token", tok), log.Int64("offset", 42))
//
// Implement Logger to route messages into another logging library.
package log
