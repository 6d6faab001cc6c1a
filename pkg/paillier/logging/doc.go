// Package logging provides a minimal logging facade for the Paillier packages.
//
// The Logger interface wraps the subset of log/slog used by key generation,
// the keystore and the command line tool. Applications can provide their own
// implementation for testing or for routing into an existing logging system.
//
// # Logger Interface
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// # Constructors
//
//	logger := logging.New(nil)                          // slog.Default()
//	logger := logging.NewText(os.Stderr, slog.LevelDebug)
//	logger := logging.NewJSON(os.Stderr, slog.LevelInfo)
//	logger := logging.Discard()                         // tests
//
// # Redaction
//
// Prime factors, nonces and plaintexts must never reach a log line. Use
// Redacted to record that a value existed without printing it:
//
//	logger.Debug(ctx, "prime sampled", logging.Redacted("p"), "bits", 1024)
//	// Logs: p=[redacted] bits=1024
package logging
