// Package logging provides structured logging for lumen.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the codec and the CLI. Logging is silent unless a level is
// configured, so library code can log freely without producing output in
// normal CLI use.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, registry lookups)
//   - Info: Normal operations (packets packed or unpacked by the CLI)
//   - Warn: Non-fatal issues (unknown packet types accepted as frames)
//   - Error: Fatal issues (invalid configuration)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Debug("Message registry built",
//	    zap.Int("messages", 29),
//	    zap.String("frame", "Frame"),
//	)
//
// # Packet Logging
//
//	logging.LogPacket("packed", "SetPower", data)
//	logging.LogRawBytes("input", data)
//
// # Configuration
//
// Initialize logging at startup, either with an explicit level or from the
// LUMEN_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
