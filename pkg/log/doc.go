// Package log records protocol events from secure sessions.
//
// Protocol events are separate from operational logging (slog): they form a
// machine-readable trace of state changes, handshake outcomes, record sizes
// and close-notify attempts, keyed by a per-session connection ID.
//
// # Basic Usage
//
//	// Console, at debug level
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// File
//	fl, err := log.NewFileLogger("/var/log/tlsfetch/session.tlog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.Combine(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// A .tlog file is a CBOR header item (magic "TLOG", format version) followed
// by a stream of CBOR-encoded events with integer keys. Open and Each read
// them back; cmd/tlsfetch-log views, exports and summarizes them.
package log
