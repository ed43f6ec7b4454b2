// Package fetch runs one secure request/response exchange: load the trust
// store, connect, run a session, and report the response.
package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retrocoder/tlsfetch/pkg/cert"
	"github.com/retrocoder/tlsfetch/pkg/log"
	"github.com/retrocoder/tlsfetch/pkg/metrics"
	"github.com/retrocoder/tlsfetch/pkg/session"
	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// Result is the outcome of Run.
type Result struct {
	SessionID  string
	Response   *session.Response
	Negotiated session.Negotiated
}

// Truncated reports whether the response exceeded the buffer capacity.
func (r *Result) Truncated() bool {
	return r != nil && r.Response != nil && r.Response.Status == session.AccumulateTruncated
}

// Run performs one exchange as configured. On failure after response bytes
// were received, the partial Result is returned with the error.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var trust *cert.TrustStore
	if cfg.CAFile != "" {
		var err error
		trust, err = cert.LoadTrustStore(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("load trust store: %w", err)
		}
		logger.Debug("trust store loaded", "path", cfg.CAFile, "authorities", trust.Len())
	}

	scfg, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}
	scfg.Logger = logger

	var rec *metrics.Recorder
	if cfg.MetricsFile != "" {
		rec = metrics.NewRecorder()
		scfg.Metrics = rec
		defer func() {
			if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
				logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", err)
			}
		}()
	}

	plog, closeLog, err := protocolLogger(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeLog()
	scfg.ProtocolLogger = plog

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	dialCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	logger.Info("connecting", "address", cfg.Address())
	tr, err := transport.Dial(dialCtx, cfg.Address(), cfg.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrTransport, err)
	}

	s, err := session.New(tr, trust, scfg, nil)
	if err != nil {
		tr.Close()
		return nil, err
	}

	resp, err := s.Exchange(ctx, BuildRequest(cfg))
	result := &Result{SessionID: s.ID(), Response: resp, Negotiated: s.Negotiated()}
	if err != nil {
		if resp == nil {
			return nil, err
		}
		return result, err
	}

	logger.Info("response received",
		"status", resp.Status.String(),
		"bytes", resp.Total,
		"version", transport.VersionName(result.Negotiated.Version),
		"verified_peer", result.Negotiated.VerifiedPeer)
	return result, nil
}

// protocolLogger opens the protocol event log, mirrored to logger at debug
// level when enabled.
func protocolLogger(cfg Config, logger *slog.Logger) (log.Logger, func(), error) {
	var file *log.FileLogger
	if cfg.ProtocolLog != "" {
		var err error
		file, err = log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
	}

	var console log.Logger
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		console = log.NewSlogAdapter(logger)
	}

	closeFn := func() {
		if file == nil {
			return
		}
		written, dropped := file.Stats()
		if err := file.Close(); err != nil {
			logger.Warn("failed to close protocol log", "path", cfg.ProtocolLog, "error", err)
		}
		logger.Debug("protocol log closed", "path", cfg.ProtocolLog, "events", written, "dropped", dropped)
	}

	if file == nil {
		return log.Combine(console), closeFn, nil
	}
	return log.Combine(file, console), closeFn, nil
}
