package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/retrocoder/tlsfetch/pkg/cert"
	"github.com/retrocoder/tlsfetch/pkg/log"
	"github.com/retrocoder/tlsfetch/pkg/metrics"
	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// BackendFactory creates the cryptographic context for a session.
type BackendFactory func(tr transport.Transport, config *tls.Config) (transport.Backend, error)

// TLSBackendFactory creates a crypto/tls backend. It is the default factory.
func TLSBackendFactory(tr transport.Transport, config *tls.Config) (transport.Backend, error) {
	return transport.NewTLSBackend(tr, config)
}

// Response is the outcome of Exchange.
type Response struct {
	// Body holds the accumulated bytes verbatim.
	Body []byte

	Status AccumulateStatus
	Total  int
}

// Session is one secure session over a connected transport.
type Session struct {
	id  string
	cfg Config

	transport  transport.Transport
	backend    transport.Backend
	trust      *cert.TrustStore
	controller *HandshakeController
	pump       *Pump

	state     State
	params    Negotiated
	steps     int
	startedAt time.Time
	torndown  bool

	logger  *slog.Logger
	plog    log.Logger
	metrics *metrics.Recorder
}

// New creates a session over an already connected transport. The session
// takes ownership of tr only on success. A nil factory selects
// TLSBackendFactory. Configuration errors are returned before any I/O.
func New(tr transport.Transport, trust *cert.TrustStore, cfg Config, factory BackendFactory) (*Session, error) {
	if tr == nil {
		return nil, newError(KindConfigInvalid, "new session", errors.New("transport is required"))
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = TLSBackendFactory
	}

	controller := &HandshakeController{
		MinVersion: cfg.MinVersion,
		Hostname:   cfg.Hostname,
		Trust:      trust,
		AuthMode:   cfg.AuthMode,
		Logger:     cfg.Logger,
	}
	if err := controller.Validate(); err != nil {
		return nil, err
	}

	tlsConf, err := transport.NewClientTLSConfig(&transport.TLSConfig{
		RootCAs:          trust.Pool(),
		ServerName:       cfg.Hostname,
		MinVersion:       cfg.MinVersion,
		NextProtos:       cfg.NextProtos,
		VerifyConnection: controller.VerifyConnection,
	})
	if err != nil {
		return nil, newError(KindConfigInvalid, "new session", err)
	}

	backend, err := factory(tr, tlsConf)
	if err != nil {
		return nil, newError(KindConfigInvalid, "new session", fmt.Errorf("create backend: %w", err))
	}
	if ws, ok := backend.(transport.WaitSetter); ok {
		// Would-block inside the backend waits under the session's policy.
		ws.SetWait(func(ctx context.Context, attempt int) error {
			cfg.Metrics.Retry("transport")
			return cfg.Retry.Wait(ctx, attempt)
		})
	}

	s := &Session{
		id:         uuid.New().String(),
		cfg:        cfg,
		transport:  tr,
		backend:    backend,
		trust:      trust,
		controller: controller,
		state:      StateInit,
		metrics:    cfg.Metrics,
		plog:       cfg.ProtocolLogger,
	}
	s.logger = cfg.Logger.With("conn_id", s.id, "server_name", cfg.Hostname)

	s.pump = NewPump(backend, cfg.Retry)
	s.pump.hooks = pumpHooks{
		onWrite: func(n, requested int) { s.logRecord(log.DirectionOut, n, requested, false) },
		onRead:  func(n, requested int) { s.logRecord(log.DirectionIn, n, requested, false) },
		onRetry: s.metrics.Retry,
	}

	s.setState(StateTCPConnected, "transport attached")
	return s, nil
}

// ID returns the session's connection ID.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Negotiated returns the handshake parameters. Zero until established.
func (s *Session) Negotiated() Negotiated { return s.params }

// Released reports whether teardown has run and every resource reference
// was dropped.
func (s *Session) Released() bool {
	return s.torndown && s.backend == nil && s.transport == nil && s.trust == nil && s.pump == nil
}

// Step runs one handshake step. Want-read and want-write results leave the
// session in Handshaking; a failure tears the session down.
func (s *Session) Step(ctx context.Context) HandshakeResult {
	switch s.state {
	case StateTCPConnected:
		s.startedAt = time.Now()
		s.setState(StateHandshaking, "")
	case StateHandshaking:
	case StateEstablished:
		return HandshakeResult{Status: HandshakeEstablished, Params: s.params}
	default:
		return handshakeFailed(newError(KindTransport, "handshake", ErrSessionClosed))
	}

	s.steps++
	res := s.controller.Step(ctx, s.backend)
	switch res.Status {
	case HandshakeEstablished:
		s.params = res.Params
		s.logHandshake(res)
		s.setState(StateEstablished, "")
		attrs := []any{
			"version", transport.VersionName(res.Params.Version),
			"cipher_suite", tls.CipherSuiteName(res.Params.CipherSuite),
			"verified_peer", res.Params.VerifiedPeer,
			"steps", s.steps,
		}
		if len(res.Params.PeerCertificates) > 0 {
			attrs = append(attrs, "peer", cert.Describe(res.Params.PeerCertificates[0]))
		}
		s.logger.Info("session established", attrs...)
	case HandshakeFailed:
		s.logHandshake(res)
		s.fail("handshake", res.Err)
	}
	return res
}

// Handshake drives Step until the session is established or fails,
// consulting the retry policy between want-read/want-write steps.
func (s *Session) Handshake(ctx context.Context) error {
	attempt := 0
	for {
		res := s.Step(ctx)
		switch res.Status {
		case HandshakeEstablished:
			return nil
		case HandshakeFailed:
			return res.Err
		}

		attempt++
		s.metrics.Retry("handshake")
		if err := s.cfg.Retry.Wait(ctx, attempt); err != nil {
			return s.fail("handshake", newError(KindTransport, "handshake", err))
		}
	}
}

// WriteAll sends every byte of p over the established session.
func (s *Session) WriteAll(ctx context.Context, p []byte) error {
	if err := s.requireEstablished(); err != nil {
		return err
	}
	release := s.bind(ctx)
	err := s.pump.WriteAll(ctx, p)
	release()
	if err != nil {
		return s.fail("write", err)
	}
	s.metrics.Sent(len(p))
	return nil
}

// ReadInto performs one read attempt over the established session.
func (s *Session) ReadInto(sink []byte, maxLen int) ReadOutcome {
	if err := s.requireEstablished(); err != nil {
		return ReadOutcome{Status: ReadFailed, Err: err}
	}
	out := s.pump.ReadInto(sink, maxLen)
	if out.Status == ReadFailed {
		s.fail("read", out.Err)
	}
	return out
}

// Accumulate collects the response into buf. Bytes collected before a
// failure remain in buf.
func (s *Session) Accumulate(ctx context.Context, buf *ResponseBuffer) (AccumulateResult, error) {
	if err := s.requireEstablished(); err != nil {
		return AccumulateResult{Status: AccumulateFailed, Total: buf.Len()}, err
	}

	retry := RetryFunc(func(ctx context.Context, attempt int) error {
		s.metrics.Retry("read")
		return s.cfg.Retry.Wait(ctx, attempt)
	})

	release := s.bind(ctx)
	res, err := Accumulate(ctx, s.pump, buf, s.cfg.ReadChunkSize, retry)
	release()
	s.metrics.Received(res.Total)
	s.metrics.Response(strings.ToLower(res.Status.String()))

	switch res.Status {
	case AccumulateFailed:
		if s.state == StateEstablished {
			s.fail("accumulate", err)
		}
		return res, err
	case AccumulateTruncated:
		s.logRecord(log.DirectionIn, res.Total, buf.Cap(), true)
		s.logger.Warn("response truncated at buffer capacity",
			"capacity", buf.Cap(),
			"total", res.Total)
	case AccumulateComplete:
		if !res.CloseNotify {
			s.logger.Info("peer closed transport without close-notify", "total", res.Total)
		}
	}
	return res, nil
}

// Exchange runs the whole session: handshake, one request, one response
// accumulation, close. The session is always torn down on return, including
// on panic. On failure after bytes were received, the partial response is
// returned with the error.
func (s *Session) Exchange(ctx context.Context, request []byte) (*Response, error) {
	defer s.Close()

	if err := s.Handshake(ctx); err != nil {
		return nil, err
	}
	if err := s.WriteAll(ctx, request); err != nil {
		return nil, err
	}

	buf := NewResponseBuffer(s.cfg.ResponseCapacity)
	res, err := s.Accumulate(ctx, buf)
	return &Response{Body: buf.Bytes(), Status: res.Status, Total: res.Total}, err
}

// Close sends close-notify if the session is established, then tears it
// down. Close-notify failures are logged, not returned. It is safe to call
// Close multiple times.
func (s *Session) Close() error {
	if s.torndown {
		return nil
	}

	if s.state == StateEstablished {
		s.setState(StateClosing, "")
		s.sendCloseNotify()
	}

	err := s.teardown()
	if s.state != StateFailed {
		s.setState(StateClosed, "")
	}
	return err
}

func (s *Session) sendCloseNotify() {
	err := s.backend.CloseNotify()
	s.emit(log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerRecord,
		Category:  log.CategoryControl,
		Control:   &log.ControlEvent{Type: log.ControlCloseNotify, Failed: err != nil},
	})
	if err != nil {
		s.metrics.CloseNotifyFailed()
		s.logger.Warn("close-notify failed", "error", err)
	}
}

// teardown releases the backend and the transport exactly once.
func (s *Session) teardown() error {
	if s.torndown {
		return nil
	}
	s.torndown = true

	if s.backend != nil {
		s.backend.Free()
		s.backend = nil
	}

	var err error
	if s.transport != nil {
		if err = s.transport.Close(); err != nil {
			s.logger.Debug("transport close failed", "error", err)
		}
		s.transport = nil
	}

	s.pump = nil
	s.trust = nil
	s.controller = nil
	return err
}

// fail moves the session to Failed, tears it down and returns err.
func (s *Session) fail(op string, err error) error {
	if s.state.Terminal() {
		return err
	}

	kind := KindOf(err)
	if kind == KindNone {
		kind = classify(err)
		err = newError(kind, op, err)
	}

	s.logger.Error("session failed", "op", op, "kind", kind.String(), "error", err)
	s.emit(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Kind:    kind.String(),
			Message: err.Error(),
			Context: op,
		},
	})

	s.setState(StateFailed, kind.String())
	_ = s.teardown()
	return err
}

// bind ties blocking backend I/O to ctx for one operation, so a stalled
// peer cannot outlive the caller's deadline or cancellation.
func (s *Session) bind(ctx context.Context) (release func()) {
	if b, ok := s.backend.(transport.ContextBinder); ok {
		return b.BindContext(ctx)
	}
	return func() {}
}

func (s *Session) requireEstablished() error {
	switch s.state {
	case StateEstablished:
		return nil
	case StateClosing, StateClosed, StateFailed:
		return ErrSessionClosed
	default:
		return ErrNotEstablished
	}
}

func (s *Session) setState(next State, reason string) {
	prev := s.state
	s.state = next
	s.logger.Debug("state change", "old_state", prev.String(), "new_state", next.String())
	s.emit(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) logHandshake(res HandshakeResult) {
	d := time.Since(s.startedAt)
	ev := &log.HandshakeEvent{
		Result:   res.Status.String(),
		Steps:    s.steps,
		Duration: d,
	}
	label := "established"
	if res.Status == HandshakeEstablished {
		ev.Version = res.Params.Version
		ev.CipherSuite = res.Params.CipherSuite
		ev.VerifiedPeer = res.Params.VerifiedPeer
	} else {
		label = strings.ToLower(res.Kind().String())
	}
	s.metrics.Handshake(label, d)
	s.emit(log.Event{
		Layer:     log.LayerRecord,
		Category:  log.CategoryHandshake,
		Handshake: ev,
	})
}

func (s *Session) logRecord(dir log.Direction, n, requested int, truncated bool) {
	s.emit(log.Event{
		Direction: dir,
		Layer:     log.LayerRecord,
		Category:  log.CategoryData,
		Record:    &log.RecordEvent{Size: n, Requested: requested, Truncated: truncated},
	})
}

func (s *Session) emit(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.ConnectionID = s.id
	ev.ServerName = s.cfg.Hostname
	ev.RemoteAddr = s.cfg.RemoteAddr
	s.plog.Log(ev)
}

// Compile-time interface satisfaction check.
var _ Reader = (*Session)(nil)
