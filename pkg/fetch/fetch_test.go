package fetch

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocoder/tlsfetch/pkg/cert"
	"github.com/retrocoder/tlsfetch/pkg/log"
	"github.com/retrocoder/tlsfetch/pkg/session"
)

type testServer struct {
	addr     *net.TCPAddr
	caFile   string
	requests chan *http.Request

	// stall, when set, holds each connection open after the request
	// without answering until the channel is closed.
	stall chan struct{}
}

// startServer serves one HTTPS response per connection on 127.0.0.1 and
// closes each connection with close-notify.
func startServer(t *testing.T, body string, opts ...func(*testServer)) *testServer {
	t.Helper()

	ca, err := cert.GenerateAuthority("tlsfetch test CA")
	require.NoError(t, err)
	leaf, err := ca.IssueLeaf("127.0.0.1")
	require.NoError(t, err)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, cert.WriteCertFile(caFile, ca.Certificate))

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{leaf.TLSCertificate()},
		MinVersion:   tls.VersionTLS12,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := &testServer{
		addr:     ln.Addr().(*net.TCPAddr),
		caFile:   caFile,
		requests: make(chan *http.Request, 4),
	}
	for _, opt := range opts {
		opt(srv)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handle(conn, body)
		}
	}()
	return srv
}

func (s *testServer) handle(conn net.Conn, body string) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return
	}
	s.requests <- req

	if s.stall != nil {
		<-s.stall
		return
	}
	fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s", len(body), body)
}

func (s *testServer) config() Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = s.addr.Port
	cfg.CAFile = s.caFile
	cfg.Timeout = 10 * time.Second
	cfg.PollInterval = 5 * time.Millisecond
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunComplete(t *testing.T) {
	srv := startServer(t, `{"hello":"world"}`)
	cfg := srv.config()

	result, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, session.AccumulateComplete, result.Response.Status)
	assert.False(t, result.Truncated())
	assert.True(t, strings.HasPrefix(string(result.Response.Body), "HTTP/1.1 200 OK\r\n"))
	assert.True(t, strings.HasSuffix(string(result.Response.Body), `{"hello":"world"}`))
	assert.Equal(t, len(result.Response.Body), result.Response.Total)
	assert.True(t, result.Negotiated.VerifiedPeer)
	assert.NotEmpty(t, result.SessionID)

	req := <-srv.requests
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/get", req.URL.Path)
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(srv.addr.Port), req.Host)
	assert.Equal(t, "Retrocoder/1.0", req.UserAgent())
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.True(t, req.Close)
}

func TestRunTruncated(t *testing.T) {
	srv := startServer(t, strings.Repeat("x", 2000))
	cfg := srv.config()
	cfg.ResponseCapacity = 256
	cfg.ReadChunkSize = 100

	result, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	assert.True(t, result.Truncated())
	assert.Len(t, result.Response.Body, 256)
	assert.Equal(t, 256, result.Response.Total)
}

func TestRunWritesProtocolLogAndMetrics(t *testing.T) {
	srv := startServer(t, "ok")
	cfg := srv.config()
	dir := t.TempDir()
	cfg.ProtocolLog = filepath.Join(dir, "fetch.tlog")
	cfg.MetricsFile = filepath.Join(dir, "fetch.prom")

	result, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	events, err := log.ReadAll(cfg.ProtocolLog, log.Filter{})
	require.NoError(t, err)

	var handshakes, records int
	var lastState string
	for _, ev := range events {
		assert.Equal(t, result.SessionID, ev.ConnectionID)
		switch ev.Category {
		case log.CategoryHandshake:
			handshakes++
			assert.Equal(t, "ESTABLISHED", ev.Handshake.Result)
		case log.CategoryData:
			records++
		case log.CategoryState:
			lastState = ev.StateChange.NewState
		}
	}
	assert.Equal(t, 1, handshakes)
	assert.Positive(t, records)
	assert.Equal(t, "CLOSED", lastState)

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `tlsfetch_handshakes_total{result="established"} 1`)
	assert.Contains(t, string(metrics), `tlsfetch_responses_total{status="complete"} 1`)
}

func TestRunUntrustedServer(t *testing.T) {
	srv := startServer(t, "ok")
	other := startServer(t, "ok")
	cfg := srv.config()
	cfg.CAFile = other.caFile
	cfg.MetricsFile = filepath.Join(t.TempDir(), "fetch.prom")

	result, err := Run(context.Background(), cfg, quietLogger())
	require.ErrorIs(t, err, session.ErrCertInvalid)
	assert.Nil(t, result)

	// Metrics are written on failure too.
	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `tlsfetch_handshakes_total{result="cert_invalid"} 1`)
}

func TestRunConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.AuthMode = "none"

	_, err = Run(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, session.ErrTransport)
}

func stallAfterRequest(t *testing.T) func(*testServer) {
	return func(s *testServer) {
		s.stall = make(chan struct{})
		t.Cleanup(func() { close(s.stall) })
	}
}

// silentPeer accepts TCP connections and never writes to them.
func silentPeer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRunTimeoutWithBlockingTransport(t *testing.T) {
	stalled := startServer(t, "never sent", stallAfterRequest(t))

	silentCfg := stalled.config()
	silentCfg.Port = silentPeer(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"silent before handshake", silentCfg},
		{"silent after request", stalled.config()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.PollInterval = 0
			cfg.Timeout = 500 * time.Millisecond

			start := time.Now()
			_, err := Run(context.Background(), cfg, quietLogger())
			require.Error(t, err)
			assert.ErrorIs(t, err, session.ErrTransport)
			assert.Less(t, time.Since(start), 4*time.Second, "Run must end near its timeout")
		})
	}
}

func TestRunCancelWithBlockingTransport(t *testing.T) {
	srv := startServer(t, "never sent", stallAfterRequest(t))

	cfg := srv.config()
	cfg.PollInterval = 0
	cfg.Timeout = 0

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-srv.requests
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := Run(ctx, cfg, quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 4*time.Second)
	require.NotNil(t, result)
	assert.Equal(t, session.AccumulateFailed, result.Response.Status)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()

	_, err := Run(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = Run(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
