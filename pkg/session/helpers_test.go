package session

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retrocoder/tlsfetch/pkg/cert"
	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// stubBackend is a scripted cryptographic backend.
type stubBackend struct {
	// handshake is returned by successive Handshake calls; nil once exhausted.
	handshake []error
	state     tls.ConnectionState

	// writeScript is consumed by successive Write calls. Once exhausted
	// every write accepts all bytes.
	writeScript []writeStep
	written     bytes.Buffer

	// data is served in chunks of at most chunk bytes, then end is returned.
	data  []byte
	chunk int
	end   error

	// blockEvery makes every n-th read return ErrWantRead.
	blockEvery int
	reads      int

	closeNotifyErr error
	handshakes     int
	closeNotifies  int
	frees          int
}

type writeStep struct {
	max int
	err error
}

func (b *stubBackend) Handshake(context.Context) error {
	b.handshakes++
	if len(b.handshake) == 0 {
		return nil
	}
	err := b.handshake[0]
	b.handshake = b.handshake[1:]
	return err
}

func (b *stubBackend) ConnectionState() tls.ConnectionState { return b.state }

func (b *stubBackend) Read(p []byte) (int, error) {
	b.reads++
	if b.blockEvery > 0 && b.reads%b.blockEvery == 0 {
		return 0, transport.ErrWantRead
	}
	if len(b.data) == 0 {
		if b.end == nil {
			return 0, io.EOF
		}
		return 0, b.end
	}
	n := len(p)
	if b.chunk > 0 && n > b.chunk {
		n = b.chunk
	}
	n = copy(p[:n], b.data)
	b.data = b.data[n:]
	return n, nil
}

func (b *stubBackend) Write(p []byte) (int, error) {
	if len(b.writeScript) == 0 {
		return b.written.Write(p)
	}
	step := b.writeScript[0]
	b.writeScript = b.writeScript[1:]
	n := min(step.max, len(p))
	b.written.Write(p[:n])
	return n, step.err
}

func (b *stubBackend) CloseNotify() error {
	b.closeNotifies++
	return b.closeNotifyErr
}

func (b *stubBackend) Free() { b.frees++ }

// stubTransport accepts every send, never has data, and counts calls.
type stubTransport struct {
	closes   int
	receives int
}

func (t *stubTransport) Send(p []byte) (int, error) { return len(p), nil }
func (t *stubTransport) Receive(p []byte) (int, error) {
	t.receives++
	return 0, transport.ErrWouldBlock
}
func (t *stubTransport) Close() error {
	t.closes++
	return nil
}

// testPKI is a CA with a leaf issued for example.com.
type testPKI struct {
	ca    *cert.Authority
	leaf  *cert.Leaf
	trust *cert.TrustStore
}

func newTestPKI(t *testing.T, hosts ...string) *testPKI {
	t.Helper()
	if len(hosts) == 0 {
		hosts = []string{"example.com"}
	}
	ca, err := cert.GenerateAuthority("Test Root CA")
	require.NoError(t, err)
	leaf, err := ca.IssueLeaf(hosts...)
	require.NoError(t, err)
	trust, err := cert.NewTrustStore(ca.Certificate)
	require.NoError(t, err)
	return &testPKI{ca: ca, leaf: leaf, trust: trust}
}

// state returns a completed TLS 1.3 connection state presenting the leaf.
func (p *testPKI) state() tls.ConnectionState {
	return tls.ConnectionState{
		Version:           tls.VersionTLS13,
		CipherSuite:       tls.TLS_AES_128_GCM_SHA256,
		HandshakeComplete: true,
		PeerCertificates:  []*x509.Certificate{p.leaf.Certificate, p.ca.Certificate},
	}
}

// stubFactory returns a BackendFactory handing out b.
func stubFactory(b transport.Backend) BackendFactory {
	return func(transport.Transport, *tls.Config) (transport.Backend, error) {
		return b, nil
	}
}

// fakeReader replays scripted read outcomes, copying data into the sink.
type fakeReader struct {
	steps []fakeRead
	calls []int
}

type fakeRead struct {
	status ReadStatus
	data   []byte
	err    error
}

func (r *fakeReader) ReadInto(sink []byte, maxLen int) ReadOutcome {
	r.calls = append(r.calls, maxLen)
	if len(r.steps) == 0 {
		return ReadOutcome{Status: ReadPeerClosed}
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	switch step.status {
	case ReadBytes:
		n := copy(sink[:maxLen], step.data)
		if n < len(step.data) {
			// Put the rest back, as a stream would.
			r.steps = append([]fakeRead{{status: ReadBytes, data: step.data[n:]}}, r.steps...)
		}
		return ReadOutcome{Status: ReadBytes, N: n}
	case ReadFailed:
		n := copy(sink[:maxLen], step.data)
		return ReadOutcome{Status: ReadFailed, N: n, Err: step.err}
	default:
		return ReadOutcome{Status: step.status}
	}
}

func bytesOf(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}
