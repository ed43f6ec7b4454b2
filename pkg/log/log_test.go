package log

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(event Event) {
	c.events = append(c.events, event)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{ConnectionID: "ignored"})
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, NoopLogger{}, NewMultiLogger(b))

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	m.Log(Event{ConnectionID: "conn-1"})
	m.Log(Event{ConnectionID: "conn-2"})

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("events = %d/%d, want 2/2", len(a.events), len(b.events))
	}
}

func TestCombine(t *testing.T) {
	if _, ok := Combine().(NoopLogger); !ok {
		t.Error("Combine() should be a NoopLogger")
	}
	if _, ok := Combine(nil, NoopLogger{}).(NoopLogger); !ok {
		t.Error("Combine(nil, noop) should be a NoopLogger")
	}

	var got []string
	single := LoggerFunc(func(e Event) { got = append(got, e.ConnectionID) })
	if l := Combine(single, nil); l == nil {
		t.Fatal("Combine(single) returned nil")
	} else {
		l.Log(Event{ConnectionID: "x"})
	}
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("got %v, want [x]", got)
	}

	if _, ok := Combine(single, &captureLogger{}).(*MultiLogger); !ok {
		t.Error("Combine of two loggers should be a MultiLogger")
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	event := Event{
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerRecord,
		Category:     CategoryHandshake,
		ServerName:   "example.test",
		Handshake: &HandshakeEvent{
			Result:       "ESTABLISHED",
			Version:      tls.VersionTLS13,
			CipherSuite:  tls.TLS_AES_128_GCM_SHA256,
			VerifiedPeer: true,
			Steps:        2,
			Duration:     15 * time.Millisecond,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !got.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, event.Timestamp)
	}
	if got.Handshake == nil || *got.Handshake != *event.Handshake {
		t.Errorf("Handshake = %+v, want %+v", got.Handshake, event.Handshake)
	}
	if got.ServerName != "example.test" {
		t.Errorf("ServerName = %q", got.ServerName)
	}
}

func TestSlogAdapterLogsRecordEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerRecord,
		Category:     CategoryData,
		Record:       &RecordEvent{Size: 750, Requested: 1500},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["conn_id"] != "conn-123" {
		t.Errorf("conn_id: got %v", entry["conn_id"])
	}
	if entry["layer"] != "RECORD" {
		t.Errorf("layer: got %v", entry["layer"])
	}
	if entry["size"] != float64(750) {
		t.Errorf("size: got %v", entry["size"])
	}
}

func TestSlogAdapterLogsErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		ConnectionID: "conn-9",
		Category:     CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerRecord,
			Kind:    "CERT_INVALID",
			Message: "unknown authority",
			Context: "handshake",
		},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["error_kind"] != "CERT_INVALID" {
		t.Errorf("error_kind: got %v", entry["error_kind"])
	}
}

func TestFileLoggerAndFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.tlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "a", Category: CategoryState,
		StateChange: &StateChangeEvent{OldState: "TCP_CONNECTED", NewState: "HANDSHAKING"}})
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "b", Category: CategoryData,
		Record: &RecordEvent{Size: 10}})
	logger.Log(Event{Timestamp: time.Now(), ConnectionID: "a", Category: CategoryControl,
		Control: &ControlEvent{Type: ControlCloseNotify}})
	if written, dropped := logger.Stats(); written != 3 || dropped != 0 {
		t.Errorf("Stats() = %d, %d; want 3, 0", written, dropped)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Logging after close is ignored and Close is idempotent.
	logger.Log(Event{ConnectionID: "late"})
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	r, err := Open(path, Filter{ConnectionID: "a"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	var got []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, ev)
	}

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[1].Control == nil || got[1].Control.Type != ControlCloseNotify {
		t.Errorf("second event = %+v, want close-notify control", got[1])
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.tlog")

	for _, id := range []string{"first", "second"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{ConnectionID: id})
		if err := logger.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	events, err := ReadAll(path, Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 || events[0].ConnectionID != "first" || events[1].ConnectionID != "second" {
		t.Errorf("events = %+v, want first then second", events)
	}
}

func TestFileLoggerRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileLogger(path); !errors.Is(err, ErrNotLogFile) {
		t.Errorf("NewFileLogger error = %v, want ErrNotLogFile", err)
	}
	if _, err := Open(path, Filter{}); !errors.Is(err, ErrNotLogFile) {
		t.Errorf("Open error = %v, want ErrNotLogFile", err)
	}
}

func TestReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tlog")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	events, err := ReadAll(path, Filter{})
	if err != nil || len(events) != 0 {
		t.Errorf("ReadAll = %v, %v; want no events", events, err)
	}
}

func TestReaderTruncatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.tlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Log(Event{ConnectionID: "whole"})
	logger.Log(Event{ConnectionID: "cut-off", ServerName: "example.test"})
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-3], 0o644); err != nil {
		t.Fatal(err)
	}

	var seen []string
	err = Each(path, Filter{}, func(e Event) error {
		seen = append(seen, e.ConnectionID)
		return nil
	})
	if !errors.Is(err, ErrTruncatedLog) {
		t.Errorf("Each error = %v, want ErrTruncatedLog", err)
	}
	if len(seen) != 1 || seen[0] != "whole" {
		t.Errorf("seen = %v, want [whole]", seen)
	}
}

func TestFilterMatch(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Second)
	in := DirectionIn
	data := CategoryData

	event := Event{
		Timestamp:    now,
		ConnectionID: "a",
		ServerName:   "example.test",
		Direction:    DirectionIn,
		Category:     CategoryData,
		Record:       &RecordEvent{Size: 4096, Truncated: true},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"connection", Filter{ConnectionID: "a"}, true},
		{"other connection", Filter{ConnectionID: "b"}, false},
		{"server", Filter{ServerName: "other.test"}, false},
		{"direction and category", Filter{Direction: &in, Category: &data}, true},
		{"since", Filter{Since: &later}, false},
		{"until", Filter{Until: &later}, true},
		{"until excludes equal", Filter{Until: &now}, false},
		{"truncated only", Filter{TruncatedOnly: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(event); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}

	if (Filter{TruncatedOnly: true}).Match(Event{Category: CategoryState}) {
		t.Error("TruncatedOnly should skip non-record events")
	}
}

func TestFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.tlog"))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("NewFileLogger error = %v, want ErrNotExist", err)
	}
}

func TestEnumStrings(t *testing.T) {
	if DirectionOut.String() != "OUT" || Direction(9).String() != "UNKNOWN" {
		t.Error("Direction.String mismatch")
	}
	if LayerSession.String() != "SESSION" || Layer(9).String() != "UNKNOWN" {
		t.Error("Layer.String mismatch")
	}
	if CategoryHandshake.String() != "HANDSHAKE" || Category(9).String() != "UNKNOWN" {
		t.Error("Category.String mismatch")
	}
	if ControlCloseNotify.String() != "CLOSE_NOTIFY" {
		t.Error("ControlType.String mismatch")
	}
}
