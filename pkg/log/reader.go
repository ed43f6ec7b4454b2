package log

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	ConnectionID string
	ServerName   string

	Direction *Direction
	Layer     *Layer
	Category  *Category

	// Since and Until bound the timestamp to [Since, Until).
	Since *time.Time
	Until *time.Time

	// TruncatedOnly keeps record events that hit the buffer capacity.
	TruncatedOnly bool
}

// Match reports whether event passes the filter.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.ServerName != "" && event.ServerName != f.ServerName:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.Since != nil && event.Timestamp.Before(*f.Since):
		return false
	case f.Until != nil && !event.Timestamp.Before(*f.Until):
		return false
	case f.TruncatedOnly && (event.Record == nil || !event.Record.Truncated):
		return false
	}
	return true
}

// Reader streams events from a .tlog file.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	filter Filter
	done   bool
}

// Open opens a protocol log and checks its header.
func Open(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := decMode.NewDecoder(bufio.NewReader(f))
	empty, err := readHeader(dec)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{file: f, dec: dec, filter: filter, done: empty}, nil
}

// Next returns the next matching event, or io.EOF at the end of the log.
// A log cut off mid-event returns ErrTruncatedLog.
func (r *Reader) Next() (Event, error) {
	for !r.done {
		var event Event
		err := r.dec.Decode(&event)
		switch {
		case errors.Is(err, io.EOF):
			r.done = true
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.done = true
			return Event{}, ErrTruncatedLog
		case err != nil:
			return Event{}, err
		case r.filter.Match(event):
			return event, nil
		}
	}
	return Event{}, io.EOF
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Each calls fn for every matching event in path. It stops at the first
// error from fn.
func Each(path string, filter Filter, fn func(Event) error) error {
	r, err := Open(path, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// ReadAll returns every matching event in path.
func ReadAll(path string, filter Filter) ([]Event, error) {
	var events []Event
	err := Each(path, filter, func(e Event) error {
		events = append(events, e)
		return nil
	})
	return events, err
}
