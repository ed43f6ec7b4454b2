package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/retrocoder/tlsfetch/pkg/log"
)

// Row is the flat export form of one event.
type Row struct {
	Time       string `json:"time"`
	ConnID     string `json:"conn_id"`
	ServerName string `json:"server_name,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Direction  string `json:"direction,omitempty"`
	Layer      string `json:"layer"`
	Category   string `json:"category"`
	Type       string `json:"type"`

	Size      *int  `json:"size,omitempty"`
	Truncated bool  `json:"truncated,omitempty"`
	Steps     *int  `json:"steps,omitempty"`
	Verified  *bool `json:"verified,omitempty"`

	Result     string  `json:"result,omitempty"`
	Version    string  `json:"version,omitempty"`
	Cipher     string  `json:"cipher,omitempty"`
	DurationMS float64 `json:"duration_ms,omitempty"`
	State      string  `json:"state,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Message    string  `json:"message,omitempty"`
}

var csvHeader = []string{
	"time", "conn_id", "server_name", "direction", "layer", "category", "type",
	"size", "truncated", "result", "version", "cipher", "state", "error_kind", "message",
}

// NewRow flattens an event.
func NewRow(e log.Event) Row {
	r := Row{
		Time:       e.Timestamp.UTC().Format(timeLayout),
		ConnID:     e.ConnectionID,
		ServerName: e.ServerName,
		RemoteAddr: e.RemoteAddr,
		Layer:      e.Layer.String(),
		Category:   e.Category.String(),
	}

	switch {
	case e.Record != nil:
		r.Type = "record"
		r.Direction = e.Direction.String()
		size := e.Record.Size
		r.Size = &size
		r.Truncated = e.Record.Truncated
	case e.Handshake != nil:
		hs := e.Handshake
		r.Type = "handshake"
		r.Result = hs.Result
		steps := hs.Steps
		r.Steps = &steps
		r.DurationMS = float64(hs.Duration.Microseconds()) / 1000
		if hs.Version != 0 {
			r.Version = log.VersionName(hs.Version)
			r.Cipher = log.CipherSuiteName(hs.CipherSuite)
			verified := hs.VerifiedPeer
			r.Verified = &verified
		}
	case e.StateChange != nil:
		r.Type = "state"
		r.State = e.StateChange.NewState
		r.Reason = e.StateChange.Reason
	case e.Control != nil:
		r.Type = "control"
		r.Direction = e.Direction.String()
		r.Result = e.Control.Type.String()
		if e.Control.Failed {
			r.Message = "failed"
		}
	case e.Error != nil:
		r.Type = "error"
		r.ErrorKind = e.Error.Kind
		r.Message = e.Error.Message
	default:
		r.Type = "unknown"
	}
	return r
}

func (r Row) csvRecord() []string {
	size := ""
	if r.Size != nil {
		size = strconv.Itoa(*r.Size)
	}
	return []string{
		r.Time, r.ConnID, r.ServerName, r.Direction, r.Layer, r.Category, r.Type,
		size, strconv.FormatBool(r.Truncated), r.Result, r.Version, r.Cipher, r.State, r.ErrorKind, r.Message,
	}
}

// RunExport writes the log as JSONL or CSV to output, or stdout when
// output is empty.
func RunExport(path, format, output string) error {
	var write func(io.Writer) error
	switch format {
	case "jsonl":
		write = func(w io.Writer) error {
			enc := json.NewEncoder(w)
			return log.Each(path, log.Filter{}, func(e log.Event) error {
				return enc.Encode(NewRow(e))
			})
		}
	case "csv":
		write = func(w io.Writer) error {
			cw := csv.NewWriter(w)
			if err := cw.Write(csvHeader); err != nil {
				return err
			}
			err := log.Each(path, log.Filter{}, func(e log.Event) error {
				return cw.Write(NewRow(e).csvRecord())
			})
			cw.Flush()
			if err != nil {
				return err
			}
			return cw.Error()
		}
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	if output == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
