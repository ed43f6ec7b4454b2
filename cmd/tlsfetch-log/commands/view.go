// Package commands implements the tlsfetch-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/retrocoder/tlsfetch/pkg/log"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// ViewFilter selects the events shown by view.
type ViewFilter struct {
	ConnectionID  string
	ServerName    string
	Layer         *log.Layer
	Direction     *log.Direction
	Category      *log.Category
	TruncatedOnly bool
}

func (f ViewFilter) toLogFilter() log.Filter {
	return log.Filter{
		ConnectionID:  f.ConnectionID,
		ServerName:    f.ServerName,
		Layer:         f.Layer,
		Direction:     f.Direction,
		Category:      f.Category,
		TruncatedOnly: f.TruncatedOnly,
	}
}

// RunView prints matching events, one per line, with a header line each
// time the session changes.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	var current string
	return log.Each(path, filter.toLogFilter(), func(e log.Event) error {
		if e.ConnectionID != current {
			current = e.ConnectionID
			formatSessionHeader(output, e)
		}
		formatEvent(output, e)
		return nil
	})
}

func formatSessionHeader(w io.Writer, e log.Event) {
	fmt.Fprintf(w, "== session %s", e.ConnectionID)
	if e.ServerName != "" {
		fmt.Fprintf(w, " %s", e.ServerName)
	}
	if e.RemoteAddr != "" {
		fmt.Fprintf(w, " (%s)", e.RemoteAddr)
	}
	fmt.Fprintln(w)
}

// formatEvent writes one line: time, short session ID, flow, layer,
// category and a summary of the payload.
func formatEvent(w io.Writer, e log.Event) {
	fmt.Fprintf(w, "%s [conn:%s] %s %-7s %-9s %s\n",
		e.Timestamp.UTC().Format(timeLayout),
		shortenConnID(e.ConnectionID),
		flow(e),
		layerLabel(e),
		e.Category,
		describe(e))
}

func flow(e log.Event) string {
	if e.Record == nil && e.Control == nil {
		return "  "
	}
	if e.Direction == log.DirectionOut {
		return "->"
	}
	return "<-"
}

func layerLabel(e log.Event) string {
	if e.Category == log.CategoryControl {
		return "CTRL"
	}
	return e.Layer.String()
}

func describe(e log.Event) string {
	var b strings.Builder
	switch {
	case e.Record != nil:
		fmt.Fprintf(&b, "%d bytes", e.Record.Size)
		if e.Record.Requested > 0 && e.Record.Requested != e.Record.Size {
			fmt.Fprintf(&b, " of %d", e.Record.Requested)
		}
		if e.Record.Truncated {
			b.WriteString(" (truncated)")
		}
	case e.Handshake != nil:
		hs := e.Handshake
		b.WriteString(hs.Result)
		if hs.Version != 0 {
			fmt.Fprintf(&b, " version=%q cipher=%s verified=%t",
				log.VersionName(hs.Version), log.CipherSuiteName(hs.CipherSuite), hs.VerifiedPeer)
		}
		fmt.Fprintf(&b, " steps=%d took=%s", hs.Steps, formatDuration(hs.Duration))
	case e.StateChange != nil:
		sc := e.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(&b, "%s -> ", sc.OldState)
		}
		b.WriteString(sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(&b, " reason=%s", sc.Reason)
		}
	case e.Control != nil:
		b.WriteString(e.Control.Type.String())
		if e.Control.Failed {
			b.WriteString(" failed")
		}
	case e.Error != nil:
		if e.Error.Kind != "" {
			fmt.Fprintf(&b, "[%s] ", e.Error.Kind)
		}
		if e.Error.Context != "" {
			fmt.Fprintf(&b, "%s: ", e.Error.Context)
		}
		b.WriteString(e.Error.Message)
	default:
		b.WriteString("-")
	}
	return b.String()
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "record":
		return log.LayerRecord, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, record, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "data":
		return log.CategoryData, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	case "handshake":
		return log.CategoryHandshake, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be data, control, state, error, or handshake)", s)
	}
}

