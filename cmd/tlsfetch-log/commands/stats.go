package commands

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/retrocoder/tlsfetch/pkg/log"
)

// Stats summarizes a protocol log.
type Stats struct {
	TotalEvents int
	Errors      int
	Start, End  time.Time

	EventsByCategory map[log.Category]int

	// Connections is keyed by connection ID.
	Connections map[string]*ConnectionStats
}

// ConnectionStats summarizes one session.
type ConnectionStats struct {
	ID         string
	ServerName string
	RemoteAddr string
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int

	HandshakeResult string
	HandshakeTime   time.Duration
	Version         uint16
	CipherSuite     uint16
	VerifiedPeer    bool

	// BytesIn and BytesOut count application data. Truncation markers
	// repeat the total and are not counted.
	BytesIn   int
	BytesOut  int
	Truncated bool

	CloseNotifyFailed bool
	FinalState        string
	FailureReason     string
}

// Sessions returns the sessions ordered by first event.
func (s *Stats) Sessions() []*ConnectionStats {
	out := make([]*ConnectionStats, 0, len(s.Connections))
	for _, c := range s.Connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (s *Stats) add(e log.Event) {
	s.TotalEvents++
	s.EventsByCategory[e.Category]++
	if s.Start.IsZero() || e.Timestamp.Before(s.Start) {
		s.Start = e.Timestamp
	}
	if e.Timestamp.After(s.End) {
		s.End = e.Timestamp
	}

	c := s.Connections[e.ConnectionID]
	if c == nil {
		c = &ConnectionStats{ID: e.ConnectionID, FirstSeen: e.Timestamp}
		s.Connections[e.ConnectionID] = c
	}
	c.Events++
	if e.Timestamp.After(c.LastSeen) {
		c.LastSeen = e.Timestamp
	}
	if c.ServerName == "" {
		c.ServerName = e.ServerName
	}
	if c.RemoteAddr == "" {
		c.RemoteAddr = e.RemoteAddr
	}

	switch {
	case e.Record != nil:
		switch {
		case e.Record.Truncated:
			c.Truncated = true
		case e.Direction == log.DirectionIn:
			c.BytesIn += e.Record.Size
		default:
			c.BytesOut += e.Record.Size
		}
	case e.Handshake != nil:
		c.HandshakeResult = e.Handshake.Result
		c.HandshakeTime = e.Handshake.Duration
		c.Version = e.Handshake.Version
		c.CipherSuite = e.Handshake.CipherSuite
		c.VerifiedPeer = e.Handshake.VerifiedPeer
	case e.StateChange != nil:
		c.FinalState = e.StateChange.NewState
		if e.StateChange.Reason != "" {
			c.FailureReason = e.StateChange.Reason
		}
	case e.Control != nil:
		if e.Control.Type == log.ControlCloseNotify && e.Control.Failed {
			c.CloseNotifyFailed = true
		}
	case e.Error != nil:
		s.Errors++
	}
}

// CollectStats reads the log at path and summarizes it.
func CollectStats(path string) (*Stats, error) {
	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Connections:      make(map[string]*ConnectionStats),
	}
	err := log.Each(path, log.Filter{}, func(e log.Event) error {
		stats.add(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RunStats prints the summary of the log at path.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Events: %d", stats.TotalEvents)
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, " from %s to %s", stats.Start.UTC().Format(time.RFC3339), stats.End.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	for _, cat := range []log.Category{log.CategoryHandshake, log.CategoryData, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if n := stats.EventsByCategory[cat]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", cat, n)
		}
	}
	fmt.Fprintf(w, "Sessions: %d\n\n", len(stats.Connections))
	if len(stats.Connections) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSERVER\tHANDSHAKE\tVERSION\tVERIFIED\tOUT\tIN\tRESPONSE\tSTATE")
	for _, c := range stats.Sessions() {
		server := c.ServerName
		if c.RemoteAddr != "" {
			server += " (" + c.RemoteAddr + ")"
		}
		handshake := c.HandshakeResult
		if handshake != "" {
			handshake += " " + formatDuration(c.HandshakeTime)
		}
		version := "-"
		if c.Version != 0 {
			version = log.VersionName(c.Version)
		}
		response := "-"
		switch {
		case c.Truncated:
			response = "truncated"
		case c.BytesIn > 0:
			response = "complete"
		}
		state := c.FinalState
		if c.FailureReason != "" {
			state += " (" + c.FailureReason + ")"
		}
		if c.CloseNotifyFailed {
			state += ", close-notify failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%d\t%s\t%s\n",
			shortenConnID(c.ID), server, handshake, version, c.VerifiedPeer,
			c.BytesOut, c.BytesIn, response, state)
	}
	tw.Flush()

	if stats.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", stats.Errors)
	}
}
