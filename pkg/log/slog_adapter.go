package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors protocol events into an slog.Logger at debug level,
// so -log-level debug shows them next to the application log.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	a.logger.LogAttrs(ctx, slog.LevelDebug, "protocol event", Attrs(event)...)
}

// Attrs flattens an event into slog attributes. Only the attributes of the
// payload that is set are included.
func Attrs(event Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.ServerName != "" {
		attrs = append(attrs, slog.String("server_name", event.ServerName))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	switch {
	case event.Record != nil:
		attrs = append(attrs,
			slog.Int("size", event.Record.Size),
			slog.Int("requested", event.Record.Requested),
			slog.Bool("truncated", event.Record.Truncated),
		)
	case event.Handshake != nil:
		attrs = append(attrs,
			slog.String("result", event.Handshake.Result),
			slog.Int("steps", event.Handshake.Steps),
			slog.Duration("duration", event.Handshake.Duration),
		)
		if event.Handshake.Version != 0 {
			attrs = append(attrs,
				slog.String("version", VersionName(event.Handshake.Version)),
				slog.String("cipher_suite", CipherSuiteName(event.Handshake.CipherSuite)),
				slog.Bool("verified_peer", event.Handshake.VerifiedPeer),
			)
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Control != nil:
		attrs = append(attrs,
			slog.String("ctrl_type", event.Control.Type.String()),
			slog.Bool("failed", event.Control.Failed),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_kind", event.Error.Kind),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
