package log

import "time"

// Event is one protocol log entry. Exactly one of the payload pointers is
// set, matching Category. Keys 1-9 are common to every event; 10 and up
// hold the payloads. Keys are never reused.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"`
	ConnectionID string    `cbor:"2,keyasint"` // session UUID
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`
	RemoteAddr   string    `cbor:"6,keyasint,omitempty"`
	ServerName   string    `cbor:"7,keyasint,omitempty"`

	Record      *RecordEvent      `cbor:"10,keyasint,omitempty"`
	Handshake   *HandshakeEvent   `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Control     *ControlEvent     `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction is relative to the local endpoint: In is peer to us.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
)

var directionNames = [...]string{"IN", "OUT"}

func (d Direction) String() string { return enumName(directionNames[:], int(d)) }

// Layer is where in the stack the event was observed.
type Layer uint8

const (
	LayerTransport Layer = iota // raw byte stream
	LayerRecord                 // TLS records: handshake and pump
	LayerSession                // lifecycle
)

var layerNames = [...]string{"TRANSPORT", "RECORD", "SESSION"}

func (l Layer) String() string { return enumName(layerNames[:], int(l)) }

// Category selects which payload an Event carries.
type Category uint8

const (
	CategoryData      Category = iota // Record
	CategoryControl                   // Control
	CategoryState                     // StateChange
	CategoryError                     // Error
	CategoryHandshake                 // Handshake
)

var categoryNames = [...]string{"DATA", "CONTROL", "STATE", "ERROR", "HANDSHAKE"}

func (c Category) String() string { return enumName(categoryNames[:], int(c)) }

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "UNKNOWN"
	}
	return names[i]
}

// RecordEvent is one application data write or read.
type RecordEvent struct {
	Size      int  `cbor:"1,keyasint"`
	Requested int  `cbor:"2,keyasint,omitempty"` // write length or read window
	Truncated bool `cbor:"3,keyasint,omitempty"` // read reached response capacity
}

// HandshakeEvent is logged once per handshake, on success or failure.
// The negotiated fields are zero when the handshake failed.
type HandshakeEvent struct {
	Result       string        `cbor:"1,keyasint"` // ESTABLISHED or FAILED
	Version      uint16        `cbor:"2,keyasint,omitempty"`
	CipherSuite  uint16        `cbor:"3,keyasint,omitempty"`
	VerifiedPeer bool          `cbor:"4,keyasint,omitempty"`
	Steps        int           `cbor:"5,keyasint,omitempty"`
	Duration     time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent records a session lifecycle transition. OldState is
// empty for the first transition of a session.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint,omitempty"`
	NewState string `cbor:"2,keyasint"`
	Reason   string `cbor:"3,keyasint,omitempty"`
}

type ControlEvent struct {
	Type   ControlType `cbor:"1,keyasint"`
	Failed bool        `cbor:"2,keyasint,omitempty"`
}

type ControlType uint8

const ControlCloseNotify ControlType = 0

func (c ControlType) String() string {
	if c == ControlCloseNotify {
		return "CLOSE_NOTIFY"
	}
	return "UNKNOWN"
}

// ErrorEventData describes a classified session error. Kind is the
// session.Kind name, Context the operation that failed.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Kind    string `cbor:"2,keyasint,omitempty"`
	Message string `cbor:"3,keyasint"`
	Context string `cbor:"4,keyasint,omitempty"`
}
