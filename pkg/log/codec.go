package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// A .tlog file is one header item followed by a stream of CBOR events.
const (
	FileMagic     = "TLOG"
	FormatVersion = 1
)

var (
	ErrNotLogFile        = errors.New("not a protocol log")
	ErrUnsupportedFormat = errors.New("unsupported protocol log format")
	ErrTruncatedLog      = errors.New("protocol log ends mid-event")
)

type fileHeader struct {
	Magic   string    `cbor:"1,keyasint"`
	Version uint8     `cbor:"2,keyasint"`
	Created time.Time `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol log encoder: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol log decoder: %v", err))
	}
}

// EncodeEvent encodes one event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

func writeHeader(w io.Writer) error {
	return encMode.NewEncoder(w).Encode(fileHeader{
		Magic:   FileMagic,
		Version: FormatVersion,
		Created: time.Now().UTC(),
	})
}

// readHeader consumes the file header. It reports empty for a zero-length
// stream.
func readHeader(dec *cbor.Decoder) (empty bool, err error) {
	var h fileHeader
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, fmt.Errorf("%w: %w", ErrNotLogFile, err)
	}
	if h.Magic != FileMagic {
		return false, ErrNotLogFile
	}
	if h.Version != FormatVersion {
		return false, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, h.Version)
	}
	return false, nil
}
