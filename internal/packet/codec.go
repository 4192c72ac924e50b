// Package packet implements the textual wire format exchanged between nodes and the aggregator.
//
// A packet renders as
//
//	[SSS.mmm] RandomValue: R - Payload: P
//
// where SSS is whole seconds since start (at least three digits), mmm the remaining
// milliseconds (exactly three digits), R a non-negative decimal tag and P the raw payload.
// Payloads containing " - Payload: " or a newline cannot be decoded unambiguously.
package packet

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ErrMalformed is matched by every DecodeError.
var ErrMalformed = errors.New("invalid packet format")

var pattern = regexp.MustCompile(`\[(\d+)\.(\d{3})\] RandomValue: (.+) - Payload: (.+)`)

// Packet is the value a node stamps and encodes for one send.
type Packet struct {
	ElapsedMS int64
	RandomTag uint64
	Payload   string
}

// Encode renders the packet in wire format.
func (p Packet) Encode() string {
	return Encode(p.ElapsedMS, p.RandomTag, p.Payload)
}

// Encode renders a packet stamped elapsedMS milliseconds after start.
func Encode(elapsedMS int64, tag uint64, payload string) string {
	return fmt.Sprintf("[%03d.%03d] RandomValue: %d - Payload: %s",
		elapsedMS/1000, elapsedMS%1000, tag, payload)
}

// Decoded is the result of parsing a packet. The tag is kept as the decimal text
// found on the wire.
type Decoded struct {
	ElapsedMS int64
	RandomTag string
	Payload   string
}

// Tag parses RandomTag as an unsigned integer.
func (d Decoded) Tag() (uint64, error) {
	return strconv.ParseUint(d.RandomTag, 10, 64)
}

// DecodeError reports text that does not match the wire format.
type DecodeError struct {
	Text string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %q: %v", ErrMalformed, e.Text, e.Err)
	}
	return fmt.Sprintf("%v %q", ErrMalformed, e.Text)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformed }

// Decode parses a packet. It never panics; malformed input yields a *DecodeError
// carrying the raw text.
func Decode(text string) (Decoded, error) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return Decoded{}, &DecodeError{Text: text}
	}
	secs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Decoded{}, &DecodeError{Text: text, Err: err}
	}
	if secs > math.MaxInt64/1000 {
		return Decoded{}, &DecodeError{Text: text}
	}
	millis, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Decoded{}, &DecodeError{Text: text, Err: err}
	}
	return Decoded{
		ElapsedMS: secs*1000 + millis,
		RandomTag: m[3],
		Payload:   m[4],
	}, nil
}

// FormatElapsed renders milliseconds as "S.mmm" for log lines.
func FormatElapsed(ms int64) string {
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// Magnitude returns |v| as an unsigned value, including math.MinInt64.
func Magnitude(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}
