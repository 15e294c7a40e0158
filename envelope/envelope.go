/*
 *	nativebridge connects embedded web content to a native host.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package envelope

import (
	"bytes"
	"errors"
	"fmt"

	"go.arsenm.dev/nativebridge/codec"
)

// MaxSize is the largest encoded envelope that is guaranteed
// to be accepted. Transports carry a single string message,
// not a stream.
const MaxSize = 256 * 1024

// Reserved wire keys, which may not be used as payload fields
const (
	keyType = "type"
	keyID   = "id"
)

// ErrReservedKey is returned when a payload uses a reserved key
var ErrReservedKey = errors.New("payload uses reserved key")

// ErrTooLarge is returned by Encode when the encoded envelope exceeds MaxSize
var ErrTooLarge = errors.New("envelope exceeds maximum size")

// Payload holds the type-specific fields of an envelope
type Payload map[string]any

// String returns the string stored at key, or "" if
// there is none or it isn't a string
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Envelope is the only unit that crosses the bridge
type Envelope struct {
	// ID is the correlation id. It is set on requests expecting a
	// reply and echoed on that reply. It is empty on fire-and-forget
	// requests and unsolicited events.
	ID      string
	Type    string
	Payload Payload
}

// Encode encodes a message without a correlation id
func Encode(typ string, payload Payload) (string, error) {
	return Envelope{Type: typ, Payload: payload}.Encode()
}

// Encode encodes the envelope to its flat JSON wire form:
// {"type": ..., "id": ..., ...payload}
func (e Envelope) Encode() (string, error) {
	if !Known(e.Type) {
		return "", fmt.Errorf("encode %q: %w", e.Type, &ParseError{Kind: UnknownType, Type: e.Type})
	}

	wire := make(map[string]any, len(e.Payload)+2)
	for k, v := range e.Payload {
		if k == keyType || k == keyID {
			return "", fmt.Errorf("encode %s: %w: %q", e.Type, ErrReservedKey, k)
		}
		wire[k] = v
	}
	wire[keyType] = e.Type
	if e.ID != "" {
		wire[keyID] = e.ID
	}

	data, err := codec.Default.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", e.Type, err)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("encode %s: %w (%d bytes)", e.Type, ErrTooLarge, len(data))
	}
	return string(data), nil
}

// Decode decodes a raw message into an envelope. It never panics;
// malformed input yields a *ParseError so callers can tell foreign
// text apart from a broken envelope.
func Decode(raw string) (Envelope, error) {
	if len(raw) > MaxSize {
		return Envelope{}, &ParseError{Kind: TooLarge, Size: len(raw)}
	}

	// Anything that isn't a JSON object can't be one of ours
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, &ParseError{Kind: NotEnvelope}
	}

	var wire map[string]any
	if err := codec.Default.Unmarshal(trimmed, &wire); err != nil {
		return Envelope{}, &ParseError{Kind: NotEnvelope, Err: err}
	}

	typ, ok := wire[keyType].(string)
	if !ok || typ == "" {
		return Envelope{}, &ParseError{Kind: MissingType}
	}
	if !Known(typ) {
		return Envelope{}, &ParseError{Kind: UnknownType, Type: typ}
	}

	env := Envelope{Type: typ, Payload: Payload{}}
	if id, ok := wire[keyID].(string); ok {
		env.ID = id
	}
	for k, v := range wire {
		if k == keyType || k == keyID {
			continue
		}
		env.Payload[k] = v
	}
	return env, nil
}

// ParseErrorKind tells why a message could not be decoded
type ParseErrorKind uint8

const (
	// NotEnvelope means the message isn't a JSON object at all,
	// such as console output sharing the channel
	NotEnvelope ParseErrorKind = iota + 1
	// MissingType means the message is an object without a type
	MissingType
	// UnknownType means the type is not in the message table
	UnknownType
	// TooLarge means the message exceeds MaxSize
	TooLarge
)

func (k ParseErrorKind) String() string {
	switch k {
	case NotEnvelope:
		return "not an envelope"
	case MissingType:
		return "missing type"
	case UnknownType:
		return "unknown type"
	case TooLarge:
		return "too large"
	default:
		return "invalid"
	}
}

// ParseError is returned when a message can't be decoded
type ParseError struct {
	Kind ParseErrorKind
	Type string
	Size int
	Err  error
}

func (e *ParseError) Error() string {
	switch {
	case e.Kind == UnknownType:
		return fmt.Sprintf("envelope: %s %q", e.Kind, e.Type)
	case e.Kind == TooLarge:
		return fmt.Sprintf("envelope: %s (%d bytes, max %d)", e.Kind, e.Size, MaxSize)
	case e.Err != nil:
		return fmt.Sprintf("envelope: %s: %v", e.Kind, e.Err)
	default:
		return "envelope: " + e.Kind.String()
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a *ParseError of the given kind
func IsParseError(err error, kind ParseErrorKind) bool {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == kind
}
