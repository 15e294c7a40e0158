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

package payload

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"go.arsenm.dev/nativebridge/envelope"
)

// Decode converts an envelope payload into the struct pointed at by out.
// Wire keys are matched against json tags. Input is weakly typed, since
// numbers arrive as float64 from JSON and strings may carry numbers.
func Decode(in envelope.Payload, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		// Strings destined for types like time.Time or
		// net.IP are decoded with their text unmarshaler
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return err
	}

	if in == nil {
		in = envelope.Payload{}
	}

	if err := dec.Decode(map[string]any(in)); err != nil {
		return fmt.Errorf("decode payload into %T: %w", out, err)
	}
	return nil
}

// From converts a typed payload struct into an envelope payload.
// Fields tagged omitempty are left out when empty.
func From(in any) (envelope.Payload, error) {
	if in == nil {
		return envelope.Payload{}, nil
	}
	if p, ok := in.(envelope.Payload); ok {
		return p, nil
	}

	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("encode payload from %T: %w", in, err)
	}
	return envelope.Payload(out), nil
}
