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

package codec

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is able to encode and decode values to/from bytes
type Codec interface {
	Marshal(val any) ([]byte, error)
	Unmarshal(data []byte, val any) error
}

// Default is the codec used on the wire. Envelopes are always
// JSON so that web content can parse them without extra libraries.
var Default Codec = JSON

// JSON is a Codec that encodes values as JSON. Numbers are decoded
// as float64 when the destination is an interface.
var JSON Codec = jsonCodec{}

// Msgpack is a Codec that encodes values as msgpack. It is used for
// host-side persistence where compactness matters more than readability.
var Msgpack Codec = msgpackCodec{}

type jsonCodec struct{}

func (jsonCodec) Marshal(val any) ([]byte, error) {
	return json.Marshal(val)
}

func (jsonCodec) Unmarshal(data []byte, val any) error {
	return json.Unmarshal(data, val)
}

type msgpackCodec struct{}

func (msgpackCodec) Marshal(val any) ([]byte, error) {
	return msgpack.Marshal(val)
}

func (msgpackCodec) Unmarshal(data []byte, val any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	// Decode integers as int64/uint64 instead of the
	// smallest type that fits, so maps read back predictably
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(val)
}
