// Copyright (c) serde Authors. All Rights Reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package etf is a format driver for the Erlang external term format, the
// binary interchange format of the BEAM runtimes. A value serialized here
// can be handed to Erlang or Elixir with no boilerplate on the other side.
//
// Conventions: booleans are the atoms true/false, unit and an absent
// optional are the atom nil, a present optional is the bare value, a
// struct is a map with atom keys, a unit variant is an atom and a payload
// variant a {name, payload} tuple; a tuple or map payload stays wrapped
// in the {name, {payload}} form. ETF does not separate text from opaque
// bytes (both are binaries) nor structs from mappings (both are maps);
// PeekKind reports the wider kind and targets that know their shape read
// through it. Variant tags are not encoded unless the variant has no name.
package etf

import (
	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
)

// Term tags of the external term format, version 131.
const (
	formatVersion     = 131
	tagNewFloat       = 70
	tagSmallInteger   = 97
	tagInteger        = 98
	tagAtomDeprecated = 100
	tagSmallTuple     = 104
	tagLargeTuple     = 105
	tagNil            = 106
	tagList           = 108
	tagBinary         = 109
	tagSmallBig       = 110
	tagLargeBig       = 111
	tagMap            = 116
	tagAtomUTF8       = 118
	tagSmallAtomUTF8  = 119
)

// Driver-specific failures, passed through the contract unchanged.
var (
	ErrBadVersion  = errors.New("etf: unsupported format version")
	ErrBadTag      = errors.New("etf: unexpected term tag")
	ErrAtomTooLong = errors.New("etf: atom longer than 255 bytes")
)

// Marshal encodes v into external term format bytes.
func Marshal(v serde.Marshaler) ([]byte, error) {
	w := NewWriter()
	if err := serde.Marshal(v, w); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// Unmarshal decodes external term format bytes into v.
func Unmarshal(data []byte, v serde.Unmarshaler, opts ...serde.Option) error {
	return serde.Unmarshal(NewReader(data), v, opts...)
}

// Codec implements serde.Codec for the external term format.
type Codec struct {
	opts []serde.Option
}

// NewCodec returns a Codec applying the given options to every Unmarshal.
func NewCodec(opts ...serde.Option) *Codec {
	return &Codec{opts: opts}
}

// Marshal implements serde.Codec.
func (c *Codec) Marshal(v serde.Marshaler) ([]byte, error) {
	return Marshal(v)
}

// Unmarshal implements serde.Codec.
func (c *Codec) Unmarshal(data []byte, v serde.Unmarshaler) error {
	return Unmarshal(data, v, c.opts...)
}
