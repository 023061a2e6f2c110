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

// Package msgpack is a format driver over the MessagePack wire format.
//
// Conventions: a struct is a map with string keys, an absent optional is
// nil and a present one the bare value, a unit variant is its name as a
// string, a payload variant a two-element array of the name and the
// payload, with a nested array for several values (or a single array or
// map value) and a map for named fields. A variant without a name uses
// its numeric tag instead. Sequence
// and mapping lengths must be declared up front; MessagePack headers carry
// the count.
package msgpack

import (
	"github.com/ikerlin/serde"
)

// Marshal encodes v into MessagePack bytes.
func Marshal(v serde.Marshaler) ([]byte, error) {
	w := NewWriter()
	if err := serde.Marshal(v, w); err != nil {
		return nil, err
	}
	return w.Bytes()
}

// Unmarshal decodes MessagePack bytes into v.
func Unmarshal(data []byte, v serde.Unmarshaler, opts ...serde.Option) error {
	return serde.Unmarshal(NewReader(data), v, opts...)
}

// Codec implements serde.Codec for MessagePack.
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
