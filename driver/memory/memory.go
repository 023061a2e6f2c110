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

// Package memory is the reference format driver: it produces and consumes
// the intermediate value model directly, with no byte syntax. It is
// lossless for every value shape, which makes it the round-trip baseline
// for testing other drivers and the middle step when converting between
// two byte formats.
package memory

import (
	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/value"
)

// Marshal converts a typed value to its intermediate representation.
func Marshal(v serde.Marshaler) (value.Value, error) {
	b := NewBuilder()
	if err := serde.Marshal(v, b); err != nil {
		return value.Value{}, err
	}
	return b.Result()
}

// Unmarshal reconstructs a typed value from its intermediate
// representation.
func Unmarshal(src value.Value, v serde.Unmarshaler, opts ...serde.Option) error {
	return serde.Unmarshal(NewReader(src), v, opts...)
}

func eventKind(k value.Kind) serde.EventKind {
	switch k {
	case value.KindUnit:
		return serde.EventUnit
	case value.KindBool:
		return serde.EventBool
	case value.KindInt:
		return serde.EventInt
	case value.KindFloat:
		return serde.EventFloat
	case value.KindText:
		return serde.EventText
	case value.KindBytes:
		return serde.EventBytes
	case value.KindNil:
		return serde.EventNil
	case value.KindSome:
		return serde.EventSome
	case value.KindSequence:
		return serde.EventSequence
	case value.KindMapping:
		return serde.EventMapping
	case value.KindStruct:
		return serde.EventStruct
	case value.KindVariant:
		return serde.EventVariant
	}
	return serde.EventEnd
}
