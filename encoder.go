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

package serde

import (
	"math"

	"github.com/pingcap/errors"
)

// Encoder drives the serialization walk of one value against a single
// format driver. Scalar methods forward one emission; composite helpers
// guarantee a matched Begin/End pair around their callback. An Encoder is
// not safe for concurrent use and must not outlive the Marshal call that
// created it.
type Encoder struct {
	emitter Emitter
}

// NewEncoder wraps a format driver's emit side.
func NewEncoder(e Emitter) *Encoder {
	return &Encoder{emitter: e}
}

// Emitter returns the wrapped driver for walks that need raw access, for
// example to stream a sequence of unknown length.
func (e *Encoder) Emitter() Emitter {
	return e.emitter
}

// Unit emits the unit value.
func (e *Encoder) Unit() error { return e.emitter.EmitUnit() }

// Bool emits a boolean.
func (e *Encoder) Bool(v bool) error { return e.emitter.EmitBool(v) }

// Int emits a signed integer.
func (e *Encoder) Int(v int64) error { return e.emitter.EmitInt(v) }

// Uint emits an unsigned integer through the signed 64-bit event carrier.
func (e *Encoder) Uint(v uint64) error {
	if v > math.MaxInt64 {
		return errors.Annotatef(ErrInvalidPrimitive, "uint %d exceeds the signed 64-bit event range", v)
	}
	return e.emitter.EmitInt(int64(v))
}

// Float emits a 64-bit float.
func (e *Encoder) Float(v float64) error { return e.emitter.EmitFloat(v) }

// Text emits a string.
func (e *Encoder) Text(v string) error { return e.emitter.EmitText(v) }

// Bytes emits an opaque byte sequence.
func (e *Encoder) Bytes(v []byte) error { return e.emitter.EmitBytes(v) }

// Nil emits the distinguished optional-absent event. The slot is emitted,
// not omitted, so fixed-width formats can still frame it.
func (e *Encoder) Nil() error { return e.emitter.EmitNil() }

// Some emits a present optional wrapping the value fn describes.
func (e *Encoder) Some(fn func(e *Encoder) error) error {
	if err := e.emitter.BeginSome(); err != nil {
		return err
	}
	if err := fn(e); err != nil {
		return err
	}
	return e.emitter.EndSome()
}

// Sequence emits n elements, calling fn once per index. An empty sequence
// still emits the matched Begin/End pair.
func (e *Encoder) Sequence(n int, fn func(e *Encoder, i int) error) error {
	if err := e.emitter.BeginSequence(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(e, i); err != nil {
			return err
		}
	}
	return e.emitter.EndSequence()
}

// Mapping emits n entries; fn emits one key followed by one value per call.
func (e *Encoder) Mapping(n int, fn func(e *Encoder, i int) error) error {
	if err := e.emitter.BeginMapping(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(e, i); err != nil {
			return err
		}
	}
	return e.emitter.EndMapping()
}

// Struct emits a named structure with a fixed field count; fn emits the
// fields through Field in declaration order.
func (e *Encoder) Struct(name string, fields int, fn func(e *Encoder) error) error {
	if err := e.emitter.BeginStruct(name, fields); err != nil {
		return err
	}
	if err := fn(e); err != nil {
		return err
	}
	return e.emitter.EndStruct()
}

// Field emits one struct field: its name, then the value fn describes.
func (e *Encoder) Field(name string, fn func(e *Encoder) error) error {
	if err := e.emitter.FieldName(name); err != nil {
		return err
	}
	return fn(e)
}

// Variant emits an enum variant. name may be "" when only the numeric tag
// identifies the variant, tag may be -1 when only the name does. fn emits
// the payload and may be nil for a unit variant; tuple payloads emit their
// values back to back, named payloads emit Field calls.
func (e *Encoder) Variant(enum, name string, tag int, fn func(e *Encoder) error) error {
	if err := e.emitter.BeginVariant(enum, name, tag); err != nil {
		return err
	}
	if fn != nil {
		if err := fn(e); err != nil {
			return err
		}
	}
	return e.emitter.EndVariant()
}
