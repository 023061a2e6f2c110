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

package msgpack

import (
	"bytes"
	"io"
	"math"

	"github.com/pingcap/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/ikerlin/serde"
)

// readFrame tracks one open composite on the consume side. remaining
// counts values still to read; for named frames it counts pairs and
// pending marks a field name consumed with its value still owed.
type readFrame struct {
	kind      serde.EventKind
	remaining int
	named     bool
	pending   bool
}

// Reader is a serde.Source over MessagePack bytes.
type Reader struct {
	dec    *msgpack.Decoder
	frames []*readFrame
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{dec: msgpack.NewDecoder(bytes.NewReader(data))}
}

// wire translates decoder failures, mapping short reads to ErrTruncated.
func wire(err error) error {
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Annotate(serde.ErrTruncated, "event stream exhausted")
	}
	return err
}

func (r *Reader) top() *readFrame {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// consumed books one complete value against the enclosing frame.
func (r *Reader) consumed() {
	top := r.top()
	if top == nil {
		return
	}
	top.remaining--
	top.pending = false
}

func (r *Reader) push(f *readFrame) {
	r.frames = append(r.frames, f)
}

func (r *Reader) pop(kind serde.EventKind) error {
	top := r.top()
	if top == nil {
		return errors.Annotatef(serde.ErrShapeMismatch, "%s closed with nothing open", kind)
	}
	if top.kind != kind {
		return errors.Annotatef(serde.ErrShapeMismatch, "closing %s inside %s", kind, top.kind)
	}
	if top.remaining > 0 {
		return errors.Annotatef(serde.ErrShapeMismatch, "%s closed with %d entries unread", kind, top.remaining)
	}
	r.frames = r.frames[:len(r.frames)-1]
	return nil
}

// PeekKind implements serde.Source. MessagePack does not mark variants:
// arrays report EventSequence, maps EventMapping and strings EventText,
// and targets that expect a variant or struct read through the wider kind.
func (r *Reader) PeekKind() (serde.EventKind, error) {
	if top := r.top(); top != nil {
		if top.remaining <= 0 {
			return serde.EventEnd, nil
		}
		if top.named && !top.pending {
			return serde.EventField, nil
		}
	}
	c, err := r.dec.PeekCode()
	if err != nil {
		return 0, wire(err)
	}
	switch {
	case c == msgpcode.Nil:
		return serde.EventNil, nil
	case c == msgpcode.True, c == msgpcode.False:
		return serde.EventBool, nil
	case msgpcode.IsFixedNum(c),
		c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32, c == msgpcode.Uint64,
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		return serde.EventInt, nil
	case c == msgpcode.Float, c == msgpcode.Double:
		return serde.EventFloat, nil
	case msgpcode.IsString(c):
		return serde.EventText, nil
	case msgpcode.IsBin(c):
		return serde.EventBytes, nil
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		return serde.EventSequence, nil
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		return serde.EventMapping, nil
	default:
		return 0, errors.Annotatef(serde.ErrInvalidPrimitive, "unhandled code %#x", c)
	}
}

// ReadUnit implements serde.Source. Unit is nil on the wire.
func (r *Reader) ReadUnit() error {
	return r.ReadNil()
}

// ReadBool implements serde.Source.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.dec.DecodeBool()
	if err != nil {
		return false, wire(err)
	}
	r.consumed()
	return v, nil
}

// ReadInt implements serde.Source.
func (r *Reader) ReadInt() (int64, error) {
	c, err := r.dec.PeekCode()
	if err != nil {
		return 0, wire(err)
	}
	if c == msgpcode.Uint64 {
		u, err := r.dec.DecodeUint64()
		if err != nil {
			return 0, wire(err)
		}
		if u > math.MaxInt64 {
			return 0, errors.Annotatef(serde.ErrInvalidPrimitive, "%d overflows int64", u)
		}
		r.consumed()
		return int64(u), nil
	}
	v, err := r.dec.DecodeInt64()
	if err != nil {
		return 0, wire(err)
	}
	r.consumed()
	return v, nil
}

// ReadFloat implements serde.Source.
func (r *Reader) ReadFloat() (float64, error) {
	v, err := r.dec.DecodeFloat64()
	if err != nil {
		return 0, wire(err)
	}
	r.consumed()
	return v, nil
}

// ReadText implements serde.Source.
func (r *Reader) ReadText() (string, error) {
	v, err := r.dec.DecodeString()
	if err != nil {
		return "", wire(err)
	}
	r.consumed()
	return v, nil
}

// ReadBytes implements serde.Source. Strings are accepted too; writers
// that predate the bin family encode bytes as strings.
func (r *Reader) ReadBytes() ([]byte, error) {
	v, err := r.dec.DecodeBytes()
	if err != nil {
		return nil, wire(err)
	}
	r.consumed()
	return v, nil
}

// ReadNil implements serde.Source.
func (r *Reader) ReadNil() error {
	if err := r.dec.DecodeNil(); err != nil {
		return wire(err)
	}
	r.consumed()
	return nil
}

// BeginSome implements serde.Source. A present optional is the bare value
// here, so this side of the frame never matches.
func (r *Reader) BeginSome() error {
	return errors.Annotate(serde.ErrShapeMismatch, "optionals are not framed in this format")
}

// EndSome implements serde.Source.
func (r *Reader) EndSome() error {
	return errors.Annotate(serde.ErrShapeMismatch, "optionals are not framed in this format")
}

// BeginSequence implements serde.Source.
func (r *Reader) BeginSequence() (int, error) {
	n, err := r.dec.DecodeArrayLen()
	if err != nil {
		return 0, wire(err)
	}
	if n < 0 {
		return 0, errors.Annotate(serde.ErrShapeMismatch, "expected array, found nil")
	}
	r.consumed()
	r.push(&readFrame{kind: serde.EventSequence, remaining: n})
	return n, nil
}

// EndSequence implements serde.Source.
func (r *Reader) EndSequence() error {
	return r.pop(serde.EventSequence)
}

// BeginMapping implements serde.Source.
func (r *Reader) BeginMapping() (int, error) {
	n, err := r.dec.DecodeMapLen()
	if err != nil {
		return 0, wire(err)
	}
	if n < 0 {
		return 0, errors.Annotate(serde.ErrShapeMismatch, "expected map, found nil")
	}
	r.consumed()
	r.push(&readFrame{kind: serde.EventMapping, remaining: 2 * n})
	return n, nil
}

// EndMapping implements serde.Source.
func (r *Reader) EndMapping() error {
	return r.pop(serde.EventMapping)
}

// BeginStruct implements serde.Source. Structs are maps with string keys;
// the name is not encoded and goes unchecked.
func (r *Reader) BeginStruct(name string) (int, error) {
	n, err := r.dec.DecodeMapLen()
	if err != nil {
		return 0, wire(err)
	}
	if n < 0 {
		return 0, errors.Annotate(serde.ErrShapeMismatch, "expected map, found nil")
	}
	r.consumed()
	r.push(&readFrame{kind: serde.EventStruct, remaining: n, named: true})
	return n, nil
}

// FieldName implements serde.Source.
func (r *Reader) FieldName() (string, error) {
	top := r.top()
	if top == nil || !top.named {
		return "", errors.Annotate(serde.ErrShapeMismatch, "field name outside a named composite")
	}
	if top.remaining <= 0 {
		return "", errors.Annotate(serde.ErrShapeMismatch, "field name past the last entry")
	}
	if top.pending {
		return "", errors.Annotate(serde.ErrShapeMismatch, "field name while a value is owed")
	}
	name, err := r.dec.DecodeString()
	if err != nil {
		return "", wire(err)
	}
	top.pending = true
	return name, nil
}

// EndStruct implements serde.Source.
func (r *Reader) EndStruct() error {
	return r.pop(serde.EventStruct)
}

// BeginVariant implements serde.Source. A bare string or integer is a
// unit variant; a two-element array carries the payload, nested array for
// several values (or a single array or map value) and map for named
// fields.
func (r *Reader) BeginVariant(enum string) (string, int, error) {
	c, err := r.dec.PeekCode()
	if err != nil {
		return "", -1, wire(err)
	}
	switch {
	case msgpcode.IsString(c):
		name, err := r.dec.DecodeString()
		if err != nil {
			return "", -1, wire(err)
		}
		r.consumed()
		r.push(&readFrame{kind: serde.EventVariant})
		return name, -1, nil
	case msgpcode.IsFixedNum(c),
		c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32, c == msgpcode.Uint64,
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		tag, err := r.decodeTag()
		if err != nil {
			return "", -1, err
		}
		r.consumed()
		r.push(&readFrame{kind: serde.EventVariant})
		return "", tag, nil
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		return r.beginVariantArray(enum)
	default:
		return "", -1, errors.Annotatef(serde.ErrShapeMismatch, "expected variant of %s, found code %#x", enum, c)
	}
}

func (r *Reader) beginVariantArray(enum string) (string, int, error) {
	arity, err := r.dec.DecodeArrayLen()
	if err != nil {
		return "", -1, wire(err)
	}
	if arity == 0 {
		return "", -1, errors.Annotatef(serde.ErrShapeMismatch, "empty array is not a variant of %s", enum)
	}
	r.consumed()

	name, tag := "", -1
	c, err := r.dec.PeekCode()
	if err != nil {
		return "", -1, wire(err)
	}
	if msgpcode.IsString(c) {
		name, err = r.dec.DecodeString()
		if err != nil {
			return "", -1, wire(err)
		}
	} else {
		tag, err = r.decodeTag()
		if err != nil {
			return "", -1, err
		}
	}

	frame := &readFrame{kind: serde.EventVariant}
	switch {
	case arity == 1:
		// unit variant in array form
	case arity == 2:
		c, err := r.dec.PeekCode()
		if err != nil {
			return "", -1, wire(err)
		}
		switch {
		case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
			n, err := r.dec.DecodeArrayLen()
			if err != nil {
				return "", -1, wire(err)
			}
			frame.remaining = n
		case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
			n, err := r.dec.DecodeMapLen()
			if err != nil {
				return "", -1, wire(err)
			}
			frame.remaining = n
			frame.named = true
		default:
			frame.remaining = 1
		}
	default:
		frame.remaining = arity - 1
	}
	r.push(frame)
	return name, tag, nil
}

func (r *Reader) decodeTag() (int, error) {
	v, err := r.dec.DecodeInt64()
	if err != nil {
		return -1, wire(err)
	}
	if v < 0 || v > math.MaxInt32 {
		return -1, errors.Annotatef(serde.ErrInvalidPrimitive, "variant tag %d out of range", v)
	}
	return int(v), nil
}

// EndVariant implements serde.Source.
func (r *Reader) EndVariant() error {
	return r.pop(serde.EventVariant)
}

// Skip implements serde.Source using the decoder's native skip. At a
// field position both the key and its value are discarded.
func (r *Reader) Skip() error {
	if top := r.top(); top != nil && top.named && !top.pending {
		if err := r.dec.Skip(); err != nil {
			return wire(err)
		}
	}
	if err := r.dec.Skip(); err != nil {
		return wire(err)
	}
	r.consumed()
	return nil
}
