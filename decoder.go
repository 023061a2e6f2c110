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
	"fmt"
	"math"

	"github.com/pingcap/errors"
)

// Decoder drives the deserialization walk of one value from a single
// format driver. It carries the per-call configuration (unknown-field
// policy, depth bound) so nested reconstruction inherits it. A Decoder is
// not safe for concurrent use and must not outlive the Unmarshal call
// that created it.
type Decoder struct {
	src   Source
	opts  options
	depth int
}

// NewDecoder wraps a format driver's consume side. The unknown-field
// policy defaults to StrictFields.
func NewDecoder(src Source, opts ...Option) *Decoder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder{src: src, opts: o}
}

// Source returns the wrapped driver for walks that need raw access.
func (d *Decoder) Source() Source {
	return d.src
}

// Policy returns the unknown-field policy of this conversion.
func (d *Decoder) Policy() FieldPolicy {
	return d.opts.policy
}

// Kind reports the kind of the next event without consuming it.
func (d *Decoder) Kind() (EventKind, error) {
	return d.src.PeekKind()
}

func (d *Decoder) push() error {
	d.depth++
	if d.depth > d.opts.maxDepth {
		return errors.Annotatef(ErrShapeMismatch, "nesting exceeds %d levels", d.opts.maxDepth)
	}
	return nil
}

func (d *Decoder) pop() {
	d.depth--
}

// Unit consumes the unit value.
func (d *Decoder) Unit() error { return d.src.ReadUnit() }

// Bool consumes a boolean.
func (d *Decoder) Bool() (bool, error) { return d.src.ReadBool() }

// Int consumes a signed 64-bit integer.
func (d *Decoder) Int() (int64, error) { return d.src.ReadInt() }

// Int8 consumes an integer that must fit in 8 signed bits.
func (d *Decoder) Int8() (int8, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt8 || v > math.MaxInt8 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d overflows int8", v)
	}
	return int8(v), nil
}

// Int16 consumes an integer that must fit in 16 signed bits.
func (d *Decoder) Int16() (int16, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d overflows int16", v)
	}
	return int16(v), nil
}

// Int32 consumes an integer that must fit in 32 signed bits.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d overflows int32", v)
	}
	return int32(v), nil
}

// Uint8 consumes an integer that must fit in 8 unsigned bits.
func (d *Decoder) Uint8() (uint8, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint8 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d overflows uint8", v)
	}
	return uint8(v), nil
}

// Uint16 consumes an integer that must fit in 16 unsigned bits.
func (d *Decoder) Uint16() (uint16, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint16 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d overflows uint16", v)
	}
	return uint16(v), nil
}

// Uint32 consumes an integer that must fit in 32 unsigned bits.
func (d *Decoder) Uint32() (uint32, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxUint32 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d overflows uint32", v)
	}
	return uint32(v), nil
}

// Uint64 consumes a non-negative integer.
func (d *Decoder) Uint64() (uint64, error) {
	v, err := d.src.ReadInt()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "integer %d is negative", v)
	}
	return uint64(v), nil
}

// Float consumes a 64-bit float.
func (d *Decoder) Float() (float64, error) { return d.src.ReadFloat() }

// Float32 consumes a float that must fit in 32 bits. Infinities and NaN
// are representable and pass through.
func (d *Decoder) Float32() (float32, error) {
	v, err := d.src.ReadFloat()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
		return 0, errors.Annotatef(ErrInvalidPrimitive, "float %g overflows float32", v)
	}
	return float32(v), nil
}

// Text consumes a string.
func (d *Decoder) Text() (string, error) { return d.src.ReadText() }

// Bytes consumes an opaque byte sequence.
func (d *Decoder) Bytes() ([]byte, error) { return d.src.ReadBytes() }

// Nil consumes the optional-absent event.
func (d *Decoder) Nil() error { return d.src.ReadNil() }

// Optional consumes one optional slot. It reports false after consuming an
// absent marker; otherwise it calls fn to read the present value and
// reports true. Both the explicit Some framing and the collapsed framing
// (formats that encode a present optional as the bare value) are accepted.
func (d *Decoder) Optional(fn func(d *Decoder) error) (bool, error) {
	kind, err := d.src.PeekKind()
	if err != nil {
		return false, err
	}
	switch kind {
	case EventNil:
		return false, d.src.ReadNil()
	case EventSome:
		if err := d.src.BeginSome(); err != nil {
			return false, err
		}
		if err := d.push(); err != nil {
			return false, err
		}
		if err := fn(d); err != nil {
			return true, err
		}
		d.pop()
		return true, d.src.EndSome()
	default:
		return true, fn(d)
	}
}

// Sequence consumes one sequence, calling fn once per element with its
// index. The driver's advisory length is ignored for control flow: the
// End event terminates the loop, so unframed formats work the same way.
func (d *Decoder) Sequence(fn func(d *Decoder, i int) error) error {
	if _, err := d.src.BeginSequence(); err != nil {
		return err
	}
	if err := d.push(); err != nil {
		return err
	}
	for i := 0; ; i++ {
		kind, err := d.src.PeekKind()
		if err != nil {
			return err
		}
		if kind == EventEnd {
			break
		}
		if err := fn(d, i); err != nil {
			return err
		}
	}
	d.pop()
	return d.src.EndSequence()
}

// Mapping consumes one mapping; fn reads one key followed by one value per
// call. Key uniqueness is the target's concern: a target requiring unique
// keys returns ErrDuplicateKey from fn when it sees a repeat.
func (d *Decoder) Mapping(fn func(d *Decoder) error) error {
	if _, err := d.src.BeginMapping(); err != nil {
		return err
	}
	if err := d.push(); err != nil {
		return err
	}
	for {
		kind, err := d.src.PeekKind()
		if err != nil {
			return err
		}
		if kind == EventEnd {
			break
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	d.pop()
	return d.src.EndMapping()
}

// Struct consumes one named structure. fn is called once per encoded field
// with the field's name and reads its value; a field the target does not
// recognize is reported by returning ErrUnknownField from fn, and the
// configured policy decides: StrictFields fails the conversion, while
// LenientFields discards the field's whole sub-tree and continues. A
// failure while discarding propagates. Missing-field detection is the
// target's concern after the loop returns.
func (d *Decoder) Struct(name string, fn func(d *Decoder, field string) error) error {
	if _, err := d.src.BeginStruct(name); err != nil {
		return err
	}
	if err := d.push(); err != nil {
		return err
	}
	if err := d.fieldLoop(name, fn); err != nil {
		return err
	}
	d.pop()
	return d.src.EndStruct()
}

// Fields consumes a FieldName/value stream up to the enclosing composite's
// End event, applying the unknown-field policy the same way Struct does.
// It is the payload reader for named variants.
func (d *Decoder) Fields(name string, fn func(d *Decoder, field string) error) error {
	return d.fieldLoop(name, fn)
}

func (d *Decoder) fieldLoop(name string, fn func(d *Decoder, field string) error) error {
	for {
		kind, err := d.src.PeekKind()
		if err != nil {
			return err
		}
		if kind == EventEnd {
			return nil
		}
		field, err := d.src.FieldName()
		if err != nil {
			return err
		}
		err = fn(d, field)
		if err == nil {
			continue
		}
		if !IsUnknownField(err) {
			return err
		}
		if d.opts.policy == StrictFields {
			return errors.Annotatef(ErrUnknownField, "%s.%s", name, field)
		}
		if debug {
			logger.Println(fmt.Sprintf("serde: skipping unknown field %s.%s", name, field))
		}
		if err := d.Skip(); err != nil {
			return err
		}
	}
}

// Variant consumes one enum variant. names lists the target's variants in
// declaration order; the encoded identity is resolved against it and fn is
// called with the resulting index to read the payload (none for a unit
// variant, values back to back for a tuple payload, Fields for a named
// payload).
func (d *Decoder) Variant(enum string, names []string, fn func(d *Decoder, index int) error) error {
	name, tag, err := d.src.BeginVariant(enum)
	if err != nil {
		return err
	}
	index, err := ResolveVariant(enum, name, tag, names)
	if err != nil {
		return err
	}
	if err := d.push(); err != nil {
		return err
	}
	if err := fn(d, index); err != nil {
		return err
	}
	d.pop()
	return d.src.EndVariant()
}

// ResolveVariant maps a decoded variant identity to an index into names.
// The name is the canonical path; the numeric tag is used alone only when
// no name was encoded, and when both are present they must agree.
func ResolveVariant(enum, name string, tag int, names []string) (int, error) {
	if name == "" {
		if tag < 0 || tag >= len(names) {
			return 0, errors.Annotatef(ErrShapeMismatch, "%s: variant tag %d out of range", enum, tag)
		}
		return tag, nil
	}
	for i, n := range names {
		if n != name {
			continue
		}
		if tag >= 0 && tag != i {
			return 0, errors.Annotatef(ErrShapeMismatch, "%s: variant %q is index %d but tag says %d", enum, name, i, tag)
		}
		return i, nil
	}
	return 0, errors.Annotatef(ErrShapeMismatch, "%s: unknown variant %q", enum, name)
}

// Skip discards the next value, delegating to the driver.
func (d *Decoder) Skip() error {
	return d.src.Skip()
}
