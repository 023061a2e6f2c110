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

package etf

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
)

// readFrame tracks one open composite on the consume side. remaining counts
// complete child terms still to read; for named frames it counts pairs and
// pending marks a field name consumed with its value still owed.
type readFrame struct {
	kind      serde.EventKind
	remaining int
	named     bool
	pending   bool
	list      bool // LIST_EXT, consume the NIL_EXT tail on End
}

// Reader is a serde.Source walking external term format bytes in place.
// Nothing is copied except the text and byte payloads handed out.
type Reader struct {
	data    []byte
	off     int
	frames  []*readFrame
	started bool
}

// NewReader returns a Reader over data. The version byte is checked on the
// first read.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) start() error {
	if r.started {
		return nil
	}
	if len(r.data) == 0 {
		return errors.Annotate(serde.ErrTruncated, "empty input")
	}
	if r.data[0] != formatVersion {
		return errors.Annotatef(ErrBadVersion, "%d", r.data[0])
	}
	r.off = 1
	r.started = true
	return nil
}

func (r *Reader) top() *readFrame {
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// consumed books one complete child term against the enclosing frame.
func (r *Reader) consumed() {
	top := r.top()
	if top == nil {
		return
	}
	top.remaining--
	top.pending = false
}

func (r *Reader) need(n int) error {
	if r.off+n > len(r.data) {
		return errors.Annotatef(serde.ErrTruncated, "at offset %d", r.off)
	}
	return nil
}

// PeekKind implements serde.Source. Binaries report EventText and maps
// EventMapping; targets that expect bytes or a struct read through the
// wider kind. A bare atom other than true, false and nil reports
// EventVariant.
func (r *Reader) PeekKind() (serde.EventKind, error) {
	if err := r.start(); err != nil {
		return 0, err
	}
	if top := r.top(); top != nil {
		if top.remaining <= 0 {
			return serde.EventEnd, nil
		}
		if top.named && !top.pending {
			return serde.EventField, nil
		}
	}
	if r.off >= len(r.data) {
		return 0, errors.Annotate(serde.ErrTruncated, "event stream exhausted")
	}
	switch tag := r.data[r.off]; tag {
	case tagSmallInteger, tagInteger, tagSmallBig, tagLargeBig:
		return serde.EventInt, nil
	case tagNewFloat:
		return serde.EventFloat, nil
	case tagBinary:
		return serde.EventText, nil
	case tagNil, tagList:
		return serde.EventSequence, nil
	case tagMap:
		return serde.EventMapping, nil
	case tagSmallTuple, tagLargeTuple:
		return serde.EventVariant, nil
	case tagSmallAtomUTF8, tagAtomUTF8, tagAtomDeprecated:
		name, _, err := r.parseAtom(r.off)
		if err != nil {
			return 0, err
		}
		switch name {
		case "true", "false":
			return serde.EventBool, nil
		case "nil":
			return serde.EventNil, nil
		default:
			return serde.EventVariant, nil
		}
	default:
		return 0, errors.Annotatef(ErrBadTag, "%d at offset %d", tag, r.off)
	}
}

// ReadUnit implements serde.Source. Unit is the atom nil.
func (r *Reader) ReadUnit() error {
	return r.ReadNil()
}

// ReadBool implements serde.Source.
func (r *Reader) ReadBool() (bool, error) {
	if err := r.start(); err != nil {
		return false, err
	}
	name, size, err := r.parseAtom(r.off)
	if err != nil {
		return false, err
	}
	var v bool
	switch name {
	case "true":
		v = true
	case "false":
		v = false
	default:
		return false, errors.Annotatef(serde.ErrShapeMismatch, "expected boolean, found atom %s", name)
	}
	r.off += size
	r.consumed()
	return v, nil
}

// ReadInt implements serde.Source.
func (r *Reader) ReadInt() (int64, error) {
	if err := r.start(); err != nil {
		return 0, err
	}
	v, size, err := r.parseInt(r.off)
	if err != nil {
		return 0, err
	}
	r.off += size
	r.consumed()
	return v, nil
}

// ReadFloat implements serde.Source.
func (r *Reader) ReadFloat() (float64, error) {
	if err := r.start(); err != nil {
		return 0, err
	}
	if err := r.expect(tagNewFloat, "float"); err != nil {
		return 0, err
	}
	if err := r.need(9); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(r.data[r.off+1 : r.off+9]))
	r.off += 9
	r.consumed()
	return v, nil
}

// ReadText implements serde.Source. The binary must be valid UTF-8.
func (r *Reader) ReadText() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.Annotate(serde.ErrInvalidPrimitive, "binary is not valid UTF-8")
	}
	return string(b), nil
}

// ReadBytes implements serde.Source.
func (r *Reader) ReadBytes() ([]byte, error) {
	if err := r.start(); err != nil {
		return nil, err
	}
	if err := r.expect(tagBinary, "binary"); err != nil {
		return nil, err
	}
	if err := r.need(5); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(r.data[r.off+1 : r.off+5]))
	if err := r.need(5 + n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.data[r.off+5:r.off+5+n])
	r.off += 5 + n
	r.consumed()
	return b, nil
}

// ReadNil implements serde.Source.
func (r *Reader) ReadNil() error {
	if err := r.start(); err != nil {
		return err
	}
	name, size, err := r.parseAtom(r.off)
	if err != nil {
		return err
	}
	if name != "nil" {
		return errors.Annotatef(serde.ErrShapeMismatch, "expected nil, found atom %s", name)
	}
	r.off += size
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
	if err := r.start(); err != nil {
		return 0, err
	}
	if err := r.need(1); err != nil {
		return 0, err
	}
	switch tag := r.data[r.off]; tag {
	case tagNil:
		r.off++
		r.consumed()
		r.push(&readFrame{kind: serde.EventSequence})
		return 0, nil
	case tagList:
		if err := r.need(5); err != nil {
			return 0, err
		}
		n := int(binary.BigEndian.Uint32(r.data[r.off+1 : r.off+5]))
		r.off += 5
		r.consumed()
		r.push(&readFrame{kind: serde.EventSequence, remaining: n, list: true})
		return n, nil
	default:
		return 0, errors.Annotatef(serde.ErrShapeMismatch, "expected list, found tag %d", tag)
	}
}

// EndSequence implements serde.Source.
func (r *Reader) EndSequence() error {
	top, err := r.pop(serde.EventSequence)
	if err != nil {
		return err
	}
	if !top.list {
		return nil
	}
	if err := r.need(1); err != nil {
		return err
	}
	if r.data[r.off] != tagNil {
		return errors.Annotatef(serde.ErrShapeMismatch, "improper list tail, tag %d", r.data[r.off])
	}
	r.off++
	return nil
}

// BeginMapping implements serde.Source.
func (r *Reader) BeginMapping() (int, error) {
	n, err := r.beginMap()
	if err != nil {
		return 0, err
	}
	r.push(&readFrame{kind: serde.EventMapping, remaining: 2 * n})
	return n, nil
}

// EndMapping implements serde.Source.
func (r *Reader) EndMapping() error {
	_, err := r.pop(serde.EventMapping)
	return err
}

// BeginStruct implements serde.Source. Structs are maps with atom keys;
// the name is not encoded and goes unchecked.
func (r *Reader) BeginStruct(name string) (int, error) {
	n, err := r.beginMap()
	if err != nil {
		return 0, err
	}
	r.push(&readFrame{kind: serde.EventStruct, remaining: n, named: true})
	return n, nil
}

// FieldName implements serde.Source. Atom keys are the convention; binary
// keys are accepted too.
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
	if err := r.need(1); err != nil {
		return "", err
	}
	var name string
	if r.data[r.off] == tagBinary {
		b, err := r.readKeyBinary()
		if err != nil {
			return "", err
		}
		name = string(b)
	} else {
		n, size, err := r.parseAtom(r.off)
		if err != nil {
			return "", err
		}
		r.off += size
		name = n
	}
	top.pending = true
	return name, nil
}

// EndStruct implements serde.Source.
func (r *Reader) EndStruct() error {
	_, err := r.pop(serde.EventStruct)
	return err
}

// BeginVariant implements serde.Source. A bare atom is a unit variant, a
// tuple carries {name, payload} with a nested tuple for several values
// (or a single tuple or map value) and a map for named fields. An integer
// discriminant yields name "" and the numeric tag.
func (r *Reader) BeginVariant(enum string) (string, int, error) {
	if err := r.start(); err != nil {
		return "", -1, err
	}
	if err := r.need(1); err != nil {
		return "", -1, err
	}
	switch tag := r.data[r.off]; tag {
	case tagSmallAtomUTF8, tagAtomUTF8, tagAtomDeprecated:
		name, size, err := r.parseAtom(r.off)
		if err != nil {
			return "", -1, err
		}
		r.off += size
		r.consumed()
		r.push(&readFrame{kind: serde.EventVariant})
		return name, -1, nil
	case tagSmallInteger, tagInteger, tagSmallBig, tagLargeBig:
		v, size, err := r.parseInt(r.off)
		if err != nil {
			return "", -1, err
		}
		if v < 0 || v > math.MaxInt32 {
			return "", -1, errors.Annotatef(serde.ErrInvalidPrimitive, "variant tag %d out of range", v)
		}
		r.off += size
		r.consumed()
		r.push(&readFrame{kind: serde.EventVariant})
		return "", int(v), nil
	case tagSmallTuple, tagLargeTuple:
		return r.beginVariantTuple()
	default:
		return "", -1, errors.Annotatef(serde.ErrShapeMismatch, "expected variant of %s, found tag %d", enum, tag)
	}
}

func (r *Reader) beginVariantTuple() (string, int, error) {
	arity, size, err := r.tupleHeader(r.off)
	if err != nil {
		return "", -1, err
	}
	if arity == 0 {
		return "", -1, errors.Annotate(serde.ErrShapeMismatch, "empty tuple is not a variant")
	}
	r.off += size
	r.consumed()

	name, tag := "", -1
	if err := r.need(1); err != nil {
		return "", -1, err
	}
	switch first := r.data[r.off]; first {
	case tagSmallAtomUTF8, tagAtomUTF8, tagAtomDeprecated:
		n, s, err := r.parseAtom(r.off)
		if err != nil {
			return "", -1, err
		}
		name = n
		r.off += s
	case tagSmallInteger, tagInteger, tagSmallBig, tagLargeBig:
		v, s, err := r.parseInt(r.off)
		if err != nil {
			return "", -1, err
		}
		if v < 0 || v > math.MaxInt32 {
			return "", -1, errors.Annotatef(serde.ErrInvalidPrimitive, "variant tag %d out of range", v)
		}
		tag = int(v)
		r.off += s
	default:
		return "", -1, errors.Annotatef(serde.ErrShapeMismatch, "variant discriminant has tag %d", first)
	}

	frame := &readFrame{kind: serde.EventVariant}
	switch {
	case arity == 1:
		// unit variant in tuple form
	case arity == 2:
		if err := r.need(1); err != nil {
			return "", -1, err
		}
		switch second := r.data[r.off]; second {
		case tagSmallTuple, tagLargeTuple:
			n, s, err := r.tupleHeader(r.off)
			if err != nil {
				return "", -1, err
			}
			r.off += s
			frame.remaining = n
		case tagMap:
			if err := r.need(5); err != nil {
				return "", -1, err
			}
			frame.remaining = int(binary.BigEndian.Uint32(r.data[r.off+1 : r.off+5]))
			frame.named = true
			r.off += 5
		default:
			frame.remaining = 1
		}
	default:
		frame.remaining = arity - 1
	}
	r.push(frame)
	return name, tag, nil
}

// EndVariant implements serde.Source.
func (r *Reader) EndVariant() error {
	_, err := r.pop(serde.EventVariant)
	return err
}

// Skip implements serde.Source by walking the sub-tree event by event.
func (r *Reader) Skip() error {
	return serde.SkipValue(r, serde.DefaultMaxDepth)
}

func (r *Reader) push(f *readFrame) {
	r.frames = append(r.frames, f)
}

func (r *Reader) pop(kind serde.EventKind) (*readFrame, error) {
	top := r.top()
	if top == nil {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "%s closed with nothing open", kind)
	}
	if top.kind != kind {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "closing %s inside %s", kind, top.kind)
	}
	if top.remaining > 0 {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "%s closed with %d entries unread", kind, top.remaining)
	}
	r.frames = r.frames[:len(r.frames)-1]
	return top, nil
}

func (r *Reader) expect(tag byte, what string) error {
	if err := r.need(1); err != nil {
		return err
	}
	if r.data[r.off] != tag {
		return errors.Annotatef(serde.ErrShapeMismatch, "expected %s, found tag %d", what, r.data[r.off])
	}
	return nil
}

// beginMap parses a map header and books the term against the enclosing
// frame, leaving the frame push to the caller.
func (r *Reader) beginMap() (int, error) {
	if err := r.start(); err != nil {
		return 0, err
	}
	if err := r.expect(tagMap, "map"); err != nil {
		return 0, err
	}
	if err := r.need(5); err != nil {
		return 0, err
	}
	n := int(binary.BigEndian.Uint32(r.data[r.off+1 : r.off+5]))
	r.off += 5
	r.consumed()
	return n, nil
}

// readKeyBinary consumes a binary term without booking it; a map key is
// half of one entry.
func (r *Reader) readKeyBinary() ([]byte, error) {
	if err := r.need(5); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(r.data[r.off+1 : r.off+5]))
	if err := r.need(5 + n); err != nil {
		return nil, err
	}
	b := r.data[r.off+5 : r.off+5+n]
	r.off += 5 + n
	return b, nil
}

func (r *Reader) tupleHeader(off int) (arity, size int, err error) {
	if off >= len(r.data) {
		return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
	}
	switch r.data[off] {
	case tagSmallTuple:
		if off+2 > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		return int(r.data[off+1]), 2, nil
	case tagLargeTuple:
		if off+5 > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		return int(binary.BigEndian.Uint32(r.data[off+1 : off+5])), 5, nil
	default:
		return 0, 0, errors.Annotatef(serde.ErrShapeMismatch, "expected tuple, found tag %d", r.data[off])
	}
}

// parseAtom decodes an atom term at off without consuming it, returning
// the name and the term size.
func (r *Reader) parseAtom(off int) (string, int, error) {
	if off >= len(r.data) {
		return "", 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
	}
	switch r.data[off] {
	case tagSmallAtomUTF8:
		if off+2 > len(r.data) {
			return "", 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		n := int(r.data[off+1])
		if off+2+n > len(r.data) {
			return "", 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		return string(r.data[off+2 : off+2+n]), 2 + n, nil
	case tagAtomUTF8, tagAtomDeprecated:
		if off+3 > len(r.data) {
			return "", 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		n := int(binary.BigEndian.Uint16(r.data[off+1 : off+3]))
		if off+3+n > len(r.data) {
			return "", 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		return string(r.data[off+3 : off+3+n]), 3 + n, nil
	default:
		return "", 0, errors.Annotatef(serde.ErrShapeMismatch, "expected atom, found tag %d", r.data[off])
	}
}

// parseInt decodes an integer term at off without consuming it. Big
// integers beyond int64 fail with ErrInvalidPrimitive.
func (r *Reader) parseInt(off int) (int64, int, error) {
	if off >= len(r.data) {
		return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
	}
	switch r.data[off] {
	case tagSmallInteger:
		if off+2 > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		return int64(r.data[off+1]), 2, nil
	case tagInteger:
		if off+5 > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		return int64(int32(binary.BigEndian.Uint32(r.data[off+1 : off+5]))), 5, nil
	case tagSmallBig:
		if off+3 > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		n := int(r.data[off+1])
		sign := r.data[off+2]
		if off+3+n > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		v, err := bigDigits(r.data[off+3:off+3+n], sign)
		return v, 3 + n, err
	case tagLargeBig:
		if off+6 > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		n := int(binary.BigEndian.Uint32(r.data[off+1 : off+5]))
		sign := r.data[off+5]
		if off+6+n > len(r.data) {
			return 0, 0, errors.Annotatef(serde.ErrTruncated, "at offset %d", off)
		}
		v, err := bigDigits(r.data[off+6:off+6+n], sign)
		return v, 6 + n, err
	default:
		return 0, 0, errors.Annotatef(serde.ErrShapeMismatch, "expected integer, found tag %d", r.data[off])
	}
}

// bigDigits folds little-endian magnitude digits into an int64.
func bigDigits(digits []byte, sign byte) (int64, error) {
	var mag uint64
	for i, b := range digits {
		if i >= 8 {
			if b != 0 {
				return 0, errors.Annotate(serde.ErrInvalidPrimitive, "integer overflows int64")
			}
			continue
		}
		mag |= uint64(b) << (8 * i)
	}
	if sign == 0 {
		if mag > math.MaxInt64 {
			return 0, errors.Annotate(serde.ErrInvalidPrimitive, "integer overflows int64")
		}
		return int64(mag), nil
	}
	const minMag = uint64(1) << 63
	if mag > minMag {
		return 0, errors.Annotate(serde.ErrInvalidPrimitive, "integer overflows int64")
	}
	if mag == minMag {
		return math.MinInt64, nil
	}
	return -int64(mag), nil
}
