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
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
)

// writeFrame buffers the encoded child terms of one open composite until
// End supplies the arity header.
type writeFrame struct {
	kind  serde.EventKind
	ident []byte // encoded variant discriminant
	named bool   // variant payload carries field names
	items [][]byte
}

// Writer is a serde.Emitter producing external term format bytes. The zero
// value is not usable; call NewWriter.
type Writer struct {
	out      bytes.Buffer
	frames   []*writeFrame
	rootDone bool
}

// NewWriter returns a Writer with the version byte already emitted.
func NewWriter() *Writer {
	w := &Writer{}
	w.out.WriteByte(formatVersion)
	return w
}

// Bytes returns the finished encoding. It fails if a composite is still
// open or no value was ever emitted.
func (w *Writer) Bytes() ([]byte, error) {
	if len(w.frames) > 0 {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "unclosed %s", w.frames[len(w.frames)-1].kind)
	}
	if !w.rootDone {
		return nil, errors.Annotate(serde.ErrShapeMismatch, "no value emitted")
	}
	data := make([]byte, w.out.Len())
	copy(data, w.out.Bytes())
	return data, nil
}

// put routes one finished term into the enclosing frame, or to the output
// when no composite is open.
func (w *Writer) put(term []byte) error {
	if len(w.frames) == 0 {
		if w.rootDone {
			return errors.Annotate(serde.ErrShapeMismatch, "second top-level value")
		}
		w.out.Write(term)
		w.rootDone = true
		return nil
	}
	top := w.frames[len(w.frames)-1]
	top.items = append(top.items, term)
	return nil
}

func (w *Writer) push(kind serde.EventKind) {
	w.frames = append(w.frames, &writeFrame{kind: kind})
}

func (w *Writer) pop(kind serde.EventKind) (*writeFrame, error) {
	if len(w.frames) == 0 {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "%s closed with nothing open", kind)
	}
	top := w.frames[len(w.frames)-1]
	if top.kind != kind {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "closing %s inside %s", kind, top.kind)
	}
	w.frames = w.frames[:len(w.frames)-1]
	return top, nil
}

// EmitUnit implements serde.Emitter. Unit is the atom nil, same as an
// absent optional.
func (w *Writer) EmitUnit() error {
	term, err := atomTerm("nil")
	if err != nil {
		return err
	}
	return w.put(term)
}

// EmitBool implements serde.Emitter.
func (w *Writer) EmitBool(v bool) error {
	name := "false"
	if v {
		name = "true"
	}
	term, err := atomTerm(name)
	if err != nil {
		return err
	}
	return w.put(term)
}

// EmitInt implements serde.Emitter.
func (w *Writer) EmitInt(v int64) error {
	return w.put(intTerm(v))
}

// EmitFloat implements serde.Emitter.
func (w *Writer) EmitFloat(v float64) error {
	term := make([]byte, 9)
	term[0] = tagNewFloat
	binary.BigEndian.PutUint64(term[1:], math.Float64bits(v))
	return w.put(term)
}

// EmitText implements serde.Emitter. Text becomes a binary; Erlang strings
// are charlists but binaries are what Elixir and modern Erlang code expect.
func (w *Writer) EmitText(v string) error {
	return w.put(binaryTerm([]byte(v)))
}

// EmitBytes implements serde.Emitter.
func (w *Writer) EmitBytes(v []byte) error {
	return w.put(binaryTerm(v))
}

// EmitNil implements serde.Emitter.
func (w *Writer) EmitNil() error {
	term, err := atomTerm("nil")
	if err != nil {
		return err
	}
	return w.put(term)
}

// BeginSome implements serde.Emitter. A present optional collapses to the
// bare value, so the frame only exists to catch it on EndSome.
func (w *Writer) BeginSome() error {
	w.push(serde.EventSome)
	return nil
}

// EndSome implements serde.Emitter.
func (w *Writer) EndSome() error {
	top, err := w.pop(serde.EventSome)
	if err != nil {
		return err
	}
	if len(top.items) != 1 {
		return errors.Annotatef(serde.ErrShapeMismatch, "optional holds %d values", len(top.items))
	}
	return w.put(top.items[0])
}

// BeginSequence implements serde.Emitter. The advisory length is ignored;
// the arity header is written from the buffered count on EndSequence.
func (w *Writer) BeginSequence(length int) error {
	w.push(serde.EventSequence)
	return nil
}

// EndSequence implements serde.Emitter.
func (w *Writer) EndSequence() error {
	top, err := w.pop(serde.EventSequence)
	if err != nil {
		return err
	}
	if len(top.items) == 0 {
		return w.put([]byte{tagNil})
	}
	term := make([]byte, 0, 5+termsLen(top.items)+1)
	term = append(term, tagList, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(term[1:5], uint32(len(top.items)))
	for _, it := range top.items {
		term = append(term, it...)
	}
	term = append(term, tagNil) // proper list tail
	return w.put(term)
}

// BeginMapping implements serde.Emitter.
func (w *Writer) BeginMapping(length int) error {
	w.push(serde.EventMapping)
	return nil
}

// EndMapping implements serde.Emitter.
func (w *Writer) EndMapping() error {
	top, err := w.pop(serde.EventMapping)
	if err != nil {
		return err
	}
	if len(top.items)%2 != 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "mapping key without value")
	}
	return w.put(mapTerm(top.items))
}

// BeginStruct implements serde.Emitter. Structs are maps with atom keys;
// the type name is not encoded.
func (w *Writer) BeginStruct(name string, fields int) error {
	w.push(serde.EventStruct)
	return nil
}

// FieldName implements serde.Emitter.
func (w *Writer) FieldName(name string) error {
	if len(w.frames) == 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "field name outside a struct")
	}
	top := w.frames[len(w.frames)-1]
	if top.kind != serde.EventStruct && top.kind != serde.EventVariant {
		return errors.Annotatef(serde.ErrShapeMismatch, "field name inside %s", top.kind)
	}
	key, err := atomTerm(name)
	if err != nil {
		return err
	}
	if top.kind == serde.EventVariant {
		top.named = true
	}
	top.items = append(top.items, key)
	return nil
}

// EndStruct implements serde.Emitter.
func (w *Writer) EndStruct() error {
	top, err := w.pop(serde.EventStruct)
	if err != nil {
		return err
	}
	if len(top.items)%2 != 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "field name without value")
	}
	return w.put(mapTerm(top.items))
}

// BeginVariant implements serde.Emitter. The discriminant is the variant
// name as an atom, or the numeric tag when the name is empty.
func (w *Writer) BeginVariant(enum, name string, tag int) error {
	var ident []byte
	if name != "" {
		t, err := atomTerm(name)
		if err != nil {
			return err
		}
		ident = t
	} else {
		if tag < 0 {
			return errors.Annotatef(serde.ErrShapeMismatch, "variant of %s has neither name nor tag", enum)
		}
		ident = intTerm(int64(tag))
	}
	w.push(serde.EventVariant)
	w.frames[len(w.frames)-1].ident = ident
	return nil
}

// EndVariant implements serde.Emitter. No payload encodes the bare
// discriminant, one value a {name, value} pair, several values a
// {name, {v1, ..., vn}} pair, named fields a {name, map} pair. A single
// value that is itself a tuple or map keeps the {name, {value}} wrapper,
// so the reader never mistakes it for the multi-value or named form.
func (w *Writer) EndVariant() error {
	top, err := w.pop(serde.EventVariant)
	if err != nil {
		return err
	}
	if top.named {
		if len(top.items)%2 != 0 {
			return errors.Annotate(serde.ErrShapeMismatch, "field name without value")
		}
		return w.put(tupleTerm([][]byte{top.ident, mapTerm(top.items)}))
	}
	switch len(top.items) {
	case 0:
		return w.put(top.ident)
	case 1:
		if isContainerTerm(top.items[0]) {
			return w.put(tupleTerm([][]byte{top.ident, tupleTerm(top.items)}))
		}
		return w.put(tupleTerm([][]byte{top.ident, top.items[0]}))
	default:
		return w.put(tupleTerm([][]byte{top.ident, tupleTerm(top.items)}))
	}
}

// isContainerTerm reports whether an encoded term is a tuple or map, the
// two shapes the variant reader unwraps.
func isContainerTerm(term []byte) bool {
	if len(term) == 0 {
		return false
	}
	switch term[0] {
	case tagSmallTuple, tagLargeTuple, tagMap:
		return true
	}
	return false
}

func termsLen(items [][]byte) int {
	n := 0
	for _, it := range items {
		n += len(it)
	}
	return n
}

func atomTerm(name string) ([]byte, error) {
	if len(name) > 255 {
		return nil, errors.Annotate(ErrAtomTooLong, name[:32])
	}
	term := make([]byte, 0, 2+len(name))
	term = append(term, tagSmallAtomUTF8, byte(len(name)))
	term = append(term, name...)
	return term, nil
}

func binaryTerm(v []byte) []byte {
	term := make([]byte, 5+len(v))
	term[0] = tagBinary
	binary.BigEndian.PutUint32(term[1:5], uint32(len(v)))
	copy(term[5:], v)
	return term
}

func intTerm(v int64) []byte {
	if v >= 0 && v <= 255 {
		return []byte{tagSmallInteger, byte(v)}
	}
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		term := make([]byte, 5)
		term[0] = tagInteger
		binary.BigEndian.PutUint32(term[1:], uint32(int32(v)))
		return term
	}
	// Magnitude and sign, little-endian digits, shortest form.
	var sign byte
	var mag uint64
	if v < 0 {
		sign = 1
		mag = uint64(-(v + 1)) + 1
	} else {
		mag = uint64(v)
	}
	var digits []byte
	for mag > 0 {
		digits = append(digits, byte(mag))
		mag >>= 8
	}
	term := make([]byte, 0, 3+len(digits))
	term = append(term, tagSmallBig, byte(len(digits)), sign)
	term = append(term, digits...)
	return term
}

func mapTerm(items [][]byte) []byte {
	term := make([]byte, 0, 5+termsLen(items))
	term = append(term, tagMap, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(term[1:5], uint32(len(items)/2))
	for _, it := range items {
		term = append(term, it...)
	}
	return term
}

func tupleTerm(items [][]byte) []byte {
	var term []byte
	if len(items) <= 255 {
		term = make([]byte, 0, 2+termsLen(items))
		term = append(term, tagSmallTuple, byte(len(items)))
	} else {
		term = make([]byte, 0, 5+termsLen(items))
		term = append(term, tagLargeTuple, 0, 0, 0, 0)
		binary.BigEndian.PutUint32(term[1:5], uint32(len(items)))
	}
	for _, it := range items {
		term = append(term, it...)
	}
	return term
}
