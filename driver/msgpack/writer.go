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
	"math"

	"github.com/pingcap/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/ikerlin/serde"
)

// writeFrame tracks one open composite. Sequence, mapping and struct
// headers are written at Begin, so those frames only verify counts.
// Variant frames divert the payload into their own buffer, because the
// payload arity is not known until EndVariant.
type writeFrame struct {
	kind   serde.EventKind
	expect int // declared values, -1 when unchecked
	count  int // values written so far

	// variant only
	name  string
	tag   int
	named bool
	buf   *bytes.Buffer
	enc   *msgpack.Encoder
}

// Writer is a serde.Emitter producing MessagePack bytes. The zero value is
// not usable; call NewWriter.
type Writer struct {
	buf      bytes.Buffer
	enc      *msgpack.Encoder
	frames   []*writeFrame
	rootDone bool
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	w := &Writer{}
	w.enc = msgpack.NewEncoder(&w.buf)
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
	data := make([]byte, w.buf.Len())
	copy(data, w.buf.Bytes())
	return data, nil
}

// cur returns the stream the next term belongs to: the innermost variant
// payload buffer, or the output.
func (w *Writer) cur() (*msgpack.Encoder, *bytes.Buffer) {
	for i := len(w.frames) - 1; i >= 0; i-- {
		if f := w.frames[i]; f.enc != nil {
			return f.enc, f.buf
		}
	}
	return w.enc, &w.buf
}

// note books one value against the enclosing frame before it is written.
func (w *Writer) note() error {
	if len(w.frames) == 0 {
		if w.rootDone {
			return errors.Annotate(serde.ErrShapeMismatch, "second top-level value")
		}
		w.rootDone = true
		return nil
	}
	top := w.frames[len(w.frames)-1]
	top.count++
	if top.expect >= 0 && top.count > top.expect {
		return errors.Annotatef(serde.ErrShapeMismatch, "%s declared %d values", top.kind, top.expect)
	}
	return nil
}

func (w *Writer) push(f *writeFrame) {
	w.frames = append(w.frames, f)
}

func (w *Writer) pop(kind serde.EventKind) (*writeFrame, error) {
	if len(w.frames) == 0 {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "%s closed with nothing open", kind)
	}
	top := w.frames[len(w.frames)-1]
	if top.kind != kind {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "closing %s inside %s", kind, top.kind)
	}
	if top.expect >= 0 && top.count != top.expect {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "%s declared %d values, wrote %d", kind, top.expect, top.count)
	}
	w.frames = w.frames[:len(w.frames)-1]
	return top, nil
}

// EmitUnit implements serde.Emitter. Unit encodes as nil, same as an
// absent optional.
func (w *Writer) EmitUnit() error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeNil()
}

// EmitBool implements serde.Emitter.
func (w *Writer) EmitBool(v bool) error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeBool(v)
}

// EmitInt implements serde.Emitter.
func (w *Writer) EmitInt(v int64) error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeInt(v)
}

// EmitFloat implements serde.Emitter.
func (w *Writer) EmitFloat(v float64) error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeFloat64(v)
}

// EmitText implements serde.Emitter.
func (w *Writer) EmitText(v string) error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeString(v)
}

// EmitBytes implements serde.Emitter.
func (w *Writer) EmitBytes(v []byte) error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeBytes(v)
}

// EmitNil implements serde.Emitter.
func (w *Writer) EmitNil() error {
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	return enc.EncodeNil()
}

// BeginSome implements serde.Emitter. A present optional collapses to the
// bare value; the frame only verifies that exactly one value arrives.
func (w *Writer) BeginSome() error {
	if err := w.note(); err != nil {
		return err
	}
	w.push(&writeFrame{kind: serde.EventSome, expect: 1})
	return nil
}

// EndSome implements serde.Emitter.
func (w *Writer) EndSome() error {
	_, err := w.pop(serde.EventSome)
	return err
}

// BeginSequence implements serde.Emitter. The length is required; the
// array header carries it.
func (w *Writer) BeginSequence(length int) error {
	if length < 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "sequence length required for an array header")
	}
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	if err := enc.EncodeArrayLen(length); err != nil {
		return err
	}
	w.push(&writeFrame{kind: serde.EventSequence, expect: length})
	return nil
}

// EndSequence implements serde.Emitter.
func (w *Writer) EndSequence() error {
	_, err := w.pop(serde.EventSequence)
	return err
}

// BeginMapping implements serde.Emitter. The length is required and counts
// entries; keys and values each arrive as one value.
func (w *Writer) BeginMapping(length int) error {
	if length < 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "mapping length required for a map header")
	}
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	if err := enc.EncodeMapLen(length); err != nil {
		return err
	}
	w.push(&writeFrame{kind: serde.EventMapping, expect: 2 * length})
	return nil
}

// EndMapping implements serde.Emitter.
func (w *Writer) EndMapping() error {
	_, err := w.pop(serde.EventMapping)
	return err
}

// BeginStruct implements serde.Emitter. Structs are maps with string keys;
// the type name is not encoded.
func (w *Writer) BeginStruct(name string, fields int) error {
	if fields < 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "field count required for a map header")
	}
	if err := w.note(); err != nil {
		return err
	}
	enc, _ := w.cur()
	if err := enc.EncodeMapLen(fields); err != nil {
		return err
	}
	w.push(&writeFrame{kind: serde.EventStruct, expect: fields})
	return nil
}

// FieldName implements serde.Emitter. The key is written in place; only
// the following value counts against the frame.
func (w *Writer) FieldName(name string) error {
	if len(w.frames) == 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "field name outside a struct")
	}
	top := w.frames[len(w.frames)-1]
	if top.kind != serde.EventStruct && top.kind != serde.EventVariant {
		return errors.Annotatef(serde.ErrShapeMismatch, "field name inside %s", top.kind)
	}
	if top.kind == serde.EventVariant {
		top.named = true
	}
	enc, _ := w.cur()
	return enc.EncodeString(name)
}

// EndStruct implements serde.Emitter.
func (w *Writer) EndStruct() error {
	_, err := w.pop(serde.EventStruct)
	return err
}

// BeginVariant implements serde.Emitter. The payload is diverted into a
// frame buffer until EndVariant knows its arity.
func (w *Writer) BeginVariant(enum, name string, tag int) error {
	if name == "" && tag < 0 {
		return errors.Annotatef(serde.ErrShapeMismatch, "variant of %s has neither name nor tag", enum)
	}
	if err := w.note(); err != nil {
		return err
	}
	f := &writeFrame{kind: serde.EventVariant, expect: -1, name: name, tag: tag, buf: &bytes.Buffer{}}
	f.enc = msgpack.NewEncoder(f.buf)
	w.push(f)
	return nil
}

// EndVariant implements serde.Emitter. No payload encodes the bare
// discriminant; otherwise a two-element array of discriminant and payload,
// the payload wrapped in an array when several values arrived and in a map
// when field names did. A single value that is itself an array or map
// keeps the one-element array wrapper, so the reader never mistakes it
// for the multi-value or named form.
func (w *Writer) EndVariant() error {
	top, err := w.pop(serde.EventVariant)
	if err != nil {
		return err
	}
	enc, buf := w.cur()
	if top.count == 0 && !top.named {
		return w.encodeIdent(enc, top)
	}
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := w.encodeIdent(enc, top); err != nil {
		return err
	}
	switch {
	case top.named:
		if err := enc.EncodeMapLen(top.count); err != nil {
			return err
		}
	case top.count > 1 || isContainerCode(top.buf.Bytes()):
		if err := enc.EncodeArrayLen(top.count); err != nil {
			return err
		}
	}
	_, err = buf.Write(top.buf.Bytes())
	return err
}

// isContainerCode reports whether a buffered payload starts with an array
// or map header, the two shapes the variant reader unwraps.
func isContainerCode(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	c := payload[0]
	switch {
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		return true
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		return true
	}
	return false
}

func (w *Writer) encodeIdent(enc *msgpack.Encoder, f *writeFrame) error {
	if f.name != "" {
		return enc.EncodeString(f.name)
	}
	if f.tag > math.MaxInt32 {
		return errors.Annotatef(serde.ErrShapeMismatch, "variant tag %d out of range", f.tag)
	}
	return enc.EncodeInt(int64(f.tag))
}
