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

package memory

import (
	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/value"
)

type readFrame struct {
	kind     serde.EventKind
	named    bool
	items    []value.Value
	fields   []value.Field
	idx      int
	nameSent bool
}

func (f *readFrame) exhausted() bool {
	if f.named {
		return f.idx >= len(f.fields)
	}
	return f.idx >= len(f.items)
}

// Reader implements serde.Source by replaying one value tree as events.
// Skip is a cursor advance, so the lenient unknown-field policy costs
// nothing here.
type Reader struct {
	root    *value.Value
	started bool
	stack   []*readFrame
}

// NewReader returns a Reader positioned at the start of v.
func NewReader(v value.Value) *Reader {
	return &Reader{root: &v}
}

// current reports the value the cursor points at without consuming it.
func (r *Reader) current() (value.Value, error) {
	if len(r.stack) == 0 {
		if r.started {
			return value.Value{}, errors.Annotate(serde.ErrTruncated, "event stream exhausted")
		}
		return *r.root, nil
	}
	f := r.stack[len(r.stack)-1]
	if f.exhausted() {
		return value.Value{}, errors.Annotatef(serde.ErrShapeMismatch, "read past the end of %s", f.kind)
	}
	if f.named {
		if !f.nameSent {
			return value.Value{}, errors.Annotate(serde.ErrShapeMismatch, "field value read before its name")
		}
		return f.fields[f.idx].Value, nil
	}
	return f.items[f.idx], nil
}

func (r *Reader) advance() {
	if len(r.stack) == 0 {
		r.started = true
		return
	}
	f := r.stack[len(r.stack)-1]
	f.idx++
	f.nameSent = false
}

func (r *Reader) take(k value.Kind) (value.Value, error) {
	v, err := r.current()
	if err != nil {
		return value.Value{}, err
	}
	if v.Kind() != k {
		return value.Value{}, errors.Annotatef(serde.ErrShapeMismatch, "expected %s, got %s", k, v.Kind())
	}
	r.advance()
	return v, nil
}

// PeekKind implements serde.Source.
func (r *Reader) PeekKind() (serde.EventKind, error) {
	if len(r.stack) > 0 {
		f := r.stack[len(r.stack)-1]
		if f.exhausted() {
			return serde.EventEnd, nil
		}
		if f.named && !f.nameSent {
			return serde.EventField, nil
		}
	}
	v, err := r.current()
	if err != nil {
		return serde.EventEnd, err
	}
	return eventKind(v.Kind()), nil
}

func (r *Reader) ReadUnit() error {
	_, err := r.take(value.KindUnit)
	return err
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.take(value.KindBool)
	return v.Bool(), err
}

func (r *Reader) ReadInt() (int64, error) {
	v, err := r.take(value.KindInt)
	return v.Int(), err
}

func (r *Reader) ReadFloat() (float64, error) {
	v, err := r.take(value.KindFloat)
	return v.Float(), err
}

func (r *Reader) ReadText() (string, error) {
	v, err := r.take(value.KindText)
	return v.Text(), err
}

func (r *Reader) ReadBytes() ([]byte, error) {
	v, err := r.take(value.KindBytes)
	if err != nil {
		return nil, err
	}
	return v.Bytes(), nil
}

func (r *Reader) ReadNil() error {
	_, err := r.take(value.KindNil)
	return err
}

func (r *Reader) BeginSome() error {
	v, err := r.take(value.KindSome)
	if err != nil {
		return err
	}
	r.stack = append(r.stack, &readFrame{kind: serde.EventSome, items: []value.Value{v.Inner()}})
	return nil
}

func (r *Reader) EndSome() error {
	return r.pop(serde.EventSome)
}

func (r *Reader) BeginSequence() (int, error) {
	v, err := r.take(value.KindSequence)
	if err != nil {
		return 0, err
	}
	items := v.Items()
	r.stack = append(r.stack, &readFrame{kind: serde.EventSequence, items: items})
	return len(items), nil
}

func (r *Reader) EndSequence() error {
	return r.pop(serde.EventSequence)
}

func (r *Reader) BeginMapping() (int, error) {
	v, err := r.take(value.KindMapping)
	if err != nil {
		return 0, err
	}
	entries := v.Entries()
	items := make([]value.Value, 0, len(entries)*2)
	for _, p := range entries {
		items = append(items, p.Key, p.Value)
	}
	r.stack = append(r.stack, &readFrame{kind: serde.EventMapping, items: items})
	return len(entries), nil
}

func (r *Reader) EndMapping() error {
	return r.pop(serde.EventMapping)
}

func (r *Reader) BeginStruct(name string) (int, error) {
	cur, err := r.current()
	if err != nil {
		return 0, err
	}
	if cur.Kind() != value.KindStruct {
		return 0, errors.Annotatef(serde.ErrShapeMismatch, "expected Struct, got %s", cur.Kind())
	}
	if name != "" && cur.Name() != "" && cur.Name() != name {
		return 0, errors.Annotatef(serde.ErrShapeMismatch, "expected struct %q, got %q", name, cur.Name())
	}
	r.advance()
	fields := cur.Fields()
	r.stack = append(r.stack, &readFrame{kind: serde.EventStruct, named: true, fields: fields})
	return len(fields), nil
}

func (r *Reader) FieldName() (string, error) {
	if len(r.stack) == 0 {
		return "", errors.Annotate(serde.ErrShapeMismatch, "field name outside a struct")
	}
	f := r.stack[len(r.stack)-1]
	if !f.named {
		return "", errors.Annotatef(serde.ErrShapeMismatch, "field name inside %s", f.kind)
	}
	if f.exhausted() {
		return "", errors.Annotatef(serde.ErrShapeMismatch, "read past the end of %s", f.kind)
	}
	if f.nameSent {
		return "", errors.Annotatef(serde.ErrShapeMismatch, "field %q read twice", f.fields[f.idx].Name)
	}
	f.nameSent = true
	return f.fields[f.idx].Name, nil
}

func (r *Reader) EndStruct() error {
	return r.pop(serde.EventStruct)
}

func (r *Reader) BeginVariant(enum string) (string, int, error) {
	cur, err := r.current()
	if err != nil {
		return "", 0, err
	}
	if cur.Kind() != value.KindVariant {
		return "", 0, errors.Annotatef(serde.ErrShapeMismatch, "expected Variant, got %s", cur.Kind())
	}
	if enum != "" && cur.Enum() != "" && cur.Enum() != enum {
		return "", 0, errors.Annotatef(serde.ErrShapeMismatch, "expected enum %q, got %q", enum, cur.Enum())
	}
	r.advance()
	f := &readFrame{kind: serde.EventVariant}
	switch cur.Payload() {
	case value.PayloadSingle:
		f.items = []value.Value{cur.Inner()}
	case value.PayloadTuple:
		f.items = cur.Items()
	case value.PayloadNamed:
		f.named = true
		f.fields = cur.Fields()
	}
	r.stack = append(r.stack, f)
	return cur.Name(), cur.Tag(), nil
}

func (r *Reader) EndVariant() error {
	return r.pop(serde.EventVariant)
}

func (r *Reader) pop(kind serde.EventKind) error {
	if len(r.stack) == 0 {
		return errors.Annotatef(serde.ErrShapeMismatch, "end of %s with no open composite", kind)
	}
	f := r.stack[len(r.stack)-1]
	if f.kind != kind {
		return errors.Annotatef(serde.ErrShapeMismatch, "end of %s closes open %s", kind, f.kind)
	}
	if !f.exhausted() {
		return errors.Annotatef(serde.ErrShapeMismatch, "end of %s with unread content", kind)
	}
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// Skip drops the value the cursor points at.
func (r *Reader) Skip() error {
	if _, err := r.current(); err != nil {
		return err
	}
	r.advance()
	return nil
}
