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

type buildFrame struct {
	kind     serde.EventKind
	name     string
	enum     string
	tag      int
	field    string
	hasField bool
	elems    []value.Value
	fields   []value.Field
}

// Builder implements serde.Emitter by accumulating one value tree.
type Builder struct {
	root  *value.Value
	stack []*buildFrame
}

// NewBuilder returns an empty Builder ready for one serialization walk.
func NewBuilder() *Builder {
	return &Builder{}
}

// Result returns the accumulated value. It fails if no value was emitted
// or a composite is still open.
func (b *Builder) Result() (value.Value, error) {
	if len(b.stack) > 0 {
		return value.Value{}, errors.Annotatef(serde.ErrShapeMismatch, "unclosed %s", b.stack[len(b.stack)-1].kind)
	}
	if b.root == nil {
		return value.Value{}, errors.Annotate(serde.ErrShapeMismatch, "no value emitted")
	}
	return *b.root, nil
}

func (b *Builder) put(v value.Value) error {
	if len(b.stack) == 0 {
		if b.root != nil {
			return errors.Annotate(serde.ErrShapeMismatch, "second root value emitted")
		}
		b.root = &v
		return nil
	}
	f := b.stack[len(b.stack)-1]
	switch f.kind {
	case serde.EventSome:
		if len(f.elems) > 0 {
			return errors.Annotate(serde.ErrShapeMismatch, "optional carries more than one value")
		}
		f.elems = append(f.elems, v)
	case serde.EventSequence, serde.EventMapping:
		f.elems = append(f.elems, v)
	case serde.EventStruct:
		if !f.hasField {
			return errors.Annotate(serde.ErrShapeMismatch, "struct value emitted without a field name")
		}
		f.fields = append(f.fields, value.Field{Name: f.field, Value: v})
		f.hasField = false
	case serde.EventVariant:
		if f.hasField {
			f.fields = append(f.fields, value.Field{Name: f.field, Value: v})
			f.hasField = false
		} else {
			f.elems = append(f.elems, v)
		}
	}
	return nil
}

func (b *Builder) begin(f *buildFrame) error {
	b.stack = append(b.stack, f)
	return nil
}

func (b *Builder) end(kind serde.EventKind) (*buildFrame, error) {
	if len(b.stack) == 0 {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "end of %s with no open composite", kind)
	}
	f := b.stack[len(b.stack)-1]
	if f.kind != kind {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "end of %s closes open %s", kind, f.kind)
	}
	if f.hasField {
		return nil, errors.Annotatef(serde.ErrShapeMismatch, "field %q has no value", f.field)
	}
	b.stack = b.stack[:len(b.stack)-1]
	return f, nil
}

func (b *Builder) EmitUnit() error           { return b.put(value.Unit()) }
func (b *Builder) EmitBool(v bool) error     { return b.put(value.Bool(v)) }
func (b *Builder) EmitInt(v int64) error     { return b.put(value.Int(v)) }
func (b *Builder) EmitFloat(v float64) error { return b.put(value.Float(v)) }
func (b *Builder) EmitText(v string) error   { return b.put(value.Text(v)) }
func (b *Builder) EmitBytes(v []byte) error  { return b.put(value.Bytes(v)) }
func (b *Builder) EmitNil() error            { return b.put(value.None()) }

func (b *Builder) BeginSome() error {
	return b.begin(&buildFrame{kind: serde.EventSome})
}

func (b *Builder) EndSome() error {
	f, err := b.end(serde.EventSome)
	if err != nil {
		return err
	}
	if len(f.elems) != 1 {
		return errors.Annotate(serde.ErrShapeMismatch, "optional closed without a value")
	}
	return b.put(value.Some(f.elems[0]))
}

func (b *Builder) BeginSequence(length int) error {
	return b.begin(&buildFrame{kind: serde.EventSequence})
}

func (b *Builder) EndSequence() error {
	f, err := b.end(serde.EventSequence)
	if err != nil {
		return err
	}
	return b.put(value.Sequence(f.elems...))
}

func (b *Builder) BeginMapping(length int) error {
	return b.begin(&buildFrame{kind: serde.EventMapping})
}

func (b *Builder) EndMapping() error {
	f, err := b.end(serde.EventMapping)
	if err != nil {
		return err
	}
	if len(f.elems)%2 != 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "mapping entry has a key but no value")
	}
	pairs := make([]value.Pair, 0, len(f.elems)/2)
	for i := 0; i < len(f.elems); i += 2 {
		pairs = append(pairs, value.Pair{Key: f.elems[i], Value: f.elems[i+1]})
	}
	return b.put(value.Mapping(pairs...))
}

func (b *Builder) BeginStruct(name string, fields int) error {
	return b.begin(&buildFrame{kind: serde.EventStruct, name: name})
}

func (b *Builder) FieldName(name string) error {
	if len(b.stack) == 0 {
		return errors.Annotate(serde.ErrShapeMismatch, "field name outside a struct")
	}
	f := b.stack[len(b.stack)-1]
	if f.kind != serde.EventStruct && f.kind != serde.EventVariant {
		return errors.Annotatef(serde.ErrShapeMismatch, "field name inside %s", f.kind)
	}
	if f.hasField {
		return errors.Annotatef(serde.ErrShapeMismatch, "field %q has no value", f.field)
	}
	f.field = name
	f.hasField = true
	return nil
}

func (b *Builder) EndStruct() error {
	f, err := b.end(serde.EventStruct)
	if err != nil {
		return err
	}
	return b.put(value.Struct(f.name, f.fields...))
}

func (b *Builder) BeginVariant(enum, name string, tag int) error {
	return b.begin(&buildFrame{kind: serde.EventVariant, enum: enum, name: name, tag: tag})
}

func (b *Builder) EndVariant() error {
	f, err := b.end(serde.EventVariant)
	if err != nil {
		return err
	}
	switch {
	case len(f.fields) > 0:
		return b.put(value.NamedVariant(f.enum, f.name, f.tag, f.fields...))
	case len(f.elems) == 1:
		return b.put(value.SingleVariant(f.enum, f.name, f.tag, f.elems[0]))
	case len(f.elems) > 1:
		return b.put(value.TupleVariant(f.enum, f.name, f.tag, f.elems...))
	default:
		return b.put(value.UnitVariant(f.enum, f.name, f.tag))
	}
}
