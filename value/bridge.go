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

package value

import (
	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
)

// MarshalEvents describes the value tree to any format driver, which makes
// a Value usable as the middle of a format-to-format conversion: read a
// Value from one driver, marshal it into another, no byte format between.
func (v Value) MarshalEvents(e *serde.Encoder) error {
	switch v.kind {
	case KindUnit:
		return e.Unit()
	case KindBool:
		return e.Bool(v.boolV)
	case KindInt:
		return e.Int(v.intV)
	case KindFloat:
		return e.Float(v.floatV)
	case KindText:
		return e.Text(v.textV)
	case KindBytes:
		return e.Bytes(v.bytesV)
	case KindNil:
		return e.Nil()
	case KindSome:
		return e.Some(func(e *serde.Encoder) error {
			return v.childV.MarshalEvents(e)
		})
	case KindSequence:
		return e.Sequence(len(v.seqV), func(e *serde.Encoder, i int) error {
			return v.seqV[i].MarshalEvents(e)
		})
	case KindMapping:
		return e.Mapping(len(v.pairsV), func(e *serde.Encoder, i int) error {
			if err := v.pairsV[i].Key.MarshalEvents(e); err != nil {
				return err
			}
			return v.pairsV[i].Value.MarshalEvents(e)
		})
	case KindStruct:
		return e.Struct(v.textV, len(v.fieldsV), func(e *serde.Encoder) error {
			return marshalFields(e, v.fieldsV)
		})
	case KindVariant:
		var payload func(e *serde.Encoder) error
		switch v.payV {
		case PayloadSingle:
			payload = v.childV.MarshalEvents
		case PayloadTuple:
			payload = func(e *serde.Encoder) error {
				for _, item := range v.seqV {
					if err := item.MarshalEvents(e); err != nil {
						return err
					}
				}
				return nil
			}
		case PayloadNamed:
			payload = func(e *serde.Encoder) error {
				return marshalFields(e, v.fieldsV)
			}
		}
		return e.Variant(v.enumV, v.textV, v.tagV, payload)
	}
	return errors.Annotatef(serde.ErrShapeMismatch, "cannot marshal value of kind %s", v.kind)
}

func marshalFields(e *serde.Encoder, fields []Field) error {
	for _, f := range fields {
		f := f
		if err := e.Field(f.Name, f.Value.MarshalEvents); err != nil {
			return err
		}
	}
	return nil
}

// Read reconstructs a Value of whatever shape the driver produces next.
// Struct and enum names are advisory metadata the generic event stream
// cannot recover, so they come back empty unless the driver encodes them;
// formats that collapse text/bytes or struct/mapping read back as the
// wider kind.
func Read(s serde.Source) (Value, error) {
	return read(s, serde.DefaultMaxDepth)
}

func read(s serde.Source, budget int) (Value, error) {
	if budget <= 0 {
		return Value{}, errors.Annotate(serde.ErrShapeMismatch, "value nesting too deep")
	}
	kind, err := s.PeekKind()
	if err != nil {
		return Value{}, err
	}
	switch kind {
	case serde.EventUnit:
		return Unit(), s.ReadUnit()
	case serde.EventBool:
		v, err := s.ReadBool()
		return Bool(v), err
	case serde.EventInt:
		v, err := s.ReadInt()
		return Int(v), err
	case serde.EventFloat:
		v, err := s.ReadFloat()
		return Float(v), err
	case serde.EventText:
		v, err := s.ReadText()
		return Text(v), err
	case serde.EventBytes:
		v, err := s.ReadBytes()
		return Bytes(v), err
	case serde.EventNil:
		return None(), s.ReadNil()
	case serde.EventSome:
		if err := s.BeginSome(); err != nil {
			return Value{}, err
		}
		inner, err := read(s, budget-1)
		if err != nil {
			return Value{}, err
		}
		return Some(inner), s.EndSome()
	case serde.EventSequence:
		if _, err := s.BeginSequence(); err != nil {
			return Value{}, err
		}
		var elems []Value
		for {
			k, err := s.PeekKind()
			if err != nil {
				return Value{}, err
			}
			if k == serde.EventEnd {
				break
			}
			elem, err := read(s, budget-1)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}
		return Sequence(elems...), s.EndSequence()
	case serde.EventMapping:
		if _, err := s.BeginMapping(); err != nil {
			return Value{}, err
		}
		var pairs []Pair
		for {
			k, err := s.PeekKind()
			if err != nil {
				return Value{}, err
			}
			if k == serde.EventEnd {
				break
			}
			key, err := read(s, budget-1)
			if err != nil {
				return Value{}, err
			}
			val, err := read(s, budget-1)
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: key, Value: val})
		}
		return Mapping(pairs...), s.EndMapping()
	case serde.EventStruct:
		if _, err := s.BeginStruct(""); err != nil {
			return Value{}, err
		}
		fields, err := readFields(s, budget)
		if err != nil {
			return Value{}, err
		}
		return Struct("", fields...), s.EndStruct()
	case serde.EventVariant:
		name, tag, err := s.BeginVariant("")
		if err != nil {
			return Value{}, err
		}
		var (
			items  []Value
			fields []Field
		)
		for {
			k, err := s.PeekKind()
			if err != nil {
				return Value{}, err
			}
			if k == serde.EventEnd {
				break
			}
			if k == serde.EventField {
				fields, err = readFields(s, budget)
				if err != nil {
					return Value{}, err
				}
				continue
			}
			item, err := read(s, budget-1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		if err := s.EndVariant(); err != nil {
			return Value{}, err
		}
		switch {
		case len(fields) > 0:
			return NamedVariant("", name, tag, fields...), nil
		case len(items) == 1:
			return SingleVariant("", name, tag, items[0]), nil
		case len(items) > 1:
			return TupleVariant("", name, tag, items...), nil
		default:
			return UnitVariant("", name, tag), nil
		}
	}
	return Value{}, errors.Annotatef(serde.ErrShapeMismatch, "cannot build a value from event %s", kind)
}

func readFields(s serde.Source, budget int) ([]Field, error) {
	var fields []Field
	for {
		k, err := s.PeekKind()
		if err != nil {
			return nil, err
		}
		if k == serde.EventEnd {
			return fields, nil
		}
		name, err := s.FieldName()
		if err != nil {
			return nil, err
		}
		val, err := read(s, budget-1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: name, Value: val})
	}
}
