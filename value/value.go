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

// Package value defines the canonical intermediate representation: a tagged
// union able to hold every serializable shape without reference to any
// concrete wire syntax. A Value tree is immutable once constructed;
// constructors copy caller-owned slices and conversions only ever build new
// trees.
package value

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind tags the variant a Value holds.
type Kind byte

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindBytes
	KindNil
	KindSome
	KindSequence
	KindMapping
	KindStruct
	KindVariant
)

var kindNames = map[Kind]string{
	KindUnit:     "Unit",
	KindBool:     "Bool",
	KindInt:      "Int",
	KindFloat:    "Float",
	KindText:     "Text",
	KindBytes:    "Bytes",
	KindNil:      "Nil",
	KindSome:     "Some",
	KindSequence: "Sequence",
	KindMapping:  "Mapping",
	KindStruct:   "Struct",
	KindVariant:  "Variant",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// PayloadKind tags the payload shape of a variant Value.
type PayloadKind byte

const (
	PayloadNone PayloadKind = iota
	PayloadSingle
	PayloadTuple
	PayloadNamed
)

// Pair is one mapping entry. Keys need not be unique at this layer;
// uniqueness is a contract concern of the target type.
type Pair struct {
	Key   Value
	Value Value
}

// Field is one named struct field or named-payload entry.
type Field struct {
	Name  string
	Value Value
}

// Value is one node of the intermediate representation. The zero Value is
// the unit value.
type Value struct {
	kind    Kind
	boolV   bool
	intV    int64
	floatV  float64
	textV   string // text content, struct name or variant name
	bytesV  []byte
	childV  *Value  // Some child or single variant payload
	seqV    []Value // sequence elements or tuple payload
	pairsV  []Pair
	fieldsV []Field // struct fields or named payload
	enumV   string
	tagV    int
	payV    PayloadKind
}

// Unit returns the unit value.
func Unit() Value { return Value{kind: KindUnit} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, boolV: v} }

// Int returns a signed 64-bit integer value.
func Int(v int64) Value { return Value{kind: KindInt, intV: v} }

// Float returns a 64-bit float value.
func Float(v float64) Value { return Value{kind: KindFloat, floatV: v} }

// Text returns a text value.
func Text(v string) Value { return Value{kind: KindText, textV: v} }

// Bytes returns an opaque byte-sequence value. The input is copied.
func Bytes(v []byte) Value {
	b := make([]byte, len(v))
	copy(b, v)
	return Value{kind: KindBytes, bytesV: b}
}

// None returns the absent optional.
func None() Value { return Value{kind: KindNil} }

// Some returns a present optional wrapping v.
func Some(v Value) Value { return Value{kind: KindSome, childV: &v} }

// Sequence returns an ordered sequence value. The input is copied.
func Sequence(elems ...Value) Value {
	s := make([]Value, len(elems))
	copy(s, elems)
	return Value{kind: KindSequence, seqV: s}
}

// Mapping returns an ordered mapping value. The input is copied and order
// is preserved exactly as given.
func Mapping(pairs ...Pair) Value {
	p := make([]Pair, len(pairs))
	copy(p, pairs)
	return Value{kind: KindMapping, pairsV: p}
}

// Struct returns a named structure value with fields in declaration order.
// The input is copied.
func Struct(name string, fields ...Field) Value {
	f := make([]Field, len(fields))
	copy(f, fields)
	return Value{kind: KindStruct, textV: name, fieldsV: f}
}

// UnitVariant returns an enum variant carrying no payload. tag is -1 when
// only the name identifies the variant.
func UnitVariant(enum, name string, tag int) Value {
	return Value{kind: KindVariant, enumV: enum, textV: name, tagV: tag, payV: PayloadNone}
}

// SingleVariant returns an enum variant carrying one payload value.
func SingleVariant(enum, name string, tag int, payload Value) Value {
	return Value{kind: KindVariant, enumV: enum, textV: name, tagV: tag, payV: PayloadSingle, childV: &payload}
}

// TupleVariant returns an enum variant carrying an ordered payload of two
// or more values. The input is copied.
func TupleVariant(enum, name string, tag int, payload ...Value) Value {
	p := make([]Value, len(payload))
	copy(p, payload)
	return Value{kind: KindVariant, enumV: enum, textV: name, tagV: tag, payV: PayloadTuple, seqV: p}
}

// NamedVariant returns an enum variant carrying named payload fields. The
// input is copied.
func NamedVariant(enum, name string, tag int, fields ...Field) Value {
	f := make([]Field, len(fields))
	copy(f, fields)
	return Value{kind: KindVariant, enumV: enum, textV: name, tagV: tag, payV: PayloadNamed, fieldsV: f}
}

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean content. Valid only for KindBool.
func (v Value) Bool() bool { return v.boolV }

// Int returns the integer content. Valid only for KindInt.
func (v Value) Int() int64 { return v.intV }

// Float returns the float content. Valid only for KindFloat.
func (v Value) Float() float64 { return v.floatV }

// Text returns the text content. Valid only for KindText.
func (v Value) Text() string { return v.textV }

// Bytes returns a copy of the byte content. Valid only for KindBytes.
func (v Value) Bytes() []byte {
	b := make([]byte, len(v.bytesV))
	copy(b, v.bytesV)
	return b
}

// Inner returns the wrapped value of a present optional or the payload of
// a single-payload variant. Valid only for KindSome and single variants.
func (v Value) Inner() Value {
	if v.childV == nil {
		return Unit()
	}
	return *v.childV
}

// Items returns a copy of the element list. Valid for KindSequence and
// tuple variants.
func (v Value) Items() []Value {
	s := make([]Value, len(v.seqV))
	copy(s, v.seqV)
	return s
}

// Entries returns a copy of the mapping entries. Valid only for KindMapping.
func (v Value) Entries() []Pair {
	p := make([]Pair, len(v.pairsV))
	copy(p, v.pairsV)
	return p
}

// Fields returns a copy of the field list. Valid for KindStruct and named
// variants.
func (v Value) Fields() []Field {
	f := make([]Field, len(v.fieldsV))
	copy(f, v.fieldsV)
	return f
}

// Name returns the struct name or variant name.
func (v Value) Name() string { return v.textV }

// Enum returns the enum name of a variant.
func (v Value) Enum() string { return v.enumV }

// Tag returns the numeric tag of a variant, -1 when absent.
func (v Value) Tag() int { return v.tagV }

// Payload reports the payload shape of a variant.
func (v Value) Payload() PayloadKind { return v.payV }

// Len reports the element, entry or field count of a composite value.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seqV)
	case KindMapping:
		return len(v.pairsV)
	case KindStruct:
		return len(v.fieldsV)
	case KindVariant:
		switch v.payV {
		case PayloadSingle:
			return 1
		case PayloadTuple:
			return len(v.seqV)
		case PayloadNamed:
			return len(v.fieldsV)
		}
	}
	return 0
}

// Equal reports deep structural equality. Element, entry and field order
// is significant; floats compare with ==, so NaN never equals anything.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUnit, KindNil:
		return true
	case KindBool:
		return v.boolV == o.boolV
	case KindInt:
		return v.intV == o.intV
	case KindFloat:
		return v.floatV == o.floatV
	case KindText:
		return v.textV == o.textV
	case KindBytes:
		return bytes.Equal(v.bytesV, o.bytesV)
	case KindSome:
		return v.childV.Equal(*o.childV)
	case KindSequence:
		return equalValues(v.seqV, o.seqV)
	case KindMapping:
		if len(v.pairsV) != len(o.pairsV) {
			return false
		}
		for i := range v.pairsV {
			if !v.pairsV[i].Key.Equal(o.pairsV[i].Key) || !v.pairsV[i].Value.Equal(o.pairsV[i].Value) {
				return false
			}
		}
		return true
	case KindStruct:
		return v.textV == o.textV && equalFields(v.fieldsV, o.fieldsV)
	case KindVariant:
		if v.enumV != o.enumV || v.textV != o.textV || v.tagV != o.tagV || v.payV != o.payV {
			return false
		}
		switch v.payV {
		case PayloadSingle:
			return v.childV.Equal(*o.childV)
		case PayloadTuple:
			return equalValues(v.seqV, o.seqV)
		case PayloadNamed:
			return equalFields(v.fieldsV, o.fieldsV)
		}
		return true
	}
	return false
}

func equalValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func equalFields(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}

// String renders a compact debug form, implementation of fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case KindUnit:
		return "unit"
	case KindBool:
		return fmt.Sprintf("%t", v.boolV)
	case KindInt:
		return fmt.Sprintf("%d", v.intV)
	case KindFloat:
		return fmt.Sprintf("%g", v.floatV)
	case KindText:
		return fmt.Sprintf("%q", v.textV)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytesV))
	case KindNil:
		return "nil"
	case KindSome:
		return fmt.Sprintf("some(%s)", v.childV)
	case KindSequence:
		return fmt.Sprintf("[%s]", joinValues(v.seqV))
	case KindMapping:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, p := range v.pairsV {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", p.Key, p.Value)
		}
		sb.WriteByte('}')
		return sb.String()
	case KindStruct:
		return fmt.Sprintf("%s{%s}", v.textV, joinFields(v.fieldsV))
	case KindVariant:
		id := v.textV
		if id == "" {
			id = fmt.Sprintf("#%d", v.tagV)
		}
		switch v.payV {
		case PayloadSingle:
			return fmt.Sprintf("%s::%s(%s)", v.enumV, id, v.childV)
		case PayloadTuple:
			return fmt.Sprintf("%s::%s(%s)", v.enumV, id, joinValues(v.seqV))
		case PayloadNamed:
			return fmt.Sprintf("%s::%s{%s}", v.enumV, id, joinFields(v.fieldsV))
		}
		return fmt.Sprintf("%s::%s", v.enumV, id)
	}
	return "unknown"
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func joinFields(fs []Field) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Value)
	}
	return strings.Join(parts, ", ")
}
