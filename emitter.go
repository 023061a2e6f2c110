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

// EventKind identifies one kind of event in the serialization stream.
type EventKind byte

// Event kinds, one per primitive emission plus the begin markers for each
// composite, the field-name marker inside structs and named variant
// payloads, and the end marker closing the innermost open composite.
const (
	EventUnit EventKind = iota
	EventBool
	EventInt
	EventFloat
	EventText
	EventBytes
	EventNil
	EventSome
	EventSequence
	EventMapping
	EventStruct
	EventVariant
	EventField
	EventEnd
)

var eventNames = map[EventKind]string{
	EventUnit:     "Unit",
	EventBool:     "Bool",
	EventInt:      "Int",
	EventFloat:    "Float",
	EventText:     "Text",
	EventBytes:    "Bytes",
	EventNil:      "Nil",
	EventSome:     "Some",
	EventSequence: "Sequence",
	EventMapping:  "Mapping",
	EventStruct:   "Struct",
	EventVariant:  "Variant",
	EventField:    "Field",
	EventEnd:      "End",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Emitter is the encode half of a format driver: the closed capability set
// a serialization walk emits events through. Begin/End calls always arrive
// correctly nested, never concurrently, and in strict Begin, children, End
// order; a driver does not need to defend against misuse beyond returning
// its own errors.
//
// Lengths passed to BeginSequence and BeginMapping are advisory: a negative
// length means unknown until the matching End. BeginStruct always knows its
// field count. Field names inside a struct (and inside a named variant
// payload) arrive through FieldName immediately before the field's value.
//
// A variant carries the enum name and either a variant name, a numeric tag
// (-1 when absent), or both. Its payload is zero or more values, or a
// FieldName/value sequence for named payloads, between BeginVariant and
// EndVariant.
type Emitter interface {
	EmitUnit() error
	EmitBool(v bool) error
	EmitInt(v int64) error
	EmitFloat(v float64) error
	EmitText(v string) error
	EmitBytes(v []byte) error
	EmitNil() error

	BeginSome() error
	EndSome() error
	BeginSequence(length int) error
	EndSequence() error
	BeginMapping(length int) error
	EndMapping() error
	BeginStruct(name string, fields int) error
	FieldName(name string) error
	EndStruct() error
	BeginVariant(enum, name string, tag int) error
	EndVariant() error
}
