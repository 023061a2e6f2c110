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

import "github.com/pingcap/errors"

// Source is the decode half of a format driver: the capability set a
// deserialization walk pulls events through.
//
// PeekKind reports the kind of the next event without consuming it; a
// driver that cannot represent a distinction of the event model (for
// example a format that encodes both text and bytes the same way, or that
// collapses a present optional to the bare value) reports the wider kind
// and must accept the matching reads for both.
//
// BeginSequence and BeginMapping return the advisory length, -1 when the
// format does not frame it; EventEnd from PeekKind is the authoritative
// terminator either way. BeginStruct and BeginVariant receive the name the
// target expects; a driver that encodes names may validate, one that does
// not ignores the argument. BeginVariant reports the encoded variant name
// ("" when absent) and numeric tag (-1 when absent).
//
// Skip consumes and discards exactly one complete value, including any
// nested composite, leaving the stream aligned on the next event.
// SkipValue is an event-generic implementation drivers may delegate to.
type Source interface {
	PeekKind() (EventKind, error)

	ReadUnit() error
	ReadBool() (bool, error)
	ReadInt() (int64, error)
	ReadFloat() (float64, error)
	ReadText() (string, error)
	ReadBytes() ([]byte, error)
	ReadNil() error

	BeginSome() error
	EndSome() error
	BeginSequence() (int, error)
	EndSequence() error
	BeginMapping() (int, error)
	EndMapping() error
	BeginStruct(name string) (int, error)
	FieldName() (string, error)
	EndStruct() error
	BeginVariant(enum string) (string, int, error)
	EndVariant() error

	Skip() error
}

// SkipValue discards one complete value from s by walking its events,
// bounding composite nesting by maxDepth. Any driver error, including a
// malformed sub-tree, propagates unchanged.
func SkipValue(s Source, maxDepth int) error {
	var open []EventKind
	for {
		kind, err := s.PeekKind()
		if err != nil {
			return err
		}
		switch kind {
		case EventUnit:
			err = s.ReadUnit()
		case EventBool:
			_, err = s.ReadBool()
		case EventInt:
			_, err = s.ReadInt()
		case EventFloat:
			_, err = s.ReadFloat()
		case EventText:
			_, err = s.ReadText()
		case EventBytes:
			_, err = s.ReadBytes()
		case EventNil:
			err = s.ReadNil()
		case EventSome:
			err = s.BeginSome()
		case EventSequence:
			_, err = s.BeginSequence()
		case EventMapping:
			_, err = s.BeginMapping()
		case EventStruct:
			_, err = s.BeginStruct("")
		case EventVariant:
			_, _, err = s.BeginVariant("")
		case EventField:
			if _, err = s.FieldName(); err != nil {
				return err
			}
			continue // the field's value is still to come
		case EventEnd:
			if len(open) == 0 {
				return errors.Annotate(ErrShapeMismatch, "skip: end event with no open composite")
			}
			switch open[len(open)-1] {
			case EventSome:
				err = s.EndSome()
			case EventSequence:
				err = s.EndSequence()
			case EventMapping:
				err = s.EndMapping()
			case EventStruct:
				err = s.EndStruct()
			case EventVariant:
				err = s.EndVariant()
			}
			if err != nil {
				return err
			}
			open = open[:len(open)-1]
			if len(open) == 0 {
				return nil
			}
			continue
		default:
			return errors.Annotatef(ErrShapeMismatch, "skip: unexpected event %s", kind)
		}
		if err != nil {
			return err
		}
		switch kind {
		case EventSome, EventSequence, EventMapping, EventStruct, EventVariant:
			open = append(open, kind)
			if len(open) > maxDepth {
				return errors.Annotatef(ErrShapeMismatch, "skip: nesting exceeds %d levels", maxDepth)
			}
		default:
			if len(open) == 0 {
				return nil // a single scalar was the whole value
			}
		}
	}
}
