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

// Package serde is a format-agnostic serialization core. A type describes
// itself to a format driver as a stream of primitive events, and rebuilds
// itself from the same stream, so one implementation of the contract works
// against every driver: the in-memory reference driver, a binary format,
// a text format, or anything else implementing Emitter and Source.
//
// The package defines only the conversion contract and the driver
// interfaces. Concrete byte-level formats live in their own packages under
// driver/ and depend on this one, never the other way around.
package serde

// Marshaler is the serialization contract. MarshalEvents describes the
// receiver to the driver behind e as a well-formed nested event sequence,
// emitting fields and elements in a fixed, deterministic order.
type Marshaler interface {
	MarshalEvents(e *Encoder) error
}

// Unmarshaler is the deserialization contract. UnmarshalEvents pulls a
// matched event sequence from the driver behind d and reconstructs the
// receiver from it.
type Unmarshaler interface {
	UnmarshalEvents(d *Decoder) error
}

// Codec is the byte-level convenience surface a concrete format driver
// package provides on top of the event interfaces.
type Codec interface {
	Marshal(v Marshaler) ([]byte, error)
	Unmarshal(data []byte, v Unmarshaler) error
}

// Marshal runs one serialization of v against the given driver. Driver
// errors are propagated unchanged; the driver owns whatever output the
// walk produced.
func Marshal(v Marshaler, drv Emitter) error {
	return v.MarshalEvents(NewEncoder(drv))
}

// Unmarshal reconstructs v from the event stream produced by drv, which
// must be positioned at the start of the encoded representation of one
// value. On error the caller must not use v: it may have been partially
// written.
func Unmarshal(drv Source, v Unmarshaler, opts ...Option) error {
	return v.UnmarshalEvents(NewDecoder(drv, opts...))
}

// FieldPolicy selects how the Decoder treats a struct field the target
// type does not recognize.
type FieldPolicy byte

const (
	// StrictFields reports an unknown field as an error.
	StrictFields FieldPolicy = iota

	// LenientFields discards an unknown field, consuming its full
	// sub-tree so the stream stays aligned.
	LenientFields
)

// DefaultMaxDepth bounds composite nesting during deserialization and
// skipping, so hostile input cannot grow the call stack without limit.
const DefaultMaxDepth = 1024

type options struct {
	policy   FieldPolicy
	maxDepth int
}

// Option tunes one Unmarshal call or one Decoder.
type Option func(*options)

// WithLenientFields switches the unknown-field policy from the default
// StrictFields to LenientFields.
func WithLenientFields() Option {
	return func(opt *options) {
		opt.policy = LenientFields
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(opt *options) {
		if n > 0 {
			opt.maxDepth = n
		}
	}
}

func defaultOptions() options {
	return options{policy: StrictFields, maxDepth: DefaultMaxDepth}
}
