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

// Package fixture holds hand-written event bindings shared by the driver
// tests: an aggregate exercising every composite kind and an enum
// exercising every payload form.
package fixture

import (
	"sort"

	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
)

// Player is a typical aggregate: scalars, an optional, a sequence, a
// mapping and raw bytes.
type Player struct {
	Name  string
	Level int32
	Score float64
	Paid  bool
	Alias *string
	Tags  []string
	Stats map[string]int64
	Blob  []byte
}

// SamplePlayer returns a Player touching every field.
func SamplePlayer() *Player {
	alias := "shadow"
	return &Player{
		Name:  "kara",
		Level: 42,
		Score: 99.5,
		Paid:  true,
		Alias: &alias,
		Tags:  []string{"healer", "guild:north"},
		Stats: map[string]int64{"wins": 310, "losses": 12},
		Blob:  []byte{0x01, 0x02, 0xff},
	}
}

// MarshalEvents implements serde.Marshaler.
func (p *Player) MarshalEvents(e *serde.Encoder) error {
	return e.Struct("player", 8, p.emitFields)
}

func (p *Player) emitFields(e *serde.Encoder) error {
	if err := e.Field("name", func(e *serde.Encoder) error { return e.Text(p.Name) }); err != nil {
		return err
	}
	if err := e.Field("level", func(e *serde.Encoder) error { return e.Int(int64(p.Level)) }); err != nil {
		return err
	}
	if err := e.Field("score", func(e *serde.Encoder) error { return e.Float(p.Score) }); err != nil {
		return err
	}
	if err := e.Field("paid", func(e *serde.Encoder) error { return e.Bool(p.Paid) }); err != nil {
		return err
	}
	if err := e.Field("alias", func(e *serde.Encoder) error {
		if p.Alias == nil {
			return e.Nil()
		}
		return e.Some(func(e *serde.Encoder) error { return e.Text(*p.Alias) })
	}); err != nil {
		return err
	}
	if err := e.Field("tags", func(e *serde.Encoder) error {
		return e.Sequence(len(p.Tags), func(e *serde.Encoder, i int) error { return e.Text(p.Tags[i]) })
	}); err != nil {
		return err
	}
	if err := e.Field("stats", func(e *serde.Encoder) error {
		keys := make([]string, 0, len(p.Stats))
		for k := range p.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return e.Mapping(len(keys), func(e *serde.Encoder, i int) error {
			if err := e.Text(keys[i]); err != nil {
				return err
			}
			return e.Int(p.Stats[keys[i]])
		})
	}); err != nil {
		return err
	}
	return e.Field("blob", func(e *serde.Encoder) error { return e.Bytes(p.Blob) })
}

// UnmarshalEvents implements serde.Unmarshaler.
func (p *Player) UnmarshalEvents(d *serde.Decoder) error {
	return d.Struct("player", func(d *serde.Decoder, field string) error {
		switch field {
		case "name":
			v, err := d.Text()
			if err != nil {
				return err
			}
			p.Name = v
		case "level":
			v, err := d.Int32()
			if err != nil {
				return err
			}
			p.Level = v
		case "score":
			v, err := d.Float()
			if err != nil {
				return err
			}
			p.Score = v
		case "paid":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			p.Paid = v
		case "alias":
			p.Alias = nil
			_, err := d.Optional(func(d *serde.Decoder) error {
				v, err := d.Text()
				if err != nil {
					return err
				}
				p.Alias = &v
				return nil
			})
			return err
		case "tags":
			p.Tags = make([]string, 0)
			return d.Sequence(func(d *serde.Decoder, i int) error {
				v, err := d.Text()
				if err != nil {
					return err
				}
				p.Tags = append(p.Tags, v)
				return nil
			})
		case "stats":
			p.Stats = make(map[string]int64)
			return d.Mapping(func(d *serde.Decoder) error {
				k, err := d.Text()
				if err != nil {
					return err
				}
				v, err := d.Int()
				if err != nil {
					return err
				}
				if _, dup := p.Stats[k]; dup {
					return errors.Annotatef(serde.ErrDuplicateKey, "stats key %q", k)
				}
				p.Stats[k] = v
				return nil
			})
		case "blob":
			v, err := d.Bytes()
			if err != nil {
				return err
			}
			p.Blob = v
		default:
			return serde.ErrUnknownField
		}
		return nil
	})
}

// WidePlayer encodes the same shape as Player plus a field Player does
// not know, for exercising the unknown-field policy.
type WidePlayer struct {
	Player
	Motto string
}

// MarshalEvents implements serde.Marshaler.
func (p *WidePlayer) MarshalEvents(e *serde.Encoder) error {
	return e.Struct("player", 9, func(e *serde.Encoder) error {
		if err := p.emitFields(e); err != nil {
			return err
		}
		return e.Field("motto", func(e *serde.Encoder) error { return e.Text(p.Motto) })
	})
}

// ShapeKind enumerates the Shape variants in declaration order.
type ShapeKind int

const (
	Point ShapeKind = iota
	Circle
	Rect
	Label
)

// ShapeNames is the variant name table of Shape.
var ShapeNames = []string{"point", "circle", "rect", "label"}

// Shape is an enum with a unit variant, a single payload, a tuple payload
// and a named payload.
type Shape struct {
	Kind   ShapeKind
	Radius float64 // Circle
	W, H   int64   // Rect
	Text   string  // Label
	Size   int64   // Label
}

// MarshalEvents implements serde.Marshaler.
func (s *Shape) MarshalEvents(e *serde.Encoder) error {
	if s.Kind < Point || int(s.Kind) >= len(ShapeNames) {
		return errors.Annotatef(serde.ErrShapeMismatch, "unknown shape kind %d", s.Kind)
	}
	name := ShapeNames[s.Kind]
	switch s.Kind {
	case Circle:
		return e.Variant("shape", name, int(s.Kind), func(e *serde.Encoder) error {
			return e.Float(s.Radius)
		})
	case Rect:
		return e.Variant("shape", name, int(s.Kind), func(e *serde.Encoder) error {
			if err := e.Int(s.W); err != nil {
				return err
			}
			return e.Int(s.H)
		})
	case Label:
		return e.Variant("shape", name, int(s.Kind), func(e *serde.Encoder) error {
			if err := e.Field("text", func(e *serde.Encoder) error { return e.Text(s.Text) }); err != nil {
				return err
			}
			return e.Field("size", func(e *serde.Encoder) error { return e.Int(s.Size) })
		})
	default:
		return e.Variant("shape", name, int(s.Kind), nil)
	}
}

// UnmarshalEvents implements serde.Unmarshaler.
func (s *Shape) UnmarshalEvents(d *serde.Decoder) error {
	return d.Variant("shape", ShapeNames, func(d *serde.Decoder, index int) error {
		*s = Shape{Kind: ShapeKind(index)}
		switch s.Kind {
		case Circle:
			v, err := d.Float()
			if err != nil {
				return err
			}
			s.Radius = v
		case Rect:
			w, err := d.Int()
			if err != nil {
				return err
			}
			h, err := d.Int()
			if err != nil {
				return err
			}
			s.W, s.H = w, h
		case Label:
			return d.Fields("label", func(d *serde.Decoder, field string) error {
				switch field {
				case "text":
					v, err := d.Text()
					if err != nil {
						return err
					}
					s.Text = v
				case "size":
					v, err := d.Int()
					if err != nil {
						return err
					}
					s.Size = v
				default:
					return serde.ErrUnknownField
				}
				return nil
			})
		}
		return nil
	})
}
