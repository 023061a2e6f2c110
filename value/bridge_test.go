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

package value_test

import (
	"testing"

	. "github.com/pingcap/check"

	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/driver/memory"
	"github.com/ikerlin/serde/value"
)

type bridgeSuite struct{}

func TestBridge(t *testing.T) {
	TestingT(t)
}

var _ = Suite(&bridgeSuite{})

func sample() value.Value {
	return value.Struct("session",
		value.Field{Name: "id", Value: value.Int(1001)},
		value.Field{Name: "open", Value: value.Bool(true)},
		value.Field{Name: "ratio", Value: value.Float(0.75)},
		value.Field{Name: "token", Value: value.Bytes([]byte{0xde, 0xad})},
		value.Field{Name: "note", Value: value.Some(value.Text("resumed"))},
		value.Field{Name: "gaps", Value: value.None()},
		value.Field{Name: "peers", Value: value.Sequence(value.Text("a"), value.Text("b"))},
		value.Field{Name: "limits", Value: value.Mapping(
			value.Pair{Key: value.Text("rate"), Value: value.Int(100)},
		)},
		value.Field{Name: "state", Value: value.SingleVariant("state", "active", 1, value.Int(3))},
	)
}

func (s *bridgeSuite) TestEmitRebuild(c *C) {
	// a Value emitted through the contract and rebuilt by the in-memory
	// driver reproduces itself exactly, names included
	src := sample()
	b := memory.NewBuilder()
	c.Assert(serde.Marshal(src, b), IsNil)
	got, err := b.Result()
	c.Assert(err, IsNil)
	c.Assert(got.Equal(src), Equals, true)
}

func (s *bridgeSuite) TestGenericRead(c *C) {
	// the generic read recovers the whole tree; struct and enum names are
	// advisory and come back empty
	src := sample()
	got, err := value.Read(memory.NewReader(src))
	c.Assert(err, IsNil)

	c.Assert(got.Kind(), Equals, value.KindStruct)
	c.Assert(got.Name(), Equals, "")
	fields := got.Fields()
	c.Assert(len(fields), Equals, len(sample().Fields()))
	c.Assert(fields[0].Name, Equals, "id")
	c.Assert(fields[0].Value.Int(), Equals, int64(1001))
	c.Assert(fields[4].Value.Kind(), Equals, value.KindSome)
	c.Assert(fields[4].Value.Inner().Text(), Equals, "resumed")
	c.Assert(fields[5].Value.Kind(), Equals, value.KindNil)

	state := fields[8].Value
	c.Assert(state.Kind(), Equals, value.KindVariant)
	c.Assert(state.Enum(), Equals, "")
	c.Assert(state.Name(), Equals, "active")
	c.Assert(state.Tag(), Equals, 1)
	c.Assert(state.Inner().Int(), Equals, int64(3))
}

func (s *bridgeSuite) TestVariantRoundTrips(c *C) {
	variants := []value.Value{
		value.UnitVariant("state", "idle", 0),
		value.SingleVariant("state", "active", 1, value.Int(3)),
		value.TupleVariant("state", "moving", 2, value.Int(4), value.Int(5)),
		value.NamedVariant("state", "blocked", 3, value.Field{Name: "by", Value: value.Text("peer")}),
	}
	for _, src := range variants {
		b := memory.NewBuilder()
		c.Assert(serde.Marshal(src, b), IsNil)
		got, err := b.Result()
		c.Assert(err, IsNil)
		c.Assert(got.Equal(src), Equals, true)
	}
}
