package etf_test

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/pingcap/errors"

	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/driver/etf"
	"github.com/ikerlin/serde/internal/fixture"
	"github.com/ikerlin/serde/value"
)

func TestRoundTripPlayer(t *testing.T) {
	want := fixture.SamplePlayer()
	data, err := etf.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := etf.Unmarshal(data, got); err != nil {
		t.Fatal(err.Error())
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expect: %+v, got: %+v", want, got)
	}
}

func TestRoundTripShapes(t *testing.T) {
	shapes := []fixture.Shape{
		{Kind: fixture.Point},
		{Kind: fixture.Circle, Radius: 2.5},
		{Kind: fixture.Rect, W: 3, H: 4},
		{Kind: fixture.Label, Text: "origin", Size: 12},
	}
	for _, want := range shapes {
		data, err := etf.Marshal(&want)
		if err != nil {
			t.Fatal(err.Error())
		}
		var got fixture.Shape
		if err := etf.Unmarshal(data, &got); err != nil {
			t.Fatal(err.Error())
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("expect: %+v, got: %+v", want, got)
		}
	}
}

func TestScalarEncoding(t *testing.T) {
	cases := []struct {
		src  value.Value
		want []byte
	}{
		{value.Int(7), []byte{131, 97, 7}},
		{value.Int(-1), []byte{131, 98, 255, 255, 255, 255}},
		{value.Bool(true), []byte{131, 119, 4, 't', 'r', 'u', 'e'}},
		{value.Bool(false), []byte{131, 119, 5, 'f', 'a', 'l', 's', 'e'}},
		{value.None(), []byte{131, 119, 3, 'n', 'i', 'l'}},
		{value.Unit(), []byte{131, 119, 3, 'n', 'i', 'l'}},
		{value.Text("hi"), []byte{131, 109, 0, 0, 0, 2, 'h', 'i'}},
		{value.Sequence(), []byte{131, 106}},
	}
	for _, cs := range cases {
		data, err := etf.Marshal(cs.src)
		if err != nil {
			t.Fatal(err.Error())
		}
		if !bytes.Equal(data, cs.want) {
			t.Fatalf("%s: expect % x, got % x", cs.src, cs.want, data)
		}
	}
}

func TestStructBecomesAtomKeyedMap(t *testing.T) {
	src := value.Struct("config", value.Field{Name: "port", Value: value.Int(80)})
	data, err := etf.Marshal(src)
	if err != nil {
		t.Fatal(err.Error())
	}
	want := []byte{131, 116, 0, 0, 0, 1, 119, 4, 'p', 'o', 'r', 't', 97, 80}
	if !bytes.Equal(data, want) {
		t.Fatalf("expect % x, got % x", want, data)
	}
}

func TestUnitVariantBecomesAtom(t *testing.T) {
	data, err := etf.Marshal(&fixture.Shape{Kind: fixture.Point})
	if err != nil {
		t.Fatal(err.Error())
	}
	want := []byte{131, 119, 5, 'p', 'o', 'i', 'n', 't'}
	if !bytes.Equal(data, want) {
		t.Fatalf("expect % x, got % x", want, data)
	}
}

func TestPayloadVariantBecomesTuple(t *testing.T) {
	data, err := etf.Marshal(&fixture.Shape{Kind: fixture.Circle, Radius: 2.5})
	if err != nil {
		t.Fatal(err.Error())
	}
	want := []byte{131, 104, 2, 119, 6, 'c', 'i', 'r', 'c', 'l', 'e'}
	if !bytes.HasPrefix(data, want) {
		t.Fatalf("expect prefix % x, got % x", want, data)
	}
}

// A single payload that is itself a tuple or map keeps the {name, {payload}}
// wrapper on the wire; without it the reader would take a map payload for
// named fields and a nested variant for several values.
func TestContainerPayloadVariants(t *testing.T) {
	variants := []value.Value{
		value.SingleVariant("", "attrs", -1, value.Mapping(
			value.Pair{Key: value.Text("k"), Value: value.Int(5)},
		)),
		value.SingleVariant("", "outer", -1, value.SingleVariant("", "inner", -1, value.Int(7))),
		value.SingleVariant("", "chunk", -1, value.Sequence(value.Int(1), value.Int(2))),
		value.TupleVariant("", "pair", -1, value.Sequence(value.Int(1)), value.Text("x")),
	}
	for _, want := range variants {
		data, err := etf.Marshal(want)
		if err != nil {
			t.Fatal(err.Error())
		}
		got, err := value.Read(etf.NewReader(data))
		if err != nil {
			t.Fatal(err.Error())
		}
		if !got.Equal(want) {
			t.Fatalf("expect %s, got %s", want, got)
		}
	}

	data, err := etf.Marshal(variants[0])
	if err != nil {
		t.Fatal(err.Error())
	}
	prefix := []byte{131, 104, 2, 119, 5, 'a', 't', 't', 'r', 's', 104, 1, 116}
	if !bytes.HasPrefix(data, prefix) {
		t.Fatalf("expect prefix % x, got % x", prefix, data)
	}
}

// An empty list is NIL_EXT while the absent optional is the atom nil; the
// two must not blur into each other.
func TestEmptyListDistinctFromNil(t *testing.T) {
	want := fixture.SamplePlayer()
	want.Tags = []string{}
	want.Alias = nil
	data, err := etf.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := etf.Unmarshal(data, got); err != nil {
		t.Fatal(err.Error())
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("empty sequence should stay an empty collection, got: %#v", got.Tags)
	}
	if got.Alias != nil {
		t.Fatalf("alias should be absent, got: %q", *got.Alias)
	}
}

func TestBigIntegers(t *testing.T) {
	for _, n := range []int64{math.MaxInt64, math.MinInt64, math.MaxInt32 + 1, math.MinInt32 - 1} {
		data, err := etf.Marshal(value.Int(n))
		if err != nil {
			t.Fatal(err.Error())
		}
		got, err := value.Read(etf.NewReader(data))
		if err != nil {
			t.Fatal(err.Error())
		}
		if got.Int() != n {
			t.Fatalf("expect %d, got %d", n, got.Int())
		}
	}
}

func TestIntegerOverflow(t *testing.T) {
	// small big with nine significant magnitude digits
	data := []byte{131, 110, 9, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, err := value.Read(etf.NewReader(data))
	if !serde.IsInvalidPrimitive(err) {
		t.Fatalf("expect invalid primitive error, got: %v", err)
	}
}

func TestTruncatedInput(t *testing.T) {
	data, err := etf.Marshal(fixture.SamplePlayer())
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := etf.Unmarshal(data[:len(data)/2], got); !serde.IsTruncated(err) {
		t.Fatalf("expect truncated error, got: %v", err)
	}
}

func TestBadVersion(t *testing.T) {
	got := &fixture.Player{}
	err := etf.Unmarshal([]byte{130, 97, 7}, got)
	if errors.Cause(err) != etf.ErrBadVersion {
		t.Fatalf("expect bad version error, got: %v", err)
	}
}

func TestInvalidUTF8Text(t *testing.T) {
	data := []byte{131, 109, 0, 0, 0, 1, 0xff}
	_, err := value.Read(etf.NewReader(data))
	if !serde.IsInvalidPrimitive(err) {
		t.Fatalf("expect invalid primitive error, got: %v", err)
	}
}

func TestUnknownFieldPolicy(t *testing.T) {
	wide := &fixture.WidePlayer{Player: *fixture.SamplePlayer(), Motto: "onward"}
	data, err := etf.Marshal(wide)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := etf.Unmarshal(data, got); !serde.IsUnknownField(err) {
		t.Fatalf("expect unknown field error, got: %v", err)
	}

	got = &fixture.Player{}
	if err := etf.Unmarshal(data, got, serde.WithLenientFields()); err != nil {
		t.Fatal(err.Error())
	}
	if !reflect.DeepEqual(&wide.Player, got) {
		t.Fatalf("expect: %+v, got: %+v", &wide.Player, got)
	}
}

func TestCodec(t *testing.T) {
	codec := etf.NewCodec(serde.WithLenientFields())
	wide := &fixture.WidePlayer{Player: *fixture.SamplePlayer(), Motto: "onward"}
	data, err := codec.Marshal(wide)
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := codec.Unmarshal(data, got); err != nil {
		t.Fatal(err.Error())
	}
	if !reflect.DeepEqual(&wide.Player, got) {
		t.Fatalf("expect: %+v, got: %+v", &wide.Player, got)
	}
}

func BenchmarkMarshalPlayer(b *testing.B) {
	p := fixture.SamplePlayer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := etf.Marshal(p); err != nil {
			b.Fatal(err.Error())
		}
	}
}

func BenchmarkUnmarshalPlayer(b *testing.B) {
	data, err := etf.Marshal(fixture.SamplePlayer())
	if err != nil {
		b.Fatal(err.Error())
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		got := &fixture.Player{}
		if err := etf.Unmarshal(data, got); err != nil {
			b.Fatal(err.Error())
		}
	}
}
