package serde_test

import (
	"reflect"
	"testing"

	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/driver/memory"
	"github.com/ikerlin/serde/internal/fixture"
	"github.com/ikerlin/serde/value"
)

func TestRoundTripPlayer(t *testing.T) {
	want := fixture.SamplePlayer()
	val, err := memory.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := memory.Unmarshal(val, got); err != nil {
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
		val, err := memory.Marshal(&want)
		if err != nil {
			t.Fatal(err.Error())
		}
		var got fixture.Shape
		if err := memory.Unmarshal(val, &got); err != nil {
			t.Fatal(err.Error())
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("expect: %+v, got: %+v", want, got)
		}
	}
}

func TestAbsentOptional(t *testing.T) {
	want := fixture.SamplePlayer()
	want.Alias = nil
	val, err := memory.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := memory.Unmarshal(val, got); err != nil {
		t.Fatal(err.Error())
	}
	if got.Alias != nil {
		t.Fatalf("alias should be absent, got: %q", *got.Alias)
	}
}

func TestEmptyCollections(t *testing.T) {
	want := fixture.SamplePlayer()
	want.Tags = []string{}
	want.Stats = map[string]int64{}
	val, err := memory.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := memory.Unmarshal(val, got); err != nil {
		t.Fatal(err.Error())
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("empty sequence should stay an empty collection, got: %#v", got.Tags)
	}
	if got.Stats == nil || len(got.Stats) != 0 {
		t.Fatalf("empty mapping should stay an empty collection, got: %#v", got.Stats)
	}
}

func TestUnknownFieldStrict(t *testing.T) {
	wide := &fixture.WidePlayer{Player: *fixture.SamplePlayer(), Motto: "onward"}
	val, err := memory.Marshal(wide)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	err = memory.Unmarshal(val, got)
	if !serde.IsUnknownField(err) {
		t.Fatalf("expect unknown field error, got: %v", err)
	}
}

func TestUnknownFieldLenient(t *testing.T) {
	wide := &fixture.WidePlayer{Player: *fixture.SamplePlayer(), Motto: "onward"}
	val, err := memory.Marshal(wide)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := memory.Unmarshal(val, got, serde.WithLenientFields()); err != nil {
		t.Fatal(err.Error())
	}
	if !reflect.DeepEqual(&wide.Player, got) {
		t.Fatalf("expect: %+v, got: %+v", &wide.Player, got)
	}
}

func TestNarrowingOverflow(t *testing.T) {
	val := value.Struct("player", value.Field{Name: "level", Value: value.Int(1 << 40)})
	got := &fixture.Player{}
	err := memory.Unmarshal(val, got)
	if !serde.IsInvalidPrimitive(err) {
		t.Fatalf("expect invalid primitive error, got: %v", err)
	}

	byteTarget := unmarshalFunc(func(d *serde.Decoder) error {
		_, err := d.Uint8()
		return err
	})
	if err := memory.Unmarshal(value.Int(300), byteTarget); !serde.IsInvalidPrimitive(err) {
		t.Fatalf("expect invalid primitive error, got: %v", err)
	}
	if err := memory.Unmarshal(value.Int(-1), byteTarget); !serde.IsInvalidPrimitive(err) {
		t.Fatalf("expect invalid primitive error, got: %v", err)
	}
}

func TestDuplicateMappingKey(t *testing.T) {
	val := value.Struct("player", value.Field{Name: "stats", Value: value.Mapping(
		value.Pair{Key: value.Text("wins"), Value: value.Int(1)},
		value.Pair{Key: value.Text("wins"), Value: value.Int(2)},
	)})
	got := &fixture.Player{}
	err := memory.Unmarshal(val, got)
	if !serde.IsDuplicateKey(err) {
		t.Fatalf("expect duplicate key error, got: %v", err)
	}
}

func TestVariantTagMismatch(t *testing.T) {
	// "circle" is index 1, the tag claims 0.
	val := value.SingleVariant("shape", "circle", 0, value.Float(1.0))
	var got fixture.Shape
	err := memory.Unmarshal(val, &got)
	if !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestVariantUnknownName(t *testing.T) {
	val := value.UnitVariant("shape", "pentagon", -1)
	var got fixture.Shape
	err := memory.Unmarshal(val, &got)
	if !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestVariantTagOnly(t *testing.T) {
	val := value.UnitVariant("shape", "", 0)
	var got fixture.Shape
	if err := memory.Unmarshal(val, &got); err != nil {
		t.Fatal(err.Error())
	}
	if got.Kind != fixture.Point {
		t.Fatalf("expect point, got: %v", got.Kind)
	}
}

func TestDepthLimit(t *testing.T) {
	val := value.Int(7)
	for i := 0; i < 8; i++ {
		val = value.Sequence(val)
	}

	var nested func(d *serde.Decoder, i int) error
	target := unmarshalFunc(func(d *serde.Decoder) error {
		nested = func(d *serde.Decoder, i int) error {
			kind, err := d.Kind()
			if err != nil {
				return err
			}
			if kind == serde.EventInt {
				_, err := d.Int()
				return err
			}
			return d.Sequence(nested)
		}
		return d.Sequence(nested)
	})

	err := memory.Unmarshal(val, target, serde.WithMaxDepth(4))
	if !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
	if err := memory.Unmarshal(val, target); err != nil {
		t.Fatal(err.Error())
	}
}

func TestResolveVariant(t *testing.T) {
	names := []string{"a", "b", "c"}

	i, err := serde.ResolveVariant("e", "b", -1, names)
	if err != nil || i != 1 {
		t.Fatalf("expect index 1, got: %d, %v", i, err)
	}
	i, err = serde.ResolveVariant("e", "b", 1, names)
	if err != nil || i != 1 {
		t.Fatalf("expect index 1, got: %d, %v", i, err)
	}
	i, err = serde.ResolveVariant("e", "", 2, names)
	if err != nil || i != 2 {
		t.Fatalf("expect index 2, got: %d, %v", i, err)
	}
	if _, err = serde.ResolveVariant("e", "", 3, names); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
	if _, err = serde.ResolveVariant("e", "c", 0, names); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

// unmarshalFunc adapts a bare function to serde.Unmarshaler.
type unmarshalFunc func(d *serde.Decoder) error

func (f unmarshalFunc) UnmarshalEvents(d *serde.Decoder) error { return f(d) }
