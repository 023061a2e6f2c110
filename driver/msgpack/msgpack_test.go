package msgpack_test

import (
	"reflect"
	"sort"
	"testing"

	vmsgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/driver/msgpack"
	"github.com/ikerlin/serde/internal/fixture"
	"github.com/ikerlin/serde/value"
)

func TestRoundTripPlayer(t *testing.T) {
	want := fixture.SamplePlayer()
	data, err := msgpack.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := msgpack.Unmarshal(data, got); err != nil {
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
		data, err := msgpack.Marshal(&want)
		if err != nil {
			t.Fatal(err.Error())
		}
		var got fixture.Shape
		if err := msgpack.Unmarshal(data, &got); err != nil {
			t.Fatal(err.Error())
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("expect: %+v, got: %+v", want, got)
		}
	}
}

// The encoding must stay plain MessagePack: a generic decoder sees a
// string-keyed map with the optional collapsed to its bare value.
func TestNativeDecoderReadsOutput(t *testing.T) {
	data, err := msgpack.Marshal(fixture.SamplePlayer())
	if err != nil {
		t.Fatal(err.Error())
	}

	var m map[string]interface{}
	if err := vmsgpack.Unmarshal(data, &m); err != nil {
		t.Fatal(err.Error())
	}
	if len(m) != 8 {
		t.Fatalf("expect 8 keys, got: %d", len(m))
	}
	if m["name"] != "kara" {
		t.Fatalf("expect kara, got: %v", m["name"])
	}
	if m["paid"] != true {
		t.Fatalf("expect true, got: %v", m["paid"])
	}
	if m["alias"] != "shadow" {
		t.Fatalf("optional should collapse to its value, got: %v", m["alias"])
	}
}

// The reverse direction: bytes produced by the native encoder decode
// through the event contract.
func TestNativeEncoderFeedsTargets(t *testing.T) {
	alias := "shadow"
	data, err := vmsgpack.Marshal(map[string]interface{}{
		"name":  "kara",
		"level": 42,
		"score": 99.5,
		"paid":  true,
		"alias": alias,
		"tags":  []string{"healer", "guild:north"},
		"stats": map[string]int64{"wins": 310, "losses": 12},
		"blob":  []byte{0x01, 0x02, 0xff},
	})
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := msgpack.Unmarshal(data, got); err != nil {
		t.Fatal(err.Error())
	}
	want := fixture.SamplePlayer()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expect: %+v, got: %+v", want, got)
	}
}

func TestUnitVariantIsString(t *testing.T) {
	data, err := msgpack.Marshal(&fixture.Shape{Kind: fixture.Point})
	if err != nil {
		t.Fatal(err.Error())
	}
	var s string
	if err := vmsgpack.Unmarshal(data, &s); err != nil {
		t.Fatal(err.Error())
	}
	if s != "point" {
		t.Fatalf("expect point, got: %q", s)
	}
}

func TestPayloadVariantIsPair(t *testing.T) {
	data, err := msgpack.Marshal(&fixture.Shape{Kind: fixture.Circle, Radius: 2.5})
	if err != nil {
		t.Fatal(err.Error())
	}
	var pair []interface{}
	if err := vmsgpack.Unmarshal(data, &pair); err != nil {
		t.Fatal(err.Error())
	}
	if len(pair) != 2 {
		t.Fatalf("expect 2 elements, got: %d", len(pair))
	}
	if pair[0] != "circle" {
		t.Fatalf("expect circle, got: %v", pair[0])
	}
	if pair[1] != 2.5 {
		t.Fatalf("expect 2.5, got: %v", pair[1])
	}
}

// packet has variants whose single payload is itself a container. Those
// payloads keep the one-element array wrapper on the wire; without it the
// reader would take a map payload for named fields and an array for
// several values.
type packet struct {
	kind  int
	items []int64
	attrs map[string]int64
	inner *packet
}

var packetNames = []string{"batch", "attrs", "wrap"}

func (p *packet) MarshalEvents(e *serde.Encoder) error {
	switch p.kind {
	case 0:
		return e.Variant("packet", "batch", 0, func(e *serde.Encoder) error {
			return e.Sequence(len(p.items), func(e *serde.Encoder, i int) error { return e.Int(p.items[i]) })
		})
	case 1:
		keys := make([]string, 0, len(p.attrs))
		for k := range p.attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return e.Variant("packet", "attrs", 1, func(e *serde.Encoder) error {
			return e.Mapping(len(keys), func(e *serde.Encoder, i int) error {
				if err := e.Text(keys[i]); err != nil {
					return err
				}
				return e.Int(p.attrs[keys[i]])
			})
		})
	default:
		return e.Variant("packet", "wrap", 2, p.inner.MarshalEvents)
	}
}

func (p *packet) UnmarshalEvents(d *serde.Decoder) error {
	return d.Variant("packet", packetNames, func(d *serde.Decoder, index int) error {
		p.kind = index
		switch index {
		case 0:
			p.items = make([]int64, 0)
			return d.Sequence(func(d *serde.Decoder, i int) error {
				v, err := d.Int()
				if err != nil {
					return err
				}
				p.items = append(p.items, v)
				return nil
			})
		case 1:
			p.attrs = make(map[string]int64)
			return d.Mapping(func(d *serde.Decoder) error {
				k, err := d.Text()
				if err != nil {
					return err
				}
				v, err := d.Int()
				if err != nil {
					return err
				}
				p.attrs[k] = v
				return nil
			})
		default:
			p.inner = &packet{}
			return p.inner.UnmarshalEvents(d)
		}
	})
}

func TestContainerPayloadVariants(t *testing.T) {
	packets := []*packet{
		{kind: 0, items: []int64{1, 2}},
		{kind: 1, attrs: map[string]int64{"ttl": 30, "hops": 4}},
		{kind: 2, inner: &packet{kind: 0, items: []int64{7}}},
	}
	for _, want := range packets {
		data, err := msgpack.Marshal(want)
		if err != nil {
			t.Fatal(err.Error())
		}
		got := &packet{}
		if err := msgpack.Unmarshal(data, got); err != nil {
			t.Fatal(err.Error())
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("expect: %+v, got: %+v", want, got)
		}
	}

	data, err := msgpack.Marshal(packets[0])
	if err != nil {
		t.Fatal(err.Error())
	}
	var pair []interface{}
	if err := vmsgpack.Unmarshal(data, &pair); err != nil {
		t.Fatal(err.Error())
	}
	if len(pair) != 2 {
		t.Fatalf("expect 2 elements, got: %d", len(pair))
	}
	wrapper, ok := pair[1].([]interface{})
	if !ok || len(wrapper) != 1 {
		t.Fatalf("expect a one-element payload wrapper, got: %v", pair[1])
	}
}

func TestLengthRequired(t *testing.T) {
	w := msgpack.NewWriter()
	if err := w.BeginSequence(-1); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestTruncatedInput(t *testing.T) {
	data, err := msgpack.Marshal(fixture.SamplePlayer())
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := msgpack.Unmarshal(data[:len(data)/2], got); !serde.IsTruncated(err) {
		t.Fatalf("expect truncated error, got: %v", err)
	}
}

func TestUnknownFieldPolicy(t *testing.T) {
	wide := &fixture.WidePlayer{Player: *fixture.SamplePlayer(), Motto: "onward"}
	data, err := msgpack.Marshal(wide)
	if err != nil {
		t.Fatal(err.Error())
	}

	got := &fixture.Player{}
	if err := msgpack.Unmarshal(data, got); !serde.IsUnknownField(err) {
		t.Fatalf("expect unknown field error, got: %v", err)
	}

	got = &fixture.Player{}
	if err := msgpack.Unmarshal(data, got, serde.WithLenientFields()); err != nil {
		t.Fatal(err.Error())
	}
	if !reflect.DeepEqual(&wide.Player, got) {
		t.Fatalf("expect: %+v, got: %+v", &wide.Player, got)
	}
}

func TestDeclaredLengthEnforced(t *testing.T) {
	w := msgpack.NewWriter()
	if err := w.BeginSequence(2); err != nil {
		t.Fatal(err.Error())
	}
	if err := w.EmitInt(1); err != nil {
		t.Fatal(err.Error())
	}
	if err := w.EndSequence(); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestGenericValueRead(t *testing.T) {
	data, err := msgpack.Marshal(value.Sequence(value.Int(1), value.Text("two"), value.Bool(true)))
	if err != nil {
		t.Fatal(err.Error())
	}
	got, err := value.Read(msgpack.NewReader(data))
	if err != nil {
		t.Fatal(err.Error())
	}
	want := value.Sequence(value.Int(1), value.Text("two"), value.Bool(true))
	if !got.Equal(want) {
		t.Fatalf("expect %s, got %s", want, got)
	}
}

func TestCodec(t *testing.T) {
	codec := msgpack.NewCodec()
	want := fixture.SamplePlayer()
	data, err := codec.Marshal(want)
	if err != nil {
		t.Fatal(err.Error())
	}
	got := &fixture.Player{}
	if err := codec.Unmarshal(data, got); err != nil {
		t.Fatal(err.Error())
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("expect: %+v, got: %+v", want, got)
	}
}
