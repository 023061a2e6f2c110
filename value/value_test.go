package value

import (
	"math"
	"testing"
)

func TestScalarAccessors(t *testing.T) {
	if v := Bool(true); !v.Bool() || v.Kind() != KindBool {
		t.Fail()
	}
	if v := Int(-7); v.Int() != -7 || v.Kind() != KindInt {
		t.Fail()
	}
	if v := Float(2.5); v.Float() != 2.5 || v.Kind() != KindFloat {
		t.Fail()
	}
	if v := Text("hi"); v.Text() != "hi" || v.Kind() != KindText {
		t.Fail()
	}
	if v := Unit(); v.Kind() != KindUnit {
		t.Fail()
	}
	if v := None(); v.Kind() != KindNil {
		t.Fail()
	}
}

func TestBytesCopied(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Bytes(src)
	src[0] = 99
	if v.Bytes()[0] != 1 {
		t.Fatal("constructor should copy its input")
	}

	out := v.Bytes()
	out[1] = 99
	if v.Bytes()[1] != 2 {
		t.Fatal("accessor should hand out a copy")
	}
}

func TestSequenceCopied(t *testing.T) {
	elems := []Value{Int(1), Int(2)}
	v := Sequence(elems...)
	elems[0] = Int(99)
	if v.Items()[0].Int() != 1 {
		t.Fatal("constructor should copy its input")
	}
}

func TestEqual(t *testing.T) {
	a := Struct("point",
		Field{Name: "x", Value: Int(1)},
		Field{Name: "y", Value: Int(2)},
	)
	b := Struct("point",
		Field{Name: "x", Value: Int(1)},
		Field{Name: "y", Value: Int(2)},
	)
	if !a.Equal(b) {
		t.Fatal("identical structs should be equal")
	}

	// field order is significant
	c := Struct("point",
		Field{Name: "y", Value: Int(2)},
		Field{Name: "x", Value: Int(1)},
	)
	if a.Equal(c) {
		t.Fatal("field order should matter")
	}

	if Int(1).Equal(Float(1)) {
		t.Fatal("kinds should matter")
	}
	if !Some(Int(1)).Equal(Some(Int(1))) {
		t.Fail()
	}
	if Some(Int(1)).Equal(None()) {
		t.Fail()
	}
}

func TestEqualNaN(t *testing.T) {
	nan := Float(math.NaN())
	if nan.Equal(nan) {
		t.Fatal("NaN should not equal itself")
	}
}

func TestVariantShapes(t *testing.T) {
	u := UnitVariant("shape", "point", 0)
	if u.Payload() != PayloadNone || u.Name() != "point" || u.Enum() != "shape" || u.Tag() != 0 {
		t.Fatalf("unexpected unit variant: %s", u)
	}

	s := SingleVariant("shape", "circle", 1, Float(2.5))
	if s.Payload() != PayloadSingle || s.Inner().Float() != 2.5 {
		t.Fatalf("unexpected single variant: %s", s)
	}

	tu := TupleVariant("shape", "rect", 2, Int(3), Int(4))
	if tu.Payload() != PayloadTuple || tu.Len() != 2 {
		t.Fatalf("unexpected tuple variant: %s", tu)
	}

	n := NamedVariant("shape", "label", 3, Field{Name: "text", Value: Text("t")})
	if n.Payload() != PayloadNamed || n.Fields()[0].Name != "text" {
		t.Fatalf("unexpected named variant: %s", n)
	}
}

func TestLen(t *testing.T) {
	if Sequence(Int(1), Int(2), Int(3)).Len() != 3 {
		t.Fail()
	}
	if Mapping(Pair{Key: Text("k"), Value: Int(1)}).Len() != 1 {
		t.Fail()
	}
	if Struct("s", Field{Name: "a", Value: Int(1)}).Len() != 1 {
		t.Fail()
	}
}
