package memory

import (
	"testing"

	"github.com/ikerlin/serde"
	"github.com/ikerlin/serde/value"
)

func TestBuilderScalarRoot(t *testing.T) {
	b := NewBuilder()
	if err := b.EmitInt(7); err != nil {
		t.Fatal(err.Error())
	}
	v, err := b.Result()
	if err != nil {
		t.Fatal(err.Error())
	}
	if !v.Equal(value.Int(7)) {
		t.Fatalf("expect Int(7), got: %s", v)
	}
}

func TestBuilderUnclosed(t *testing.T) {
	b := NewBuilder()
	if err := b.BeginSequence(1); err != nil {
		t.Fatal(err.Error())
	}
	if _, err := b.Result(); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestBuilderEmpty(t *testing.T) {
	if _, err := NewBuilder().Result(); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestBuilderSecondRoot(t *testing.T) {
	b := NewBuilder()
	if err := b.EmitInt(1); err != nil {
		t.Fatal(err.Error())
	}
	if err := b.EmitInt(2); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestBuilderOddMapping(t *testing.T) {
	b := NewBuilder()
	if err := b.BeginMapping(1); err != nil {
		t.Fatal(err.Error())
	}
	if err := b.EmitText("key"); err != nil {
		t.Fatal(err.Error())
	}
	if err := b.EndMapping(); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestBuilderMismatchedEnd(t *testing.T) {
	b := NewBuilder()
	if err := b.BeginSequence(0); err != nil {
		t.Fatal(err.Error())
	}
	if err := b.EndMapping(); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestReaderExhausted(t *testing.T) {
	r := NewReader(value.Int(7))
	if _, err := r.ReadInt(); err != nil {
		t.Fatal(err.Error())
	}
	if _, err := r.ReadInt(); !serde.IsTruncated(err) {
		t.Fatalf("expect truncated error, got: %v", err)
	}
}

func TestReaderStructNameMismatch(t *testing.T) {
	r := NewReader(value.Struct("player"))
	if _, err := r.BeginStruct("monster"); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestReaderWrongKind(t *testing.T) {
	r := NewReader(value.Text("not a number"))
	if _, err := r.ReadInt(); !serde.IsShapeMismatch(err) {
		t.Fatalf("expect shape mismatch error, got: %v", err)
	}
}

func TestReaderSkipField(t *testing.T) {
	src := value.Struct("box",
		value.Field{Name: "junk", Value: value.Sequence(value.Int(1), value.Int(2))},
		value.Field{Name: "keep", Value: value.Int(9)},
	)
	r := NewReader(src)
	if _, err := r.BeginStruct("box"); err != nil {
		t.Fatal(err.Error())
	}
	name, err := r.FieldName()
	if err != nil || name != "junk" {
		t.Fatalf("expect junk, got: %q, %v", name, err)
	}
	if err := r.Skip(); err != nil {
		t.Fatal(err.Error())
	}
	name, err = r.FieldName()
	if err != nil || name != "keep" {
		t.Fatalf("expect keep, got: %q, %v", name, err)
	}
	v, err := r.ReadInt()
	if err != nil || v != 9 {
		t.Fatalf("expect 9, got: %d, %v", v, err)
	}
	if kind, _ := r.PeekKind(); kind != serde.EventEnd {
		t.Fatalf("expect end event, got: %s", kind)
	}
	if err := r.EndStruct(); err != nil {
		t.Fatal(err.Error())
	}
}

func TestReaderAdvisoryLengths(t *testing.T) {
	r := NewReader(value.Sequence(value.Int(1), value.Int(2)))
	n, err := r.BeginSequence()
	if err != nil {
		t.Fatal(err.Error())
	}
	if n != 2 {
		t.Fatalf("expect advisory length 2, got: %d", n)
	}
}
