package pdfgraph

import (
	"bytes"
	"strings"
	"testing"
)

func TestObjectWriteNoStream(t *testing.T) {
	d := NewDictionary()
	d.Set("Type", Name("Catalog"))
	obj := NewObject(1, 0, d)

	var buf bytes.Buffer
	if err := obj.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := buf.String()
	want := "1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestObjectWriteWithStream(t *testing.T) {
	d := NewDictionary()
	obj := NewObject(5, 0, d)
	obj.Stream = []byte("hello")

	var buf bytes.Buffer
	if err := obj.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "/Length 5") {
		t.Errorf("expected /Length 5 in output, got %q", got)
	}
	if !strings.Contains(got, "stream\nhello\nendstream\n") {
		t.Errorf("unexpected stream framing: %q", got)
	}
	if strings.Contains(got, "/Filter") {
		t.Errorf("unfiltered stream must not carry /Filter: %q", got)
	}
}

func TestObjectWriteStreamRequiresDictionary(t *testing.T) {
	obj := NewObject(1, 0, Integer(5))
	obj.Stream = []byte("x")
	if err := obj.Write(&bytes.Buffer{}); err == nil {
		t.Error("expected error when a non-dictionary value carries a stream")
	}
}

func TestObjectCloneIsDeep(t *testing.T) {
	d := NewDictionary()
	d.Set("A", Integer(1))
	obj := NewObject(3, 0, d)
	obj.Stream = []byte("data")

	clone := obj.Clone()
	clone.Dict().Set("A", Integer(2))
	clone.Stream[0] = 'X'

	if obj.Dict().Get("A") != Integer(1) {
		t.Error("clone mutated original dictionary")
	}
	if obj.Stream[0] != 'd' {
		t.Error("clone mutated original stream bytes")
	}
}

func TestObjectReference(t *testing.T) {
	obj := NewObject(7, 2, Null{})
	ref := obj.Reference()
	if ref.ObjectNumber != 7 || ref.GenerationNumber != 2 {
		t.Errorf("unexpected reference: %+v", ref)
	}
}

func TestNewObjectRejectsZeroOID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for oid 0")
		}
	}()
	NewObject(0, 0, Null{})
}
