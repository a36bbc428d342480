package pdfgraph

import (
	"fmt"
	"io"
)

// Object is a numbered container holding one Value plus an optional stream
// payload. An object may carry a stream only if its Value is a *Dictionary.
type Object struct {
	OID            uint32
	Generation     uint16
	Value          Value
	Stream         []byte
	StreamFiltered bool
}

// NewObject constructs an Object, panicking if oid is zero — oid 0 is
// reserved for the free-list head and is never a valid object number.
func NewObject(oid uint32, gen uint16, value Value) *Object {
	if oid == 0 {
		panic("pdfgraph: object number must be >= 1")
	}
	return &Object{OID: oid, Generation: gen, Value: value}
}

// Reference returns an indirect reference pointing at this object.
func (o *Object) Reference() Reference {
	return Reference{ObjectNumber: o.OID, GenerationNumber: o.Generation}
}

// Dict returns the object's value as a dictionary, or nil if it is not one.
// A stream's dictionary is also a *Dictionary, so this is the accessor for
// both plain dictionary objects and stream objects.
func (o *Object) Dict() *Dictionary {
	d, _ := o.Value.(*Dictionary)
	return d
}

// Write serializes the object in the exact "oid gen obj\n...endobj\n" form.
func (o *Object) Write(w io.Writer) error {
	if o.Stream != nil {
		if o.Dict() == nil {
			return fmt.Errorf("pdfgraph: object %d has a stream but its value is not a dictionary", o.OID)
		}
	}

	if _, err := fmt.Fprintf(w, "%d %d obj\n", o.OID, o.Generation); err != nil {
		return err
	}

	if o.Stream != nil {
		dict := o.Dict().Clone().(*Dictionary)
		dict.Set("Length", Integer(len(o.Stream)))
		if !o.StreamFiltered {
			dict.Delete("Filter")
		}
		if err := dict.Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\nstream\n"); err != nil {
			return err
		}
		if _, err := w.Write(o.Stream); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\nendstream\n"); err != nil {
			return err
		}
	} else if o.Value != nil {
		if err := o.Value.Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "endobj\n")
	return err
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	out := &Object{OID: o.OID, Generation: o.Generation, StreamFiltered: o.StreamFiltered}
	if o.Value != nil {
		out.Value = o.Value.Clone()
	}
	if o.Stream != nil {
		out.Stream = make([]byte, len(o.Stream))
		copy(out.Stream, o.Stream)
	}
	return out
}
