package pdfdoc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opensig/pdfmut/pdfgraph"
)

func TestWriteClassicXrefIncludesFreeHead(t *testing.T) {
	var buf bytes.Buffer
	writeClassicXref(&buf, []XrefRecord{{OID: 1, Offset: 15, Generation: 0}})
	got := buf.String()
	if !strings.HasPrefix(got, "xref\n0 2\n0000000000 65535 f \n0000000015 00000 n \n") {
		t.Errorf("unexpected classic xref output: %q", got)
	}
}

func TestWriteClassicXrefGroupsContiguousSubsections(t *testing.T) {
	var buf bytes.Buffer
	writeClassicXref(&buf, []XrefRecord{
		{OID: 1, Offset: 10},
		{OID: 2, Offset: 20},
		{OID: 5, Offset: 50},
	})
	got := buf.String()
	if !strings.Contains(got, "0 3\n") {
		t.Errorf("expected a 0-2 free+contiguous subsection header, got %q", got)
	}
	if !strings.Contains(got, "5 1\n") {
		t.Errorf("expected a standalone subsection for oid 5, got %q", got)
	}
}

func TestBuildXrefStreamObjectWidths(t *testing.T) {
	trailer := pdfgraph.NewDictionary()
	trailer.Set("Root", pdfgraph.Reference{ObjectNumber: 1})
	obj := buildXrefStreamObject(4, []XrefRecord{
		{OID: 1, Offset: 9, Generation: 0},
		{OID: 2, Offset: 300, Generation: 0},
	}, trailer, 5, 0, false)

	if obj.Dict().GetName("Type") != "XRef" {
		t.Errorf("expected /Type /XRef, got %q", obj.Dict().GetName("Type"))
	}
	w := obj.Dict().GetArray("W")
	if len(w) != 3 {
		t.Fatalf("expected 3-element /W, got %v", w)
	}
	if w[1] != pdfgraph.Integer(2) {
		t.Errorf("offset 300 needs 2 bytes, got width %v", w[1])
	}
	if w[2] != pdfgraph.Integer(2) {
		t.Errorf("generation field width must always be 2, got %v", w[2])
	}
	if obj.Dict().Has("Prev") {
		t.Error("did not expect /Prev when hasPrev is false")
	}
	rowWidth := 1 + 2 + 2
	if len(obj.Stream)%rowWidth != 0 {
		t.Errorf("stream length %d not a multiple of row width %d", len(obj.Stream), rowWidth)
	}
}

func TestBuildXrefStreamObjectIncludesSelfEntry(t *testing.T) {
	trailer := pdfgraph.NewDictionary()
	trailer.Set("Root", pdfgraph.Reference{ObjectNumber: 1})
	const xrefOID = 4
	const xrefOffset = 500
	records := []XrefRecord{{OID: 1, Offset: 9, Generation: 0}}
	selfRecords := append(append([]XrefRecord{}, records...), XrefRecord{OID: xrefOID, Offset: xrefOffset, Generation: 0})
	obj := buildXrefStreamObject(xrefOID, selfRecords, trailer, xrefOID+1, 0, false)

	index := obj.Dict().GetArray("Index")
	covered := false
	for i := 0; i+1 < len(index); i += 2 {
		start := int64(index[i].(pdfgraph.Integer))
		count := int64(index[i+1].(pdfgraph.Integer))
		if int64(xrefOID) >= start && int64(xrefOID) < start+count {
			covered = true
		}
	}
	if !covered {
		t.Errorf("/Index %v does not cover the xref object's own oid %d", index, xrefOID)
	}

	size, _ := obj.Dict().GetInt("Size")
	if size != int64(xrefOID)+1 {
		t.Errorf("/Size = %d, want %d", size, xrefOID+1)
	}
}

func TestRevisionFormRatchet(t *testing.T) {
	d := &Document{Version: "PDF-1.7", xrefRevisionMinor: 4}
	minor, useStream := d.revisionForm(false)
	if useStream || minor != 4 {
		t.Errorf("classic input under a 1.7 document should stay classic at 1.4, got minor=%d stream=%v", minor, useStream)
	}

	d2 := &Document{Version: "PDF-1.4", xrefRevisionMinor: 5}
	minor2, useStream2 := d2.revisionForm(false)
	if !useStream2 || minor2 != 5 {
		t.Errorf("stream input under a 1.4 document should stay a stream at 1.5, got minor=%d stream=%v", minor2, useStream2)
	}

	d3 := &Document{Version: "PDF-1.7", xrefRevisionMinor: 4}
	minor3, useStream3 := d3.revisionForm(true)
	if !useStream3 || minor3 != 7 {
		t.Errorf("rebuild should follow the document's own version, got minor=%d stream=%v", minor3, useStream3)
	}
}
