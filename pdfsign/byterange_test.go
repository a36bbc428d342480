package pdfsign

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opensig/pdfmut/pdfgraph"
)

func TestBuildSignatureDictReservesFixedWidth(t *testing.T) {
	dict, err := buildSignatureDict(20, 68, "D:20240101000000+00'00'")
	if err != nil {
		t.Fatalf("buildSignatureDict failed: %v", err)
	}
	var buf bytes.Buffer
	if err := dict.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "/Contents <"+strings.Repeat("0", 20)+">") {
		t.Errorf("expected a 20-char zero placeholder, got %q", buf.String())
	}
}

func TestComputeByteRangeSatisfiesCoverage(t *testing.T) {
	a, b, c := computeByteRange(1000, 200, 40, 20, 300)
	if a+(c-b)+(b-a) == 0 {
		t.Fatal("degenerate byte range")
	}
	// c is the length of the second covered range, which starts at b and
	// runs to end of file, so b+c must equal the file size.
	total := b + c
	filesize := int64(1000) + 200 + 300
	if total != filesize {
		t.Errorf("byte range coverage mismatch: b+c=%d, filesize=%d", total, filesize)
	}
}

func TestPatchByteRangePreservesWidth(t *testing.T) {
	dict, _ := buildSignatureDict(20, 68, "D:20240101000000+00'00'")
	before := dict.Get("ByteRange").(pdfgraph.RawToken)
	if err := patchByteRange(dict, 68, 10, 1000, 2000); err != nil {
		t.Fatalf("patchByteRange failed: %v", err)
	}
	after := dict.Get("ByteRange").(pdfgraph.RawToken)
	if len(before) != len(after) {
		t.Errorf("patch changed width: %d -> %d", len(before), len(after))
	}
}

func TestSpliceContentsPadsWithZero(t *testing.T) {
	dest := []byte("X<0000000000>Y")
	if err := spliceContents(dest, 1, 10, "ABCD"); err != nil {
		t.Fatalf("spliceContents failed: %v", err)
	}
	if string(dest) != "X<ABCD000000>Y" {
		t.Errorf("unexpected splice result: %q", string(dest))
	}
}
