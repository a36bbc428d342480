package pdfsign

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/opensig/pdfmut/pdfgraph"
)

// contentsPlaceholder returns a hex-string placeholder of exactly hexCap
// zero digits between its < > delimiters, so the signature dictionary's
// serialized length never changes once the real signature is spliced in.
func contentsPlaceholder(hexCap int) pdfgraph.RawToken {
	buf := make([]byte, hexCap+2)
	buf[0] = '<'
	for i := 1; i <= hexCap; i++ {
		buf[i] = '0'
	}
	buf[hexCap+1] = '>'
	return pdfgraph.RawToken(buf)
}

// byteRangePlaceholder reserves brCap bytes for the eventual
// "[0 a b c]" array, right-padded with spaces.
func byteRangePlaceholder(brCap int) (pdfgraph.RawToken, error) {
	const seed = "[0 0 0 0]"
	if len(seed) > brCap {
		return nil, fmt.Errorf("pdfsign: byte_range_capacity %d too small for %q", brCap, seed)
	}
	return pdfgraph.RawToken(seed + strings.Repeat(" ", brCap-len(seed))), nil
}

// buildSignatureDict returns the fixed-shape signature dictionary spec.md
// §4.E names: /Filter, /Type, /SubFilter, reserved-width /ByteRange and
// /Contents placeholders, and /M.
func buildSignatureDict(hexCap, brCap int, modDate string) (*pdfgraph.Dictionary, error) {
	brPlaceholder, err := byteRangePlaceholder(brCap)
	if err != nil {
		return nil, err
	}
	dict := pdfgraph.NewDictionary()
	dict.Set("Type", pdfgraph.Name("Sig"))
	dict.Set("Filter", pdfgraph.Name(FilterName))
	dict.Set("SubFilter", pdfgraph.Name(SubFilter))
	dict.Set("ByteRange", brPlaceholder)
	dict.Set("Contents", contentsPlaceholder(hexCap))
	dict.Set("M", pdfgraph.NewLiteralString(modDate))
	return dict, nil
}

// locateContentsOffset serializes obj and returns both the full
// serialization and the byte offset, within it, of the '<' that opens the
// /Contents hex placeholder — sig_entry and contents_offset_in_sig in
// spec.md's terms.
func locateContentsOffset(obj *pdfgraph.Object) (sigEntry []byte, contentsOffsetInSig int, err error) {
	var buf bytes.Buffer
	if err := obj.Write(&buf); err != nil {
		return nil, 0, err
	}
	sigEntry = buf.Bytes()
	marker := []byte("/Contents ")
	idx := bytes.Index(sigEntry, marker)
	if idx < 0 {
		return nil, 0, fmt.Errorf("pdfsign: signature object has no /Contents entry")
	}
	open := bytes.IndexByte(sigEntry[idx:], '<')
	if open < 0 {
		return nil, 0, fmt.Errorf("pdfsign: /Contents value is not a hex string")
	}
	return sigEntry, idx + open, nil
}

// computeByteRange implements the exact a/b/c formula from spec.md §4.E:
// a is the offset of the opening '<' of /Contents (the first covered range
// ends just before it), b starts just past its closing '>', and c accounts
// for whatever of sig_entry follows the placeholder plus the suffix
// (xref/trailer) bytes, so that b+c is the total output length.
func computeByteRange(prefixSize int64, sigEntryLen, contentsOffsetInSig, hexCap int, suffixSize int64) (a, b, c int64) {
	contentsLen := int64(hexCap + 2)
	a = prefixSize + int64(contentsOffsetInSig)
	b = a + contentsLen
	c = suffixSize + (int64(sigEntryLen) - contentsLen - int64(contentsOffsetInSig))
	return a, b, c
}

// patchByteRange re-serializes the dictionary's /ByteRange entry with the
// resolved a/b/c triple, right-padded to exactly brCap bytes so the
// dictionary's overall length is unchanged.
func patchByteRange(dict *pdfgraph.Dictionary, brCap int, a, b, c int64) error {
	rendered := fmt.Sprintf("[0 %d %d %d]", a, b, c)
	if len(rendered) > brCap {
		return fmt.Errorf("pdfsign: /ByteRange %q exceeds reserved capacity %d", rendered, brCap)
	}
	dict.Set("ByteRange", pdfgraph.RawToken(rendered+strings.Repeat(" ", brCap-len(rendered))))
	return nil
}

// spliceContents overwrites the reserved hex slot of an already-serialized
// object in place, right-padding with '0' to fill hexCap without changing
// the buffer's length. contentsOffsetInSig is the offset of the slot's
// opening '<' within dest (EmitSigned passes the whole output buffer and
// an absolute offset).
func spliceContents(dest []byte, contentsOffsetInSig, hexCap int, hexDigits string) error {
	if len(hexDigits) > hexCap {
		return fmt.Errorf("pdfsign: signature is %d hex chars, exceeds reserved capacity %d", len(hexDigits), hexCap)
	}
	start := contentsOffsetInSig + 1 // past '<'
	copy(dest[start:start+len(hexDigits)], hexDigits)
	for i := len(hexDigits); i < hexCap; i++ {
		dest[start+i] = '0'
	}
	return nil
}
