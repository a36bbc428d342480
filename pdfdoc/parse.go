package pdfdoc

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/opensig/pdfmut/pdfdoc/internal/pdflex"
	"github.com/opensig/pdfmut/pdfgraph"
)

var headerVersionRegex = regexp.MustCompile(`%PDF-1\.([0-7])`)

func readHeaderVersion(data []byte) (string, error) {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	m := headerVersionRegex.FindSubmatch(data[:n])
	if m == nil {
		return "", fmt.Errorf("pdfdoc: no %%PDF-1.x header found in first %d bytes", n)
	}
	return "PDF-1." + string(m[1]), nil
}

func findLastStartxref(data []byte) (int64, error) {
	tailN := 2048
	if len(data) < tailN {
		tailN = len(data)
	}
	tail := data[len(data)-tailN:]
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("pdfdoc: no startxref keyword found")
	}
	lex := pdflex.At(tail, idx+len("startxref"))
	lex.SkipWhitespace()
	tok := lex.ReadToken()
	off, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pdfdoc: invalid startxref offset %q: %w", tok, err)
	}
	return off, nil
}

// parseXrefSection parses one classic table or cross-reference stream at
// offset, returning its in-use/free entries, its trailer (or trailer-like
// stream dictionary), whether it was a stream, and the /Prev and hybrid
// /XRefStm pointers when present.
func parseXrefSection(data []byte, offset int64) (entries map[uint32]XrefEntry, trailer *pdfgraph.Dictionary, isStream bool, prev *int64, xrefStm *int64, err error) {
	lex := pdflex.At(data, int(offset))
	lex.SkipWhitespace()

	if lex.PeekKeyword("xref") {
		lex.ReadToken()
		entries = make(map[uint32]XrefEntry)
		for {
			lex.SkipWhitespace()
			if lex.PeekKeyword("trailer") {
				break
			}
			startTok := lex.ReadToken()
			start, serr := strconv.ParseUint(startTok, 10, 32)
			if serr != nil {
				return nil, nil, false, nil, nil, fmt.Errorf("pdfdoc: xref subsection start %q: %w", startTok, serr)
			}
			countTok := lex.ReadToken()
			count, cerr := strconv.ParseUint(countTok, 10, 32)
			if cerr != nil {
				return nil, nil, false, nil, nil, fmt.Errorf("pdfdoc: xref subsection count %q: %w", countTok, cerr)
			}
			for k := uint64(0); k < count; k++ {
				offTok := lex.ReadToken()
				genTok := lex.ReadToken()
				typTok := lex.ReadToken()
				off, _ := strconv.ParseInt(offTok, 10, 64)
				gen, _ := strconv.ParseUint(genTok, 10, 16)
				oid := uint32(start + k)
				entries[oid] = XrefEntry{Offset: off, Generation: uint16(gen), InUse: typTok == "n"}
			}
		}
		lex.ReadToken() // "trailer"
		val, verr := lex.ParseValue()
		if verr != nil {
			return nil, nil, false, nil, nil, fmt.Errorf("pdfdoc: trailer dictionary: %w", verr)
		}
		dict, ok := val.(*pdfgraph.Dictionary)
		if !ok {
			return nil, nil, false, nil, nil, fmt.Errorf("pdfdoc: trailer is not a dictionary")
		}
		if p, ok := dict.GetInt("Prev"); ok {
			prev = &p
		}
		if x, ok := dict.GetInt("XRefStm"); ok {
			xrefStm = &x
		}
		return entries, dict, false, prev, xrefStm, nil
	}

	_, _, value, stream, perr := lex.ParseIndirectObject()
	if perr != nil {
		return nil, nil, false, nil, nil, fmt.Errorf("pdfdoc: cross-reference stream object: %w", perr)
	}
	dict, ok := value.(*pdfgraph.Dictionary)
	if !ok {
		return nil, nil, false, nil, nil, fmt.Errorf("pdfdoc: cross-reference stream value is not a dictionary")
	}
	entries, err = decodeXrefStream(dict, stream)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}
	if p, ok := dict.GetInt("Prev"); ok {
		prev = &p
	}
	return entries, dict, true, prev, nil, nil
}

func readBigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// decodeXrefStream decodes a /Type /XRef stream's rows per its /W widths
// and /Index subsections. Type-2 (compressed-in-object-stream) rows are
// skipped: this mutator never decompresses object streams, so an object
// that exists only inside one is simply not found by GetObject.
func decodeXrefStream(dict *pdfgraph.Dictionary, stream []byte) (map[uint32]XrefEntry, error) {
	wArr := dict.GetArray("W")
	if len(wArr) != 3 {
		return nil, fmt.Errorf("pdfdoc: cross-reference stream missing /W")
	}
	var w [3]int
	for i, v := range wArr {
		iv, ok := v.(pdfgraph.Integer)
		if !ok {
			return nil, fmt.Errorf("pdfdoc: /W entry %d is not an integer", i)
		}
		w[i] = int(iv)
	}
	size, _ := dict.GetInt("Size")

	var bounds []int64
	if idxArr := dict.GetArray("Index"); idxArr != nil {
		for _, v := range idxArr {
			iv, ok := v.(pdfgraph.Integer)
			if !ok {
				return nil, fmt.Errorf("pdfdoc: /Index entry is not an integer")
			}
			bounds = append(bounds, int64(iv))
		}
	} else {
		bounds = []int64{0, size}
	}

	rowWidth := w[0] + w[1] + w[2]
	entries := make(map[uint32]XrefEntry)
	pos := 0
	for p := 0; p+1 < len(bounds); p += 2 {
		start, count := bounds[p], bounds[p+1]
		for k := int64(0); k < count; k++ {
			if pos+rowWidth > len(stream) {
				return entries, nil
			}
			row := stream[pos : pos+rowWidth]
			pos += rowWidth

			idx := 0
			typ := int64(1)
			if w[0] > 0 {
				typ = readBigEndian(row[idx : idx+w[0]])
				idx += w[0]
			}
			f2 := readBigEndian(row[idx : idx+w[1]])
			idx += w[1]
			f3 := readBigEndian(row[idx : idx+w[2]])

			oid := uint32(start + k)
			switch typ {
			case 0:
				entries[oid] = XrefEntry{InUse: false}
			case 1:
				entries[oid] = XrefEntry{Offset: f2, Generation: uint16(f3), InUse: true}
			case 2:
				// compressed object stream member, unsupported; see doc comment.
			}
		}
	}
	return entries, nil
}

// Open parses data's structure — header version, xref chain (classic
// tables, cross-reference streams, or a hybrid of both), and trailer — and
// builds a Document over it. A malformed structure fails as a ParseError;
// a malformed page tree does not fail Open, it just leaves the page index
// empty (GetPage/PageSize will report not-found).
func Open(data []byte) (*Document, error) {
	version, err := readHeaderVersion(data)
	if err != nil {
		return nil, &ParseError{Message: "reading header", Err: err}
	}
	startxref, err := findLastStartxref(data)
	if err != nil {
		return nil, &ParseError{Message: "locating startxref", Err: err}
	}

	originalXref := make(map[uint32]XrefEntry)
	trailer := pdfgraph.NewDictionary()
	visited := make(map[int64]bool)
	firstIsStream := false
	first := true

	offset := startxref
	for offset >= 0 && offset < int64(len(data)) && !visited[offset] {
		visited[offset] = true
		entries, sectionTrailer, isStream, prev, xrefStm, perr := parseXrefSection(data, offset)
		if perr != nil {
			return nil, &ParseError{Message: fmt.Sprintf("parsing xref section at offset %d", offset), Err: perr}
		}
		if first {
			firstIsStream = isStream
			first = false
		}
		for oid, e := range entries {
			if _, exists := originalXref[oid]; !exists {
				originalXref[oid] = e
			}
		}
		for _, k := range sectionTrailer.Keys() {
			if !trailer.Has(k) {
				trailer.Set(k, sectionTrailer.Get(k))
			}
		}
		if xrefStm != nil {
			if hentries, _, _, _, _, herr := parseXrefSection(data, *xrefStm); herr == nil {
				for oid, e := range hentries {
					if _, exists := originalXref[oid]; !exists {
						originalXref[oid] = e
					}
				}
			}
		}
		if prev == nil {
			break
		}
		offset = *prev
	}

	var maxOID uint32
	for oid := range originalXref {
		if oid > maxOID {
			maxOID = oid
		}
	}
	if ref, ok := pdfgraph.AsReference(trailer.Get("Root")); ok && ref.ObjectNumber > maxOID {
		maxOID = ref.ObjectNumber
	}

	xrefRevisionMinor := 4
	if firstIsStream {
		xrefRevisionMinor = 5
	}

	doc := &Document{
		Version:              version,
		originalBytes:        data,
		originalXref:         originalXref,
		xrefRevisionMinor:    xrefRevisionMinor,
		xrefOffsetOfInput:    startxref,
		hasXrefOffsetOfInput: true,
		encrypted:            trailer.Has("Encrypt"),
		overrides:            make(map[uint32]*pdfgraph.Object),
		trailer:              trailer,
		maxOID:               maxOID,
	}

	if pages, werr := walkPages(doc); werr == nil {
		doc.pageIndex = pages
	}

	return doc, nil
}
