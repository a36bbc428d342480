package pdfdoc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/opensig/pdfmut/pdfgraph"
)

// XrefRecord is one in-use entry destined for a classic table subsection or
// a cross-reference stream row.
type XrefRecord struct {
	OID        uint32
	Offset     int64
	Generation uint16
}

func minorVersion(v string) int {
	if len(v) == 0 {
		return 7
	}
	d := v[len(v)-1]
	if d < '0' || d > '9' {
		return 7
	}
	return int(d - '0')
}

// revisionForm applies the version-ratchet rule: an incremental update
// stays in the input's own xref style, taking the higher of the input's
// revision and the document's current version for a stream-style input
// and the lower of the two for a classic-table input; a full rebuild has
// no continuity requirement and picks the style implied by the document's
// own version alone.
func (d *Document) revisionForm(rebuild bool) (minor int, useStream bool) {
	docMinor := minorVersion(d.Version)
	if rebuild {
		return docMinor, docMinor >= 5
	}
	if d.xrefRevisionMinor >= 5 {
		m := docMinor
		if d.xrefRevisionMinor > m {
			m = d.xrefRevisionMinor
		}
		return m, true
	}
	m := docMinor
	if d.xrefRevisionMinor < m {
		m = d.xrefRevisionMinor
	}
	return m, false
}

// objectsToEmit returns, in ascending oid order, the objects that belong in
// this revision's body: only the overrides for an incremental update, or
// every reachable object (original plus overridden) for a full rebuild.
func (d *Document) objectsToEmit(rebuild bool) []*pdfgraph.Object {
	if !rebuild {
		objs := d.OverridesInOrder()
		sort.Slice(objs, func(i, j int) bool { return objs[i].OID < objs[j].OID })
		return objs
	}

	oids := make(map[uint32]bool)
	for oid, e := range d.originalXref {
		if e.InUse {
			oids[oid] = true
		}
	}
	for oid := range d.overrides {
		oids[oid] = true
	}
	sorted := make([]uint32, 0, len(oids))
	for oid := range oids {
		sorted = append(sorted, oid)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make([]*pdfgraph.Object, 0, len(sorted))
	for _, oid := range sorted {
		if obj, ok := d.GetObject(oid, false); ok {
			out = append(out, obj)
		}
	}
	return out
}

func withFreeHead(records []XrefRecord) []XrefRecord {
	all := make([]XrefRecord, 0, len(records)+1)
	all = append(all, XrefRecord{OID: 0, Offset: 0, Generation: 65535})
	all = append(all, records...)
	sort.Slice(all, func(i, j int) bool { return all[i].OID < all[j].OID })
	return all
}

// writeClassicXref writes the "xref\n" section: one subsection per maximal
// contiguous oid range, each entry a fixed 20-byte "NNNNNNNNNN GGGGG n \n"
// or "...f \n" record (spec §4.D).
func writeClassicXref(w *bytes.Buffer, records []XrefRecord) {
	all := withFreeHead(records)
	w.WriteString("xref\n")
	i := 0
	for i < len(all) {
		j := i + 1
		for j < len(all) && all[j].OID == all[j-1].OID+1 {
			j++
		}
		fmt.Fprintf(w, "%d %d\n", all[i].OID, j-i)
		for k := i; k < j; k++ {
			r := all[k]
			typ := byte('n')
			if r.OID == 0 {
				typ = 'f'
			}
			fmt.Fprintf(w, "%010d %05d %c \n", r.Offset, r.Generation, typ)
		}
		i = j
	}
}

// writeTrailer writes "trailer\n<<...>>\nstartxref\n<offset>\n%%EOF\n".
func writeTrailer(w *bytes.Buffer, trailer *pdfgraph.Dictionary, xrefOffset int64) error {
	w.WriteString("trailer\n")
	if err := trailer.Write(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return nil
}

func bytesNeeded(v int64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 8
	}
	if n == 0 {
		n = 1
	}
	return n
}

func writeBigEndian(buf *bytes.Buffer, v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}

// buildXrefStreamObject builds the /Type /XRef stream object that both
// serves as this revision's trailer and lists every entry in records (plus
// the free-list head), per spec §4.D's cross-reference-stream form. It does
// not add an entry for itself: callers include the xref object's own
// record in records.
func buildXrefStreamObject(oid uint32, records []XrefRecord, trailer *pdfgraph.Dictionary, size uint32, prevOffset int64, hasPrev bool) *pdfgraph.Object {
	all := withFreeHead(records)

	var maxOffset int64
	for _, r := range all {
		if r.Offset > maxOffset {
			maxOffset = r.Offset
		}
	}
	w2 := bytesNeeded(maxOffset)
	const w3 = 2 // generation field width is always 2 bytes, not size-fitted

	var stream bytes.Buffer
	var index pdfgraph.Array
	i := 0
	for i < len(all) {
		j := i + 1
		for j < len(all) && all[j].OID == all[j-1].OID+1 {
			j++
		}
		index = append(index, pdfgraph.Integer(all[i].OID), pdfgraph.Integer(j-i))
		for k := i; k < j; k++ {
			r := all[k]
			typ := uint64(1)
			if r.OID == 0 {
				typ = 0
			}
			writeBigEndian(&stream, typ, 1)
			writeBigEndian(&stream, uint64(r.Offset), w2)
			writeBigEndian(&stream, uint64(r.Generation), w3)
		}
		i = j
	}

	dict := trailer.Clone().(*pdfgraph.Dictionary)
	dict.Delete("Prev")
	dict.Delete("Filter")
	dict.Delete("DecodeParms")
	dict.Set("Type", pdfgraph.Name("XRef"))
	dict.Set("Size", pdfgraph.Integer(int64(size)))
	dict.Set("W", pdfgraph.Array{pdfgraph.Integer(1), pdfgraph.Integer(int64(w2)), pdfgraph.Integer(int64(w3))})
	dict.Set("Index", index)
	if hasPrev {
		dict.Set("Prev", pdfgraph.Integer(prevOffset))
	}

	obj := pdfgraph.NewObject(oid, 0, dict)
	obj.Stream = stream.Bytes()
	obj.StreamFiltered = false
	return obj
}

// RevisionForm exposes the version-ratchet decision (see revisionForm) to an
// external SignatureEmitter, which must lay out its own two-pass body using
// the same classic/stream choice emitPlain would have made.
func (d *Document) RevisionForm(rebuild bool) (minor int, useStream bool) {
	return d.revisionForm(rebuild)
}

// ObjectsToEmit exposes the body object list (see objectsToEmit) to an
// external SignatureEmitter.
func (d *Document) ObjectsToEmit(rebuild bool) []*pdfgraph.Object {
	return d.objectsToEmit(rebuild)
}

// WriteXrefSection appends the classic xref+trailer or the xref-stream
// section to body, exactly as emitPlain would for the given records, so a
// SignatureEmitter's suffix matches the unsigned path byte-for-byte apart
// from the signature dictionary itself.
func (d *Document) WriteXrefSection(body *bytes.Buffer, rebuild bool, records []XrefRecord) error {
	_, useStream := d.revisionForm(rebuild)
	xrefOffset := int64(body.Len())
	prevOffset, hasPrev := d.XrefOffsetOfInput()
	if rebuild {
		hasPrev = false
	}

	if useStream {
		xrefOID := d.NewOID()
		selfRecords := append(append([]XrefRecord{}, records...), XrefRecord{OID: xrefOID, Offset: xrefOffset, Generation: 0})
		xrefObj := buildXrefStreamObject(xrefOID, selfRecords, d.trailer, xrefOID+1, prevOffset, hasPrev)
		if err := xrefObj.Write(body); err != nil {
			return err
		}
		fmt.Fprintf(body, "startxref\n%d\n%%%%EOF\n", xrefOffset)
		return nil
	}

	writeClassicXref(body, records)
	trailer := d.trailer.Clone().(*pdfgraph.Dictionary)
	trailer.Set("Size", pdfgraph.Integer(int64(d.maxOID+1)))
	if hasPrev {
		trailer.Set("Prev", pdfgraph.Integer(prevOffset))
	} else {
		trailer.Delete("Prev")
	}
	return writeTrailer(body, trailer, xrefOffset)
}

// emitPlain performs the unsigned emit path: build the body (from scratch
// for a rebuild, appended to the input for an incremental update), then
// append the classic or stream-form xref and trailer per the version
// ratchet.
func (d *Document) emitPlain(rebuild bool) ([]byte, error) {
	if !rebuild && len(d.overrideOrder) == 0 {
		out := make([]byte, len(d.originalBytes))
		copy(out, d.originalBytes)
		return out, nil
	}

	minor, useStream := d.revisionForm(rebuild)
	version := fmt.Sprintf("PDF-1.%d", minor)

	var body bytes.Buffer
	if rebuild {
		fmt.Fprintf(&body, "%%%s\n", version)
	} else {
		body.Write(d.originalBytes)
	}

	objs := d.objectsToEmit(rebuild)
	records := make([]XrefRecord, 0, len(objs))
	for _, obj := range objs {
		records = append(records, XrefRecord{OID: obj.OID, Offset: int64(body.Len()), Generation: obj.Generation})
		if err := obj.Write(&body); err != nil {
			return nil, err
		}
	}

	xrefOffset := int64(body.Len())
	prevOffset, hasPrev := d.XrefOffsetOfInput()
	if rebuild {
		hasPrev = false
	}

	if useStream {
		xrefOID := d.NewOID()
		selfRecords := append(append([]XrefRecord{}, records...), XrefRecord{OID: xrefOID, Offset: xrefOffset, Generation: 0})
		xrefObj := buildXrefStreamObject(xrefOID, selfRecords, d.trailer, xrefOID+1, prevOffset, hasPrev)
		if err := xrefObj.Write(&body); err != nil {
			return nil, err
		}
		fmt.Fprintf(&body, "startxref\n%d\n%%%%EOF\n", xrefOffset)
		return body.Bytes(), nil
	}

	writeClassicXref(&body, records)
	trailer := d.trailer.Clone().(*pdfgraph.Dictionary)
	trailer.Set("Size", pdfgraph.Integer(int64(d.maxOID+1)))
	if hasPrev {
		trailer.Set("Prev", pdfgraph.Integer(prevOffset))
	} else {
		trailer.Delete("Prev")
	}
	if err := writeTrailer(&body, trailer, xrefOffset); err != nil {
		return nil, err
	}
	return body.Bytes(), nil
}
