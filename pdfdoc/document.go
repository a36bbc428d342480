// Package pdfdoc implements the PDF document model: the dual-source object
// table (parsed bytes layered under in-memory overrides), the page locator,
// and the incremental/xref-stream serializer used to emit a byte-compatible
// successor document.
package pdfdoc

import (
	"errors"
	"regexp"

	"github.com/opensig/pdfmut/pdfdoc/internal/pdflex"
	"github.com/opensig/pdfmut/pdfgraph"
)

// ErrAlreadyPrepared is returned by SetPendingSignature when a signature is
// already pending on this Document.
var ErrAlreadyPrepared = errors.New("pdfdoc: a signature is already pending on this document")

var versionRegex = regexp.MustCompile(`^PDF-1\.[0-7]$`)

// XrefEntry indexes one object into the original input bytes.
type XrefEntry struct {
	Offset     int64
	Generation uint16
	InUse      bool
}

// PageEntry is one entry of the page index built by the page locator.
type PageEntry struct {
	OID      uint32
	MediaBox pdfgraph.Rectangle
}

// ObjectKind distinguishes the small number of object roles the coordinator
// cares about when allocating a new object.
type ObjectKind int

const (
	// KindPlain is any ordinary new object.
	KindPlain ObjectKind = iota
	// KindSignature marks the signature dictionary object. CreateObject
	// does not act on the kind; a second signature is refused by
	// SetPendingSignature, independently of it.
	KindSignature
)

// SignatureEmitter lets an external signature coordinator take over Emit
// once a signature has been prepared, without pdfdoc importing the
// coordinator's package.
type SignatureEmitter interface {
	EmitSigned(doc *Document, rebuild bool) ([]byte, error)
}

// PendingSignature records that a signature has been prepared and who
// should perform the two-pass emission.
type PendingSignature struct {
	SignatureOID uint32
	Emitter      SignatureEmitter
}

// Document is the in-memory representation of a parsed PDF plus any
// modifications made in this session. See spec §3 for the invariants it
// upholds.
type Document struct {
	Version string

	originalBytes        []byte
	originalXref         map[uint32]XrefEntry
	xrefRevisionMinor    int
	xrefOffsetOfInput    int64
	hasXrefOffsetOfInput bool
	encrypted            bool

	overrides     map[uint32]*pdfgraph.Object
	overrideOrder []uint32

	trailer *pdfgraph.Dictionary
	maxOID  uint32

	pageIndex []PageEntry

	pending *PendingSignature
}

// NewOID returns max_oid + 1 and increments the counter (invariant 1: every
// override oid never exceeds max_oid).
func (d *Document) NewOID() uint32 {
	d.maxOID++
	return d.maxOID
}

// MaxOID returns the highest object number ever seen by this Document.
func (d *Document) MaxOID() uint32 { return d.maxOID }

// OriginalBytes returns the immutable input bytes.
func (d *Document) OriginalBytes() []byte { return d.originalBytes }

// XrefOffsetOfInput returns the byte offset of the input's own xref
// section, used as /Prev when appending an incremental update, and whether
// the input had one at all (a freshly rebuilt document has none).
func (d *Document) XrefOffsetOfInput() (int64, bool) {
	return d.xrefOffsetOfInput, d.hasXrefOffsetOfInput
}

// XrefRevisionMinor returns the PDF 1.x minor version associated with the
// style (classic table vs. cross-reference stream) of the most recent xref
// section in the input: 4 for a classic table, 5 or higher for a stream.
func (d *Document) XrefRevisionMinor() int { return d.xrefRevisionMinor }

// Trailer returns the document's trailer dictionary.
func (d *Document) Trailer() *pdfgraph.Dictionary { return d.trailer }

// Encrypted reports whether the input declared an /Encrypt entry. Behavior
// beyond this flag is explicitly undefined (spec §7, EncryptedWarning).
func (d *Document) Encrypted() bool { return d.encrypted }

// GetVersion returns the document's PDF version string, e.g. "PDF-1.7".
func (d *Document) GetVersion() string { return d.Version }

// SetVersion validates and sets the document's PDF version.
func (d *Document) SetVersion(v string) error {
	if !versionRegex.MatchString(v) {
		return &ParseError{Message: "version must match /^PDF-1\\.[0-7]$/, got " + v}
	}
	d.Version = v
	return nil
}

// GetObject looks up an object by number. Overrides take precedence over
// the parsed table unless preferOriginal is true (invariant 2).
func (d *Document) GetObject(oid uint32, preferOriginal bool) (*pdfgraph.Object, bool) {
	if !preferOriginal {
		if obj, ok := d.overrides[oid]; ok {
			return obj, true
		}
	}
	return d.originalObject(oid)
}

func (d *Document) originalObject(oid uint32) (*pdfgraph.Object, bool) {
	entry, ok := d.originalXref[oid]
	if !ok || !entry.InUse {
		return nil, false
	}
	lex := pdflex.At(d.originalBytes, int(entry.Offset))
	gotOID, gen, value, stream, err := lex.ParseIndirectObject()
	if err != nil || gotOID != oid {
		return nil, false
	}
	obj := pdfgraph.NewObject(oid, gen, value)
	obj.Stream = stream
	return obj, true
}

// Resolve dereferences value per spec §4.C: an indirect reference resolves
// through GetObject; a list is always ambiguous as "one referenced object"
// and yields MixedReferenceError; anything else is wrapped as a synthetic
// oid-0 object.
func (d *Document) Resolve(value pdfgraph.Value) (*pdfgraph.Object, error) {
	if ref, ok := pdfgraph.AsReference(value); ok {
		obj, ok := d.GetObject(ref.ObjectNumber, false)
		if !ok {
			return nil, nil
		}
		return obj, nil
	}
	if _, ok := value.(pdfgraph.Array); ok {
		return nil, &MixedReferenceError{Context: "resolve"}
	}
	return &pdfgraph.Object{OID: 0, Value: value}, nil
}

// CreateObject allocates a new object number, wraps value in an Object, and
// registers it in overrides.
func (d *Document) CreateObject(value pdfgraph.Value, kind ObjectKind) *pdfgraph.Object {
	_ = kind // reserved for coordinator bookkeeping; see KindSignature docs.
	obj := pdfgraph.NewObject(d.NewOID(), 0, value)
	d.AddObject(obj)
	return obj
}

// AddObject inserts or replaces obj in overrides and raises max_oid if
// needed.
func (d *Document) AddObject(obj *pdfgraph.Object) {
	if _, exists := d.overrides[obj.OID]; !exists {
		d.overrideOrder = append(d.overrideOrder, obj.OID)
	}
	d.overrides[obj.OID] = obj
	if obj.OID > d.maxOID {
		d.maxOID = obj.OID
	}
}

// OverridesInOrder returns the overridden/new objects in insertion order.
func (d *Document) OverridesInOrder() []*pdfgraph.Object {
	out := make([]*pdfgraph.Object, 0, len(d.overrideOrder))
	for _, oid := range d.overrideOrder {
		out = append(out, d.overrides[oid])
	}
	return out
}

// GetPage returns the i'th page object per the page index built at Open
// time.
func (d *Document) GetPage(i int) (*pdfgraph.Object, bool) {
	if i < 0 || i >= len(d.pageIndex) {
		return nil, false
	}
	return d.GetObject(d.pageIndex[i].OID, false)
}

// PageSize returns the i'th page's inherited MediaBox.
func (d *Document) PageSize(i int) (pdfgraph.Rectangle, bool) {
	if i < 0 || i >= len(d.pageIndex) {
		return pdfgraph.Rectangle{}, false
	}
	return d.pageIndex[i].MediaBox, true
}

// GetPageCount returns the number of pages found by the page locator.
func (d *Document) GetPageCount() int { return len(d.pageIndex) }

// RootRef returns the trailer's /Root reference, if present and well-typed.
func (d *Document) RootRef() (pdfgraph.Reference, bool) {
	ref, ok := pdfgraph.AsReference(d.trailer.Get("Root"))
	return ref, ok
}

// InfoRef returns the trailer's /Info reference, if present and well-typed.
func (d *Document) InfoRef() (pdfgraph.Reference, bool) {
	ref, ok := pdfgraph.AsReference(d.trailer.Get("Info"))
	return ref, ok
}

// SetPendingSignature registers a signature coordinator that owns the next
// Emit call. Fails with ErrAlreadyPrepared if one is already pending
// (invariant 4; spec's AlreadyPrepared error kind).
func (d *Document) SetPendingSignature(p *PendingSignature) error {
	if d.pending != nil {
		return ErrAlreadyPrepared
	}
	d.pending = p
	return nil
}

// PendingSignature returns the currently pending signature, or nil.
func (d *Document) PendingSignature() *PendingSignature { return d.pending }

// ClearPendingSignature drops the pending signature, used when preparation
// fails partway through and must roll back (spec §7: "no partial commit").
func (d *Document) ClearPendingSignature() { d.pending = nil }

// snapshot captures enough state to restore Document if a
// multi-step mutation (like signature preparation) fails partway through.
type snapshot struct {
	overrides     map[uint32]*pdfgraph.Object
	overrideOrder []uint32
	maxOID        uint32
	trailer       *pdfgraph.Dictionary
}

// Snapshot captures the current overrides/trailer/maxOID state.
func (d *Document) Snapshot() *snapshot {
	cp := make(map[uint32]*pdfgraph.Object, len(d.overrides))
	for k, v := range d.overrides {
		cp[k] = v
	}
	order := make([]uint32, len(d.overrideOrder))
	copy(order, d.overrideOrder)
	return &snapshot{
		overrides:     cp,
		overrideOrder: order,
		maxOID:        d.maxOID,
		trailer:       d.trailer.Clone().(*pdfgraph.Dictionary),
	}
}

// Restore reverts Document to a previously captured Snapshot.
func (d *Document) Restore(s *snapshot) {
	d.overrides = s.overrides
	d.overrideOrder = s.overrideOrder
	d.maxOID = s.maxOID
	d.trailer = s.trailer
}

// Emit serializes pending changes: as a fully rebuilt document when rebuild
// is true, or as an incremental update appended to the original bytes
// otherwise. If a signature is pending, the registered SignatureEmitter
// performs the (two-pass) emission instead.
func (d *Document) Emit(rebuild bool) ([]byte, error) {
	if d.pending != nil {
		return d.pending.Emitter.EmitSigned(d, rebuild)
	}
	return d.emitPlain(rebuild)
}
