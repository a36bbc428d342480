// Package pdfsign implements the signature coordinator: reservation of the
// fixed-width /ByteRange and /Contents placeholders, the widget/AcroForm/
// appearance/metadata/info bookkeeping spec.md §4.E describes, and the
// two-pass emission that signs everything but its own signature slot.
package pdfsign

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/beevik/etree"
	"github.com/jonboulle/clockwork"

	"github.com/opensig/pdfmut/config"
	"github.com/opensig/pdfmut/pdfdoc"
	"github.com/opensig/pdfmut/pdfgraph"
	"github.com/opensig/pdfmut/pdfsign/appearance"
	"github.com/opensig/pdfmut/pdfsign/cert"
)

// DetachedSigner stands in for spec.md's sign_pkcs7 collaborator: given a
// scratch file holding the bytes to digest and the PEM-encoded certificate
// and key, it returns the detached CMS/PKCS#7 signature already hex-encoded.
type DetachedSigner interface {
	SignPKCS7(path string, certPEM, keyPEM []byte) (hexBytes []byte, err error)
}

// Coordinator implements pdfdoc.SignatureEmitter, orchestrating both
// PrepareSignature (spec §4.E.1-11) and the two-pass EmitSigned.
type Coordinator struct {
	Signer      DetachedSigner
	Embedder    appearance.ImageEmbedder
	WidgetNames WidgetNameSource
	Clock       clockwork.Clock
	Config      *config.SignConfig

	// CertLoader loads the PKCS#12 bundle for step 1 of PrepareSignature.
	// Defaults to cert.Load; overridable so tests can inject a bundle
	// without a real PKCS#12 file on disk.
	CertLoader func(path, password string) (*cert.Bundle, error)

	certPEM []byte
	keyPEM  []byte
}

// NewCoordinator returns a Coordinator with pdfmut's default configuration
// and a real (non-fake) clock.
func NewCoordinator(signer DetachedSigner, embedder appearance.ImageEmbedder) *Coordinator {
	cfg := config.Default()
	return &Coordinator{
		Signer:      signer,
		Embedder:    embedder,
		WidgetNames: NewWidgetNameSource(cfg.WidgetNameSeed),
		Clock:       clockwork.NewRealClock(),
		Config:      cfg,
		CertLoader:  cert.Load,
	}
}

// PrepareSignature implements spec §4.E's eleven-step preparation protocol.
// On any failure, doc is restored to its pre-call state and no signature is
// left pending (spec §7: no partial commit).
func (c *Coordinator) PrepareSignature(doc *pdfdoc.Document, certPath, password string, page int, rect pdfgraph.Rectangle, imagePath string) (err error) {
	if doc.PendingSignature() != nil {
		return pdfdoc.ErrAlreadyPrepared
	}

	snap := doc.Snapshot()
	defer func() {
		if err != nil {
			doc.Restore(snap)
			doc.ClearPendingSignature()
		}
	}()

	err = c.prepare(doc, certPath, password, page, rect, imagePath)
	return err
}

func (c *Coordinator) prepare(doc *pdfdoc.Document, certPath, password string, page int, rect pdfgraph.Rectangle, imagePath string) error {
	// Step 1: load the PKCS#12 bundle.
	bundle, err := c.CertLoader(certPath, password)
	if err != nil {
		return &CertLoadError{Path: certPath, Err: err}
	}
	c.certPEM = bundle.CertPEM
	c.keyPEM = bundle.KeyPEM

	// Step 2: follow trailer /Root -> catalog.
	rootRef, ok := doc.RootRef()
	if !ok {
		return &MissingRootError{Reason: "trailer has no /Root reference"}
	}
	catalogObj, ok := doc.GetObject(rootRef.ObjectNumber, false)
	if !ok || catalogObj.Dict() == nil {
		return &MissingRootError{Reason: "root object is missing or not a dictionary"}
	}
	catalogDict := catalogObj.Dict()

	// Step 3: resolve the target page and its inherited MediaBox.
	pageObj, ok := doc.GetPage(page)
	if !ok {
		return &InvalidPageError{Index: page}
	}
	mediaBox, _ := doc.PageSize(page)
	pagesizeH := mediaBox.Height()

	modDate := formatPDFDate(c.Clock.Now())

	// Step 4: create the signature object.
	sigDict, err := buildSignatureDict(c.Config.SignatureHexCapacity, c.Config.ByteRangeCapacity, modDate)
	if err != nil {
		return err
	}
	sigObj := doc.CreateObject(sigDict, pdfdoc.KindSignature)

	// Step 5: create the widget annotation.
	widgetDict := pdfgraph.NewDictionary()
	widgetDict.Set("Type", pdfgraph.Name("Annot"))
	widgetDict.Set("Subtype", pdfgraph.Name(AnnotSubtype))
	widgetDict.Set("FT", pdfgraph.Name(FieldType))
	widgetDict.Set("V", sigObj.Reference())
	widgetDict.Set("T", pdfgraph.NewLiteralString(c.WidgetNames.Next()))
	widgetDict.Set("P", pageObj.Reference())
	widgetDict.Set("Rect", pdfgraph.Array{
		pdfgraph.Real(rect.LLX), pdfgraph.Real(pagesizeH - rect.LLY),
		pdfgraph.Real(rect.URX), pdfgraph.Real(pagesizeH - rect.URY),
	})
	widgetDict.Set("F", pdfgraph.Integer(WidgetFlags))
	widgetObj := doc.CreateObject(widgetDict, pdfdoc.KindPlain)

	// Step 6: optional Adobe four-object appearance stack.
	if imagePath != "" {
		formObj, err := appearance.Build(doc, c.Embedder, imagePath, pdfgraph.Rectangle{
			LLX: rect.LLX, LLY: rect.LLY, URX: rect.URX, URY: rect.URY,
		})
		if err != nil {
			return &ImageError{Path: imagePath, Err: err}
		}
		ap := pdfgraph.NewDictionary()
		ap.Set("N", formObj.Reference())
		widgetDict.Set("AP", ap)
	}

	// Step 7: page /Annots update.
	if err := appendAnnotation(doc, pageObj, widgetObj.Reference()); err != nil {
		return err
	}

	// Step 8: AcroForm update.
	if err := updateAcroForm(doc, catalogObj, catalogDict, widgetObj.Reference()); err != nil {
		return err
	}

	// Step 9: optional XMP metadata rewrite.
	if err := rewriteMetadata(doc, catalogDict, c.Clock.Now()); err != nil {
		return err
	}

	// Step 10: Info update.
	infoRef, ok := doc.InfoRef()
	if !ok {
		return &MissingInfoError{Reason: "trailer has no /Info reference"}
	}
	infoObj, ok := doc.GetObject(infoRef.ObjectNumber, false)
	if !ok || infoObj.Dict() == nil {
		return &MissingInfoError{Reason: "info object is missing or not a dictionary"}
	}
	infoObj.Dict().Set("ModDate", pdfgraph.NewLiteralString(modDate))
	infoObj.Dict().Set("Producer", pdfgraph.NewLiteralString(c.Config.Producer))
	doc.AddObject(infoObj)

	// Step 11: register the pending signature.
	return doc.SetPendingSignature(&pdfdoc.PendingSignature{SignatureOID: sigObj.OID, Emitter: c})
}

// appendAnnotation implements spec §4.E step 7's three cases for a page's
// /Annots entry.
func appendAnnotation(doc *pdfdoc.Document, pageObj *pdfgraph.Object, annotRef pdfgraph.Reference) error {
	pageDict := pageObj.Dict()
	switch v := pageDict.Get("Annots").(type) {
	case nil:
		list := doc.CreateObject(pdfgraph.Array{annotRef}, pdfdoc.KindPlain)
		pageDict.Set("Annots", list.Reference())
	case pdfgraph.Array:
		extended := append(append(pdfgraph.Array{}, v...), annotRef)
		list := doc.CreateObject(extended, pdfdoc.KindPlain)
		pageDict.Set("Annots", list.Reference())
	case pdfgraph.Reference:
		target, ok := doc.GetObject(v.ObjectNumber, false)
		if !ok {
			return &pdfdoc.InvalidTreeError{OID: pageObj.OID, Message: "/Annots reference does not resolve"}
		}
		arr, isArr := target.Value.(pdfgraph.Array)
		if !isArr {
			return &pdfdoc.MixedReferenceError{Context: "page /Annots"}
		}
		target.Value = append(append(pdfgraph.Array{}, arr...), annotRef)
		doc.AddObject(target)
	default:
		return &pdfdoc.MixedReferenceError{Context: "page /Annots"}
	}
	doc.AddObject(pageObj)
	return nil
}

// updateAcroForm implements spec §4.E step 8.
func updateAcroForm(doc *pdfdoc.Document, catalogObj *pdfgraph.Object, catalogDict *pdfgraph.Dictionary, annotRef pdfgraph.Reference) error {
	switch v := catalogDict.Get("AcroForm").(type) {
	case nil:
		acroDict := pdfgraph.NewDictionary()
		acroDict.Set("SigFlags", pdfgraph.Integer(AcroFormSigFlags))
		acroDict.Set("Fields", pdfgraph.Array{annotRef})
		acroObj := doc.CreateObject(acroDict, pdfdoc.KindPlain)
		catalogDict.Set("AcroForm", acroObj.Reference())
	case *pdfgraph.Dictionary:
		v.Set("SigFlags", pdfgraph.Integer(AcroFormSigFlags))
		v.Set("Fields", append(append(pdfgraph.Array{}, v.GetArray("Fields")...), annotRef))
	case pdfgraph.Reference:
		target, ok := doc.GetObject(v.ObjectNumber, false)
		if !ok || target.Dict() == nil {
			return &pdfdoc.InvalidTreeError{OID: catalogObj.OID, Message: "/AcroForm reference does not resolve to a dictionary"}
		}
		d := target.Dict()
		d.Set("SigFlags", pdfgraph.Integer(AcroFormSigFlags))
		d.Set("Fields", append(append(pdfgraph.Array{}, d.GetArray("Fields")...), annotRef))
		doc.AddObject(target)
	default:
		return &pdfdoc.MixedReferenceError{Context: "catalog /AcroForm"}
	}
	doc.AddObject(catalogObj)
	return nil
}

// rewriteMetadata implements spec §4.E step 9, rewriting an indirect XMP
// metadata stream's <xmp:ModifyDate>/<xmp:MetadataDate> elements to now, if
// the catalog carries one. Absence of /Metadata is not an error.
func rewriteMetadata(doc *pdfdoc.Document, catalogDict *pdfgraph.Dictionary, now time.Time) error {
	ref, ok := pdfgraph.AsReference(catalogDict.Get("Metadata"))
	if !ok {
		return nil
	}
	target, ok := doc.GetObject(ref.ObjectNumber, false)
	if !ok || target.Stream == nil {
		return nil
	}

	xmlDoc := etree.NewDocument()
	if err := xmlDoc.ReadFromBytes(target.Stream); err != nil {
		return nil // malformed XMP is not fatal to signing
	}
	iso := now.UTC().Format("2006-01-02T15:04:05-07:00")
	targets := map[string]bool{"ModifyDate": true, "MetadataDate": true}
	for _, el := range elementsByLocalName(xmlDoc.Root(), targets) {
		el.SetText(iso)
	}
	rewritten, err := xmlDoc.WriteToBytes()
	if err != nil {
		return err
	}
	target.Stream = rewritten
	doc.AddObject(target)
	return nil
}

// elementsByLocalName walks the tree rooted at el and returns every element
// whose local name is in names, regardless of namespace prefix — etree's
// FindElements matches a bare path segment only against unprefixed
// elements, which misses namespaced tags like <xmp:ModifyDate>.
func elementsByLocalName(el *etree.Element, names map[string]bool) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	if names[el.Tag] {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = append(out, elementsByLocalName(child, names)...)
	}
	return out
}

// formatPDFDate renders t as "D:YYYYMMDDHHMMSS+HH'MM'".
func formatPDFDate(t time.Time) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%s%02d'%02d'",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		sign, offset/3600, (offset%3600)/60)
}

// EmitSigned implements the two-pass emission spec.md §4.E describes: build
// prefix and suffix around the signature object's reserved slot, compute
// and patch /ByteRange, sign the concatenation of the two covered ranges,
// then splice the hex signature into /Contents without moving any byte.
func (c *Coordinator) EmitSigned(doc *pdfdoc.Document, rebuild bool) ([]byte, error) {
	pending := doc.PendingSignature()
	if pending == nil {
		return nil, fmt.Errorf("pdfsign: EmitSigned called with no pending signature")
	}

	minor, _ := doc.RevisionForm(rebuild)
	var body bytes.Buffer
	if rebuild {
		fmt.Fprintf(&body, "%%PDF-1.%d\n", minor)
	} else {
		body.Write(doc.OriginalBytes())
	}

	objs := doc.ObjectsToEmit(rebuild)
	records := make([]pdfdoc.XrefRecord, 0, len(objs))
	var sigObj *pdfgraph.Object
	for _, obj := range objs {
		if obj.OID == pending.SignatureOID {
			sigObj = obj
			continue
		}
		records = append(records, pdfdoc.XrefRecord{OID: obj.OID, Offset: int64(body.Len()), Generation: obj.Generation})
		if err := obj.Write(&body); err != nil {
			return nil, err
		}
	}
	if sigObj == nil {
		return nil, fmt.Errorf("pdfsign: pending signature object %d not found among objects to emit", pending.SignatureOID)
	}

	prefixSize := int64(body.Len())
	sigEntry, contentsOffsetInSig, err := locateContentsOffset(sigObj)
	if err != nil {
		return nil, err
	}
	sigOffset := prefixSize
	records = append(records, pdfdoc.XrefRecord{OID: sigObj.OID, Offset: sigOffset, Generation: sigObj.Generation})
	body.Write(sigEntry)

	suffixStart := body.Len()
	if err := doc.WriteXrefSection(&body, rebuild, records); err != nil {
		return nil, err
	}
	suffixSize := int64(body.Len() - suffixStart)

	a, b, cc := computeByteRange(prefixSize, len(sigEntry), contentsOffsetInSig, c.Config.SignatureHexCapacity, suffixSize)
	if err := patchByteRange(sigObj.Dict(), c.Config.ByteRangeCapacity, a, b, cc); err != nil {
		return nil, err
	}

	patchedEntry, _, err := locateContentsOffset(sigObj)
	if err != nil {
		return nil, err
	}
	if len(patchedEntry) != len(sigEntry) {
		return nil, fmt.Errorf("pdfsign: signature object length changed after /ByteRange patch (%d -> %d)", len(sigEntry), len(patchedEntry))
	}
	out := body.Bytes()
	copy(out[sigOffset:sigOffset+int64(len(patchedEntry))], patchedEntry)

	digest := append(append([]byte{}, out[:a]...), out[b:]...)

	tmp, err := os.CreateTemp(c.Config.TempDir, "pdfmut-sign-*.bin")
	if err != nil {
		return nil, &IOError{Op: "create scratch file", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(digest); err != nil {
		tmp.Close()
		return nil, &IOError{Op: "write scratch file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &IOError{Op: "close scratch file", Err: err}
	}

	hexBytes, err := c.Signer.SignPKCS7(tmpPath, c.certPEM, c.keyPEM)
	if err != nil {
		return nil, &SignerError{Err: err}
	}
	hexDigits := string(bytes.ToUpper(hexBytes))
	if _, err := hex.DecodeString(hexDigits); err != nil {
		return nil, &SignerError{Err: fmt.Errorf("signer returned non-hex output: %w", err)}
	}

	// contentsOffsetInSig is relative to sigEntry; translate to an absolute
	// offset into out before splicing the hex signature in place.
	absContentsOffset := int(sigOffset) + contentsOffsetInSig
	if err := spliceContents(out, absContentsOffset, c.Config.SignatureHexCapacity, hexDigits); err != nil {
		return nil, err
	}

	return out, nil
}
