package pdfdoc

import "github.com/opensig/pdfmut/pdfgraph"

// walkPages performs the depth-first /Pages.Kids traversal described in
// spec §4.F, inheriting /MediaBox from the nearest ancestor that declares
// one. It is run once, at Open time; Open discards any error it returns
// and leaves the page index empty, so a malformed tree does not fail Open.
func walkPages(d *Document) ([]PageEntry, error) {
	rootRef, ok := d.RootRef()
	if !ok {
		return nil, nil
	}
	root, ok := d.GetObject(rootRef.ObjectNumber, false)
	if !ok {
		return nil, &InvalidTreeError{OID: rootRef.ObjectNumber, Message: "trailer /Root does not resolve to an object"}
	}
	rootDict := root.Dict()
	if rootDict == nil {
		return nil, &InvalidTreeError{OID: root.OID, Message: "/Root is not a dictionary"}
	}
	pagesRef, ok := pdfgraph.AsReference(rootDict.Get("Pages"))
	if !ok {
		return nil, &InvalidTreeError{OID: root.OID, Message: "/Root/Pages is not an indirect reference"}
	}

	var pages []PageEntry
	seen := make(map[uint32]bool)
	var walk func(oid uint32, inherited pdfgraph.Rectangle, haveInherited bool) error
	walk = func(oid uint32, inherited pdfgraph.Rectangle, haveInherited bool) error {
		if seen[oid] {
			return &InvalidTreeError{OID: oid, Message: "cycle detected in page tree"}
		}
		seen[oid] = true

		obj, ok := d.GetObject(oid, false)
		if !ok {
			return &InvalidTreeError{OID: oid, Message: "node does not resolve to an object"}
		}
		dict := obj.Dict()
		if dict == nil {
			return &InvalidTreeError{OID: oid, Message: "node is not a dictionary"}
		}

		box := inherited
		haveBox := haveInherited
		if arr := dict.GetArray("MediaBox"); arr != nil {
			r, err := pdfgraph.NewRectangle(arr)
			if err != nil {
				return &InvalidTreeError{OID: oid, Message: "/MediaBox: " + err.Error()}
			}
			box, haveBox = r, true
		}

		nodeType := dict.GetName("Type")
		switch nodeType {
		case "Page":
			if !haveBox {
				return &InvalidTreeError{OID: oid, Message: "page has no inherited /MediaBox"}
			}
			pages = append(pages, PageEntry{OID: oid, MediaBox: box})
			return nil
		// A missing /Type is treated as /Pages rather than rejected: malformed
		// intermediate nodes without a /Type entry occur in real-world PDFs,
		// and a node with /Kids is unambiguously an intermediate node either way.
		case "Pages", "":
			kidsVal := dict.Get("Kids")
			if kidsVal == nil {
				return &InvalidTreeError{OID: oid, Message: "/Pages node has no /Kids"}
			}
			kids, ok := kidsVal.(pdfgraph.Array)
			if !ok {
				return &InvalidTreeError{OID: oid, Message: "/Kids is not an array"}
			}
			for _, kid := range kids {
				ref, ok := pdfgraph.AsReference(kid)
				if !ok {
					return &InvalidTreeError{OID: oid, Message: "/Kids entry is not an indirect reference"}
				}
				if err := walk(ref.ObjectNumber, box, haveBox); err != nil {
					return err
				}
			}
			return nil
		default:
			return &InvalidTreeError{OID: oid, Message: "node /Type is neither /Page nor /Pages"}
		}
	}

	if err := walk(pagesRef.ObjectNumber, pdfgraph.Rectangle{}, false); err != nil {
		return nil, err
	}
	return pages, nil
}
