// Package appearance builds the Adobe four-object digital-signature
// appearance stack: an outer form XObject wrapping a container form that
// composites a blank layer and an image layer (spec.md §4.E step 6).
package appearance

import (
	"github.com/opensig/pdfmut/pdfdoc"
	"github.com/opensig/pdfmut/pdfgraph"
)

// ImageEmbedder stands in for spec.md's embed_image collaborator: given the
// raster at path and the target rectangle (in form-space, i.e. width/height
// only), it returns the content-stream command that paints it and the
// resource dictionary that command needs. RasterImageEmbedder is the
// PNG/JPEG implementation in this package; tests can supply a stub.
type ImageEmbedder interface {
	EmbedImage(doc *pdfdoc.Document, path string, x0, y0, x1, y1 float64) (command string, resources *pdfgraph.Dictionary, err error)
}

const blankAppearanceStream = "% DSBlank\n"

// Build creates all four appearance-stack objects in doc and returns the
// outer form object, ready to attach as the annotation's /AP /N entry.
func Build(doc *pdfdoc.Document, embedder ImageEmbedder, imagePath string, rect pdfgraph.Rectangle) (*pdfgraph.Object, error) {
	bbox := pdfgraph.Array{pdfgraph.Real(0), pdfgraph.Real(0), pdfgraph.Real(rect.Width()), pdfgraph.Real(rect.Height())}

	command, resources, err := embedder.EmbedImage(doc, imagePath, 0, 0, rect.Width(), rect.Height())
	if err != nil {
		return nil, err
	}
	if resources == nil {
		resources = pdfgraph.NewDictionary()
	}

	layerN2Dict := formXObjectDict(bbox, resources)
	layerN2 := doc.CreateObject(layerN2Dict, pdfdoc.KindPlain)
	layerN2.Stream = []byte(command)

	layerN0Dict := formXObjectDict(bbox, pdfgraph.NewDictionary())
	layerN0 := doc.CreateObject(layerN0Dict, pdfdoc.KindPlain)
	layerN0.Stream = []byte(blankAppearanceStream)

	containerXObjects := pdfgraph.NewDictionary()
	containerXObjects.Set("n0", layerN0.Reference())
	containerXObjects.Set("n2", layerN2.Reference())
	containerResources := pdfgraph.NewDictionary()
	containerResources.Set("XObject", containerXObjects)

	containerDict := formXObjectDict(bbox, containerResources)
	container := doc.CreateObject(containerDict, pdfdoc.KindPlain)
	container.Stream = []byte("q 1 0 0 1 0 0 cm /n0 Do Q\nq 1 0 0 1 0 0 cm /n2 Do Q\n")

	outerResources := pdfgraph.NewDictionary()
	outerXObjects := pdfgraph.NewDictionary()
	outerXObjects.Set("FRM", container.Reference())
	outerResources.Set("XObject", outerXObjects)

	group := pdfgraph.NewDictionary()
	group.Set("S", pdfgraph.Name("Transparency"))
	group.Set("CS", pdfgraph.Name("DeviceRGB"))

	outerDict := formXObjectDict(bbox, outerResources)
	outerDict.Set("Group", group)
	outer := doc.CreateObject(outerDict, pdfdoc.KindPlain)
	outer.Stream = []byte("/FRM Do")

	return outer, nil
}

func formXObjectDict(bbox pdfgraph.Array, resources *pdfgraph.Dictionary) *pdfgraph.Dictionary {
	dict := pdfgraph.NewDictionary()
	dict.Set("Type", pdfgraph.Name("XObject"))
	dict.Set("Subtype", pdfgraph.Name("Form"))
	dict.Set("BBox", bbox)
	dict.Set("Resources", resources)
	return dict
}
