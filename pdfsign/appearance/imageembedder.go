package appearance

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // registers the PNG decoder with image.Decode
	"os"

	"github.com/opensig/pdfmut/pdfdoc"
	"github.com/opensig/pdfmut/pdfgraph"
)

// RasterImageEmbedder is the default ImageEmbedder: it decodes a PNG or
// JPEG file from disk into a PDF Image XObject and paints it filling the
// target rectangle. JPEG source bytes are kept as DCTDecode data rather
// than re-encoded; everything else is flattened to RGB and FlateDecoded.
type RasterImageEmbedder struct{}

func (RasterImageEmbedder) EmbedImage(doc *pdfdoc.Document, path string, x0, y0, x1, y1 float64) (string, *pdfgraph.Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	imgDict, stream, err := rasterToXObjectDict(data)
	if err != nil {
		return "", nil, err
	}

	imgObj := doc.CreateObject(imgDict, pdfdoc.KindPlain)
	imgObj.Stream = stream
	imgObj.StreamFiltered = true

	xobjects := pdfgraph.NewDictionary()
	xobjects.Set("Im0", imgObj.Reference())
	resources := pdfgraph.NewDictionary()
	resources.Set("XObject", xobjects)

	w, h := x1-x0, y1-y0
	command := fmt.Sprintf("q %g 0 0 %g %g %g cm /Im0 Do Q", w, h, x0, y0)
	return command, resources, nil
}

// rasterToXObjectDict decodes data and returns the Image XObject dictionary
// and its (already filtered) stream bytes.
func rasterToXObjectDict(data []byte) (*pdfgraph.Dictionary, []byte, error) {
	if isJPEG(data) {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("decoding JPEG header: %w", err)
		}
		colorSpace := "DeviceRGB"
		switch cfg.ColorModel {
		case color.GrayModel:
			colorSpace = "DeviceGray"
		case color.CMYKModel:
			colorSpace = "DeviceCMYK"
		}
		dict := imageXObjectDict(cfg.Width, cfg.Height, colorSpace, "DCTDecode")
		return dict, data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding image: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pixels := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = append(pixels, byte(r>>8), byte(g>>8), byte(b>>8))
		}
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(pixels); err != nil {
		return nil, nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, nil, err
	}

	dict := imageXObjectDict(width, height, "DeviceRGB", "FlateDecode")
	return dict, buf.Bytes(), nil
}

func imageXObjectDict(width, height int, colorSpace, filter string) *pdfgraph.Dictionary {
	dict := pdfgraph.NewDictionary()
	dict.Set("Type", pdfgraph.Name("XObject"))
	dict.Set("Subtype", pdfgraph.Name("Image"))
	dict.Set("Width", pdfgraph.Integer(int64(width)))
	dict.Set("Height", pdfgraph.Integer(int64(height)))
	dict.Set("ColorSpace", pdfgraph.Name(colorSpace))
	dict.Set("BitsPerComponent", pdfgraph.Integer(8))
	dict.Set("Filter", pdfgraph.Name(filter))
	return dict
}

func isJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}
