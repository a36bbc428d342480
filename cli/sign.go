package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/opensig/pdfmut/config"
	"github.com/opensig/pdfmut/pdfdoc"
	"github.com/opensig/pdfmut/pdfgraph"
	"github.com/opensig/pdfmut/pdfsign"
	"github.com/opensig/pdfmut/pdfsign/appearance"
)

// SignCommand implements:
//
//	pdfmut sign -page 0 -rect 50,50,200,100 [-image sig.png] [-config sign.yaml] in.pdf out.pdf cert.p12 password
func SignCommand(args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	page := fs.Int("page", 0, "zero-based index of the page to place the signature widget on")
	rectFlag := fs.String("rect", "", "signature widget rectangle as llx,lly,urx,ury")
	imagePath := fs.String("image", "", "optional image file for a visible signature appearance")
	configPath := fs.String("config", "", "optional YAML file overriding the default signing configuration")
	fs.Parse(args[2:])

	if fs.NArg() != 4 {
		fmt.Fprintln(os.Stderr, "usage: pdfmut sign [-page N] -rect llx,lly,urx,ury [-image path] [-config file] <in.pdf> <out.pdf> <cert.p12> <password>")
		os.Exit(2)
	}
	inPath, outPath, certPath, password := fs.Arg(0), fs.Arg(1), fs.Arg(2), fs.Arg(3)

	rect, err := parseRect(*rectFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -rect: %v\n", err)
		os.Exit(2)
	}

	var cfg *config.SignConfig
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading -config: %v\n", err)
			os.Exit(2)
		}
	} else {
		cfg = config.Default()
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", inPath, err)
		os.Exit(1)
	}

	doc, err := pdfdoc.Open(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %v\n", inPath, err)
		os.Exit(1)
	}

	coord := pdfsign.NewCoordinator(pdfsign.OpenSSLSigner{}, appearance.RasterImageEmbedder{})
	coord.Config = cfg
	coord.WidgetNames = pdfsign.NewWidgetNameSource(cfg.WidgetNameSeed)
	if err := coord.PrepareSignature(doc, certPath, password, *page, rect, *imagePath); err != nil {
		fmt.Fprintf(os.Stderr, "preparing signature: %v\n", err)
		os.Exit(1)
	}

	out, err := doc.Emit(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emitting signed document: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
}

func parseRect(s string) (pdfgraph.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return pdfgraph.Rectangle{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return pdfgraph.Rectangle{}, fmt.Errorf("value %q: %w", p, err)
		}
		vals[i] = v
	}
	return pdfgraph.Rectangle{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}, nil
}
