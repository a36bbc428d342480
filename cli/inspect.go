package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/opensig/pdfmut/pdfdoc"
)

// InspectCommand implements `pdfmut inspect <file.pdf>`.
func InspectCommand(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Parse(args[2:])
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pdfmut inspect <file.pdf>")
		os.Exit(2)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	doc, err := pdfdoc.Open(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	fmt.Printf("version: %s\n", doc.GetVersion())
	fmt.Printf("encrypted: %v\n", doc.Encrypted())
	fmt.Printf("pages: %d\n", doc.GetPageCount())
	for i := 0; i < doc.GetPageCount(); i++ {
		rect, _ := doc.PageSize(i)
		fmt.Printf("  page %d: [%g %g %g %g]\n", i, rect.LLX, rect.LLY, rect.URX, rect.URY)
	}
}
