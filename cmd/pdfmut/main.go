// Command pdfmut inspects and incrementally signs PDF files.
//
// Usage:
//
//	pdfmut <command> [options] <args>
//
// Commands:
//
//	inspect  Print version, page count, and page sizes
//	sign     Prepare and emit a signed incremental update
//	version  Show version information
//	help     Show this help message
//
// Examples:
//
//	pdfmut inspect input.pdf
//	pdfmut sign -page 0 -rect 50,50,200,100 input.pdf output.pdf cert.p12 password
package main

import (
	"os"

	"github.com/opensig/pdfmut/cli"
)

// version and buildTime are set at build time via:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/pdfmut
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime
	cli.Run(os.Args)
}
