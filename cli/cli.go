// Package cli provides pdfmut's command-line interface: thin wrappers over
// the pdfdoc/pdfsign surface spec.md places outside the core (§1, "CLI
// wrappers" is an excluded collaborator).
package cli

import (
	"fmt"
	"os"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Run executes the CLI with the given arguments (os.Args).
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	switch args[1] {
	case "inspect":
		InspectCommand(args)
	case "sign":
		SignCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[1])
		Usage()
		os.Exit(2)
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("pdfmut - PDF incremental mutation and signing tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  inspect  Print version, page count, and page sizes")
	fmt.Println("  sign     Prepare and emit a signed incremental update")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s inspect input.pdf\n", os.Args[0])
	fmt.Printf("  %s sign -page 0 -rect 50,50,200,100 input.pdf output.pdf cert.p12 password\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("pdfmut version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
