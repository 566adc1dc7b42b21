package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "serve":
		return runServe(args[1:])
	case "cart":
		return runCart(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "languages":
		return runLanguages(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "storefront CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  storefront <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify cart storage and translation settings")
	fmt.Fprintln(os.Stderr, "  serve      Start Echo API server")
	fmt.Fprintln(os.Stderr, "  cart       Show or change a stored cart (show, add, remove, update, clear)")
	fmt.Fprintln(os.Stderr, "  translate  Translate text through the gateway")
	fmt.Fprintln(os.Stderr, "  detect     Detect the language of text")
	fmt.Fprintln(os.Stderr, "  languages  List supported languages")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"storefront <command> -h\" for command-specific flags.")
}
