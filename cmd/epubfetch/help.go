package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epubfetch <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  resolve    Resolve content documents and export them with their resources")
	fmt.Fprintln(w, "  cat        Print a package resource, deobfuscated")
	fmt.Fprintln(w, "  manifest   List the package manifest, spine and obfuscated resources")
	fmt.Fprintln(w, "  render     Print a resolved content document to PDF")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'epubfetch help <command>' for details on a specific command.")
}

// printCommonUsage prints flags shared by every command.
func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --log-level <s>       Log level: debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      Log format: console, json")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
}

// printResolveUsage prints usage for the resolve command.
func printResolveUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epubfetch resolve <publication> [document...] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolve image and stylesheet references of content documents and write")
	fmt.Fprintln(w, "each document with its resources under the output directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  publication    .epub archive or unpacked publication directory")
	fmt.Fprintln(w, "  document       Manifest id or root-relative path (default: whole spine)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory (default: output.defaultDir or <name>-resolved)")
	fmt.Fprintln(w, "  -w, --workers <n>         Documents resolved in parallel (0 = auto)")
	printCommonUsage(w)
}

// printCatUsage prints usage for the cat command.
func printCatUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epubfetch cat <publication> <path> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print a package resource. Obfuscated fonts are deobfuscated.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Write to file instead of stdout")
	fmt.Fprintln(w, "      --data-uri            Print as a data: URI")
	fmt.Fprintln(w, "      --highlight           Syntax-highlight text resources")
	fmt.Fprintln(w, "      --style <name>        Highlight style (default: monokai)")
	printCommonUsage(w)
}

// printManifestUsage prints usage for the manifest command.
func printManifestUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epubfetch manifest <publication> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List package metadata, manifest items, spine and obfuscated resources.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -f, --format <s>          Output format: text, yaml")
	printCommonUsage(w)
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epubfetch render <publication> <document> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolve a content document and print it to PDF with headless Chrome.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output PDF (default: <document>.pdf)")
	fmt.Fprintln(w, "  -t, --timeout <d>         PDF generation timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --landscape           Landscape orientation")
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "resolve":
		printResolveUsage(env.Stdout)
	case "cat":
		printCatUsage(env.Stdout)
	case "manifest":
		printManifestUsage(env.Stdout)
	case "render":
		printRenderUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: epubfetch version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: epubfetch help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
