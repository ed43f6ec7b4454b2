// Command tlsfetch-log views and summarizes tlsfetch protocol logs.
//
// Protocol logs are written by tlsfetch when run with -protocol-log.
//
// Usage:
//
//	tlsfetch-log <command> [flags] <file.tlog>
//
// Commands:
//
//	view     Print events, one per line
//	export   Export events as JSONL or CSV
//	stats    Summarize sessions
//
// Examples:
//
//	# Only record-layer data events
//	tlsfetch-log view -layer record -category data fetch.tlog
//
//	# Responses that hit the buffer capacity
//	tlsfetch-log view -truncated fetch.tlog
//
//	# Spreadsheet-friendly dump
//	tlsfetch-log export -format csv -o fetch.csv fetch.tlog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/retrocoder/tlsfetch/cmd/tlsfetch-log/commands"
)

// A subcommand registers its flags on fs and returns the action to run
// against the log file once they are parsed.
type subcommand struct {
	name    string
	summary string
	setup   func(fs *flag.FlagSet, out io.Writer) func(path string) error
}

var subcommands = []subcommand{
	{"view", "Print events, one per line", setupView},
	{"export", "Export events as JSONL or CSV", setupExport},
	{"stats", "Summarize sessions", setupStats},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return 0
	}

	for _, sc := range subcommands {
		if sc.name == args[0] {
			return sc.exec(args[1:], stdout, stderr)
		}
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	printUsage(stderr)
	return 2
}

func (sc subcommand) exec(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(sc.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	action := sc.setup(fs, stdout)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s: %s\n\nusage: tlsfetch-log %s [flags] <file.tlog>\n", sc.name, sc.summary, sc.name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "exactly one log file is required")
		fs.Usage()
		return 2
	}

	if err := action(fs.Arg(0)); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", sc.name, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: tlsfetch-log <command> [flags] <file.tlog>")
	fmt.Fprintln(w)
	for _, sc := range subcommands {
		fmt.Fprintf(w, "  %-8s %s\n", sc.name, sc.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `Run "tlsfetch-log <command> -h" for command flags.`)
}

func setupView(fs *flag.FlagSet, out io.Writer) func(string) error {
	var filter commands.ViewFilter
	fs.StringVar(&filter.ConnectionID, "conn-id", "", "only events of this session ID")
	fs.StringVar(&filter.ServerName, "server", "", "only sessions to this server name")
	fs.BoolVar(&filter.TruncatedOnly, "truncated", false, "only reads that hit the response capacity")
	layer := fs.String("layer", "", "transport, record or session")
	direction := fs.String("direction", "", "in or out")
	category := fs.String("category", "", "data, control, state, error or handshake")

	return func(path string) error {
		if *layer != "" {
			l, err := commands.ParseLayerFlag(*layer)
			if err != nil {
				return err
			}
			filter.Layer = &l
		}
		if *direction != "" {
			d, err := commands.ParseDirectionFlag(*direction)
			if err != nil {
				return err
			}
			filter.Direction = &d
		}
		if *category != "" {
			c, err := commands.ParseCategoryFlag(*category)
			if err != nil {
				return err
			}
			filter.Category = &c
		}
		return commands.RunView(path, filter, out)
	}
}

func setupExport(fs *flag.FlagSet, _ io.Writer) func(string) error {
	format := fs.String("format", "jsonl", "jsonl or csv")
	output := fs.String("o", "", "output file, stdout when empty")
	return func(path string) error {
		return commands.RunExport(path, *format, *output)
	}
}

func setupStats(_ *flag.FlagSet, out io.Writer) func(string) error {
	return func(path string) error {
		return commands.RunStats(path, out)
	}
}
