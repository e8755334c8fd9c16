package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dfinity/ic-wasm/internal/icerr"
	"github.com/dfinity/ic-wasm/internal/icwasm"
	"github.com/dfinity/ic-wasm/internal/instrument"
	"github.com/dfinity/ic-wasm/internal/limiter"
	"github.com/dfinity/ic-wasm/internal/metadata"
	"github.com/dfinity/ic-wasm/internal/validate"
	"github.com/dfinity/ic-wasm/internal/wasm"
	"github.com/dfinity/ic-wasm/internal/wasm/binary"
	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer) int {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "Prints usage.")
	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		return 0
	}

	subCmd := flag.Arg(0)
	args := flag.Args()[1:]
	switch subCmd {
	case "instrument":
		return doInstrument(args, stdErr)
	case "resource":
		return doResource(args, stdErr)
	case "metadata":
		return doMetadata(args, stdOut, stdErr)
	default:
		fmt.Fprintf(stdErr, "invalid command %q\n", subCmd)
		printUsage(stdErr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "icwasm <command> [arguments]")
	fmt.Fprintln(w, "commands: instrument, resource, metadata")
}

func loadModule(path string) (*wasm.Module, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, icerr.WrapParse(err, "reading %s", path)
	}
	raw, err = binary.Unwrap(raw)
	if err != nil {
		return nil, icerr.WrapParse(err, "unwrapping %s", path)
	}
	return binary.Decode(raw)
}

func writeModule(m *wasm.Module, path string) error {
	out := binary.Encode(m)
	if w := validate.Check(context.Background(), out); w != nil {
		logrus.WithField("warning", w.String()).Warn("emitted module failed post-encode validation")
	}
	return os.WriteFile(path, out, 0o644)
}

func doInstrument(args []string, stdErr io.Writer) int {
	flags := flag.NewFlagSet("instrument", flag.ExitOnError)
	flags.SetOutput(stdErr)

	output := flags.String("output", "", "Path to write the instrumented module to (required).")
	traceOnly := flags.Bool("trace-only", false, "Skip cost metering, only inject tracing and logging.")
	funcNames := flags.String("functions", "", "Comma-separated list of function names to instrument; empty instruments every function.")
	legacy := flags.Bool("legacy-cost", false, "Use the legacy cost schedule (no ic0 call weights) instead of the current one.")
	_ = flags.Parse(args)

	if flags.NArg() < 1 || *output == "" {
		fmt.Fprintln(stdErr, "usage: icwasm instrument -output <path> <input.wasm>")
		return 1
	}

	m, err := loadModule(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	cfg := instrument.Config{TraceOnly: *traceOnly}
	if *legacy {
		cfg.Schedule = icwasm.CostScheduleLegacy
	}
	if *funcNames != "" {
		cfg.FuncNames = strings.Split(*funcNames, ",")
	}

	if err := instrument.Run(m, cfg); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	if err := writeModule(m, *output); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	return 0
}

func doResource(args []string, stdErr io.Writer) int {
	flags := flag.NewFlagSet("resource", flag.ExitOnError)
	flags.SetOutput(stdErr)

	output := flags.String("output", "", "Path to write the rewritten module to (required).")
	removeCycles := flags.Bool("remove-cycles-add", false, "Neutralize every cycles-transfer call.")
	stableLimit := flags.String("limit-stable-memory-page", "", "Cap stable memory growth, in 64KiB pages.")
	heapLimit := flags.String("limit-heap-memory-page", "", "Cap heap memory growth, in 64KiB pages.")
	playground := flags.String("playground-canister-id", "", "Principal to redirect controller-only call_new targets to.")
	_ = flags.Parse(args)

	if flags.NArg() < 1 || *output == "" {
		fmt.Fprintln(stdErr, "usage: icwasm resource -output <path> <input.wasm>")
		return 1
	}

	m, err := loadModule(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	cfg := limiter.Config{RemoveCyclesTransfer: *removeCycles, PlaygroundBackend: *playground}
	if *stableLimit != "" {
		v, err := parsePageCount(*stableLimit)
		if err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
		cfg.LimitStablePages = &v
	}
	if *heapLimit != "" {
		v, err := parsePageCount(*heapLimit)
		if err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
		cfg.LimitHeapPages = &v
	}

	if err := limiter.Run(m, cfg); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	if err := writeModule(m, *output); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	return 0
}

func parsePageCount(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, icerr.NewConfiguration("invalid page count %q", s)
	}
	return uint32(v), nil
}

func doMetadata(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("metadata", flag.ExitOnError)
	flags.SetOutput(stdErr)

	output := flags.String("output", "", "Path to write the modified module to; required for add/remove.")
	visibility := flags.String("visibility", "public", "public or private (add only).")
	_ = flags.Parse(args)

	if flags.NArg() < 2 {
		fmt.Fprintln(stdErr, "usage: icwasm metadata <list|get|add|remove> <input.wasm> [name] [data]")
		return 1
	}

	action, path := flags.Arg(0), flags.Arg(1)
	m, err := loadModule(path)
	if err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}

	switch action {
	case "list":
		for _, e := range metadata.List(m) {
			vis := "public"
			if e.Visibility == metadata.Private {
				vis = "private"
			}
			fmt.Fprintf(stdOut, "%s:%s\n", vis, e.Name)
		}
		return 0
	case "get":
		if flags.NArg() < 3 {
			fmt.Fprintln(stdErr, "usage: icwasm metadata get <input.wasm> <name>")
			return 1
		}
		val, err := metadata.Get(m, flags.Arg(2))
		if err != nil {
			fmt.Fprintln(stdErr, err)
			return 1
		}
		fmt.Fprintln(stdOut, val)
		return 0
	case "add":
		if flags.NArg() < 4 || *output == "" {
			fmt.Fprintln(stdErr, "usage: icwasm metadata add -output <path> -visibility <public|private> <input.wasm> <name> <data>")
			return 1
		}
		vis := metadata.Public
		if *visibility == "private" {
			vis = metadata.Private
		}
		metadata.Add(m, flags.Arg(2), vis, []byte(flags.Arg(3)))
	case "remove":
		if flags.NArg() < 3 || *output == "" {
			fmt.Fprintln(stdErr, "usage: icwasm metadata remove -output <path> <input.wasm> <name>")
			return 1
		}
		metadata.Remove(m, flags.Arg(2))
	default:
		fmt.Fprintf(stdErr, "invalid metadata action %q\n", action)
		return 1
	}

	if err := writeModule(m, *output); err != nil {
		fmt.Fprintln(stdErr, err)
		return 1
	}
	return 0
}
