package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/grimdork/climate/arg"

	"github.com/Urethramancer/smallcasm/artifact"
	"github.com/Urethramancer/smallcasm/assembler"
	"github.com/Urethramancer/smallcasm/disassembler"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, which exclude the program name, and writes the listing.
func run(args []string, stdout io.Writer) error {
	opt := arg.New("smallcdis")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "g", "debug", "Debug records (default: INPUT with .dbg.json).", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "H", "hash", "Verify the bytecode against this hash, or a .hash file.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "v", "verbose", "Log verbosity level.", 0, false, arg.VarInt, nil)
	opt.SetPositional("INPUT", "Bytecode file (.bin).", "", true, arg.VarString)
	opt.SetPositional("OUTPUT", "Listing file (default: stdout).", "", false, arg.VarString)

	if len(args) == 0 {
		opt.PrintHelp()
		return nil
	}
	err := opt.Parse(args)
	if err != nil {
		if err == arg.ErrNoArgs {
			opt.PrintHelp()
			return nil
		}
		return err
	}

	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(opt.GetInt("verbose")))
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	inputFile := opt.GetPosString("INPUT")
	outputFile := opt.GetPosString("OUTPUT")
	if inputFile == "" {
		return errors.New("usage: smallcdis [options] INPUT [OUTPUT]")
	}

	bytecode, err := artifact.ReadBytecode(inputFile)
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}

	if h := opt.GetString("hash"); h != "" {
		if err := disassembler.Verify(bytecode, readHash(h)); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	debug, err := loadDebug(inputFile, opt.GetString("debug"))
	if err != nil {
		return fmt.Errorf("reading debug records: %w", err)
	}

	text, err := disassembler.Disassemble(bytecode, debug)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Fprint(stdout, text)
		return nil
	}

	if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	fmt.Fprintf(stdout, "Listing written to %s\n", outputFile)
	return nil
}

// readHash accepts either a literal hash or the path of a .hash file.
func readHash(h string) string {
	data, err := os.ReadFile(h)
	if err != nil {
		return h
	}
	return strings.TrimSpace(string(data))
}

// loadDebug reads explicit debug records, or the ones beside the input when present.
func loadDebug(input, path string) ([]assembler.DebugRecord, error) {
	if path != "" {
		return artifact.ReadDebug(path)
	}

	path = strings.TrimSuffix(input, artifact.ExtBytecode) + artifact.ExtDebug
	debug, err := artifact.ReadDebug(path)
	if errors.Is(err, fs.ErrNotExist) {
		glog.V(1).Infof("no debug records at %s", path)
		return nil, nil
	}
	return debug, err
}
