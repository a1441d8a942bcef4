package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/grimdork/climate/arg"
	"github.com/k0kubun/pp/v3"

	"github.com/Urethramancer/smallcasm/artifact"
	"github.com/Urethramancer/smallcasm/assembler"
	"github.com/Urethramancer/smallcasm/config"
)

const usage = `Commands:
  build    assemble FILE and write its artifacts
  check    validate and assemble FILE without writing anything
  fmt      print FILE with normalised indentation
  opcodes  list the supported mnemonics`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, which exclude the program name, and executes the command.
func run(args []string, stdout io.Writer) error {
	opt := arg.New("smallcasm")
	opt.SetDefaultHelp(true)
	opt.SetOption(arg.GroupDefault, "c", "config", "Configuration file.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "o", "output", "Output directory for artifacts.", "", false, arg.VarString, nil)
	opt.SetOption(arg.GroupDefault, "v", "verbose", "Log verbosity level.", 0, false, arg.VarInt, nil)
	opt.SetOption(arg.GroupDefault, "d", "dump", "Pretty-print the full assembly result.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "w", "write", "fmt: rewrite FILE in place.", false, false, arg.VarBool, nil)
	opt.SetOption(arg.GroupDefault, "n", "nobundle", "Do not bundle a sibling .abi file.", false, false, arg.VarBool, nil)
	opt.SetPositional("COMMAND", "build, check, fmt or opcodes.", "", true, arg.VarString)
	opt.SetPositional("FILE", "SmallC ASM source file.", "", false, arg.VarString)

	if len(args) == 0 {
		opt.PrintHelp()
		fmt.Fprintln(stdout, usage)
		return nil
	}
	err := opt.Parse(args)
	if err != nil {
		if err == arg.ErrNoArgs {
			opt.PrintHelp()
			fmt.Fprintln(stdout, usage)
			return nil
		}
		return err
	}

	cfg, err := config.Load(opt.GetString("config"))
	if err != nil {
		return err
	}
	if out := opt.GetString("output"); out != "" {
		cfg.Output = out
	}
	if v := opt.GetInt("verbose"); v > 0 {
		cfg.Verbosity = v
	}
	if opt.GetBool("nobundle") {
		cfg.BundleABI = false
	}
	setupLogging(cfg.Verbosity)
	defer glog.Flush()

	cmd := opt.GetPosString("COMMAND")
	file := opt.GetPosString("FILE")
	if cmd == "" {
		return fmt.Errorf("missing command\n%s", usage)
	}
	if cmd != "opcodes" && file == "" {
		return fmt.Errorf("usage: smallcasm [options] %s FILE", cmd)
	}

	switch cmd {
	case "build":
		return build(stdout, cfg, file, opt.GetBool("dump"))
	case "check":
		return check(stdout, file, opt.GetBool("dump"))
	case "fmt":
		return format(stdout, file, opt.GetBool("write"))
	case "opcodes":
		listOpcodes(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// setupLogging routes glog to stderr at the requested verbosity.
func setupLogging(verbosity int) {
	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(verbosity))
	flag.CommandLine.Parse(nil)
}

func readSource(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading input file: %w", err)
	}
	return string(data), nil
}

func validate(file, src string) error {
	v := assembler.ValidateSyntax(src)
	if v.Valid {
		return nil
	}
	for _, msg := range v.Errors {
		fmt.Fprintf(os.Stderr, "%s: %s\n", file, msg)
	}
	return fmt.Errorf("%s: %d syntax problem(s)", file, len(v.Errors))
}

func assemble(w io.Writer, file, src string, dump bool) (*assembler.Result, error) {
	res := assembler.Assemble(src)
	if dump {
		pp.Fprintln(w, res)
	}
	if !res.Success {
		return nil, fmt.Errorf("%s: %w", file, res.Err())
	}
	return res, nil
}

func build(w io.Writer, cfg *config.Config, file string, dump bool) error {
	src, err := readSource(file)
	if err != nil {
		return err
	}
	if cfg.Validate {
		if err := validate(file, src); err != nil {
			return err
		}
	}

	res, err := assemble(w, file, src, dump)
	if err != nil {
		return err
	}

	name := artifact.Name(file)
	files, err := artifact.Write(cfg.Output, name, res, cfg.Artifacts)
	if err != nil {
		return err
	}
	for _, f := range files {
		glog.V(1).Infof("wrote %s", f)
	}

	if cfg.BundleABI {
		if err := bundle(cfg.Output, file, res); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, res.Hash)
	return nil
}

// bundle writes a CompiledResult when FILE has a sibling .abi file.
func bundle(dir, file string, res *assembler.Result) error {
	abiPath := strings.TrimSuffix(file, filepath.Ext(file)) + artifact.ExtABI
	abi, err := os.ReadFile(abiPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			glog.V(1).Infof("no ABI at %s, skipping bundle", abiPath)
			return nil
		}
		return fmt.Errorf("reading ABI: %w", err)
	}

	cr, err := artifact.Bundle(res, abi)
	if err != nil {
		return fmt.Errorf("%s: %w", abiPath, err)
	}
	path, err := artifact.WriteBundle(dir, artifact.Name(file), cr)
	if err != nil {
		return err
	}
	glog.V(1).Infof("wrote %s", path)
	return nil
}

func check(w io.Writer, file string, dump bool) error {
	src, err := readSource(file)
	if err != nil {
		return err
	}
	if err := validate(file, src); err != nil {
		return err
	}

	res, err := assemble(w, file, src, dump)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: ok, %d bytes, hash %s\n", file, len(res.ObjectCode), res.Hash)
	return nil
}

func format(w io.Writer, file string, write bool) error {
	src, err := readSource(file)
	if err != nil {
		return err
	}

	out := assembler.FormatCode(src)
	if !write {
		fmt.Fprint(w, out)
		return nil
	}
	if out == src {
		return nil
	}
	if err := os.WriteFile(file, []byte(out), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	fmt.Fprintf(w, "Formatted %s\n", file)
	return nil
}

func listOpcodes(w io.Writer) {
	for _, mn := range assembler.Mnemonics() {
		code, _ := assembler.Opcode(mn)
		fmt.Fprintf(w, "%-14s %c\n", strings.TrimSpace(mn), code)
	}
}
