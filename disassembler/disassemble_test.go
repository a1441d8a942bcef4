package disassembler_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Urethramancer/smallcasm/artifact"
	"github.com/Urethramancer/smallcasm/assembler"
	"github.com/Urethramancer/smallcasm/disassembler"
)

const listingSource = `;#{"code":"main","types":{},"vars":[]}
;#{"srcline":3}
EVAL32 gi0,1,
;#{"srcline":4}
LOG "hi",
RETURN
;#{"endcode":""}`

func assembleOK(t *testing.T, src string) *assembler.Result {
	t.Helper()
	res := assembler.Assemble(src)
	if !res.Success {
		t.Fatalf("failed to assemble:\n%s\nerror: %s", src, res.Error)
	}
	return res
}

func TestDisassembleListing(t *testing.T) {
	res := assembleOK(t, listingSource)

	got, err := disassembler.Disassemble(res.Bytecode, res.DebugInfo)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	want := "main:\n" +
		"0  EVAL32 gi0,1,  ; line 3\n" +
		"1  LOG x6869,  ; line 4\n" +
		"2  RETURN\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

const beforeBodySource = `;#{"code":"init","vars":[]}
;#{"srcline":1}
MALLOC 0,8,
STOP
define BODY .
;#{"code":"main","vars":[]}
;#{"srcline":5}
NOP`

const beforeBodyListing = "init:\n" +
	"0  MALLOC 0,8,  ; line 1\n" +
	"1  STOP\n" +
	"main:\n" +
	"2  NOP  ; line 5\n"

// A region opened before BODY is defined keeps its own placement.
func TestDisassembleBeforeBody(t *testing.T) {
	res := assembleOK(t, beforeBodySource)

	got, err := disassembler.Disassemble(res.Bytecode, res.DebugInfo)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if diff := cmp.Diff(beforeBodyListing, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestDisassembleFromFiles(t *testing.T) {
	res := assembleOK(t, beforeBodySource)
	dir := t.TempDir()
	if _, err := artifact.Write(dir, "prog", res, artifact.All); err != nil {
		t.Fatalf("Write: %v", err)
	}

	bytecode, err := artifact.ReadBytecode(filepath.Join(dir, "prog.bin"))
	if err != nil {
		t.Fatalf("ReadBytecode: %v", err)
	}
	debug, err := artifact.ReadDebug(filepath.Join(dir, "prog.dbg.json"))
	if err != nil {
		t.Fatalf("ReadDebug: %v", err)
	}
	got, err := disassembler.Disassemble(bytecode, debug)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if diff := cmp.Diff(beforeBodyListing, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

// Records without emitted indices are placed by offset plus the final BODY.
func TestDisassembleOffsetsOnly(t *testing.T) {
	res := assembleOK(t, "NOP\nNOP\nNOP")
	body := 1
	debug := []assembler.DebugRecord{
		{Code: "main", Begin: 0, Lines: [][2]int{{1, 9}}, Body: &body},
	}

	got, err := disassembler.Disassemble(res.Bytecode, debug)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	want := "0  NOP\n" +
		"main:\n" +
		"1  NOP\n" +
		"2  NOP  ; line 9\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestDisassembleWithoutDebug(t *testing.T) {
	res := assembleOK(t, "NOP\nNOP\nNOP\nNOP\nNOP\nNOP\nNOP\nNOP\nNOP\nNOP\nSTOP")

	got, err := disassembler.Disassemble(res.Bytecode, nil)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != " 0  NOP" || lines[10] != "10  STOP" {
		t.Errorf("unexpected alignment:\n%s", got)
	}
}

// Listing text re-assembles to the same bytecode.
func TestRoundTrip(t *testing.T) {
	sources := []string{
		listingSource,
		"MALLOC 0,8,\nCOPYIMM 0,x00,\nIF gi0,2,\nSELFDESTRUCT\nSTOP",
		"define x 5\nEVAL8 0,x,\nNOP\ndefine back .\nCALL 0,.back,",
	}
	for _, src := range sources {
		res := assembleOK(t, src)
		instructions, err := disassembler.Decode(res.Bytecode)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}

		var text []string
		for _, inst := range instructions {
			if !inst.Exact() {
				t.Fatalf("line %d does not assemble back: %q", inst.Index, inst.Text())
			}
			text = append(text, inst.Text())
		}

		again := assembleOK(t, strings.Join(text, "\n"))
		if again.Bytecode != res.Bytecode {
			t.Errorf("round trip changed bytecode for:\n%s\nlisting:\n%s\ngot:  %s\nwant: %s",
				src, strings.Join(text, "\n"), again.Bytecode, res.Bytecode)
		}
	}
}

func TestExact(t *testing.T) {
	tests := []struct {
		name, line string
		want       bool
	}{
		{"Operands", "EVAL32 gi0,1,", true},
		{"Bare", "STOP", true},
		{"BareThenComma", "RETURN,", true},
		{"BareGluedString", `RETURN"ab"`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := assembleOK(t, tc.line)
			instructions, err := disassembler.Decode(res.Bytecode)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			inst := instructions[0]
			if got := inst.Exact(); got != tc.want {
				t.Errorf("Exact(%q) = %v; want %v", inst.Text(), got, tc.want)
			}
		})
	}
}

// A bare mnemonic glued to the encoded string does not assemble back.
func TestTextGluedString(t *testing.T) {
	res := assembleOK(t, `RETURN"ab"`)
	if res.ObjectCode != "Yx6162" {
		t.Fatalf("object code = %q", res.ObjectCode)
	}
	instructions, err := disassembler.Decode(res.Bytecode)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	inst := instructions[0]
	if !inst.Known || inst.Text() != "RETURNx6162" || inst.Exact() {
		t.Errorf("got %+v, Text %q, Exact %v", inst, inst.Text(), inst.Exact())
	}
}

func TestDecodeUnknownLine(t *testing.T) {
	// "?x"
	instructions, err := disassembler.Decode("3f78")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(instructions) != 1 || instructions[0].Known {
		t.Fatalf("expected one unknown line, got %+v", instructions)
	}
	if got := instructions[0].Text(); got != `dc "?x"` {
		t.Errorf("Text() = %s", got)
	}
	if instructions[0].Exact() {
		t.Error("unknown line reported as exact")
	}
}

func TestDisassembleErrors(t *testing.T) {
	if _, err := disassembler.Disassemble("zz", nil); err == nil {
		t.Error("expected an error for invalid hex")
	}
	got, err := disassembler.Disassemble("", nil)
	if err != nil || got != "" {
		t.Errorf("empty bytecode: got %q, %v", got, err)
	}
}

func TestVerify(t *testing.T) {
	const (
		bytecode = "52302c3130302c0a436769302c34322c0a7a"
		hash     = "51d3822c8a461d1969f5319bb43c624a75492e34"
	)

	if err := disassembler.Verify(bytecode, hash); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if err := disassembler.Verify(bytecode, strings.ToUpper(hash)); err != nil {
		t.Errorf("Verify is case sensitive: %v", err)
	}

	err := disassembler.Verify(bytecode+"0a", hash)
	if !errors.Is(err, disassembler.ErrHashMismatch) {
		t.Errorf("expected ErrHashMismatch, got %v", err)
	}

	err = disassembler.Verify("xyz", hash)
	if err == nil || errors.Is(err, disassembler.ErrHashMismatch) {
		t.Errorf("expected a decoding error, got %v", err)
	}
}
