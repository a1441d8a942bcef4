package disassembler

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Urethramancer/smallcasm/assembler"
)

// Instruction represents a single decoded line of object code.
type Instruction struct {
	Index    int
	Op       byte
	Mnemonic string
	Operands string
	// Known is false for lines that do not start with an opcode character.
	Known bool
	// Source is the correlated source line, or 0.
	Source int
}

// Text renders the instruction the way it would be written in source. Mnemonics that
// take operands keep the space that separates them.
func (inst *Instruction) Text() string {
	if !inst.Known {
		return "dc " + strconv.Quote(inst.Operands)
	}
	return inst.Mnemonic + inst.Operands
}

// Exact reports whether Text assembles back to the same line. It does not for lines without
// an opcode, for a bare mnemonic glued to a word character (RETURN"ab" assembles to Yx6162),
// or for an operand mnemonic followed by anything other than a space, @ or word character.
func (inst *Instruction) Exact() bool {
	if !inst.Known {
		return false
	}
	if !strings.HasSuffix(inst.Mnemonic, " ") {
		return inst.Operands == "" || !isWordChar(inst.Operands[0])
	}
	if inst.Operands == "" {
		return false
	}
	c := inst.Operands[0]
	return c == ' ' || c == '@' || isWordChar(c)
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// opcodes maps each opcode character to its table mnemonic, trailing space included.
var opcodes = func() map[byte]string {
	m := make(map[byte]string)
	for _, mn := range assembler.Mnemonics() {
		if code, ok := assembler.Opcode(mn); ok {
			m[code] = mn
		}
	}
	return m
}()

// Decode splits hex bytecode into instructions, one per object code line.
func Decode(bytecode string) ([]*Instruction, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(bytecode))
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	lines := strings.Split(string(raw), "\n")
	list := make([]*Instruction, len(lines))
	for i, line := range lines {
		list[i] = decodeLine(i, line)
	}
	return list, nil
}

func decodeLine(index int, line string) *Instruction {
	inst := &Instruction{Index: index, Operands: line}
	if line == "" {
		return inst
	}
	mn, ok := opcodes[line[0]]
	if !ok {
		return inst
	}
	inst.Op = line[0]
	inst.Mnemonic = mn
	inst.Operands = line[1:]
	inst.Known = true
	return inst
}

// Disassemble lists hex bytecode as indexed mnemonics. With debug records it also
// prints a header at each region start and the source line of correlated instructions.
func Disassemble(bytecode string, debug []assembler.DebugRecord) (string, error) {
	// Stage 1: decode.
	instructions, err := Decode(bytecode)
	if err != nil {
		return "", err
	}
	if len(instructions) == 0 {
		return "", nil
	}

	// Stage 2: annotate from the debug records.
	body := 0
	if len(debug) > 0 && debug[0].Body != nil {
		body = *debug[0].Body
	}
	headers := make(map[int][]string)
	for _, rec := range debug {
		start, lines := placement(rec, body)
		headers[start] = append(headers[start], rec.Code)
		for i, pair := range rec.Lines {
			idx := lines[i]
			if idx >= 0 && idx < len(instructions) && instructions[idx].Source == 0 {
				instructions[idx].Source = pair[1]
			}
		}
	}

	// Stage 3: render.
	width := len(strconv.Itoa(len(instructions) - 1))
	var out strings.Builder
	for _, inst := range instructions {
		for _, code := range headers[inst.Index] {
			fmt.Fprintf(&out, "%s:\n", code)
		}
		fmt.Fprintf(&out, "%*d  %s", width, inst.Index, inst.Text())
		if inst.Source > 0 {
			fmt.Fprintf(&out, "  ; line %d", inst.Source)
		}
		out.WriteByte('\n')
	}
	return out.String(), nil
}

// placement returns the emitted indices of a record's start and source lines. Records
// without recorded indices fall back to their offsets plus the final BODY value.
func placement(rec assembler.DebugRecord, body int) (int, []int) {
	if rec.LineIndex != nil && len(rec.LineIndex) == len(rec.Lines) {
		return rec.BeginIndex, rec.LineIndex
	}
	lines := make([]int, len(rec.Lines))
	for i, pair := range rec.Lines {
		lines[i] = pair[0] + body
	}
	return rec.Begin + body, lines
}
