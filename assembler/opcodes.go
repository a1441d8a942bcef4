package assembler

import "strings"

// opcode pairs a mnemonic with the single character it assembles to.
// Mnemonics that take operands keep their trailing space; it is part of the match.
type opcode struct {
	Mnemonic string
	Code     byte
}

// opcodeTable is applied in order, so it must stay a slice.
var opcodeTable = []opcode{
	{"EVAL8 ", 'A'},
	{"EVAL16 ", 'B'},
	{"EVAL32 ", 'C'},
	{"EVAL64 ", 'D'},
	{"EVAL256 ", 'E'},
	{"CONV ", 'F'},
	{"HASH ", 'G'},
	{"HASH160 ", 'H'},
	{"SIGCHECK ", 'I'},
	{"IF ", 'K'},
	{"CALL ", 'L'},
	{"EXEC ", 'M'},
	{"LOAD ", 'N'},
	{"STORE ", 'O'},
	{"DEL ", 'P'},
	{"LIBLOAD ", 'Q'},
	{"MALLOC ", 'R'},
	{"ALLOC ", 'S'},
	{"COPY ", 'T'},
	{"COPYIMM ", 'U'},
	{"SELFDESTRUCT", 'W'},
	{"REVERT", 'X'},
	{"RETURN", 'Y'},
	{"RECEIVED ", 'a'},
	{"TXFEE ", 'b'},
	{"GETCOIN ", 'c'},
	{"NOP", 'd'},
	{"SPEND ", 'e'},
	{"ADDDEF ", 'f'},
	{"ADDTXOUT ", 'g'},
	{"GETDEFINITION ", 'h'},
	{"GETUTXO ", 'i'},
	{"MINT ", 'j'},
	{"META ", 'k'},
	{"TIME ", 'l'},
	{"HEIGHT ", 'm'},
	{"TXIOCOUNT", 'n'},
	{"VERSION", 'o'},
	{"TOKENCONTRACT", 'p'},
	{"LOG", 'q'},
	{"STOP", 'z'},
}

// Mnemonics returns every supported mnemonic in table order, exactly as stored.
func Mnemonics() []string {
	list := make([]string, len(opcodeTable))
	for i, op := range opcodeTable {
		list[i] = op.Mnemonic
	}
	return list
}

// Opcode returns the character a mnemonic assembles to. The trailing space is optional.
func Opcode(mnemonic string) (byte, bool) {
	mnemonic = strings.TrimSpace(mnemonic)
	for _, op := range opcodeTable {
		if strings.TrimSpace(op.Mnemonic) == mnemonic {
			return op.Code, true
		}
	}
	return 0, false
}

// Mnemonic returns the mnemonic for an opcode character, without the trailing space.
func Mnemonic(code byte) (string, bool) {
	for _, op := range opcodeTable {
		if op.Code == code {
			return strings.TrimSpace(op.Mnemonic), true
		}
	}
	return "", false
}

// replaceOpcodes runs every table entry over the line once.
func replaceOpcodes(table []opcode, line string) string {
	for _, op := range table {
		line = replaceMnemonic(line, op.Mnemonic, op.Code)
	}
	return line
}

// replaceMnemonic swaps each occurrence of mn that starts on a word boundary
// and is followed by a space, an @ or another word boundary.
func replaceMnemonic(line, mn string, code byte) string {
	if !strings.Contains(line, mn) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		if strings.HasPrefix(line[i:], mn) && isBoundary(line, i) && mnemonicEnds(line, i+len(mn)) {
			b.WriteByte(code)
			i += len(mn)
			continue
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String()
}

func mnemonicEnds(s string, end int) bool {
	if end < len(s) && (s[end] == ' ' || s[end] == '@') {
		return true
	}
	return isBoundary(s, end)
}

// isBoundary reports whether a word boundary sits before s[i].
// Word characters are ASCII letters, digits and underscore.
func isBoundary(s string, i int) bool {
	before := i > 0 && i-1 < len(s) && isWordChar(s[i-1])
	after := i < len(s) && isWordChar(s[i])
	return before != after
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
