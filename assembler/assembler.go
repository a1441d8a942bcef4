package assembler

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/golang/glog"
)

// Assembler turns SmallC ASM source into object code, bytecode and debug records.
// It holds no per-run state and is safe for concurrent use.
type Assembler struct {
	opcodes []opcode
}

// Result is the outcome of one assembly run. When Success is false only Error is meaningful.
type Result struct {
	Bytecode   string        `json:"bytecode"`
	Hash       string        `json:"hash"`
	ObjectCode string        `json:"objectCode"`
	DebugInfo  []DebugRecord `json:"debugInfo"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`

	err error
}

// Err returns the error that stopped assembly, or nil.
func (r *Result) Err() error {
	return r.err
}

// state is everything one run accumulates between the passes.
type state struct {
	symbols *SymbolTable
	debug   debugTracker
	nodes   []*Node
	counter int
}

// New creates a new Assembler instance.
func New() *Assembler {
	return &Assembler{opcodes: opcodeTable}
}

// Assemble assembles src with a default Assembler.
func Assemble(src string) *Result {
	return New().Assemble(src)
}

// Assemble takes SmallC ASM source and returns the assembled result. Errors never
// escape as panics or return values; they are reported through the Result.
func (asm *Assembler) Assemble(src string) *Result {
	res, err := asm.assemble(src)
	if err != nil {
		return &Result{DebugInfo: []DebugRecord{}, Error: err.Error(), err: err}
	}
	return res
}

func (asm *Assembler) assemble(src string) (*Result, error) {
	st := &state{symbols: NewSymbolTable()}
	if err := asm.pass1(st, strings.Split(src, "\n")); err != nil {
		return nil, fmt.Errorf("pass 1: %w", err)
	}
	debug := st.debug.finish(st.symbols.body())
	glog.V(2).Infof("pass 1: %d statements, %d symbols, %d regions", len(st.nodes), st.symbols.Len(), len(debug))

	objectCode := asm.pass2(st)
	bytecode, hash := Serialize(objectCode)
	glog.V(2).Infof("pass 2: %d bytes of object code, hash %s", len(objectCode), hash)

	return &Result{
		Bytecode:   bytecode,
		Hash:       hash,
		ObjectCode: objectCode,
		DebugInfo:  debug,
		Success:    true,
	}, nil
}

// pass1 consumes directives, comments and defines, hashes ABI calls, resolves variables
// and numbers the statements that remain.
func (asm *Assembler) pass1(st *state, lines []string) error {
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)

		if reDirective.MatchString(line) {
			d, err := parseDirective(line[2:])
			if err != nil {
				glog.Warningf("line %d: failed to parse debug info: %s: %v", lineNo, line, err)
				continue
			}
			st.debug.apply(d, st.counter, st.symbols.body())
			continue
		}

		line = stripComment(line)
		if line == "" {
			continue
		}

		line = encodeAbiCalls(line)
		current, global := st.debug.scopes()
		line, err := resolveVariables(line, lineNo, current, global)
		if err != nil {
			return err
		}

		if name, loc, ok := parseDefine(line, st.counter); ok {
			if name != "" {
				st.symbols.Define(name, loc)
			}
			continue
		}

		st.nodes = append(st.nodes, &Node{Text: line, Index: st.counter, Line: lineNo})
		st.counter++
	}
	return nil
}

// pass2 encodes opcodes and strings, substitutes symbols and resolves branch targets.
// Statement text is split again on newlines; blank pieces are dropped and take no line number.
func (asm *Assembler) pass2(st *state) string {
	order := st.symbols.Sorted()
	var out strings.Builder
	ln := 0
	for _, n := range st.nodes {
		for _, line := range strings.Split(n.Text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			line = replaceOpcodes(asm.opcodes, line)
			line = encodeStrings(line)
			line = st.symbols.substitute(line, order)
			line = resolveRelative(line, ln)
			ln++
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return strings.TrimSpace(out.String())
}

// stripComment cuts the line at its first semicolon, along with the whitespace before it.
func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i != -1 {
		line = strings.TrimRightFunc(line[:i], unicode.IsSpace)
	}
	return line
}
