package assembler

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// BodySymbol names the define whose value is the size of the preamble block.
// Debug region offsets are expressed relative to it.
const BodySymbol = "BODY"

// hereMarker as the last token of a define means "the current emitted line".
const hereMarker = "."

var reDefine = regexp.MustCompile(`^define\s+(.*)$`)

// SymbolTable maps define names to locations. Later definitions overwrite earlier ones.
type SymbolTable struct {
	names []string
	locs  map[string]string
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{locs: make(map[string]string)}
}

// Define records loc for name.
func (st *SymbolTable) Define(name, loc string) {
	if _, ok := st.locs[name]; !ok {
		st.names = append(st.names, name)
	}
	st.locs[name] = loc
}

// Lookup returns the location recorded for name.
func (st *SymbolTable) Lookup(name string) (string, bool) {
	loc, ok := st.locs[name]
	return loc, ok
}

// Len returns the number of symbols.
func (st *SymbolTable) Len() int {
	return len(st.names)
}

// Sorted returns the names longest first. Names of equal length keep definition order.
func (st *SymbolTable) Sorted() []string {
	sorted := make([]string, len(st.names))
	copy(sorted, st.names)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	return sorted
}

// Substitute replaces every whole-word occurrence of each symbol, longest name first.
func (st *SymbolTable) Substitute(line string) string {
	return st.substitute(line, st.Sorted())
}

func (st *SymbolTable) substitute(line string, order []string) string {
	for _, name := range order {
		line = replaceWord(line, name, st.locs[name])
	}
	return line
}

// body returns the numeric value of BODY, or 0 when it is undefined or not a number.
func (st *SymbolTable) body() int {
	loc, ok := st.locs[BodySymbol]
	if !ok {
		return 0
	}
	return leadingInt(loc)
}

// parseDefine recognises a define statement. ok is true for any define line; name is
// empty when the statement has too few tokens to record.
func parseDefine(line string, here int) (name, loc string, ok bool) {
	m := reDefine.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}

	parts := strings.Split(m[1], " ")
	if len(parts) < 2 {
		return "", "", true
	}
	loc = parts[len(parts)-1]
	if loc == hereMarker {
		loc = strconv.Itoa(here)
	}
	return parts[0], loc, true
}

// replaceWord replaces non-overlapping occurrences of word that begin and end on word boundaries.
func replaceWord(s, word, repl string) string {
	if word == "" || !strings.Contains(s, word) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], word) && isBoundary(s, i) && isBoundary(s, i+len(word)) {
			b.WriteString(repl)
			i += len(word)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// leadingInt parses an optionally signed run of leading digits, ignoring whatever follows.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
