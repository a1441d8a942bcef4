package assembler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

var reVariable = regexp.MustCompile(`\\([0-9A-Za-z_]+),`)

// VariableError reports a \name, reference found in neither the current nor the global scope.
type VariableError struct {
	Line  int
	Token string
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("line %d: invalid variable in asm code: %s", e.Line, e.Token)
}

// Scope is the vars list of one debug region. Each entry maps variable names to locations.
// An entry that was not a JSON object is kept as nil so it never matches.
type Scope []map[string]string

// newScope builds a scope from the raw vars list of an open directive.
func newScope(vars []json.RawMessage) Scope {
	scope := make(Scope, 0, len(vars))
	for _, raw := range vars {
		var entries map[string]json.RawMessage
		if err := sonic.Unmarshal(raw, &entries); err != nil {
			scope = append(scope, nil)
			continue
		}
		locs := make(map[string]string, len(entries))
		for name, v := range entries {
			locs[name] = variableLoc(v)
		}
		scope = append(scope, locs)
	}
	return scope
}

// variableLoc extracts the loc field of a variable description.
func variableLoc(raw json.RawMessage) string {
	var v struct {
		Loc json.RawMessage `json:"loc"`
	}
	if err := sonic.Unmarshal(raw, &v); err != nil || len(v.Loc) == 0 || string(v.Loc) == "null" {
		return ""
	}
	return jsonText(v.Loc)
}

// Lookup finds the first entry naming the variable. An empty location counts as missing.
func (s Scope) Lookup(name string) (string, bool) {
	for _, entries := range s {
		if loc, ok := entries[name]; ok {
			return loc, loc != ""
		}
	}
	return "", false
}

// resolveVariables replaces each \name, with its location, trying current before global.
func resolveVariables(line string, lineNo int, current, global Scope) (string, error) {
	if !strings.Contains(line, `\`) {
		return line, nil
	}

	matches := reVariable.FindAllStringSubmatchIndex(line, -1)
	if matches == nil {
		return line, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		name := line[m[2]:m[3]]
		loc, ok := current.Lookup(name)
		if !ok {
			loc, ok = global.Lookup(name)
		}
		if !ok {
			return "", &VariableError{Line: lineNo, Token: line[m[0]:m[1]]}
		}
		b.WriteString(line[last:m[0]])
		b.WriteString(loc)
		last = m[1]
	}
	b.WriteString(line[last:])
	return b.String(), nil
}
