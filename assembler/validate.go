package assembler

import (
	"fmt"
	"strings"
)

// Validation is the outcome of ValidateSyntax.
type Validation struct {
	Valid  bool     `json:"valid" yaml:"valid"`
	Errors []string `json:"errors" yaml:"errors"`
}

// ValidateSyntax checks every line for malformed variable references, unbalanced quotes
// and unbalanced parentheses. It reports all problems rather than stopping at the first.
func ValidateSyntax(src string) Validation {
	errs := []string{}
	for i, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		lineNo := i + 1
		if strings.Contains(line, `\`) && !reVariable.MatchString(line) {
			errs = append(errs, fmt.Sprintf("Line %d: Invalid variable syntax", lineNo))
		}
		if strings.Count(line, `"`)%2 != 0 {
			errs = append(errs, fmt.Sprintf("Line %d: Unmatched quotes", lineNo))
		}
		if strings.Count(line, "(") != strings.Count(line, ")") {
			errs = append(errs, fmt.Sprintf("Line %d: Unmatched parentheses", lineNo))
		}
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}
