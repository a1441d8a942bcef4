package assembler

import (
	"regexp"
	"strings"
)

var reLabel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*:$`)

// FormatCode indents statements by two spaces. Defines and labels stay at the margin;
// blank and comment lines are only trimmed.
func FormatCode(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "define ") || reLabel.MatchString(line):
		case line != "" && !strings.HasPrefix(line, ";"):
			line = "  " + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
