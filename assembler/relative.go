package assembler

import (
	"regexp"
	"strconv"
)

var reRelative = regexp.MustCompile(`\.([0-9]+)`)

// resolveRelative rewrites each .N target as a distance from the line at index current.
func resolveRelative(line string, current int) string {
	return reRelative.ReplaceAllStringFunc(line, func(m string) string {
		target, err := strconv.Atoi(m[1:])
		if err != nil {
			return m
		}
		return relativeOffset(target - current)
	})
}

// relativeOffset formats a branch distance. Backward distances get an n prefix instead of a sign.
func relativeOffset(dist int) string {
	if dist < 0 {
		return "n" + strconv.Itoa(-dist)
	}
	return strconv.Itoa(dist)
}
