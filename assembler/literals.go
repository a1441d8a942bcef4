package assembler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

var (
	reAbiCall     = regexp.MustCompile(`abi\("([^"]*)"\)`)
	reAbiWideCall = regexp.MustCompile(`ABI\("([^"]*)"\)`)
	reString      = regexp.MustCompile(`"([^,"]+)"`)
)

// encodeAbiCalls replaces abi("...") calls first, then ABI("...") calls.
func encodeAbiCalls(line string) string {
	if strings.Contains(line, `abi("`) {
		line = reAbiCall.ReplaceAllStringFunc(line, func(m string) string {
			return abiSelector(m[len(`abi("`) : len(m)-len(`")`)])
		})
	}
	if strings.Contains(line, `ABI("`) {
		line = reAbiWideCall.ReplaceAllStringFunc(line, func(m string) string {
			return abiWideSelector(m[len(`ABI("`) : len(m)-len(`")`)])
		})
	}
	return line
}

// abiSelector returns x followed by the first four bytes of SHA-256(text) in hex.
func abiSelector(text string) string {
	return "x" + selectorDigits(text)
}

// abiWideSelector returns a 16 digit token: the selector digits, never all zero,
// followed by four zero bytes.
func abiWideSelector(text string) string {
	return "x" + nonZeroSelector(selectorDigits(text)) + "00000000"
}

// nonZeroSelector keeps wide selectors from colliding with the all-zero sentinel.
func nonZeroSelector(digits string) string {
	if digits == "00000000" {
		return "00000001"
	}
	return digits
}

func selectorDigits(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:4])
}

// encodeStrings turns every quoted literal without commas into an x-prefixed hex literal.
func encodeStrings(line string) string {
	if !strings.Contains(line, `"`) {
		return line
	}
	return reString.ReplaceAllStringFunc(line, func(m string) string {
		return hexLiteral(m[1 : len(m)-1])
	})
}

// hexLiteral encodes one UTF-16 code unit per character, at least two digits each.
// Characters above 0xff keep their full width.
func hexLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('x')
	for _, unit := range utf16.Encode([]rune(s)) {
		fmt.Fprintf(&b, "%02x", unit)
	}
	return b.String()
}
