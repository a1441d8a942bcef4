package disassembler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Urethramancer/smallcasm/assembler"
)

// ErrHashMismatch is returned by Verify when bytecode does not hash to the expected value.
var ErrHashMismatch = errors.New("hash mismatch")

// Verify recomputes the RIPEMD-160 hash of bytecode and compares it with hash.
func Verify(bytecode, hash string) error {
	got, err := assembler.HashBytecode(strings.TrimSpace(bytecode))
	if err != nil {
		return err
	}
	want := strings.ToLower(strings.TrimSpace(hash))
	if got != want {
		return fmt.Errorf("%w: computed %s, expected %s", ErrHashMismatch, got, want)
	}
	return nil
}
