package assembler

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160"
)

// Serialize encodes finished object code as hex bytecode and hashes it.
func Serialize(objectCode string) (bytecode, hash string) {
	raw := []byte(objectCode)
	return hex.EncodeToString(raw), hashBytes(raw)
}

// HashBytecode hashes the bytes a hex bytecode string represents.
func HashBytecode(bytecode string) (string, error) {
	raw, err := hex.DecodeString(bytecode)
	if err != nil {
		return "", fmt.Errorf("invalid bytecode: %w", err)
	}
	return hashBytes(raw), nil
}

func hashBytes(raw []byte) string {
	h := ripemd160.New()
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
