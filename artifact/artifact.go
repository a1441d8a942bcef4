// Package artifact writes and reads the files produced from an assembly run.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/Urethramancer/smallcasm/assembler"
)

// File extensions.
const (
	ExtBytecode = ".bin"
	ExtHash     = ".hash"
	ExtObject   = ".obj"
	ExtDebug    = ".dbg.json"
	ExtABI      = ".abi"
	ExtBundle   = ".json"
)

// ErrFailedResult is returned when asked to write the output of a failed assembly.
var ErrFailedResult = errors.New("assembly did not succeed")

// Kinds selects which artifacts Write produces.
type Kinds struct {
	Bytecode bool `yaml:"bin"`
	Hash     bool `yaml:"hash"`
	Object   bool `yaml:"obj"`
	Debug    bool `yaml:"debug"`
}

// All selects every artifact.
var All = Kinds{Bytecode: true, Hash: true, Object: true, Debug: true}

// CompiledResult is the deployable bundle: bytecode, the contract ABI and the bytecode hash.
type CompiledResult struct {
	Bytecode string          `json:"bytecode"`
	Abi      json.RawMessage `json:"abi"`
	Hash     string          `json:"hash"`
}

// debugEntry is the .dbg.json form of a record. Next to the record's own fields it keeps
// the emitted indices its offsets were taken at.
type debugEntry struct {
	assembler.DebugRecord
	BeginIndex int   `json:"begin_index"`
	LineIndex  []int `json:"line_index"`
}

// Write stores the selected artifacts of res as dir/name.<ext> and returns the paths written.
func Write(dir, name string, res *assembler.Result, kinds Kinds) ([]string, error) {
	if res == nil || !res.Success {
		return nil, ErrFailedResult
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var files []string
	write := func(ext string, data []byte) error {
		path := filepath.Join(dir, name+ext)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		files = append(files, path)
		return nil
	}

	if kinds.Bytecode {
		if err := write(ExtBytecode, []byte(res.Bytecode+"\n")); err != nil {
			return files, err
		}
	}
	if kinds.Hash {
		if err := write(ExtHash, []byte(res.Hash+"\n")); err != nil {
			return files, err
		}
	}
	if kinds.Object {
		if err := write(ExtObject, []byte(res.ObjectCode+"\n")); err != nil {
			return files, err
		}
	}
	if kinds.Debug {
		entries := make([]debugEntry, len(res.DebugInfo))
		for i, rec := range res.DebugInfo {
			entries[i] = debugEntry{DebugRecord: rec, BeginIndex: rec.BeginIndex, LineIndex: rec.LineIndex}
		}
		data, err := sonic.ConfigStd.MarshalIndent(entries, "", "  ")
		if err != nil {
			return files, fmt.Errorf("encoding debug info: %w", err)
		}
		if err := write(ExtDebug, append(data, '\n')); err != nil {
			return files, err
		}
	}
	return files, nil
}

// Bundle pairs a successful result with its ABI. An empty abi is stored as null.
func Bundle(res *assembler.Result, abi []byte) (*CompiledResult, error) {
	if res == nil || !res.Success {
		return nil, ErrFailedResult
	}

	cr := &CompiledResult{Bytecode: res.Bytecode, Hash: res.Hash}
	if len(strings.TrimSpace(string(abi))) == 0 {
		return cr, nil
	}

	var v any
	if err := sonic.Unmarshal(abi, &v); err != nil {
		return nil, fmt.Errorf("invalid ABI: %w", err)
	}
	cr.Abi = json.RawMessage(abi)
	return cr, nil
}

// WriteBundle stores cr as dir/name.json and returns the path.
func WriteBundle(dir, name string, cr *CompiledResult) (string, error) {
	data, err := sonic.ConfigStd.MarshalIndent(cr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding bundle: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, name+ExtBundle)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadBytecode loads a .bin file.
func ReadBytecode(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadDebug loads debug records written by Write.
func ReadDebug(path string) ([]assembler.DebugRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []debugEntry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	records := make([]assembler.DebugRecord, len(entries))
	for i, e := range entries {
		records[i] = e.DebugRecord
		records[i].BeginIndex = e.BeginIndex
		records[i].LineIndex = e.LineIndex
	}
	return records, nil
}

// Name returns the artifact base name for a source path: the file name without its extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
