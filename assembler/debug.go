package assembler

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/bytedance/sonic"
)

// A directive line is a comment marker followed by a JSON object.
var reDirective = regexp.MustCompile(`^;#\{[^}\n]+\}`)

// DebugRecord describes one function region of the emitted code.
// Begin, End and the emitted half of each Lines pair are relative to BODY.
type DebugRecord struct {
	Code  string   `json:"code"`
	Begin int      `json:"begin"`
	End   *int     `json:"end,omitempty"`
	Lines [][2]int `json:"lines"`
	// Body is only set on the first record.
	Body *int `json:"body,omitempty"`

	// Types and Vars are the compiler metadata the region was opened with.
	// They only feed variable resolution.
	Types json.RawMessage   `json:"-"`
	Vars  []json.RawMessage `json:"-"`

	// BeginIndex and LineIndex are the absolute emitted indices of Begin and of each Lines
	// pair. Begin and Lines subtract the BODY value current when they were recorded, which
	// is 0 before BODY is defined. LineIndex is nil when the placement is unknown.
	BeginIndex int   `json:"-"`
	LineIndex  []int `json:"-"`
}

// SourceLine returns the source line correlated with an emitted offset, if any.
func (r *DebugRecord) SourceLine(offset int) (int, bool) {
	for _, pair := range r.Lines {
		if pair[0] == offset {
			return pair[1], true
		}
	}
	return 0, false
}

type directiveKind int

const (
	directiveUnknown directiveKind = iota
	// directiveOpen starts a region ("code").
	directiveOpen
	// directiveClose sets the region end ("endcode").
	directiveClose
	// directiveSrcLine correlates the next emitted line with a source line ("srcline").
	directiveSrcLine
)

type directive struct {
	kind    directiveKind
	code    string
	srcline int
	types   json.RawMessage
	vars    []json.RawMessage
}

// parseDirective decodes the JSON text following the ;# marker.
func parseDirective(text string) (*directive, error) {
	var fields map[string]json.RawMessage
	if err := sonic.UnmarshalString(text, &fields); err != nil {
		return nil, err
	}

	d := &directive{}
	if raw, ok := fields["code"]; ok {
		d.kind = directiveOpen
		d.code = jsonText(raw)
		d.types = fields["types"]
		// A vars value that is not a list leaves the region with an empty scope.
		if raw, ok := fields["vars"]; ok {
			if err := sonic.Unmarshal(raw, &d.vars); err != nil {
				d.vars = nil
			}
		}
		return d, nil
	}
	if _, ok := fields["endcode"]; ok {
		d.kind = directiveClose
		return d, nil
	}
	if raw, ok := fields["srcline"]; ok {
		var n float64
		if err := sonic.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("srcline: %w", err)
		}
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("srcline: %v is not a line number", n)
		}
		d.kind = directiveSrcLine
		d.srcline = int(n)
	}
	return d, nil
}

// jsonText returns a JSON string's value, or the raw text of any other value.
func jsonText(raw json.RawMessage) string {
	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type regionState int

const (
	regionNone regionState = iota
	regionOpen
	regionClosed
)

// region is a debug record under construction plus its variable scope.
type region struct {
	record DebugRecord
	scope  Scope
}

// debugTracker accumulates regions during pass 1.
// After a close directive the region stays current: it still collects source lines
// and still serves variable lookups until the next open directive.
type debugTracker struct {
	state   regionState
	current *region
	global  *region
	done    []*region
}

// apply feeds one directive to the tracker at emitted line counter, with body the
// BODY value defined so far.
func (t *debugTracker) apply(d *directive, counter, body int) {
	offset := counter - body
	switch d.kind {
	case directiveOpen:
		t.push()
		t.current = &region{
			record: DebugRecord{
				Code:       d.code,
				Begin:      offset,
				Lines:      [][2]int{},
				Types:      d.types,
				Vars:       d.vars,
				BeginIndex: counter,
				LineIndex:  []int{},
			},
			scope: newScope(d.vars),
		}
		t.state = regionOpen

	case directiveClose:
		if t.state == regionNone {
			return
		}
		end := offset
		t.current.record.End = &end
		t.state = regionClosed

	case directiveSrcLine:
		if t.state == regionNone {
			return
		}
		if _, seen := t.current.sourceOffset(d.srcline); seen {
			return
		}
		t.current.record.Lines = append(t.current.record.Lines, [2]int{offset, d.srcline})
		t.current.record.LineIndex = append(t.current.record.LineIndex, counter)
	}
}

// push retires the current region. The first one retired becomes the global scope.
func (t *debugTracker) push() {
	if t.state == regionNone {
		return
	}
	t.done = append(t.done, t.current)
	if t.global == nil {
		t.global = t.current
	}
}

// scopes returns the variable scopes visible right now.
func (t *debugTracker) scopes() (current, global Scope) {
	if t.current != nil {
		current = t.current.scope
	}
	if t.global != nil {
		global = t.global.scope
	}
	return current, global
}

// finish retires the last region and stamps the first record with the overall end and BODY size.
func (t *debugTracker) finish(body int) []DebugRecord {
	records := []DebugRecord{}
	if t.state == regionNone {
		return records
	}

	t.push()
	last := t.current.record.End
	first := &t.done[0].record
	if last != nil {
		end := *last
		first.End = &end
	} else {
		first.End = nil
	}
	first.Body = &body

	for _, r := range t.done {
		records = append(records, r.record)
	}
	return records
}

func (r *region) sourceOffset(srcline int) (int, bool) {
	for _, pair := range r.record.Lines {
		if pair[1] == srcline {
			return pair[0], true
		}
	}
	return 0, false
}
