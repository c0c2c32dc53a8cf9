// Package sample implements the Data Sample value (spec §3.1, §4.2): an
// immutable, kind-discriminated, timestamped payload shared by reference
// among a resource's current-value slot, its buffer, and any in-flight
// dispatch. Go's garbage collector stands in for the source's manual
// refcounting (design note §9) — a *Sample is never mutated after
// construction, so sharing a pointer is exactly as safe as sharing a
// refcounted handle.
package sample

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the payload carried by a Sample.
type Kind int

const (
	Trigger Kind = iota
	Boolean
	Numeric
	String
	JSON
)

func (k Kind) String() string {
	switch k {
	case Trigger:
		return "trigger"
	case Boolean:
		return "boolean"
	case Numeric:
		return "numeric"
	case String:
		return "string"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// Sample is an immutable (timestamp, kind, value) triple.
type Sample struct {
	timestamp float64
	kind      Kind
	b         bool
	n         float64
	s         string // String payload, or verbatim JSON text for Kind == JSON
}

// NewTrigger returns a Trigger sample at ts (0 means "stamp at push time").
func NewTrigger(ts float64) *Sample { return &Sample{timestamp: ts, kind: Trigger} }

// NewBoolean returns a Boolean sample.
func NewBoolean(ts float64, v bool) *Sample { return &Sample{timestamp: ts, kind: Boolean, b: v} }

// NewNumeric returns a Numeric sample.
func NewNumeric(ts float64, v float64) *Sample { return &Sample{timestamp: ts, kind: Numeric, n: v} }

// NewString returns a String sample.
func NewString(ts float64, v string) *Sample { return &Sample{timestamp: ts, kind: String, s: v} }

// NewJSON returns a JSON sample. Validation is best-effort (spec §4.2,
// §9 open question): implementers must at minimum reject embedded NULs,
// which is all that is checked here — malformed-but-NUL-free JSON is
// accepted and emitted verbatim.
func NewJSON(ts float64, v string) (*Sample, error) {
	if strings.IndexByte(v, 0) >= 0 {
		return nil, fmt.Errorf("json sample: embedded NUL byte")
	}
	return &Sample{timestamp: ts, kind: JSON, s: v}, nil
}

// Timestamp returns the sample's timestamp in seconds since epoch.
func (s *Sample) Timestamp() float64 { return s.timestamp }

// Kind returns the sample's kind.
func (s *Sample) Kind() Kind { return s.kind }

// WithTimestamp returns a copy of s stamped with ts. Used once by the push
// pipeline to normalise a zero timestamp to wall-clock time (spec §4.3
// step 1); the original s is left untouched since Samples are immutable.
func (s *Sample) WithTimestamp(ts float64) *Sample {
	cp := *s
	cp.timestamp = ts
	return &cp
}

// Bool returns the Boolean payload. ok is false if s is not a Boolean.
func (s *Sample) Bool() (v bool, ok bool) {
	if s.kind != Boolean {
		return false, false
	}
	return s.b, true
}

// Float returns the Numeric payload. ok is false if s is not Numeric.
func (s *Sample) Float() (v float64, ok bool) {
	if s.kind != Numeric {
		return 0, false
	}
	return s.n, true
}

// Text returns the String payload. ok is false if s is not a String.
func (s *Sample) Text() (v string, ok bool) {
	if s.kind != String {
		return "", false
	}
	return s.s, true
}

// RawJSON returns the verbatim JSON text payload. ok is false if s is not JSON.
func (s *Sample) RawJSON() (v string, ok bool) {
	if s.kind != JSON {
		return "", false
	}
	return s.s, true
}

// JSONValue projects any sample kind to a JSON value string, per spec §4.2:
// Trigger → null, Boolean → true/false, Numeric → shortest round-trip
// double, String → JSON-escaped string literal, JSON → emitted verbatim.
func (s *Sample) JSONValue() string {
	switch s.kind {
	case Trigger:
		return "null"
	case Boolean:
		if s.b {
			return "true"
		}
		return "false"
	case Numeric:
		return strconv.FormatFloat(s.n, 'g', -1, 64)
	case String:
		return strconv.Quote(s.s)
	case JSON:
		return s.s
	default:
		return "null"
	}
}

// BufferEntryJSON renders the sample as a buffer-read entry object
// ({"t":<sec>,"v":<json-value>}, with Trigger entries emitting no "v" field)
// per spec §4.2 and §6.2.
func (s *Sample) BufferEntryJSON() string {
	ts := strconv.FormatFloat(s.timestamp, 'g', -1, 64)
	if s.kind == Trigger {
		return `{"t":` + ts + `}`
	}
	return `{"t":` + ts + `,"v":` + s.JSONValue() + `}`
}
