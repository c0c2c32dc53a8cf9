// Package resource implements per-Entry Resource state and the push
// pipeline (spec §3.1, §4.3, §4.4): current value, default, handlers, the
// observation buffer, and the dispatch/derivation rules that wire an
// Observation to the resource it derives from.
package resource

import (
	"time"

	"github.com/worldline-go/types"

	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// FilterFunc implements the Observation filter hook (spec §4.3 step 3):
// given the entry's current sample (nil if none yet) and the incoming
// sample, it reports whether the push should be admitted. The reference
// policy (Filter == nil) is pass-through.
type FilterFunc func(current, incoming *sample.Sample) (admit bool, err error)

// Handler is an opaque push-handler registration (spec §4.3 "Handlers").
type Handler struct {
	ID           string
	ExpectedKind sample.Kind
	Callback     func(s *sample.Sample)
}

// State is the Resource role's state, attached to an Entry's Payload once
// promoted to Input, Output, or Observation (and, lazily, Placeholder —
// see Open Question in DESIGN.md).
type State struct {
	DataType  sample.Kind
	Units     string
	Current    *sample.Sample
	Default    *sample.Sample
	hasDefault bool

	Mandatory bool
	Handlers  []*Handler

	Buffer *Buffer // non-nil only for Observation entries

	Filter FilterFunc // Observation filter hook; nil = pass-through

	// Source is set on an Observation that derives from another resource
	// (spec §4.3 step 6). Derived is the reverse index, set on the source
	// entry's State, listing observations bound to it.
	Source  *tree.Entry
	Derived []*tree.Entry

	// CreatedAt records when this resource was administratively created
	// or pushed into existence. LastPersistedAt is null until the
	// optional persistence collaborator (§6.4) has written this
	// resource's buffer at least once, the same nullable-timestamp shape
	// as the teacher's APIToken.LastUsedAt (internal/store/memory.go).
	CreatedAt       types.Time
	LastPersistedAt types.Null[types.Time]
}

// NewState creates a State for dataType/units. mandatory is meaningful only
// for Output entries (Outputs default mandatory; spec §3.1).
func NewState(dataType sample.Kind, units string, mandatory bool) *State {
	return &State{DataType: dataType, Units: units, Mandatory: mandatory, CreatedAt: types.NewTime(time.Now().UTC())}
}

// MarkPersisted records that the persistence collaborator has just
// written this resource's buffer, mirroring the teacher's
// UpdateLastUsed(now) pattern.
func (s *State) MarkPersisted(now time.Time) {
	s.LastPersistedAt = types.NewNull(types.NewTime(now))
}

// Of returns the resource.State attached to entry, or nil if entry carries
// no resource state (bare Namespace, or Placeholder never pushed to).
func Of(entry *tree.Entry) *State {
	if entry == nil {
		return nil
	}
	st, _ := entry.Payload.(*State)
	return st
}

// SetDefault performs the write-once default assignment (spec §3.2 "defaultValue,
// once set, does not change", design note §9 "compare-and-set"). The
// second and subsequent calls are silent no-ops, matching the observed
// contract. Must be called with the tree locked.
func (s *State) SetDefault(v *sample.Sample) {
	if s.hasDefault {
		return
	}
	s.Default = v
	s.hasDefault = true
}

// CurrentOrDefault returns the sample getCurrentValue should report (spec
// §4.3 "Reading current value"): the current value if set, else the
// default (default timestamps are 0.0 and are part of the contract), else
// "unavailable" (ok == false).
func (s *State) CurrentOrDefault() (v *sample.Sample, ok bool) {
	if s.Current != nil {
		return s.Current, true
	}
	if s.hasDefault {
		return s.Default, true
	}
	return nil, false
}
