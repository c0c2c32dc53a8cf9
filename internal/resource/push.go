package resource

import (
	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// Clock returns the current wall-clock time in seconds since epoch (spec
// §6.4 "Wall-clock source"). Tests supply a deterministic Clock.
type Clock func() float64

// Push is the push-pipeline entry point (spec §4.3): push(entry,
// incomingKind, sample). It locks t for the duration of the whole
// pipeline, including handler fan-out and recursive delivery to any bound
// observations, so the dispatch is atomic with respect to every other
// tree observer (spec §5). Push handlers therefore must not call back
// into the tree; see the tree package doc.
func Push(t *tree.Tree, entry *tree.Entry, incomingKind sample.Kind, s *sample.Sample, now Clock) error {
	t.Lock()
	defer t.Unlock()
	return pushLocked(t, entry, incomingKind, s, now)
}

// pushLocked assumes the tree lock is already held; used internally for
// recursive delivery to derived observations (spec §4.3 step 6) without
// attempting to re-acquire Tree's non-reentrant mutex.
func pushLocked(t *tree.Tree, entry *tree.Entry, incomingKind sample.Kind, s *sample.Sample, now Clock) error {
	if entry == nil {
		return errs.NewViolation("push to nil entry")
	}

	// Step 1: timestamp normalisation.
	if s.Timestamp() == 0 {
		s = s.WithTimestamp(now())
	}

	st := Of(entry)

	switch entry.Role {
	case tree.RoleInput, tree.RoleOutput:
		if st == nil {
			return errs.NewViolation("push to resource entry with no state")
		}
		// Step 2: type gate.
		if incomingKind != st.DataType {
			return errs.NewViolation("push kind mismatch: entry is " + st.DataType.String() + ", got " + incomingKind.String())
		}
	case tree.RoleObservation, tree.RolePlaceholder:
		// Placeholder entries get a resource State lazily on first push —
		// see DESIGN.md Open Questions. Observations always have one,
		// allocated at administrative-create time.
		if st == nil {
			st = NewState(incomingKind, "", false)
			entry.Payload = st
		}
		st.DataType = incomingKind
	default:
		return errs.NewViolation("push to non-resource entry")
	}

	// Step 3: filter hook (Observations only).
	if entry.Role == tree.RoleObservation && st.Filter != nil {
		admit, err := st.Filter(st.Current, s)
		if err != nil {
			return err
		}
		if !admit {
			return nil
		}
	}

	// Step 4: commit.
	st.Current = s
	if st.Buffer != nil {
		st.Buffer.Append(s)
	}

	// Step 5: fan-out, insertion order, each handler completes before the next.
	for _, h := range st.Handlers {
		if h.ExpectedKind == incomingKind {
			h.Callback(s)
		}
	}

	// Step 6: derived observations receive the same sample via step 1 on
	// their own resource.
	for _, obs := range st.Derived {
		if err := pushLocked(t, obs, incomingKind, s, now); err != nil {
			return err
		}
	}

	return nil
}

// GetCurrentValue implements spec §4.3 "Reading current value". Must be
// called with the tree locked (or via a wrapper that locks, e.g. the query
// facade).
func GetCurrentValue(entry *tree.Entry) (*sample.Sample, bool) {
	st := Of(entry)
	if st == nil {
		return nil, false
	}
	return st.CurrentOrDefault()
}
