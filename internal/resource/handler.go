package resource

import (
	"github.com/oklog/ulid/v2"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// AddPushHandler registers callback on entry for samples of expectedKind
// (spec §4.3 "Handlers"). entry must already be an Input or Output;
// handlers on Observations are attached via AddObservationHandler instead
// (the administrative path, spec §4.3: "handlers on observations are
// registered via the admin path, not here").
//
// The returned ref is an opaque ulid-backed handle (design note §9:
// "arena-indexed identifiers ... rather than raw pointers"), matching the
// teacher's use of github.com/oklog/ulid/v2 for opaque entity IDs
// (internal/store/memory.Memory).
func AddPushHandler(t *tree.Tree, entry *tree.Entry, expectedKind sample.Kind, callback func(*sample.Sample)) (string, error) {
	t.Lock()
	defer t.Unlock()

	if entry.Role != tree.RoleInput && entry.Role != tree.RoleOutput {
		return "", errs.NewViolation("push handlers may only be added to Input or Output entries via the client path")
	}
	st := Of(entry)
	if st == nil {
		return "", errs.NewViolation("handler registration before resource exists")
	}

	ref := ulid.Make().String()
	st.Handlers = append(st.Handlers, &Handler{ID: ref, ExpectedKind: expectedKind, Callback: callback})
	return ref, nil
}

// AddObservationHandler is the administrative counterpart of
// AddPushHandler for Observation entries.
func AddObservationHandler(t *tree.Tree, entry *tree.Entry, expectedKind sample.Kind, callback func(*sample.Sample)) (string, error) {
	t.Lock()
	defer t.Unlock()

	if entry.Role != tree.RoleObservation {
		return "", errs.NewViolation("AddObservationHandler requires an Observation entry")
	}
	st := Of(entry)
	if st == nil {
		return "", errs.NewViolation("handler registration before resource exists")
	}

	ref := ulid.Make().String()
	st.Handlers = append(st.Handlers, &Handler{ID: ref, ExpectedKind: expectedKind, Callback: callback})
	return ref, nil
}

// RemovePushHandler unlinks the handler identified by ref from entry. Any
// in-flight invocation of that handler already completed before this call
// could acquire the tree lock (push holds the lock for its whole
// dispatch); subsequent dispatches simply no longer find it in the slice.
func RemovePushHandler(t *tree.Tree, entry *tree.Entry, ref string) error {
	t.Lock()
	defer t.Unlock()

	st := Of(entry)
	if st == nil {
		return errs.ErrNotFound
	}
	for i, h := range st.Handlers {
		if h.ID == ref {
			st.Handlers = append(st.Handlers[:i], st.Handlers[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}
