package admin

import (
	"context"
	"testing"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/persistence"
	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

func newInput(t *testing.T, tr *tree.Tree, path string, dt sample.Kind) *tree.Entry {
	t.Helper()
	tr.Lock()
	defer tr.Unlock()
	e, err := tr.GetEntry(tr.Root(), path)
	if err != nil {
		t.Fatalf("GetEntry(%q): %v", path, err)
	}
	if err := tr.Promote(e, tree.RoleInput, resource.NewState(dt, "", false)); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	return e
}

func TestCreateObservationBindsToSource(t *testing.T) {
	tr := tree.New(0, 0)
	newInput(t, tr, "sensors/temp", sample.Numeric)

	obs, err := CreateObservation(tr, ObservationSpec{
		Path:           "derived/temp_avg",
		SourcePath:     "/sensors/temp",
		DataType:       sample.Numeric,
		BufferMaxCount: 10,
	})
	if err != nil {
		t.Fatalf("CreateObservation: %v", err)
	}
	if obs.Role != tree.RoleObservation {
		t.Fatalf("expected observation role, got %v", obs.Role)
	}

	tr.Lock()
	src, _ := tr.FindAtAbsolute("/sensors/temp")
	srcState := resource.Of(src)
	tr.Unlock()
	if len(srcState.Derived) != 1 || srcState.Derived[0] != obs {
		t.Fatalf("expected source to index the new observation as derived")
	}
}

func TestCreateObservationRecreateIsIdempotent(t *testing.T) {
	tr := tree.New(0, 0)
	newInput(t, tr, "sensors/temp", sample.Numeric)

	spec := ObservationSpec{Path: "derived/temp_avg", SourcePath: "/sensors/temp", DataType: sample.Numeric}
	first, err := CreateObservation(tr, spec)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := CreateObservation(tr, spec)
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if first != second {
		t.Fatalf("expected recreate to return the same entry")
	}
}

func TestCreateObservationOverExistingInputIsDuplicate(t *testing.T) {
	tr := tree.New(0, 0)
	newInput(t, tr, "sensors/temp", sample.Numeric)
	newInput(t, tr, "derived/temp_avg", sample.Numeric)

	_, err := CreateObservation(tr, ObservationSpec{Path: "derived/temp_avg", SourcePath: "/sensors/temp", DataType: sample.Numeric})
	if err == nil || !isDuplicate(err) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func isDuplicate(err error) bool {
	for err != nil {
		if err == errs.ErrDuplicate {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestDeleteObservationUnlinksFromSource(t *testing.T) {
	tr := tree.New(0, 0)
	newInput(t, tr, "sensors/temp", sample.Numeric)
	CreateObservation(tr, ObservationSpec{Path: "derived/temp_avg", SourcePath: "/sensors/temp", DataType: sample.Numeric})

	if err := DeleteObservation(tr, "/derived/temp_avg"); err != nil {
		t.Fatalf("DeleteObservation: %v", err)
	}

	tr.Lock()
	src, _ := tr.FindAtAbsolute("/sensors/temp")
	srcState := resource.Of(src)
	tr.Unlock()
	if len(srcState.Derived) != 0 {
		t.Fatalf("expected source's derived index to be empty after delete")
	}
}

type fakePersister struct {
	saved map[string][]persistence.Entry
}

func (f *fakePersister) PersistObservation(_ context.Context, path string, entries []persistence.Entry) error {
	if f.saved == nil {
		f.saved = map[string][]persistence.Entry{}
	}
	f.saved[path] = entries
	return nil
}
func (f *fakePersister) LoadObservation(_ context.Context, path string) ([]persistence.Entry, error) {
	return f.saved[path], nil
}
func (f *fakePersister) Close() error { return nil }

func TestFlushPersistenceWritesBuffersAndMarksState(t *testing.T) {
	tr := tree.New(0, 0)
	in := newInput(t, tr, "sensors/temp", sample.Numeric)
	obs, err := CreateObservation(tr, ObservationSpec{Path: "derived/temp_avg", SourcePath: "/sensors/temp", DataType: sample.Numeric, BufferMaxCount: 10})
	if err != nil {
		t.Fatalf("CreateObservation: %v", err)
	}

	if err := resource.Push(tr, in, sample.Numeric, sample.NewNumeric(1000, 21.5), func() float64 { return 1000 }); err != nil {
		t.Fatalf("Push: %v", err)
	}

	fp := &fakePersister{}
	if err := FlushPersistence(context.Background(), tr, fp); err != nil {
		t.Fatalf("FlushPersistence: %v", err)
	}

	tr.Lock()
	st := resource.Of(obs)
	tr.Unlock()
	if !st.LastPersistedAt.Valid {
		t.Fatalf("expected LastPersistedAt to be set after flush")
	}
	if len(fp.saved["/derived/temp_avg"]) != 1 {
		t.Fatalf("expected one persisted entry, got %d", len(fp.saved["/derived/temp_avg"]))
	}
}
