package resource

import (
	"testing"

	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

func fixedClock(ts float64) Clock { return func() float64 { return ts } }

func newInput(t *testing.T, tr *tree.Tree, path string, dt sample.Kind, units string) *tree.Entry {
	t.Helper()
	e, err := tr.GetEntry(tr.Root(), path)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if err := tr.Promote(e, tree.RoleInput, NewState(dt, units, false)); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	return e
}

func TestPushThenGetRoundTrip(t *testing.T) {
	tr := tree.New(0, 0)
	e := newInput(t, tr, "sensor/temp", sample.Numeric, "degC")

	s := sample.NewNumeric(1700000000.0, 21.5)
	if err := Push(tr, e, sample.Numeric, s, fixedClock(42)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	tr.Lock()
	got, ok := GetCurrentValue(e)
	tr.Unlock()
	if !ok {
		t.Fatal("expected current value to be available")
	}
	if got.Timestamp() != 1700000000.0 {
		t.Fatalf("timestamp = %v, want 1700000000.0", got.Timestamp())
	}
	v, _ := got.Float()
	if v != 21.5 {
		t.Fatalf("value = %v, want 21.5", v)
	}
}

func TestPushZeroTimestampStampsWallClock(t *testing.T) {
	tr := tree.New(0, 0)
	e := newInput(t, tr, "x", sample.Numeric, "")

	if err := Push(tr, e, sample.Numeric, sample.NewNumeric(0, 1), fixedClock(99)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	tr.Lock()
	got, _ := GetCurrentValue(e)
	tr.Unlock()
	if got.Timestamp() != 99 {
		t.Fatalf("timestamp = %v, want 99", got.Timestamp())
	}
}

func TestPushWrongKindIsContractViolation(t *testing.T) {
	tr := tree.New(0, 0)
	e := newInput(t, tr, "x", sample.Numeric, "")

	err := Push(tr, e, sample.Boolean, sample.NewBoolean(1, true), fixedClock(1))
	if err == nil {
		t.Fatal("expected error pushing Boolean to a Numeric entry")
	}
}

func TestDefaultPrecedence(t *testing.T) {
	tr := tree.New(0, 0)
	e, _ := tr.GetEntry(tr.Root(), "y")
	st := NewState(sample.Boolean, "", true)
	tr.Promote(e, tree.RoleOutput, st)

	tr.Lock()
	st.SetDefault(sample.NewBoolean(0, true))
	st.SetDefault(sample.NewBoolean(0, false)) // second call is a no-op
	got, ok := GetCurrentValue(e)
	tr.Unlock()
	if !ok {
		t.Fatal("expected default to be returned")
	}
	if v, _ := got.Bool(); v != true {
		t.Fatalf("default value = %v, want true (first SetDefault wins)", v)
	}

	if err := Push(tr, e, sample.Boolean, sample.NewBoolean(5, false), fixedClock(0)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	tr.Lock()
	got, _ = GetCurrentValue(e)
	tr.Unlock()
	if v, _ := got.Bool(); v != false || got.Timestamp() != 5 {
		t.Fatalf("current after push = (%v,%v), want (false,5)", v, got.Timestamp())
	}
}

func TestBufferWindowEviction(t *testing.T) {
	tr := tree.New(0, 0)
	e, _ := tr.GetEntry(tr.Root(), "obs/o")
	st := NewState(sample.Numeric, "", false)
	st.Buffer = NewBuffer(3, 0)
	tr.Promote(e, tree.RoleObservation, st)

	for _, ts := range []float64{1, 2, 3, 4} {
		if err := Push(tr, e, sample.Numeric, sample.NewNumeric(ts, ts*10), fixedClock(ts)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	entries := st.Buffer.Entries()
	if len(entries) != 3 {
		t.Fatalf("buffer length = %d, want 3", len(entries))
	}
	if entries[0].Timestamp() != 2 || entries[2].Timestamp() != 4 {
		t.Fatalf("unexpected buffer contents: %+v", entries)
	}
}

func TestHandlerFanOut(t *testing.T) {
	tr := tree.New(0, 0)
	e := newInput(t, tr, "x", sample.Trigger, "")

	var calls int
	ref, err := AddPushHandler(tr, e, sample.Trigger, func(s *sample.Sample) { calls++ })
	if err != nil {
		t.Fatalf("AddPushHandler: %v", err)
	}

	if err := Push(tr, e, sample.Trigger, sample.NewTrigger(1), fixedClock(1)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	if err := RemovePushHandler(tr, e, ref); err != nil {
		t.Fatalf("RemovePushHandler: %v", err)
	}
	if err := Push(tr, e, sample.Trigger, sample.NewTrigger(2), fixedClock(2)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls after removal = %d, want 1", calls)
	}
}

func TestDerivedObservationReceivesPush(t *testing.T) {
	tr := tree.New(0, 0)
	src := newInput(t, tr, "sensor/temp", sample.Numeric, "degC")

	obsEntry, _ := tr.GetEntry(tr.Root(), "obs/temp_copy")
	obsState := NewState(sample.Numeric, "degC", false)
	obsState.Buffer = NewBuffer(10, 0)
	tr.Promote(obsEntry, tree.RoleObservation, obsState)

	srcState := Of(src)
	srcState.Derived = append(srcState.Derived, obsEntry)

	if err := Push(tr, src, sample.Numeric, sample.NewNumeric(5, 3.14), fixedClock(5)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	entries := obsState.Buffer.Entries()
	if len(entries) != 1 {
		t.Fatalf("derived observation buffer length = %d, want 1", len(entries))
	}
	if v, _ := entries[0].Float(); v != 3.14 {
		t.Fatalf("derived value = %v, want 3.14", v)
	}
}

func TestDeadBandFilterSuppressesSmallDeltas(t *testing.T) {
	tr := tree.New(0, 0)
	e, _ := tr.GetEntry(tr.Root(), "obs/o")
	st := NewState(sample.Numeric, "", false)
	st.Buffer = NewBuffer(10, 0)
	st.Filter = DeadBand(1.0)
	tr.Promote(e, tree.RoleObservation, st)

	Push(tr, e, sample.Numeric, sample.NewNumeric(1, 10), fixedClock(1))
	Push(tr, e, sample.Numeric, sample.NewNumeric(2, 10.2), fixedClock(2)) // below threshold, suppressed
	Push(tr, e, sample.Numeric, sample.NewNumeric(3, 12), fixedClock(3))   // above threshold, admitted

	entries := st.Buffer.Entries()
	if len(entries) != 2 {
		t.Fatalf("buffer length = %d, want 2 (one suppressed)", len(entries))
	}
}
