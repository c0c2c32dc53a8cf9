package clientapi

import (
	"errors"
	"testing"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/namespace"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

type recordingKiller struct {
	reasons []string
}

func (k *recordingKiller) Kill(reason string) { k.reasons = append(k.reasons, reason) }

func newSession(t *testing.T) (*Session, *recordingKiller) {
	t.Helper()
	tr := tree.New(0, 0)
	binder := namespace.NewBinder(tr)
	killer := &recordingKiller{}
	sess, err := NewSession(tr, binder, "dev1", killer, nil, 0)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return sess, killer
}

func fixedNow(ts float64) func() float64 { return func() float64 { return ts } }

func TestCreateAndPushRoundTrip(t *testing.T) {
	sess, _ := newSession(t)
	if err := sess.CreateInput("sensor/temp", sample.Numeric, "degC"); err != nil {
		t.Fatalf("CreateInput: %v", err)
	}
	if err := sess.PushNumeric("sensor/temp", 1700000000.0, 21.5, fixedNow(0)); err != nil {
		t.Fatalf("PushNumeric: %v", err)
	}
	v, err := sess.GetNumeric("sensor/temp")
	if err != nil {
		t.Fatalf("GetNumeric: %v", err)
	}
	if v != 21.5 {
		t.Fatalf("GetNumeric = %v, want 21.5", v)
	}
	ts, err := sess.GetTimestamp("sensor/temp")
	if err != nil {
		t.Fatalf("GetTimestamp: %v", err)
	}
	if ts != 1700000000.0 {
		t.Fatalf("GetTimestamp = %v, want 1700000000.0", ts)
	}
}

func TestCreateInputThenOutputIsDuplicate(t *testing.T) {
	sess, _ := newSession(t)
	if err := sess.CreateInput("x", sample.Numeric, "m"); err != nil {
		t.Fatalf("CreateInput: %v", err)
	}
	if err := sess.CreateOutput("x", sample.Numeric, "m"); !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("CreateOutput over an existing Input = %v, want errs.ErrDuplicate", err)
	}
}

func TestDefaultPrecedenceScenario(t *testing.T) {
	sess, _ := newSession(t)
	if err := sess.CreateOutput("y", sample.Boolean, ""); err != nil {
		t.Fatalf("CreateOutput: %v", err)
	}
	if err := sess.SetBooleanDefault("y", true); err != nil {
		t.Fatalf("SetBooleanDefault: %v", err)
	}
	v, err := sess.GetBoolean("y")
	if err != nil || v != true {
		t.Fatalf("GetBoolean before push = (%v,%v), want (true,nil)", v, err)
	}
	ts, _ := sess.GetTimestamp("y")
	if ts != 0 {
		t.Fatalf("default timestamp = %v, want 0", ts)
	}

	if err := sess.PushBoolean("y", 5.0, false, fixedNow(0)); err != nil {
		t.Fatalf("PushBoolean: %v", err)
	}
	v, err = sess.GetBoolean("y")
	if err != nil || v != false {
		t.Fatalf("GetBoolean after push = (%v,%v), want (false,nil)", v, err)
	}
}

func TestPushToNonexistentResourceKillsSession(t *testing.T) {
	sess, killer := newSession(t)
	if err := sess.PushNumeric("ghost", 1, 1, fixedNow(0)); err == nil {
		t.Fatal("expected error pushing to a non-existent resource")
	}
	if len(killer.reasons) == 0 {
		t.Fatal("expected Killer.Kill to be called for a contract violation")
	}
}

func TestWrongKindReadViaClientAPIKillsSession(t *testing.T) {
	sess, killer := newSession(t)
	if err := sess.CreateInput("x", sample.Numeric, ""); err != nil {
		t.Fatalf("CreateInput: %v", err)
	}
	if err := sess.PushNumeric("x", 1, 1, fixedNow(0)); err != nil {
		t.Fatalf("PushNumeric: %v", err)
	}
	if _, err := sess.GetBoolean("x"); err == nil {
		t.Fatal("expected error reading a Numeric resource as Boolean via the client API")
	}
	if len(killer.reasons) == 0 {
		t.Fatal("expected Killer.Kill to be called for the kind mismatch")
	}
}

func TestHandlerAddAndRemove(t *testing.T) {
	sess, _ := newSession(t)
	if err := sess.CreateInput("trig", sample.Trigger, ""); err != nil {
		t.Fatalf("CreateInput: %v", err)
	}
	var calls int
	ref, err := sess.AddTriggerPushHandler("trig", func(*sample.Sample) { calls++ })
	if err != nil {
		t.Fatalf("AddTriggerPushHandler: %v", err)
	}
	if err := sess.PushTrigger("trig", 1, fixedNow(0)); err != nil {
		t.Fatalf("PushTrigger: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if err := sess.RemovePushHandler("trig", ref); err != nil {
		t.Fatalf("RemovePushHandler: %v", err)
	}
	if err := sess.PushTrigger("trig", 2, fixedNow(0)); err != nil {
		t.Fatalf("PushTrigger: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls after removal = %d, want 1", calls)
	}
}

func TestMaxResourcesPerClientExceeded(t *testing.T) {
	tr := tree.New(0, 0)
	binder := namespace.NewBinder(tr)
	sess, err := NewSession(tr, binder, "dev2", nil, nil, 1)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := sess.CreateInput("a", sample.Numeric, ""); err != nil {
		t.Fatalf("CreateInput a: %v", err)
	}
	if err := sess.CreateInput("b", sample.Numeric, ""); err == nil {
		t.Fatal("expected NoMemory creating a second resource over the cap")
	}
}
