package tree

import "testing"

func TestGetEntryMaterialisesNamespacesAndPlaceholder(t *testing.T) {
	tr := New(0, 0)
	e, err := tr.GetEntry(tr.Root(), "sensor/temp")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if e.Role != RolePlaceholder {
		t.Fatalf("leaf role = %v, want Placeholder", e.Role)
	}
	sensor, err := tr.FindEntry(tr.Root(), "sensor")
	if err != nil {
		t.Fatalf("FindEntry: %v", err)
	}
	if sensor.Role != RoleNamespace {
		t.Fatalf("intermediate role = %v, want Namespace", sensor.Role)
	}
}

func TestFindEntryDeterministicAndIdempotent(t *testing.T) {
	tr := New(0, 0)
	tr.GetEntry(tr.Root(), "a/b/c")
	e1, err1 := tr.FindEntry(tr.Root(), "a/b/c")
	e2, err2 := tr.FindEntry(tr.Root(), "a/b/c")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if e1 != e2 {
		t.Fatal("FindEntry not idempotent: different entries returned")
	}
}

func TestFindAtAbsoluteRejectsRelative(t *testing.T) {
	tr := New(0, 0)
	if _, err := tr.FindAtAbsolute("rel/path"); err == nil {
		t.Fatal("expected not-found for non-absolute path")
	}
}

func TestPromotePreservesIdentityAndChildren(t *testing.T) {
	tr := New(0, 0)
	e, _ := tr.GetEntry(tr.Root(), "x")
	child, _ := tr.GetEntry(e, "child")
	if err := tr.Promote(e, RoleInput, "payload"); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if e.Role != RoleInput || e.Payload != "payload" {
		t.Fatalf("promotion did not apply: role=%v payload=%v", e.Role, e.Payload)
	}
	again, _ := tr.FindEntry(e, "child")
	if again != child {
		t.Fatal("children lost identity across promotion")
	}
}

func TestPromoteRejectsAlreadyConcreteRole(t *testing.T) {
	tr := New(0, 0)
	e, _ := tr.GetEntry(tr.Root(), "x")
	if err := tr.Promote(e, RoleInput, 1); err != nil {
		t.Fatalf("first promote: %v", err)
	}
	if err := tr.Promote(e, RoleOutput, 2); err == nil {
		t.Fatal("expected error promoting an already-concrete entry")
	}
}

func TestRemoveAndPruneEmptyAncestors(t *testing.T) {
	tr := New(0, 0)
	leaf, _ := tr.GetEntry(tr.Root(), "a/b/leaf")
	tr.Promote(leaf, RoleInput, 1)

	tr.Remove(leaf)
	tr.PruneEmptyAncestors(leaf)

	if _, err := tr.FindEntry(tr.Root(), "a"); err == nil {
		t.Fatal("expected empty namespace ancestors to be pruned")
	}
}

func TestMaxDepthAndSegmentLen(t *testing.T) {
	tr := New(2, 4)
	if _, err := tr.GetEntry(tr.Root(), "a/b/c"); err == nil {
		t.Fatal("expected depth cap to reject a/b/c")
	}
	if _, err := tr.GetEntry(tr.Root(), "toolong"); err == nil {
		t.Fatal("expected segment length cap to reject long segment")
	}
	if _, err := tr.GetEntry(tr.Root(), "ok/ok"); err != nil {
		t.Fatalf("expected ok/ok within caps, got %v", err)
	}
}
