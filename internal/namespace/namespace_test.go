package namespace

import (
	"testing"

	"github.com/jtchitty/legatoDataHub/internal/tree"
)

func TestBindMaterialisesAndCaches(t *testing.T) {
	tr := tree.New(0, 0)
	b := NewBinder(tr)

	e1, err := b.Bind("alice")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if e1.Path() != "/app/alice" {
		t.Fatalf("path = %q, want /app/alice", e1.Path())
	}

	e2, err := b.Bind("alice")
	if err != nil {
		t.Fatalf("Bind (cached): %v", err)
	}
	if e1 != e2 {
		t.Fatal("expected cached Bind to return the same *Entry")
	}
}

func TestBindEmptyClientIDIsViolation(t *testing.T) {
	tr := tree.New(0, 0)
	b := NewBinder(tr)

	if _, err := b.Bind(""); err == nil {
		t.Fatal("expected error binding empty client id")
	}
}

func TestUnbindDiscardsCacheNotSubtree(t *testing.T) {
	tr := tree.New(0, 0)
	b := NewBinder(tr)

	e1, err := b.Bind("bob")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	b.Unbind("bob")

	e2, err := b.Bind("bob")
	if err != nil {
		t.Fatalf("Bind after Unbind: %v", err)
	}
	if e1 != e2 {
		t.Fatal("expected Bind after Unbind to resolve the same underlying subtree")
	}
}

func TestDistinctClientsGetDistinctSubtrees(t *testing.T) {
	tr := tree.New(0, 0)
	b := NewBinder(tr)

	a, _ := b.Bind("alice")
	c, _ := b.Bind("carol")
	if a == c {
		t.Fatal("expected distinct client ids to resolve to distinct entries")
	}
	if a.Path() == c.Path() {
		t.Fatal("expected distinct client ids to have distinct paths")
	}
}
