// Package namespace implements Client Namespace binding (spec §4.5):
// mapping an opaque client identity to its /app/<client-id>/ subtree and
// caching that mapping for the life of the client's session.
package namespace

import (
	"fmt"
	"sync"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// Binder caches client-identity -> /app/<client-id>/ entry mappings
// (spec §4.5 "cached on the client session"). A Binder is safe for
// concurrent use; the underlying Tree provides the actual mutation lock,
// Binder only guards its own cache map.
type Binder struct {
	tree *tree.Tree

	mu    sync.Mutex
	cache map[string]*tree.Entry
}

// NewBinder creates a Binder over t.
func NewBinder(t *tree.Tree) *Binder {
	return &Binder{tree: t, cache: make(map[string]*tree.Entry)}
}

// Bind resolves clientID to its /app/<client-id>/ entry, materialising the
// namespace on first use and caching the result for subsequent calls on
// the same session (spec §4.5). An empty clientID is a contract violation:
// "failure to resolve client identity is fatal for that client session"
// (spec §4.5), reported here rather than left to corrupt the tree.
func (b *Binder) Bind(clientID string) (*tree.Entry, error) {
	if clientID == "" {
		return nil, errs.NewViolation("empty client identity")
	}

	b.mu.Lock()
	if e, ok := b.cache[clientID]; ok {
		b.mu.Unlock()
		return e, nil
	}
	b.mu.Unlock()

	b.tree.Lock()
	e, err := b.tree.GetEntry(b.tree.Root(), fmt.Sprintf("app/%s", clientID))
	b.tree.Unlock()
	if err != nil {
		return nil, fmt.Errorf("bind client %q: %w", clientID, err)
	}

	b.mu.Lock()
	b.cache[clientID] = e
	b.mu.Unlock()
	return e, nil
}

// Unbind discards the cached mapping for clientID on session end (spec
// §4.5 "on session end, the mapping is discarded but the subtree is not
// deleted"). A subsequent Bind for the same client re-resolves (and
// re-caches) the existing subtree.
func (b *Binder) Unbind(clientID string) {
	b.mu.Lock()
	delete(b.cache, clientID)
	b.mu.Unlock()
}
