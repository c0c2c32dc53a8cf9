// Package tree implements the Resource Tree (spec §3.1, §4.1, §4.7): a
// hierarchical, path-addressed namespace of Entries. An Entry may carry an
// attached Resource role (Input, Output, Observation) or remain a bare
// Namespace/Placeholder.
//
// The source models this as a single-threaded cooperative engine (spec §5):
// one logical execution context owns all mutation, which is how the
// invariants in §3.2 are enforced without locks. A Go service fields
// concurrent client calls on goroutines, so Tree instead serialises every
// mutation and every push-pipeline invocation behind one mutex — the
// idiomatic Go translation of "the dispatch context is the sole writer"
// (design note §9, and the same coarse-lock pattern as the teacher's
// internal/store/memory.Memory). Because the lock is held for the whole
// push pipeline including handler fan-out, a push handler must never call
// back into the tree synchronously; this mirrors the source's "no
// suspension inside a single push-pipeline invocation" rule (spec §5) and
// just as surely deadlocks if violated.
package tree

import (
	"strings"
	"sync"

	"github.com/jtchitty/legatoDataHub/internal/errs"
)

// Role is the state of an Entry in the role state machine (spec §4.7).
type Role int

const (
	RoleNamespace Role = iota
	RolePlaceholder
	RoleInput
	RoleOutput
	RoleObservation
)

func (r Role) String() string {
	switch r {
	case RoleNamespace:
		return "namespace"
	case RolePlaceholder:
		return "placeholder"
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	case RoleObservation:
		return "observation"
	default:
		return "unknown"
	}
}

// IsResource reports whether r carries data (spec GLOSSARY: "Resource").
func (r Role) IsResource() bool {
	return r == RoleInput || r == RoleOutput || r == RoleObservation
}

// Entry is a node in the Resource Tree, identified by its path from root.
// Identity is stable across role promotion (spec §4.1 "Namespace/Placeholder
// promotion", design note §9): promoting a Namespace/Placeholder to a
// concrete role replaces its Payload field in place, never the *Entry
// pointer, so outstanding references (e.g. a cached lookup) stay valid.
type Entry struct {
	Name     string
	Parent   *Entry
	Role     Role
	Payload  any // set for Input/Output/Observation, and on a Placeholder once pushed to; nil otherwise
	children map[string]*Entry
}

// Path returns the entry's absolute path from root ("/" for the root itself).
func (e *Entry) Path() string {
	if e.Parent == nil {
		return "/"
	}
	segs := []string{e.Name}
	for p := e.Parent; p.Parent != nil; p = p.Parent {
		segs = append(segs, p.Name)
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segs[i])
	}
	return b.String()
}

// Children returns the entry's children in no particular order; the order
// may differ from one call to the next.
func (e *Entry) Children() []*Entry {
	out := make([]*Entry, 0, len(e.children))
	for _, c := range e.children {
		out = append(out, c)
	}
	return out
}

// Tree owns the root Entry and serialises all mutation (see package doc).
type Tree struct {
	// MaxDepth and MaxSegmentLen bound path grammar abuse (spec §5
	// "Maximum path depth and maximum segment length (implementer's
	// choice; must be documented)"). 0 means unlimited.
	MaxDepth      int
	MaxSegmentLen int

	mu   sync.Mutex
	root *Entry
}

// New creates an empty Tree with the given caps (0 = unlimited).
func New(maxDepth, maxSegmentLen int) *Tree {
	return &Tree{
		MaxDepth:      maxDepth,
		MaxSegmentLen: maxSegmentLen,
		root:          &Entry{Role: RoleNamespace, children: make(map[string]*Entry)},
	}
}

// Lock serialises a sequence of operations against the tree (used by the
// push pipeline to make the whole dispatch, including fan-out, atomic with
// respect to other observers — spec §5). Callers must call Unlock exactly
// once and must not call back into the Tree while holding the lock from
// within a push handler.
func (t *Tree) Lock()   { t.mu.Lock() }
func (t *Tree) Unlock() { t.mu.Unlock() }

// Root returns the root entry.
func (t *Tree) Root() *Entry { return t.root }

// splitPath validates and splits a relative path into segments. A leading
// "/" is tolerated (relative paths are resolved against base regardless).
func splitPath(path string) ([]string, bool) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, true
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}

func validSegmentLen(segs []string, maxLen int) bool {
	if maxLen <= 0 {
		return true
	}
	for _, s := range segs {
		if len(s) > maxLen {
			return false
		}
	}
	return true
}

// FindEntry resolves path relative to base without creating anything.
// Must be called with the tree lock held.
func (t *Tree) FindEntry(base *Entry, path string) (*Entry, error) {
	segs, ok := splitPath(path)
	if !ok {
		return nil, errs.ErrNotFound
	}
	if t.MaxDepth > 0 && len(segs) > t.MaxDepth {
		return nil, errs.ErrNotFound
	}
	if !validSegmentLen(segs, t.MaxSegmentLen) {
		return nil, errs.ErrNotFound
	}
	cur := base
	for _, s := range segs {
		next, ok := cur.children[s]
		if !ok {
			return nil, errs.ErrNotFound
		}
		cur = next
	}
	return cur, nil
}

// FindAtAbsolute resolves an absolute path from root. A non-absolute path
// is treated as not-found (spec §4.1).
func (t *Tree) FindAtAbsolute(path string) (*Entry, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, errs.ErrNotFound
	}
	return t.FindEntry(t.root, path)
}

// GetEntry resolves path relative to base, materialising missing
// intermediate nodes as Namespaces and the leaf as a Placeholder if it
// doesn't already exist (spec §3.3, §4.1).
func (t *Tree) GetEntry(base *Entry, path string) (*Entry, error) {
	segs, ok := splitPath(path)
	if !ok {
		return nil, errs.ErrNotFound
	}
	if t.MaxDepth > 0 && len(segs) > t.MaxDepth {
		return nil, errs.ErrNotFound
	}
	if !validSegmentLen(segs, t.MaxSegmentLen) {
		return nil, errs.ErrNotFound
	}
	if len(segs) == 0 {
		return base, nil
	}
	cur := base
	for i, s := range segs {
		next, ok := cur.children[s]
		if !ok {
			role := RoleNamespace
			if i == len(segs)-1 {
				role = RolePlaceholder
			}
			next = &Entry{Name: s, Parent: cur, Role: role, children: make(map[string]*Entry)}
			cur.children[s] = next
		}
		cur = next
	}
	return cur, nil
}

// Promote upgrades entry to role (Input/Output/Observation) in place,
// replacing its Payload while preserving identity and children (spec
// §4.1, §4.7). entry must currently be Namespace or Placeholder; the
// idempotent create/conflict-detect semantics live in the callers
// (clientapi.Session.CreateInput/CreateOutput, admin.CreateObservation),
// not here.
func (t *Tree) Promote(entry *Entry, role Role, payload any) error {
	if entry.Role != RoleNamespace && entry.Role != RolePlaceholder {
		return errs.ErrDuplicate
	}
	entry.Role = role
	entry.Payload = payload
	return nil
}

// Remove deletes entry from its parent's children (spec §4.1 deleteIO,
// §4.7 "Input|Output → removed"). The entry must have no children.
func (t *Tree) Remove(entry *Entry) {
	if entry.Parent == nil {
		return
	}
	delete(entry.Parent.children, entry.Name)
}

// Demote downgrades entry to Namespace, clearing its Payload (spec §4.7
// "Input|Output → Namespace (on deleteIO if children exist)").
func (t *Tree) Demote(entry *Entry) {
	entry.Role = RoleNamespace
	entry.Payload = nil
}

// PruneEmptyAncestors removes now-empty Namespace ancestors starting at
// entry's parent, walking upward (spec §3.3 "destruction ... else removes
// it and any now-empty Namespace ancestors").
func (t *Tree) PruneEmptyAncestors(entry *Entry) {
	p := entry.Parent
	for p != nil && p.Parent != nil && p.Role == RoleNamespace && len(p.children) == 0 {
		next := p.Parent
		delete(next.children, p.Name)
		p = next
	}
}
