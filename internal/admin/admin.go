// Package admin implements the administrative operations spec.md §3.3
// keeps in scope even though client IPC transport is out of scope: create
// and delete Observations bound to a source resource, and flush
// Observation buffers to the optional persistence collaborator (§6.4).
// This is the backing package for the HTTP facade in internal/server.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/persistence"
	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// ObservationSpec describes an administratively created Observation.
type ObservationSpec struct {
	Path                   string
	SourcePath             string
	DataType               sample.Kind
	Units                  string
	BufferMaxCount         int
	BufferMaxWindowSeconds float64
	Filter                 resource.FilterFunc // nil = pass-through
}

// CreateObservation materialises path as an Observation deriving from
// sourcePath (spec §4.3 step 6, §4.7 role promotion). Path is resolved
// from the tree root with or without a leading "/"; SourcePath must be
// absolute (a path without a leading "/" is not found). Re-creating the same path with the
// same source is a no-op success (idempotent create, spec §3.3); creating
// it bound to a different source, or over an existing Input/Output, is
// ErrDuplicate.
func CreateObservation(t *tree.Tree, spec ObservationSpec) (*tree.Entry, error) {
	t.Lock()
	defer t.Unlock()

	src, err := t.FindAtAbsolute(spec.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("observation source %q: %w", spec.SourcePath, err)
	}
	if !src.Role.IsResource() {
		return nil, fmt.Errorf("observation source %q: %w", spec.SourcePath, errs.ErrUnsupported)
	}
	srcState := resource.Of(src)
	if srcState == nil {
		return nil, fmt.Errorf("observation source %q has no resource state yet: %w", spec.SourcePath, errs.ErrUnavailable)
	}

	entry, err := t.GetEntry(t.Root(), spec.Path)
	if err != nil {
		return nil, err
	}

	if entry.Role == tree.RoleObservation {
		st := resource.Of(entry)
		if st != nil && st.Source == src {
			return entry, nil // idempotent re-create
		}
		return nil, fmt.Errorf("observation %q: %w", spec.Path, errs.ErrDuplicate)
	}
	if entry.Role != tree.RoleNamespace && entry.Role != tree.RolePlaceholder {
		return nil, fmt.Errorf("observation %q: %w", spec.Path, errs.ErrDuplicate)
	}

	st := resource.NewState(spec.DataType, spec.Units, false)
	st.Buffer = resource.NewBuffer(spec.BufferMaxCount, spec.BufferMaxWindowSeconds)
	st.Filter = spec.Filter
	st.Source = src

	if err := t.Promote(entry, tree.RoleObservation, st); err != nil {
		return nil, err
	}
	srcState.Derived = append(srcState.Derived, entry)

	return entry, nil
}

// DeleteObservation removes path's Observation role (spec §3.3
// "destruction"), unlinking it from its source's Derived index and
// pruning now-empty Namespace ancestors.
func DeleteObservation(t *tree.Tree, path string) error {
	t.Lock()
	defer t.Unlock()

	entry, err := t.FindAtAbsolute(path)
	if err != nil {
		return err
	}
	if entry.Role != tree.RoleObservation {
		return fmt.Errorf("%q is not an observation: %w", path, errs.ErrNotFound)
	}
	st := resource.Of(entry)
	if st != nil && st.Source != nil {
		if srcState := resource.Of(st.Source); srcState != nil {
			for i, d := range srcState.Derived {
				if d == entry {
					srcState.Derived = append(srcState.Derived[:i], srcState.Derived[i+1:]...)
					break
				}
			}
		}
	}

	if len(entry.Children()) > 0 {
		t.Demote(entry)
		return nil
	}
	t.Remove(entry)
	t.PruneEmptyAncestors(entry)
	return nil
}

// FlushPersistence walks every Observation in the tree and writes its
// buffer to p, recording the write on each resource's State the same way
// the teacher's UpdateLastUsed(now) throttled write-back works
// (internal/store/memory.go), via resource.State.MarkPersisted.
func FlushPersistence(ctx context.Context, t *tree.Tree, p persistence.Persister) error {
	t.Lock()
	type job struct {
		path    string
		entries []persistence.Entry
		state   *resource.State
	}
	var jobs []job
	walk(t.Root(), func(e *tree.Entry) {
		if e.Role != tree.RoleObservation {
			return
		}
		st := resource.Of(e)
		if st == nil || st.Buffer == nil {
			return
		}
		samples := st.Buffer.Entries()
		entries := make([]persistence.Entry, len(samples))
		for i, s := range samples {
			entries[i] = persistence.Entry{Timestamp: s.Timestamp(), ValueJSON: s.JSONValue()}
		}
		jobs = append(jobs, job{path: e.Path(), entries: entries, state: st})
	})
	t.Unlock()

	now := time.Now().UTC()
	for _, j := range jobs {
		if err := p.PersistObservation(ctx, j.path, j.entries); err != nil {
			return fmt.Errorf("persist observation %q: %w", j.path, err)
		}
		t.Lock()
		j.state.MarkPersisted(now)
		t.Unlock()
	}
	return nil
}

func walk(e *tree.Entry, fn func(*tree.Entry)) {
	fn(e)
	for _, c := range e.Children() {
		walk(c, fn)
	}
}
