// Package clientapi implements the client-facing producer/consumer API
// (spec §6.1): createInput/createOutput/deleteResource, the pushXxx and
// getXxx family, handler registration, and default/optional
// configuration — all scoped to one client's /app/<client-id>/ subtree.
package clientapi

import (
	"log/slog"

	"github.com/jtchitty/legatoDataHub/internal/errs"
	"github.com/jtchitty/legatoDataHub/internal/namespace"
	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/sample"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// Killer is the "Logging & fatal-client sink" collaborator (spec §6.4):
// killClient terminates the offending client's session. The transport
// that owns session lifecycle is out of this module's scope; Killer is
// the seam a transport implements to react to a contract violation.
type Killer interface {
	Kill(reason string)
}

// Session is one client's bound view of the Resource Tree: every relative
// path it accepts resolves under its /app/<client-id>/ root (spec §4.1
// "Relative paths from a client context resolve under its
// /app/<client-id>/ namespace").
type Session struct {
	tree   *tree.Tree
	root   *tree.Entry
	killer Killer
	logger *slog.Logger

	maxResources int
	resources    int
}

// NewSession binds clientID via binder and returns a Session scoped to
// it. maxResources is the administrative maxResourcesPerClient cap (spec
// §6.3); 0 means unlimited.
func NewSession(t *tree.Tree, binder *namespace.Binder, clientID string, killer Killer, logger *slog.Logger, maxResources int) (*Session, error) {
	root, err := binder.Bind(clientID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{tree: t, root: root, killer: killer, logger: logger, maxResources: maxResources}, nil
}

// violate terminates the session via Killer and returns the violation as
// an error for the immediate caller (spec §7: "these never surface as
// return codes to the offender" describes the client's view through the
// transport, not this method's Go return — the transport translates a
// non-nil error here into killing the connection).
func (s *Session) violate(reason string) error {
	err := errs.NewViolation(reason)
	if s.killer != nil {
		s.killer.Kill(reason)
	}
	s.logger.Warn("client contract violation", "reason", reason)
	return err
}

func (s *Session) resolveExisting(relPath string) (*tree.Entry, error) {
	s.tree.Lock()
	e, err := s.tree.FindEntry(s.root, relPath)
	s.tree.Unlock()
	if err != nil {
		return nil, s.violate("push or handler registration against a non-existent resource: " + relPath)
	}
	return e, nil
}

// createResource is the shared createInput/createOutput implementation.
func (s *Session) createResource(relPath string, role tree.Role, dt sample.Kind, units string, mandatory bool) (*tree.Entry, error) {
	s.tree.Lock()
	defer s.tree.Unlock()

	e, err := s.tree.GetEntry(s.root, relPath)
	if err != nil {
		return nil, err
	}

	if e.Role == role {
		st := resource.Of(e)
		if st != nil && st.DataType == dt && st.Units == units {
			return e, nil // idempotent success, spec §4.1
		}
		return nil, errs.ErrDuplicate
	}
	if e.Role != tree.RoleNamespace && e.Role != tree.RolePlaceholder {
		return nil, errs.ErrDuplicate
	}

	if s.maxResources > 0 && s.resources >= s.maxResources {
		return nil, errs.ErrNoMemory
	}

	st := resource.NewState(dt, units, mandatory)
	if err := s.tree.Promote(e, role, st); err != nil {
		return nil, err
	}
	s.resources++
	return e, nil
}

// CreateInput creates (or idempotently re-affirms) an Input resource at
// relPath (spec §4.1 getInput).
func (s *Session) CreateInput(relPath string, dt sample.Kind, units string) error {
	_, err := s.createResource(relPath, tree.RoleInput, dt, units, false)
	return err
}

// CreateOutput creates (or idempotently re-affirms) an Output resource at
// relPath. Outputs default mandatory (spec §3.1).
func (s *Session) CreateOutput(relPath string, dt sample.Kind, units string) error {
	_, err := s.createResource(relPath, tree.RoleOutput, dt, units, true)
	return err
}

// DeleteResource removes the Input or Output at relPath (spec §4.1
// deleteIO, §4.7). Marking the wrong role here is a fatal caller error,
// i.e. a contract violation in this Go translation.
func (s *Session) DeleteResource(relPath string) error {
	s.tree.Lock()
	defer s.tree.Unlock()

	e, err := s.tree.FindEntry(s.root, relPath)
	if err != nil {
		return s.violate("deleteResource on a non-existent path: " + relPath)
	}
	if e.Role != tree.RoleInput && e.Role != tree.RoleOutput {
		return s.violate("deleteResource on a non-Input/Output entry: " + relPath)
	}

	if len(e.Children()) > 0 {
		s.tree.Demote(e)
	} else {
		s.tree.Remove(e)
		s.tree.PruneEmptyAncestors(e)
	}
	s.resources--
	return nil
}

// MarkOptional clears the mandatory flag on an Output (spec §6.1
// markOptional). Calling it on a non-Output is a contract violation.
func (s *Session) MarkOptional(relPath string) error {
	s.tree.Lock()
	defer s.tree.Unlock()

	e, err := s.tree.FindEntry(s.root, relPath)
	if err != nil {
		return s.violate("markOptional on a non-existent path: " + relPath)
	}
	if e.Role != tree.RoleOutput {
		return s.violate("markOptional on a non-Output entry: " + relPath)
	}
	resource.Of(e).Mandatory = false
	return nil
}

func (s *Session) setDefault(relPath string, dt sample.Kind, v *sample.Sample) error {
	s.tree.Lock()
	defer s.tree.Unlock()

	e, err := s.tree.FindEntry(s.root, relPath)
	if err != nil {
		return s.violate("setDefault against a non-existent resource: " + relPath)
	}
	st := resource.Of(e)
	if st == nil || st.DataType != dt {
		return s.violate("setDefault kind mismatch at " + relPath)
	}
	st.SetDefault(v)
	return nil
}

// SetTriggerDefault, SetBooleanDefault, SetNumericDefault, SetStringDefault
// and SetJSONDefault implement the write-once setXxxDefault family (spec
// §6.1, invariant 4).
func (s *Session) SetTriggerDefault(relPath string) error {
	return s.setDefault(relPath, sample.Trigger, sample.NewTrigger(0))
}
func (s *Session) SetBooleanDefault(relPath string, v bool) error {
	return s.setDefault(relPath, sample.Boolean, sample.NewBoolean(0, v))
}
func (s *Session) SetNumericDefault(relPath string, v float64) error {
	return s.setDefault(relPath, sample.Numeric, sample.NewNumeric(0, v))
}
func (s *Session) SetStringDefault(relPath string, v string) error {
	return s.setDefault(relPath, sample.String, sample.NewString(0, v))
}
func (s *Session) SetJSONDefault(relPath string, v string) error {
	js, err := sample.NewJSON(0, v)
	if err != nil {
		return s.violate("setJsonDefault with malformed JSON at " + relPath)
	}
	return s.setDefault(relPath, sample.JSON, js)
}

func (s *Session) push(relPath string, dt sample.Kind, sm *sample.Sample, now resource.Clock) error {
	e, err := s.resolveExisting(relPath)
	if err != nil {
		return err
	}
	if err := resource.Push(s.tree, e, dt, sm, now); err != nil {
		if errs.IsViolation(err) {
			if s.killer != nil {
				s.killer.Kill(err.Error())
			}
			s.logger.Warn("client contract violation", "path", relPath, "reason", err.Error())
		}
		return err
	}
	return nil
}

// PushTrigger, PushBoolean, PushNumeric, PushString and PushJSON
// implement the pushXxx family (spec §4.3, §6.1). now supplies the
// wall-clock reading used when ts == 0 (spec §6.4 nowSeconds).
func (s *Session) PushTrigger(relPath string, ts float64, now resource.Clock) error {
	return s.push(relPath, sample.Trigger, sample.NewTrigger(ts), now)
}
func (s *Session) PushBoolean(relPath string, ts float64, v bool, now resource.Clock) error {
	return s.push(relPath, sample.Boolean, sample.NewBoolean(ts, v), now)
}
func (s *Session) PushNumeric(relPath string, ts float64, v float64, now resource.Clock) error {
	return s.push(relPath, sample.Numeric, sample.NewNumeric(ts, v), now)
}
func (s *Session) PushString(relPath string, ts float64, v string, now resource.Clock) error {
	return s.push(relPath, sample.String, sample.NewString(ts, v), now)
}
func (s *Session) PushJSON(relPath string, ts float64, v string, now resource.Clock) error {
	js, err := sample.NewJSON(ts, v)
	if err != nil {
		return s.violate("pushJson with malformed JSON at " + relPath)
	}
	return s.push(relPath, sample.JSON, js, now)
}

// AddTriggerPushHandler, AddBooleanPushHandler, AddNumericPushHandler,
// AddStringPushHandler and AddJSONPushHandler implement the
// addXxxPushHandler family (spec §4.3 addPushHandler).
func (s *Session) AddTriggerPushHandler(relPath string, cb func(*sample.Sample)) (string, error) {
	return s.addHandler(relPath, sample.Trigger, cb)
}
func (s *Session) AddBooleanPushHandler(relPath string, cb func(*sample.Sample)) (string, error) {
	return s.addHandler(relPath, sample.Boolean, cb)
}
func (s *Session) AddNumericPushHandler(relPath string, cb func(*sample.Sample)) (string, error) {
	return s.addHandler(relPath, sample.Numeric, cb)
}
func (s *Session) AddStringPushHandler(relPath string, cb func(*sample.Sample)) (string, error) {
	return s.addHandler(relPath, sample.String, cb)
}
func (s *Session) AddJSONPushHandler(relPath string, cb func(*sample.Sample)) (string, error) {
	return s.addHandler(relPath, sample.JSON, cb)
}

func (s *Session) addHandler(relPath string, dt sample.Kind, cb func(*sample.Sample)) (string, error) {
	e, err := s.resolveExisting(relPath)
	if err != nil {
		return "", err
	}
	ref, err := resource.AddPushHandler(s.tree, e, dt, cb)
	if err != nil {
		if s.killer != nil {
			s.killer.Kill(err.Error())
		}
		return "", err
	}
	return ref, nil
}

// AddPollingHandler is the reserved addPollingHandler surface (spec §6.1,
// §9 "polling handlers are reserved but not yet implemented"). It always
// reports ErrUnsupported; no polling dispatch exists in this module.
func (s *Session) AddPollingHandler(relPath string, intervalSeconds float64, cb func(*sample.Sample)) (string, error) {
	return "", errs.ErrUnsupported
}

// RemovePushHandler implements removePushHandler (spec §4.3).
func (s *Session) RemovePushHandler(relPath string, ref string) error {
	e, err := s.resolveExisting(relPath)
	if err != nil {
		return err
	}
	return resource.RemovePushHandler(s.tree, e, ref)
}

func (s *Session) get(relPath string, dt sample.Kind) (*sample.Sample, error) {
	s.tree.Lock()
	defer s.tree.Unlock()

	e, err := s.tree.FindEntry(s.root, relPath)
	if err != nil {
		return nil, s.violate("get against a non-existent resource: " + relPath)
	}
	cur, ok := resource.GetCurrentValue(e)
	if !ok {
		return nil, errs.ErrUnavailable
	}
	if dt >= 0 && cur.Kind() != dt {
		return nil, s.violate("getXxx kind mismatch at " + relPath)
	}
	return cur, nil
}

// GetTimestamp, GetBoolean, GetNumeric, GetString and GetJSON implement
// the client IO facade's read family (spec §6.1). Unlike the query
// facade (internal/query), a kind mismatch here is a contract violation
// that kills the session (spec scenario 6), not a returned FormatError.
func (s *Session) GetTimestamp(relPath string) (float64, error) {
	cur, err := s.get(relPath, -1)
	if err != nil {
		return 0, err
	}
	return cur.Timestamp(), nil
}
func (s *Session) GetBoolean(relPath string) (bool, error) {
	cur, err := s.get(relPath, sample.Boolean)
	if err != nil {
		return false, err
	}
	v, _ := cur.Bool()
	return v, nil
}
func (s *Session) GetNumeric(relPath string) (float64, error) {
	cur, err := s.get(relPath, sample.Numeric)
	if err != nil {
		return 0, err
	}
	v, _ := cur.Float()
	return v, nil
}
func (s *Session) GetString(relPath string) (string, error) {
	cur, err := s.get(relPath, sample.String)
	if err != nil {
		return "", err
	}
	v, _ := cur.Text()
	return v, nil
}
func (s *Session) GetJSON(relPath string) (string, error) {
	cur, err := s.get(relPath, -1)
	if err != nil {
		return "", err
	}
	return cur.JSONValue(), nil
}
