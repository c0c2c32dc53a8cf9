package server

import (
	"net/http"

	"github.com/jtchitty/legatoDataHub/internal/resource"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// treeNodeView is one Entry's operator-facing projection for the
// namespace dump (SPEC_FULL.md "Administrative HTTP facade").
type treeNodeView struct {
	Path            string          `json:"path"`
	Role            string          `json:"role"`
	DataType        string          `json:"data_type,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	LastPersistedAt string          `json:"last_persisted_at,omitempty"`
	Children        []*treeNodeView `json:"children,omitempty"`
}

func dumpEntry(e *tree.Entry) *treeNodeView {
	v := &treeNodeView{Path: e.Path(), Role: e.Role.String()}
	if st := resource.Of(e); st != nil {
		v.DataType = st.DataType.String()
		v.CreatedAt = st.CreatedAt.Time.Format("2006-01-02T15:04:05Z07:00")
		if st.LastPersistedAt.Valid {
			v.LastPersistedAt = st.LastPersistedAt.V.Time.Format("2006-01-02T15:04:05Z07:00")
		}
	}
	for _, c := range e.Children() {
		v.Children = append(v.Children, dumpEntry(c))
	}
	return v
}

// TreeDumpAPI handles GET /api/v1/tree, an operator-facing dump of the
// whole Resource Tree (roles, data types, persistence bookkeeping).
func (s *Server) TreeDumpAPI(w http.ResponseWriter, r *http.Request) {
	s.tree.Lock()
	view := dumpEntry(s.tree.Root())
	s.tree.Unlock()

	httpResponseJSON(w, view, http.StatusOK)
}
