// Package server exposes the administrative/query HTTP facade
// (SPEC_FULL.md "Administrative HTTP facade"): the query facade (spec
// §4.6) and administrative Observation lifecycle (spec §3.3) over a
// small ada-routed API, grounded on the teacher's internal/server/server.go
// router/middleware wiring.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/rakunlabs/ada"
	mcors "github.com/rakunlabs/ada/middleware/cors"
	mforwardauth "github.com/rakunlabs/ada/middleware/forwardauth"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"

	"github.com/jtchitty/legatoDataHub/internal/config"
	"github.com/jtchitty/legatoDataHub/internal/persistence"
	"github.com/jtchitty/legatoDataHub/internal/query"
	"github.com/jtchitty/legatoDataHub/internal/tree"
)

// Server is the administrative/query HTTP facade for one Tree.
type Server struct {
	config config.Server

	server *ada.Server
	tree   *tree.Tree
	query  *query.Facade

	// store is the optional persistence collaborator (spec §6.4); nil
	// means FlushPersistenceAPI returns Unavailable.
	store persistence.Persister
}

// New builds a Server routing requests against t. store may be nil.
func New(cfg config.Server, t *tree.Tree, store persistence.Persister) (*Server, error) {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware(config.Service),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	s := &Server{
		config: cfg,
		server: mux,
		tree:   t,
		query:  query.New(t),
		store:  store,
	}

	baseGroup := mux.Group(cfg.BasePath)

	if cfg.ForwardAuth != nil {
		baseGroup.Use(mforwardauth.Middleware(mforwardauth.WithConfig(*cfg.ForwardAuth)))
	}

	apiGroup := baseGroup.Group("/api")

	// Query facade (spec §4.6) — read-only, no admin gate, matching the
	// teacher's split between the open gateway API and the gated
	// settingsGroup.
	apiGroup.GET("/v1/obs/*", s.GetObservationAPI)

	// Administrative Observation lifecycle (spec §3.3) and operator
	// surfaces — bearer-token gated, same shape as the teacher's
	// settingsGroup.Use(s.adminAuthMiddleware()).
	adminGroup := apiGroup.Group("/v1")
	adminGroup.Use(s.adminAuthMiddleware())
	adminGroup.POST("/obs/*", s.CreateObservationAPI)
	adminGroup.DELETE("/obs/*", s.DeleteObservationAPI)
	adminGroup.GET("/tree", s.TreeDumpAPI)
	adminGroup.POST("/persist", s.FlushPersistenceAPI)

	return s, nil
}

// Start serves the facade until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return s.server.StartWithContext(ctx, net.JoinHostPort(s.config.Host, s.config.Port))
}

// adminAuthMiddleware gates Observation administration and the tree/persist
// operator surfaces (spec §3.3, §6.4), adapted from the teacher's
// internal/server/server.go adminAuthMiddleware: no admin_token configured
// means every such request is rejected rather than silently open.
func (s *Server) adminAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.config.AdminToken == "" {
				httpResponse(w, "observation administration is disabled: no admin token configured", http.StatusForbidden)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				slog.Warn("rejected observation admin request with no Authorization header", "path", r.URL.Path)
				httpResponse(w, "observation administration requires a bearer token", http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(auth, "Bearer ")
			if token == auth || token != s.config.AdminToken {
				slog.Warn("rejected observation admin request with bad bearer token", "path", r.URL.Path)
				httpResponse(w, "observation administration requires a bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
