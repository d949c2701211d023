// Package web exposes the link flow over HTTP: kicking off authorization,
// receiving the provider redirect, and a sample data endpoint that exercises
// the stored tokens.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ledgerworks/stitchlink/internal/link/resource"
	"github.com/ledgerworks/stitchlink/internal/link/service"
	"github.com/ledgerworks/stitchlink/internal/link/store"
	"github.com/ledgerworks/stitchlink/pkg/httpx"
	"github.com/ledgerworks/stitchlink/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	Links     *service.Manager
	Resources *resource.Client
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLink()
	r.registerData()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLink() {
	login := &LoginHandler{Links: r.Links, Logger: r.logger}
	callback := &CallbackHandler{Links: r.Links, Logger: r.logger}

	// Each hit writes a pending request to the store, so keep it tight.
	r.Mux.Handle("GET /login",
		httpx.Chain(http.HandlerFunc(login.Handle),
			httpx.RateLimitByIP(httpx.LoginLimit),
		),
	)

	r.Mux.Handle("GET /callback", http.HandlerFunc(callback.Handle))
}

func (r *Router) registerData() {
	h := &AccountsHandler{Resources: r.Resources, Logger: r.logger}
	r.Mux.Handle("GET /accounts", http.HandlerFunc(h.Handle))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
