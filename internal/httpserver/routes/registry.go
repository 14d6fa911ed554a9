package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	name string
	reg  Registrar
	mws  []Middleware
}

// Registry collects route groups by name. Groups mount in registration order.
type Registry struct {
	groups []group
}

// Add registers a named group. A name may be used once; a duplicate is a
// programming error and panics at init.
func (rg *Registry) Add(name string, reg Registrar, mws ...Middleware) {
	for _, g := range rg.groups {
		if g.name == name {
			panic(fmt.Sprintf("routes: group %q registered twice", name))
		}
	}
	rg.groups = append(rg.groups, group{name: name, reg: reg, mws: mws})
}

// Names lists the registered groups in mount order.
func (rg *Registry) Names() []string {
	names := make([]string, len(rg.groups))
	for i, g := range rg.groups {
		names[i] = g.name
	}
	return names
}

// Mount attaches every group to r, wrapping it in its own middlewares.
func (rg *Registry) Mount(r chi.Router, d deps.Deps) {
	for _, g := range rg.groups {
		if len(g.mws) == 0 {
			g.reg(r, d)
			continue
		}
		g.reg(r.With(g.mws...), d)
	}
	if d.Logger != nil {
		d.Logger.Debug("routes mounted", logger.String("groups", strings.Join(rg.Names(), ",")))
	}
}

var defaultRegistry Registry

// Register adds a group to the registry the server mounts. Call from init.
func Register(name string, reg Registrar, mws ...Middleware) {
	defaultRegistry.Add(name, reg, mws...)
}

// RegisterAll mounts every group added with Register. Called once by the server.
func RegisterAll(r chi.Router, d deps.Deps) {
	defaultRegistry.Mount(r, d)
}

// Registered lists the names added with Register.
func Registered() []string {
	return defaultRegistry.Names()
}
