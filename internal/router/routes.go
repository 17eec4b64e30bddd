// Package router maps in-app paths to views and decides, per navigation,
// whether the target may be shown.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// ErrNotFound is returned for paths that match no route.
var ErrNotFound = errors.New("router: no route for path")

// Well-known paths.
const (
	PathHome  = "/"
	PathLogin = "/login"
)

// Route is one entry of the route table.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
}

// DefaultRoutes is the application route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "home", Path: "/"},
		{Name: "login", Path: "/login"},
		{Name: "register", Path: "/register"},
		{Name: "notes", Path: "/notes"},
		{Name: "note-detail", Path: "/notes/:id"},
		{Name: "my-notes", Path: "/my-notes", RequiresAuth: true},
		{Name: "create-note", Path: "/create-note", RequiresAuth: true},
		{Name: "public-collections", Path: "/collections/public"},
		{Name: "my-collections", Path: "/my-collections", RequiresAuth: true},
		{Name: "collection-detail", Path: "/collections/:id"},
	}
}

// Match is a resolved path.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Table matches paths against an immutable list of routes. The first
// registered route that matches wins.
type Table struct {
	routes []Route
	byName map[string]Route
	mux    *mux.Router
}

// NewTable builds a table. Names must be unique.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{
		routes: append([]Route(nil), routes...),
		byName: make(map[string]Route, len(routes)),
		mux:    mux.NewRouter(),
	}
	for _, route := range t.routes {
		if route.Name == "" || !strings.HasPrefix(route.Path, "/") {
			return nil, fmt.Errorf("router: invalid route %q %q", route.Name, route.Path)
		}
		if _, dup := t.byName[route.Name]; dup {
			return nil, fmt.Errorf("router: duplicate route name %q", route.Name)
		}
		t.byName[route.Name] = route
		if err := t.mux.Path(muxPattern(route.Path)).Name(route.Name).GetError(); err != nil {
			return nil, fmt.Errorf("router: route %s: %w", route.Name, err)
		}
	}
	return t, nil
}

// MustTable is NewTable for static tables.
func MustTable(routes []Route) *Table {
	t, err := NewTable(routes)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns a copy of the table.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

func (t *Table) Lookup(name string) (Route, bool) {
	route, ok := t.byName[name]
	return route, ok
}

// Match resolves path. Query strings and a trailing slash are ignored.
func (t *Table) Match(path string) (Match, error) {
	path = Clean(path)
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var m mux.RouteMatch
	if !t.mux.Match(req, &m) || m.Route == nil {
		return Match{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	route := t.byName[m.Route.GetName()]
	params := make(map[string]string, len(m.Vars))
	for k, v := range m.Vars {
		params[k] = v
	}
	return Match{Route: route, Path: path, Params: params}, nil
}

// Clean strips the query and fragment and any trailing slash.
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

// muxPattern turns "/notes/:id" into "/notes/{id}".
func muxPattern(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}
