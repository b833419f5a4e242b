package webserver

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// Route is an API endpoint mounted under the /api/v1 prefix
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
}

var (
	routesMu sync.Mutex
	routes   []Route
	routeIdx = map[string]int{}
)

func addRoute(method, path string, h echo.HandlerFunc) {
	routesMu.Lock()
	defer routesMu.Unlock()
	key := method + " " + path
	if i, ok := routeIdx[key]; ok {
		routes[i].Handler = h
		return
	}
	routeIdx[key] = len(routes)
	routes = append(routes, Route{Method: method, Path: path, Handler: h})
}

func ApiGET(path string, h echo.HandlerFunc) {
	addRoute(http.MethodGet, path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	addRoute(http.MethodPost, path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	addRoute(http.MethodPut, path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	addRoute(http.MethodDelete, path, h)
}

// Routes returns a copy of the registered routes
func Routes() []Route {
	routesMu.Lock()
	defer routesMu.Unlock()
	return append([]Route{}, routes...)
}
