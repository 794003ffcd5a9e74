// Package router assembles the HTTP surface: the middleware chain, the
// unversioned health routes and the versioned API resources.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route binds one method and path to its handlers
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// Resource is a set of routes sharing a path prefix and middleware.
// Children mount below the resource's prefix and inherit its middleware.
type Resource struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
	Children   []Resource
}

// NewResource starts a resource at prefix
func NewResource(prefix string, middleware ...gin.HandlerFunc) *Resource {
	return &Resource{Prefix: prefix, Middleware: middleware}
}

func (r *Resource) add(method, path string, handlers []gin.HandlerFunc) *Resource {
	r.Routes = append(r.Routes, Route{Method: method, Path: path, Handlers: handlers})
	return r
}

func (r *Resource) GET(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodGet, path, h)
}

func (r *Resource) POST(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodPost, path, h)
}

func (r *Resource) PUT(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodPut, path, h)
}

func (r *Resource) DELETE(path string, h ...gin.HandlerFunc) *Resource {
	return r.add(http.MethodDelete, path, h)
}

// Nest mounts child below r
func (r *Resource) Nest(child *Resource) *Resource {
	r.Children = append(r.Children, *child)
	return r
}

func (r Resource) mount(parent *gin.RouterGroup) {
	group := parent.Group(r.Prefix, r.Middleware...)
	for _, route := range r.Routes {
		group.Handle(route.Method, route.Path, route.Handlers...)
	}
	for _, child := range r.Children {
		child.mount(group)
	}
}

// Mount registers resources under /version. The middleware runs for every
// versioned route and not for routes registered directly on the engine,
// such as the health routes.
func Mount(engine *gin.Engine, version string, middleware []gin.HandlerFunc, resources ...*Resource) {
	api := engine.Group("/"+version, middleware...)
	for _, res := range resources {
		res.mount(api)
	}
}
