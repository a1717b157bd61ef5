// Package surface hands out short-lived locators for untrusted game markup.
// Each handle resolves to one copy of the content until it is released, and
// the content is always served inside a sandbox.
package surface

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DefaultPolicy is the iframe sandbox token list. Navigation of the parent is
// never granted.
const DefaultPolicy = "allow-scripts allow-same-origin allow-forms allow-popups allow-modals"

// Handle is an opaque locator for acquired content.
type Handle string

// Allocator is the acquire/release contract used by session managers.
type Allocator interface {
	Acquire(content string) Handle
	Release(h Handle)
}

// Registry is the in-process Allocator. It also serves live handles over HTTP.
type Registry struct {
	mu          sync.RWMutex
	content     map[Handle]string
	policy      string
	frameOrigin string
}

// NewRegistry creates a registry. policy is the sandbox token list (empty for
// DefaultPolicy); frameOrigin is an extra origin allowed to embed surfaces.
func NewRegistry(policy, frameOrigin string) *Registry {
	policy = strings.TrimSpace(policy)
	if policy == "" {
		policy = DefaultPolicy
	}
	return &Registry{
		content:     make(map[Handle]string),
		policy:      policy,
		frameOrigin: strings.TrimSuffix(strings.TrimSpace(frameOrigin), "/"),
	}
}

func (r *Registry) Acquire(content string) Handle {
	h := Handle(uuid.NewString())
	r.mu.Lock()
	r.content[h] = content
	r.mu.Unlock()
	return h
}

// Release drops h. Releasing an unknown or already released handle is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	delete(r.content, h)
	r.mu.Unlock()
}

// Lookup returns the content for a live handle.
func (r *Registry) Lookup(h Handle) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.content[h]
	return c, ok
}

// Live is the number of handles not yet released.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.content)
}

// Policy is the sandbox token list for iframe attributes and CSP.
func (r *Registry) Policy() string {
	return r.policy
}

// Path is the URL path a handle is served under.
func Path(h Handle) string {
	return "/surface/" + string(h)
}

// RegisterRoutes mounts GET /surface/{handle}.
func (r *Registry) RegisterRoutes(router chi.Router) {
	router.Get("/surface/{handle}", r.serve)
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	content, ok := r.Lookup(Handle(chi.URLParam(req, "handle")))
	if !ok {
		http.NotFound(w, req)
		return
	}
	r.Write(w, content)
}

// Write sends content as a sandboxed document with the registry's policy.
func (r *Registry) Write(w http.ResponseWriter, content string) {
	ancestors := "frame-ancestors 'self'"
	if r.frameOrigin != "" {
		ancestors += " " + r.frameOrigin
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox "+r.policy+"; "+ancestors)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
