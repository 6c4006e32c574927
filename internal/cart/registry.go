package cart

import (
	"sync"

	"tillpoint/backend/internal/domain"
)

// Registry owns one cart per cashier session, keyed by the authenticated
// username. Operations on a session are serialized by a per-session lock so
// that a checkout that snapshots, persists, and clears cannot interleave
// with another request mutating the same cart. Different sessions do not
// block each other.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu   sync.Mutex
	cart *Cart
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// WithCart runs fn against the session's cart while holding that session's
// lock. The cart passed to fn must not be retained after fn returns.
func (r *Registry) WithCart(name string, fn func(*Cart) error) error {
	s := r.session(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cart)
}

// View returns a rendered snapshot of the session's cart.
func (r *Registry) View(name string) domain.CartView {
	s := r.session(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.View()
}

func (r *Registry) session(name string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	if !ok {
		s = &session{cart: New()}
		r.sessions[name] = s
	}
	return s
}
