package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/murmurlabs/verbatim/pkg/errorsx"
)

// Registry holds at most one supervisor per session id. A second start for
// the same id is rejected, never silently replaced.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Supervisor
	cfg      Config
}

// NewRegistry creates a registry whose supervisors share cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{sessions: make(map[string]*Supervisor), cfg: cfg}
}

// Start creates and starts a supervisor for the session id in params.
func (r *Registry) Start(ctx context.Context, params Params) error {
	r.mu.Lock()
	if _, exists := r.sessions[params.ID]; exists {
		r.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("session %s: already registered", params.ID), errorsx.ReasonSessionActive)
	}
	sup, err := NewSupervisor(r.cfg)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.sessions[params.ID] = sup
	r.mu.Unlock()

	if err := sup.Start(ctx, params); err != nil {
		r.remove(params.ID)
		return err
	}

	// A Stop that raced the start may have removed the entry while the
	// supervisor was still Inactive; its no-op Stop must not leave an
	// unreachable running session behind.
	r.mu.Lock()
	_, registered := r.sessions[params.ID]
	r.mu.Unlock()
	if !registered {
		sup.Stop()
		return errorsx.Wrap(fmt.Errorf("session %s: stopped during start", params.ID), errorsx.ReasonSessionActive)
	}
	return nil
}

// Stop finalizes the named session and removes it. Unknown ids are a no-op.
func (r *Registry) Stop(id string) {
	r.mu.Lock()
	sup, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	sup.Stop()
	r.remove(id)
}

// Get returns the live supervisor for a session id.
func (r *Registry) Get(id string) (*Supervisor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sup, ok := r.sessions[id]
	return sup, ok
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
