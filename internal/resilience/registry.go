package resilience

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry owns one breaker per dependency name. It lives at the
// composition root and is handed to the orchestrator and auth manager
// explicitly; there is no package-level instance.
type Registry struct {
	log          zerolog.Logger
	onTransition func(name string, from, to State)

	mu       sync.Mutex
	breakers map[string]*Breaker
}

type RegistryOption func(*Registry)

// WithTransitionHook observes every breaker state transition, e.g. to
// bump a metrics counter.
func WithTransitionHook(fn func(name string, from, to State)) RegistryOption {
	return func(r *Registry) { r.onTransition = fn }
}

func NewRegistry(log zerolog.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		log:      log,
		breakers: make(map[string]*Breaker),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the breaker for name, creating it on first use. Options
// apply only on creation; later callers share the existing breaker.
func (r *Registry) Get(name string, opts ...BreakerOption) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	opts = append(opts, withTransitionHook(r.logTransition))
	b := NewBreaker(name, opts...)
	r.breakers[name] = b
	return b
}

func (r *Registry) logTransition(name string, from, to State) {
	r.log.Warn().
		Str("breaker", name).
		Stringer("from", from).
		Stringer("to", to).
		Msg("circuit breaker state change")
	if r.onTransition != nil {
		r.onTransition(name, from, to)
	}
}

// Snapshot lists every breaker's observed state, sorted by name, for the
// status page.
type BreakerStatus struct {
	Name     string
	State    State
	Failures int
}

func (r *Registry) Snapshot() []BreakerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BreakerStatus, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, BreakerStatus{Name: b.Name(), State: b.State(), Failures: b.Failures()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
