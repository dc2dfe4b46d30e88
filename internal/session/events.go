package session

// EventType identifies a session transition.
type EventType string

const (
	// EventLoggedIn fires after a successful login.
	EventLoggedIn EventType = "logged_in"

	// EventLoggedOut fires after an explicit logout or a login failure
	// that forced the session out of the authenticated state.
	EventLoggedOut EventType = "logged_out"

	// EventRefreshed fires when a credential refresh or profile fetch
	// (re)established the authenticated state.
	EventRefreshed EventType = "refreshed"

	// EventExpired fires when a refresh failed and the session was reset
	// to anonymous. The SDK analogue of the forced redirect to login.
	EventExpired EventType = "expired"

	// EventIdentityPatched fires after the sanctioned cross-store
	// back-propagation updated identity fields in place.
	EventIdentityPatched EventType = "identity_patched"
)

// Event is a typed session transition notification. Subscribers receive
// events synchronously, in transition order, after the manager's own state
// is fully settled.
type Event struct {
	Type EventType

	// WasAuthenticated and Authenticated describe the transition edge.
	WasAuthenticated bool
	Authenticated    bool

	// Identity is a copy of the identity after the transition, nil when
	// anonymous.
	Identity *Identity
}

// Subscribe registers a transition subscriber. Intended to be called at
// wiring time, before the manager handles traffic.
func (m *Manager) Subscribe(fn func(Event)) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.subs = append(m.subs, fn)
}

// emit dispatches an event to every subscriber. Callers must not hold
// m.mu: subscribers are allowed to call back into the manager.
func (m *Manager) emit(ev Event) {
	m.subsMu.RLock()
	subs := make([]func(Event), len(m.subs))
	copy(subs, m.subs)
	m.subsMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
