// Package session owns the client's authentication state machine.
//
// The Manager is the single owner of the identity record and its status
// flags. State changes happen only through its operations, with one
// sanctioned exception: ApplyIdentityPatch, the cross-store write used by
// the synchronizer to back-propagate profile edits.
//
// States: anonymous, authenticated, blocked. A blocked account is never
// authenticated, and an elapsed block window is cleared lazily on the next
// authenticated fetch rather than by a background timer.
package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/authz"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/log"
	"github.com/felixgeelhaar/bizdir/internal/state"
	"github.com/felixgeelhaar/bizdir/internal/transport"
)

// Identity is the authenticated user's record as returned by the API.
type Identity struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	Role          authz.Role `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register payload. Registering does not authenticate
// the caller as a side effect.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Identity      *Identity
	Authenticated bool
	Loading       bool
	Err           string
	Verified      *bool
	Blocked       bool
	BlockedUntil  *time.Time
}

// persistedSession is the subset written to disk. Loading, error, and the
// blocked window are request-scoped and never persisted.
type persistedSession struct {
	Identity      *Identity `json:"identity"`
	Authenticated bool      `json:"authenticated"`
	Verified      *bool     `json:"verified,omitempty"`
}

// IdentityPatch carries the fields a users-cache mutation may back-propagate
// onto the live identity. Zero values leave the field untouched.
type IdentityPatch struct {
	Username string
	Email    string
	Role     authz.Role
}

// Manager owns the session state machine.
type Manager struct {
	client  *transport.Client
	persist *state.Store
	logger  *log.Logger

	mu            sync.Mutex
	identity      *Identity
	authenticated bool
	loading       bool
	err           string
	verified      *bool
	blocked       bool
	blockedUntil  *time.Time

	// refreshGroup collapses concurrent refresh attempts into a single
	// wire call. Issuing parallel refreshes against a rotating credential
	// invalidates sibling attempts and forces spurious logouts.
	refreshGroup singleflight.Group

	subsMu sync.RWMutex
	subs   []func(Event)

	expiredMu sync.RWMutex
	onExpired func()
}

// New creates a Manager, restores the persisted session subset, and
// installs itself as the transport's refresher.
func New(client *transport.Client, persist *state.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	m := &Manager{
		client:  client,
		persist: persist,
		logger:  logger,
	}

	var saved persistedSession
	if persist != nil && persist.Load(state.BlobSession, &saved) {
		if saved.Authenticated && saved.Identity != nil {
			m.identity = saved.Identity
			m.authenticated = true
			m.verified = saved.Verified
			logger.Debug("restored persisted session", "user_id", saved.Identity.ID)
		}
	}

	client.SetRefresher(m)
	return m
}

// SetExpiredHandler installs the hook invoked when a refresh failure forces
// the session back to anonymous. CLIs print and bail; embedding UIs route
// to their login surface.
func (m *Manager) SetExpiredHandler(fn func()) {
	m.expiredMu.Lock()
	defer m.expiredMu.Unlock()
	m.onExpired = fn
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Identity:      copyIdentity(m.identity),
		Authenticated: m.authenticated,
		Loading:       m.loading,
		Err:           m.err,
		Verified:      copyBool(m.verified),
		Blocked:       m.blocked,
		BlockedUntil:  copyTime(m.blockedUntil),
	}
}

// Identity returns a copy of the current identity, or nil when anonymous.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyIdentity(m.identity)
}

// Role returns the current identity's role, RoleUser when anonymous.
func (m *Manager) Role() authz.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return authz.RoleUser
	}
	return m.identity.Role
}

// Authenticated reports whether the session currently holds an identity.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

// ClearError clears the error field only.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = ""
}

// Login posts the credentials and enters the authenticated state on
// success. A 403 carrying a blocked window enters the blocked state
// instead; any other failure resets to anonymous with the error recorded.
// The session error field always reflects the outcome; the returned error
// carries the typed detail.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	m.begin()

	var env api.Envelope[Identity]
	err := m.client.Post(ctx, api.EndpointLogin, creds, &env)
	if err == nil && env.Data == nil {
		err = errors.New(errors.KindServer, "login response missing user payload")
	}

	m.mu.Lock()
	was := m.authenticated
	m.loading = false
	if err != nil {
		m.authenticated = false
		if e, ok := errors.As(err); ok && e.Kind == errors.KindBlocked {
			m.blocked = true
			resumeAt := e.ResumeAt
			m.blockedUntil = &resumeAt
			m.err = e.Message
		} else {
			m.identity = nil
			m.err = messageOf(err)
		}
		m.mu.Unlock()

		if was {
			// A failed re-login dropped an authenticated session.
			m.emit(Event{Type: EventLoggedOut, WasAuthenticated: true})
		}
		return err
	}

	user := *env.Data
	verified := user.EmailVerified
	m.identity = &user
	m.authenticated = true
	m.verified = &verified
	m.blocked = false
	m.blockedUntil = nil
	identityCopy := copyIdentity(m.identity)
	m.mu.Unlock()

	m.persistSession()
	m.logger.Info("logged in", "user_id", user.ID, "role", string(user.Role))
	m.emit(Event{Type: EventLoggedIn, WasAuthenticated: was, Authenticated: true, Identity: identityCopy})
	return nil
}

// Logout calls the remote logout endpoint best-effort when authenticated,
// then unconditionally resets the session to anonymous defaults.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	wasAuth := m.authenticated
	m.mu.Unlock()

	if wasAuth {
		if err := m.client.Post(ctx, api.EndpointLogout, nil, nil); err != nil {
			m.logger.WithError(err).Warn("remote logout failed, resetting locally anyway")
		}
	}
	m.resetToAnonymous(EventLoggedOut)
}

// Register posts the registration payload. It does not authenticate.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	m.begin()
	var env api.Envelope[Identity]
	err := m.client.Post(ctx, api.EndpointRegister, reg, &env)
	m.finish(err)
	return err
}

// GetProfile fetches the current identity using the ambient credential.
// An elapsed block window is cleared before the fetch so a recovered
// account can re-validate instead of being rejected locally.
func (m *Manager) GetProfile(ctx context.Context) error {
	m.clearElapsedBlock()
	m.begin()

	var env api.Envelope[Identity]
	err := m.client.Get(ctx, api.EndpointProfile, &env)
	if err == nil && env.Data == nil {
		err = errors.New(errors.KindServer, "profile response missing user payload")
	}
	if err != nil {
		m.finish(err)
		return err
	}

	m.adoptIdentity(*env.Data)
	return nil
}

// CheckAuth validates the ambient credential, falling back to a refresh
// when the profile fetch fails. Only when that fallback also fails is the
// session cleared (the refresh failure path has already done so).
func (m *Manager) CheckAuth(ctx context.Context) error {
	m.clearElapsedBlock()

	err := m.GetProfile(ctx)
	if err == nil {
		return nil
	}
	if m.RefreshToken(ctx) {
		m.ClearError()
		return nil
	}
	return err
}

// RefreshToken exchanges the ambient refresh credential for a renewed
// session. Concurrent callers share a single in-flight attempt. On failure
// the session resets to anonymous and the expired handler fires.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	ok, _, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx), nil
	})
	return ok.(bool)
}

func (m *Manager) doRefresh(ctx context.Context) bool {
	var env api.Envelope[Identity]
	err := m.client.Post(ctx, api.EndpointRefreshToken, nil, &env)
	if err == nil && env.Data == nil {
		err = errors.New(errors.KindServer, "refresh response missing user payload")
	}
	if err != nil {
		m.logger.WithError(err).Info("credential refresh failed, session expired")
		m.resetToAnonymous(EventExpired)

		m.expiredMu.RLock()
		handler := m.onExpired
		m.expiredMu.RUnlock()
		if handler != nil {
			handler()
		}
		return false
	}

	m.adoptIdentity(*env.Data)
	m.logger.Debug("credential refreshed", "user_id", env.Data.ID)
	return true
}

// VerifyEmail confirms the address behind the emailed token and patches the
// held identity's verification flag.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	m.begin()
	var env api.Envelope[struct{}]
	err := m.client.Get(ctx, api.EndpointVerify+"/"+token, &env)
	if err != nil {
		m.finish(err)
		return err
	}

	m.mu.Lock()
	m.loading = false
	verified := true
	m.verified = &verified
	if m.identity != nil {
		m.identity.EmailVerified = true
	}
	m.mu.Unlock()

	m.persistSession()
	return nil
}

// ResendVerification asks the server to re-send the verification mail.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	return m.fireAndRecord(ctx, api.EndpointResendVerification, map[string]string{"email": email})
}

// ForgotPassword starts the password-reset flow for the address.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	return m.fireAndRecord(ctx, api.EndpointForgotPassword, map[string]string{"email": email})
}

// ResetPassword completes the password-reset flow with the emailed token.
func (m *Manager) ResetPassword(ctx context.Context, token, password string) error {
	return m.fireAndRecord(ctx, api.EndpointResetPassword+"/"+token, map[string]string{"password": password})
}

// ApplyIdentityPatch is the sanctioned cross-boundary write: when a users
// cache mutation touched the signed-in user, the synchronizer patches the
// overlapping fields here instead of issuing an extra profile fetch. The
// patch is ignored unless targetID matches the current identity.
func (m *Manager) ApplyIdentityPatch(targetID string, patch IdentityPatch) {
	m.mu.Lock()
	if m.identity == nil || m.identity.ID != targetID {
		m.mu.Unlock()
		return
	}
	if patch.Username != "" {
		m.identity.Username = patch.Username
	}
	if patch.Email != "" {
		m.identity.Email = patch.Email
	}
	if patch.Role != "" {
		m.identity.Role = patch.Role
	}
	identityCopy := copyIdentity(m.identity)
	m.mu.Unlock()

	m.persistSession()
	m.emit(Event{Type: EventIdentityPatched, WasAuthenticated: true, Authenticated: true, Identity: identityCopy})
}

// RefreshToken makes Manager satisfy transport.Refresher.
var _ transport.Refresher = (*Manager)(nil)

func (m *Manager) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = ""
	m.loading = true
}

func (m *Manager) finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		m.err = messageOf(err)
	}
}

// fireAndRecord posts a payload whose outcome only toggles loading/error.
func (m *Manager) fireAndRecord(ctx context.Context, path string, body any) error {
	m.begin()
	var env api.Envelope[struct{}]
	err := m.client.Post(ctx, path, body, &env)
	m.finish(err)
	return err
}

// adoptIdentity installs a server-confirmed identity and emits the
// transition event when the session just became authenticated.
func (m *Manager) adoptIdentity(user Identity) {
	verified := user.EmailVerified

	m.mu.Lock()
	was := m.authenticated
	m.loading = false
	m.err = ""
	m.identity = &user
	m.authenticated = true
	m.verified = &verified
	m.blocked = false
	m.blockedUntil = nil
	identityCopy := copyIdentity(m.identity)
	m.mu.Unlock()

	m.persistSession()
	if !was {
		m.emit(Event{Type: EventRefreshed, WasAuthenticated: false, Authenticated: true, Identity: identityCopy})
	}
}

// resetToAnonymous restores the anonymous defaults, drops the persisted
// session, and emits the transition.
func (m *Manager) resetToAnonymous(evType EventType) {
	m.mu.Lock()
	was := m.authenticated
	m.identity = nil
	m.authenticated = false
	m.loading = false
	m.err = ""
	m.verified = nil
	m.blocked = false
	m.blockedUntil = nil
	m.mu.Unlock()

	if m.persist != nil {
		m.persist.Delete(state.BlobSession)
	}
	m.emit(Event{Type: evType, WasAuthenticated: was, Authenticated: false})
}

// clearElapsedBlock lifts the blocked state once the window has passed.
func (m *Manager) clearElapsedBlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blocked && m.blockedUntil != nil && time.Now().After(*m.blockedUntil) {
		m.blocked = false
		m.blockedUntil = nil
		m.logger.Debug("blocked window elapsed, re-validating")
	}
}

func (m *Manager) persistSession() {
	if m.persist == nil {
		return
	}
	m.mu.Lock()
	saved := persistedSession{
		Identity:      copyIdentity(m.identity),
		Authenticated: m.authenticated,
		Verified:      copyBool(m.verified),
	}
	m.mu.Unlock()
	m.persist.Save(state.BlobSession, saved)
}

func messageOf(err error) string {
	if e, ok := errors.As(err); ok {
		return e.Message
	}
	return err.Error()
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
