package store

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/authz"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/log"
	"github.com/felixgeelhaar/bizdir/internal/transport"
)

// User is a platform account as seen by the users endpoints.
type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          authz.Role `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Blocked       bool       `json:"blocked"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// EntityID implements Entity.
func (u User) EntityID() string { return u.ID }

// UserPatch is the update payload. Zero fields are omitted from the wire.
type UserPatch struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Users is the user cache store.
//
// Successful mutations are announced on a side-channel so the synchronizer
// can back-propagate edits to the signed-in identity without another fetch.
type Users struct {
	*cache[User]

	client *transport.Client
	roles  RoleSource
	logger *log.Logger

	hookMu     sync.RWMutex
	onMutation []func(User)
}

// NewUsers creates the user store.
func NewUsers(client *transport.Client, roles RoleSource, logger *log.Logger) *Users {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Users{
		cache:  newCache[User](),
		client: client,
		roles:  roles,
		logger: logger,
	}
}

// OnMutation registers a subscriber for confirmed user mutations. Wiring
// time only.
func (s *Users) OnMutation(fn func(User)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onMutation = append(s.onMutation, fn)
}

func (s *Users) announce(u User) {
	s.hookMu.RLock()
	hooks := make([]func(User), len(s.onMutation))
	copy(hooks, s.onMutation)
	s.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(u)
	}
}

// GetAll fetches the account listing into the "all" view.
func (s *Users) GetAll(ctx context.Context, params api.Params) error {
	s.begin()
	var env api.Envelope[[]User]
	if err := s.client.Get(ctx, api.EndpointUsers+params.Encode(), &env); err != nil {
		s.fail(messageOf(err))
		return err
	}
	s.setList(ViewAll, listOf(env.Data), env.Meta)
	return nil
}

// GetByID fetches one account into the selection.
func (s *Users) GetByID(ctx context.Context, id string) error {
	s.begin()
	var env api.Envelope[User]
	if err := s.client.Get(ctx, api.EndpointUsers+"/"+id, &env); err != nil {
		s.fail(messageOf(err))
		return err
	}
	if env.Data == nil {
		err := errors.New(errors.KindNotFound, "user not found")
		s.fail(err.Message)
		return err
	}
	s.setSelected(*env.Data)
	return nil
}

// Update puts profile changes to an account, replaces it by id on
// confirmation, and announces the mutation.
func (s *Users) Update(ctx context.Context, id string, patch UserPatch) (*User, error) {
	s.begin()
	var env api.Envelope[User]
	if err := s.client.Put(ctx, api.EndpointUsers+"/"+id, patch, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "update response missing user")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	s.announce(*env.Data)
	return env.Data, nil
}

// UpdateRole changes an account's role. Admin-gated; announces the
// mutation on success.
func (s *Users) UpdateRole(ctx context.Context, id string, role authz.Role) (*User, error) {
	if !s.roles.Role().CanAdministrate() {
		return nil, errors.NewForbiddenLocal("change user role")
	}
	s.begin()
	var env api.Envelope[User]
	if err := s.client.Patch(ctx, api.EndpointUsers+"/"+id+"/role", map[string]string{"role": string(role)}, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "role response missing user")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	s.announce(*env.Data)
	return env.Data, nil
}

// SetBlocked toggles an account's block flag. Admin-gated.
func (s *Users) SetBlocked(ctx context.Context, id string, blocked bool) (*User, error) {
	if !s.roles.Role().CanAdministrate() {
		return nil, errors.NewForbiddenLocal("block user")
	}
	s.begin()
	var env api.Envelope[User]
	if err := s.client.Patch(ctx, api.EndpointUsers+"/"+id+"/block", map[string]bool{"blocked": blocked}, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "block response missing user")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	return env.Data, nil
}

// Remove deletes an account. Admin-gated.
func (s *Users) Remove(ctx context.Context, id string) error {
	if !s.roles.Role().CanAdministrate() {
		return errors.NewForbiddenLocal("delete user")
	}
	s.begin()
	if err := s.client.Delete(ctx, api.EndpointUsers+"/"+id, nil); err != nil {
		s.fail(messageOf(err))
		return err
	}
	s.confirmRemove(id)
	return nil
}
