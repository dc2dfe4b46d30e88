// Package syncer keeps the entity caches coherent with the session.
//
// It is the one component allowed to react across store boundaries: it
// primes caches when a session becomes authenticated, wipes them when it
// ends so the next identity never sees stale data, and back-propagates
// users-cache edits onto the live identity through the session manager's
// sanctioned patch entry point.
package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/bizdir/internal/log"
	"github.com/felixgeelhaar/bizdir/internal/session"
	"github.com/felixgeelhaar/bizdir/internal/store"
)

// Syncer subscribes to session transitions and user-cache mutations.
type Syncer struct {
	ctx       context.Context
	session   *session.Manager
	companies *store.Companies
	users     *store.Users
	contacts  *store.Contacts
	logger    *log.Logger

	// wg tracks in-flight cache priming so callers can wait for the
	// initial loads to settle.
	wg sync.WaitGroup
}

// New wires a Syncer into the session manager and the users store.
// Call once at process start, before traffic.
func New(ctx context.Context, sess *session.Manager, companies *store.Companies, users *store.Users, contacts *store.Contacts, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	s := &Syncer{
		ctx:       ctx,
		session:   sess,
		companies: companies,
		users:     users,
		contacts:  contacts,
		logger:    logger,
	}
	sess.Subscribe(s.onSessionEvent)
	users.OnMutation(s.onUserMutation)
	return s
}

// Wait blocks until any in-flight cache priming has settled.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func (s *Syncer) onSessionEvent(ev session.Event) {
	switch {
	case ev.Authenticated && !ev.WasAuthenticated:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.primeCaches()
		}()
	case !ev.Authenticated && ev.WasAuthenticated:
		s.wipeCaches()
	}
}

// primeCaches triggers each store's default fetch, once per store: views
// already loaded are left alone.
func (s *Syncer) primeCaches() {
	g, ctx := errgroup.WithContext(s.ctx)

	if !s.companies.ViewState(store.ViewAll).Loaded {
		g.Go(func() error { return s.companies.GetAll(ctx, nil) })
	}
	if !s.users.ViewState(store.ViewAll).Loaded {
		g.Go(func() error { return s.users.GetAll(ctx, nil) })
	}
	if !s.contacts.ViewState(store.ViewMine).Loaded {
		g.Go(func() error { return s.contacts.GetMine(ctx, nil) })
	}

	if err := g.Wait(); err != nil {
		// Priming is best-effort; the stores hold their own errors and
		// the views load lazily on next access.
		s.logger.WithError(err).Warn("initial cache load incomplete")
	}
}

// wipeCaches resets every dependent store to its empty initial state.
func (s *Syncer) wipeCaches() {
	s.companies.Reset()
	s.users.Reset()
	s.contacts.Reset()
	s.logger.Debug("caches wiped on session end")
}

// onUserMutation back-propagates edits to the signed-in user onto the live
// identity, patching only the overlapping fields, without an extra fetch.
func (s *Syncer) onUserMutation(u store.User) {
	identity := s.session.Identity()
	if identity == nil || identity.ID != u.ID {
		return
	}
	s.session.ApplyIdentityPatch(u.ID, session.IdentityPatch{
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	})
	s.logger.Debug("identity back-propagated from users cache", "user_id", u.ID)
}
