package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/bizdir/internal/config"
	"github.com/felixgeelhaar/bizdir/internal/log"
	"github.com/felixgeelhaar/bizdir/internal/session"
	"github.com/felixgeelhaar/bizdir/internal/state"
	"github.com/felixgeelhaar/bizdir/internal/store"
	"github.com/felixgeelhaar/bizdir/internal/syncer"
	"github.com/felixgeelhaar/bizdir/internal/transport"
)

// app holds the wired service graph. Everything is constructed once at
// process start and passed by reference; there is no ambient global state
// beyond the default logger.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	client    *transport.Client
	session   *session.Manager
	companies *store.Companies
	users     *store.Users
	contacts  *store.Contacts
	syncer    *syncer.Syncer
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.Log.Level),
		Format: log.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})
	log.SetDefaultLogger(logger)

	client, err := transport.New(cfg.BaseURL, cfg.Timeout, logger)
	if err != nil {
		return nil, err
	}

	persist := state.New(cfg.StateDir, logger)
	sess := session.New(client, persist, logger)
	sess.SetExpiredHandler(func() {
		fmt.Fprintln(os.Stderr, "Session expired; run 'bizdir login' to sign in again.")
	})

	companies := store.NewCompanies(client, sess, persist, logger)
	users := store.NewUsers(client, sess, logger)
	contacts := store.NewContacts(client, sess, logger)
	sy := syncer.New(ctx, sess, companies, users, contacts, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		session:   sess,
		companies: companies,
		users:     users,
		contacts:  contacts,
		syncer:    sy,
	}, nil
}
