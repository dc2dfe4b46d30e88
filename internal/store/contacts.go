package store

import (
	"context"
	"time"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/log"
	"github.com/felixgeelhaar/bizdir/internal/transport"
)

// Contact is an inquiry sent to a company.
type Contact struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntityID implements Entity.
func (c Contact) EntityID() string { return c.ID }

// ContactInput is the send payload.
type ContactInput struct {
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// Contacts is the inquiry cache store.
type Contacts struct {
	*cache[Contact]

	client *transport.Client
	roles  RoleSource
	logger *log.Logger
}

// NewContacts creates the contact store.
func NewContacts(client *transport.Client, roles RoleSource, logger *log.Logger) *Contacts {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Contacts{
		cache:  newCache[Contact](),
		client: client,
		roles:  roles,
		logger: logger,
	}
}

// GetAll fetches every inquiry into the "all" view.
func (s *Contacts) GetAll(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointContacts, params, ViewAll)
}

// GetMine fetches the caller's own inquiries into the "mine" view.
func (s *Contacts) GetMine(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointContacts+"/mine", params, ViewMine)
}

// GetByID fetches one inquiry into the selection.
func (s *Contacts) GetByID(ctx context.Context, id string) error {
	s.begin()
	var env api.Envelope[Contact]
	if err := s.client.Get(ctx, api.EndpointContacts+"/"+id, &env); err != nil {
		s.fail(messageOf(err))
		return err
	}
	if env.Data == nil {
		err := errors.New(errors.KindNotFound, "contact not found")
		s.fail(err.Message)
		return err
	}
	s.setSelected(*env.Data)
	return nil
}

// Send posts a new inquiry and appends it after server confirmation.
func (s *Contacts) Send(ctx context.Context, input ContactInput) (*Contact, error) {
	s.begin()
	var env api.Envelope[Contact]
	if err := s.client.Post(ctx, api.EndpointContacts, input, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "send response missing contact")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmCreate(*env.Data)
	return env.Data, nil
}

// UpdateStatus moves an inquiry through its workflow. Admin-gated.
func (s *Contacts) UpdateStatus(ctx context.Context, id, status string) (*Contact, error) {
	if !s.roles.Role().CanAdministrate() {
		return nil, errors.NewForbiddenLocal("update contact status")
	}
	s.begin()
	var env api.Envelope[Contact]
	if err := s.client.Patch(ctx, api.EndpointContacts+"/"+id+"/status", map[string]string{"status": status}, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "status response missing contact")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	return env.Data, nil
}

// Remove deletes an inquiry and drops it from the cache on confirmation.
func (s *Contacts) Remove(ctx context.Context, id string) error {
	s.begin()
	if err := s.client.Delete(ctx, api.EndpointContacts+"/"+id, nil); err != nil {
		s.fail(messageOf(err))
		return err
	}
	s.confirmRemove(id)
	return nil
}

func (s *Contacts) fetchList(ctx context.Context, path string, params api.Params, viewKey string) error {
	s.begin()
	var env api.Envelope[[]Contact]
	if err := s.client.Get(ctx, path+params.Encode(), &env); err != nil {
		s.fail(messageOf(err))
		return err
	}
	s.setList(viewKey, listOf(env.Data), env.Meta)
	return nil
}
