package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/log"
	"github.com/felixgeelhaar/bizdir/internal/state"
	"github.com/felixgeelhaar/bizdir/internal/transport"
)

// Company is a directory listing.
type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	TypeID      string    `json:"typeId"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	Premium     bool      `json:"premium"`
	Verified    bool      `json:"verified"`
	Blocked     bool      `json:"blocked"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EntityID implements Entity.
func (c Company) EntityID() string { return c.ID }

// CompanyInput is the create/update payload.
type CompanyInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	TypeID      string `json:"typeId"`
	Description string `json:"description,omitempty"`
}

// CompanyType is one entry of the slow-changing type taxonomy.
type CompanyType struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Filters narrows the derived Visible view. Zero values mean "no
// constraint".
type Filters struct {
	TypeID    string
	Premium   *bool
	Verified  *bool
	MinRating float64
	Query     string
}

// SortOrder orders the derived Visible view.
type SortOrder string

const (
	SortNone     SortOrder = ""
	SortByName   SortOrder = "name"
	SortByRating SortOrder = "rating"
	SortNewest   SortOrder = "newest"
)

// Companies is the company cache store.
type Companies struct {
	*cache[Company]

	client  *transport.Client
	roles   RoleSource
	persist *state.Store
	logger  *log.Logger

	filters Filters
	order   SortOrder
}

// NewCompanies creates the company store.
func NewCompanies(client *transport.Client, roles RoleSource, persist *state.Store, logger *log.Logger) *Companies {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Companies{
		cache:   newCache[Company](),
		client:  client,
		roles:   roles,
		persist: persist,
		logger:  logger,
	}
}

// GetAll fetches the default listing into the "all" view.
func (s *Companies) GetAll(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointCompanies, params, ViewAll)
}

// GetMine fetches the caller's own companies into the "mine" view.
func (s *Companies) GetMine(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointCompanies+"/mine", params, ViewMine)
}

// GetPremium fetches the premium listing.
func (s *Companies) GetPremium(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointPremiumCompanies, params, ViewPremium)
}

// GetVerified fetches the verified listing.
func (s *Companies) GetVerified(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointVerifiedCompanies, params, ViewVerified)
}

// GetTopRated fetches the top-rated listing.
func (s *Companies) GetTopRated(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointTopRated, params, ViewTopRated)
}

// GetBlocked fetches the blocked listing.
func (s *Companies) GetBlocked(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointBlockedCompanies, params, ViewBlocked)
}

// Search fetches a free-text search result.
func (s *Companies) Search(ctx context.Context, query string, params api.Params) error {
	if params == nil {
		params = api.Params{}
	}
	params["q"] = query
	return s.fetchList(ctx, api.EndpointSearch, params, ViewSearch)
}

// FilterList fetches an ad-hoc filtered listing. The view key is derived
// from the params, so repeating a filter reuses its slot.
func (s *Companies) FilterList(ctx context.Context, params api.Params) error {
	return s.fetchList(ctx, api.EndpointFilter, params, api.FilterViewKey(params))
}

// GetByID fetches one company into the selection.
func (s *Companies) GetByID(ctx context.Context, id string) error {
	return s.fetchOne(ctx, api.EndpointCompanies+"/"+id)
}

// GetBySlug fetches one company by its slug into the selection.
func (s *Companies) GetBySlug(ctx context.Context, slug string) error {
	return s.fetchOne(ctx, api.EndpointCompanies+"/slug/"+slug)
}

// Create posts a new company and appends it after server confirmation.
func (s *Companies) Create(ctx context.Context, input CompanyInput) (*Company, error) {
	s.begin()
	var env api.Envelope[Company]
	if err := s.client.Post(ctx, api.EndpointCompanies, input, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "create response missing company")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmCreate(*env.Data)
	return env.Data, nil
}

// Update puts changes to a company and replaces it by id everywhere it
// appears once the server confirms.
func (s *Companies) Update(ctx context.Context, id string, input CompanyInput) (*Company, error) {
	s.begin()
	var env api.Envelope[Company]
	if err := s.client.Put(ctx, api.EndpointCompanies+"/"+id, input, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "update response missing company")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	return env.Data, nil
}

// Remove deletes a company and drops it from the cache on confirmation.
func (s *Companies) Remove(ctx context.Context, id string) error {
	s.begin()
	if err := s.client.Delete(ctx, api.EndpointCompanies+"/"+id, nil); err != nil {
		s.fail(messageOf(err))
		return err
	}
	s.confirmRemove(id)
	return nil
}

// CheckSlug probes slug availability. This is a side-channel query wired to
// live-validation fields, so it deliberately bypasses the shared
// loading/error state; callers handle failure locally.
func (s *Companies) CheckSlug(ctx context.Context, candidate, excludeID string) (bool, error) {
	params := api.Params{"excludeId": excludeID}
	var env api.Envelope[struct {
		Available bool `json:"available"`
	}]
	err := s.client.Get(ctx, api.EndpointCompanies+"/slug/"+candidate+"/check"+params.Encode(), &env)
	if err != nil {
		return false, err
	}
	if env.Data == nil {
		return false, errors.New(errors.KindServer, "slug check response missing payload")
	}
	return env.Data.Available, nil
}

// SetBlocked toggles the moderation block. Admin-gated.
func (s *Companies) SetBlocked(ctx context.Context, id string, blocked bool) (*Company, error) {
	return s.adminPatch(ctx, "block company", api.EndpointCompanies+"/"+id+"/block",
		map[string]bool{"blocked": blocked})
}

// SetPremium toggles the premium flag. Admin-gated.
func (s *Companies) SetPremium(ctx context.Context, id string, premium bool) (*Company, error) {
	return s.adminPatch(ctx, "set premium flag", api.EndpointCompanies+"/"+id+"/premium",
		map[string]bool{"premium": premium})
}

// SetVerified toggles the verification status. Admin-gated.
func (s *Companies) SetVerified(ctx context.Context, id string, verified bool) (*Company, error) {
	return s.adminPatch(ctx, "set verification status", api.EndpointCompanies+"/"+id+"/verify",
		map[string]bool{"verified": verified})
}

// RecalculateStats asks the server to recompute the company's rating
// aggregates. Admin-gated.
func (s *Companies) RecalculateStats(ctx context.Context, id string) (*Company, error) {
	if !s.roles.Role().CanAdministrate() {
		return nil, errors.NewForbiddenLocal("recalculate stats")
	}
	s.begin()
	var env api.Envelope[Company]
	if err := s.client.Post(ctx, api.EndpointCompanies+"/"+id+"/recalculate-stats", nil, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "stats response missing company")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	return env.Data, nil
}

// GetTypes returns the company-type taxonomy, preferring the persisted
// reference blob and refreshing it from the server when empty.
func (s *Companies) GetTypes(ctx context.Context) ([]CompanyType, error) {
	var cached []CompanyType
	if s.persist != nil && s.persist.Load(state.BlobReference, &cached) && len(cached) > 0 {
		return cached, nil
	}

	var env api.Envelope[[]CompanyType]
	if err := s.client.Get(ctx, "/company-types", &env); err != nil {
		return nil, err
	}
	types := listOf(env.Data)
	if s.persist != nil {
		s.persist.Save(state.BlobReference, types)
	}
	return types, nil
}

// SetFilters replaces the derived-view filter state.
func (s *Companies) SetFilters(f Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// SetSort replaces the derived-view sort order.
func (s *Companies) SetSort(order SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = order
}

// Reset returns the store to its initial state, filters included.
func (s *Companies) Reset() {
	s.cache.Reset()
	s.mu.Lock()
	s.filters = Filters{}
	s.order = SortNone
	s.mu.Unlock()
}

// Visible recomputes the filtered, sorted projection of the current items
// on every call. Nothing is stored, so the result is always consistent with
// the latest fetch without an invalidation step.
func (s *Companies) Visible() []Company {
	s.mu.Lock()
	items := make([]Company, len(s.items))
	copy(items, s.items)
	filters := s.filters
	order := s.order
	s.mu.Unlock()

	out := items[:0]
	for _, c := range items {
		if filters.TypeID != "" && c.TypeID != filters.TypeID {
			continue
		}
		if filters.Premium != nil && c.Premium != *filters.Premium {
			continue
		}
		if filters.Verified != nil && c.Verified != *filters.Verified {
			continue
		}
		if filters.MinRating > 0 && c.Rating < filters.MinRating {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filters.Query)) {
			continue
		}
		out = append(out, c)
	}

	switch order {
	case SortByName:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortByRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out
}

func (s *Companies) fetchList(ctx context.Context, path string, params api.Params, viewKey string) error {
	s.begin()
	var env api.Envelope[[]Company]
	if err := s.client.Get(ctx, path+params.Encode(), &env); err != nil {
		s.fail(messageOf(err))
		return err
	}
	s.setList(viewKey, listOf(env.Data), env.Meta)
	return nil
}

func (s *Companies) fetchOne(ctx context.Context, path string) error {
	s.begin()
	var env api.Envelope[Company]
	if err := s.client.Get(ctx, path, &env); err != nil {
		s.fail(messageOf(err))
		return err
	}
	if env.Data == nil {
		err := errors.New(errors.KindNotFound, "company not found")
		s.fail(err.Message)
		return err
	}
	s.setSelected(*env.Data)
	return nil
}

func (s *Companies) adminPatch(ctx context.Context, action, path string, body any) (*Company, error) {
	if !s.roles.Role().CanAdministrate() {
		// Local mirror of the server's gate: fail fast, no round-trip.
		return nil, errors.NewForbiddenLocal(action)
	}
	s.begin()
	var env api.Envelope[Company]
	if err := s.client.Patch(ctx, path, body, &env); err != nil {
		s.fail(messageOf(err))
		return nil, err
	}
	if env.Data == nil {
		err := errors.New(errors.KindServer, "patch response missing company")
		s.fail(err.Message)
		return nil, err
	}
	s.confirmUpdate(*env.Data)
	return env.Data, nil
}

// messageOf extracts the server message for the store's error field,
// falling back to a generic message for non-taxonomy failures.
func messageOf(err error) string {
	if e, ok := errors.As(err); ok && e.Message != "" {
		return e.Message
	}
	return "request failed"
}

func listOf[T any](data *[]T) []T {
	if data == nil {
		return nil
	}
	return *data
}
