package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"kasbook/backend/internal/domain"
	"kasbook/backend/internal/store"
	"kasbook/backend/internal/xid"
)

type NewContact struct {
	Type    domain.ContactType `json:"type"`
	Name    string             `json:"name"`
	Phone   string             `json:"phone,omitempty"`
	Address string             `json:"address,omitempty"`
}

type ContactUpdate struct {
	Type    *domain.ContactType `json:"type,omitempty"`
	Name    *string             `json:"name,omitempty"`
	Phone   *string             `json:"phone,omitempty"`
	Address *string             `json:"address,omitempty"`
}

type Contacts struct {
	mu       sync.Mutex
	contacts *store.Collection[domain.Contact]
	deps     Deps
}

func NewContacts(contacts *store.Collection[domain.Contact], deps Deps) *Contacts {
	return &Contacts{contacts: contacts, deps: deps.withDefaults()}
}

func (s *Contacts) Create(ctx context.Context, in NewContact) (domain.Contact, error) {
	if in.Type == "" {
		in.Type = domain.ContactClient
	}
	if err := validateContact(in.Type, in.Name); err != nil {
		return domain.Contact{}, s.deps.fail(err, "invalid contact")
	}

	now := s.deps.Now()
	c := domain.Contact{
		ID:        domain.ContactID(xid.New("ct")),
		Type:      in.Type,
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.contacts.Get(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	if err := s.contacts.Save(ctx, append(all, c)); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (s *Contacts) Update(ctx context.Context, id domain.ContactID, req ContactUpdate) (domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.contacts.Get(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	idx := indexOfContact(all, id)
	if idx < 0 {
		return domain.Contact{}, s.deps.fail(domain.ErrNotFound, "contact not found")
	}

	c := all[idx]
	if req.Type != nil {
		c.Type = *req.Type
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		c.Address = strings.TrimSpace(*req.Address)
	}
	if err := validateContact(c.Type, c.Name); err != nil {
		return domain.Contact{}, s.deps.fail(err, "invalid contact")
	}
	c.UpdatedAt = s.deps.Now()
	all[idx] = c

	if err := s.contacts.Save(ctx, all); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (s *Contacts) Delete(ctx context.Context, id domain.ContactID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.contacts.Get(ctx)
	if err != nil {
		return err
	}
	idx := indexOfContact(all, id)
	if idx < 0 {
		return s.deps.fail(domain.ErrNotFound, "contact not found")
	}
	return s.contacts.Save(ctx, append(all[:idx], all[idx+1:]...))
}

func (s *Contacts) GetByID(ctx context.Context, id domain.ContactID) (domain.Contact, error) {
	all, err := s.contacts.Get(ctx)
	if err != nil {
		return domain.Contact{}, err
	}
	if idx := indexOfContact(all, id); idx >= 0 {
		return all[idx], nil
	}
	return domain.Contact{}, s.deps.fail(domain.ErrNotFound, "contact not found")
}

func (s *Contacts) List(ctx context.Context, filter domain.ContactFilter) ([]domain.Contact, error) {
	all, err := s.contacts.Get(ctx)
	if err != nil {
		return nil, err
	}

	search := normalizeSearch(filter.SearchTerm)
	out := make([]domain.Contact, 0, len(all))
	for _, c := range all {
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if search != "" && !containsFold(c.Name, search) && !containsFold(c.Phone, search) && !containsFold(c.Address, search) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// FindByName matches the whole name, ignoring case. An empty typ matches any
// type. A miss is not reported.
func (s *Contacts) FindByName(ctx context.Context, name string, typ domain.ContactType) (domain.Contact, bool, error) {
	all, err := s.contacts.Get(ctx)
	if err != nil {
		return domain.Contact{}, false, err
	}
	name = strings.TrimSpace(name)
	for _, c := range all {
		if strings.EqualFold(c.Name, name) && (typ == "" || c.Type == typ) {
			return c, true, nil
		}
	}
	return domain.Contact{}, false, nil
}

func validateContact(typ domain.ContactType, name string) error {
	var v domain.Validation
	v.Check(typ.Valid(), "type", "must be client or supplier")
	v.Check(strings.TrimSpace(name) != "", "name", "is required")
	return v.Err()
}

func indexOfContact(all []domain.Contact, id domain.ContactID) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
