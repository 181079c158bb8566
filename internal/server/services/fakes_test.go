package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/mail"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/contacts"
	usersrepo "github.com/dmitrijs2005/contactbook/internal/server/repositories/users"
)

// fakeUsersRepo is an in-memory user store with injectable failures.
type fakeUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.User

	getErr     error
	createErr  error
	confirmErr error

	confirmCalls int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byEmail: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, &common.UniqueViolationError{Field: "email", Constraint: "users_email_key"}
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = "id-" + cp.UserName
	}
	f.byEmail[cp.Email] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byEmail {
		if u.UserName == userName {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) MarkConfirmed(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++
	if f.confirmErr != nil {
		return f.confirmErr
	}
	if u, ok := f.byEmail[email]; ok {
		u.Confirmed = true
	}
	return nil
}

// fakeContactsRepo keeps contacts in memory, keyed by id.
type fakeContactsRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Contact

	lastFilter contacts.Filter
	err        error
	locked     []int64
}

func newFakeContactsRepo() *fakeContactsRepo {
	return &fakeContactsRepo{rows: map[int64]*models.Contact{}}
}

func (f *fakeContactsRepo) put(c *models.Contact) *models.Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *c
	cp.ID = f.nextID
	f.rows[cp.ID] = &cp
	return &cp
}

func (f *fakeContactsRepo) owned(userID string, id int64) (*models.Contact, error) {
	c, ok := f.rows[id]
	if !ok || c.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeContactsRepo) Create(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	for _, existing := range f.rows {
		if existing.UserID == c.UserID && existing.Phone == c.Phone {
			f.mu.Unlock()
			return nil, &common.UniqueViolationError{Field: "phone", Constraint: "contacts_user_phone_key"}
		}
	}
	f.mu.Unlock()
	return f.put(c), nil
}

func (f *fakeContactsRepo) List(ctx context.Context, userID string, filter contacts.Filter) ([]*models.Contact, error) {
	f.mu.Lock()
	f.lastFilter = filter
	f.mu.Unlock()
	return f.ListAll(ctx, userID)
}

func (f *fakeContactsRepo) ListAll(ctx context.Context, userID string) ([]*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Contact{}
	for _, c := range f.rows {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeContactsRepo) Get(ctx context.Context, userID string, id int64) (*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.owned(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactsRepo) GetForUpdate(ctx context.Context, userID string, id int64) (*models.Contact, error) {
	f.mu.Lock()
	f.locked = append(f.locked, id)
	f.mu.Unlock()
	return f.Get(ctx, userID, id)
}

func (f *fakeContactsRepo) Update(ctx context.Context, c *models.Contact) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(c.UserID, c.ID); err != nil {
		return nil, err
	}
	cp := *c
	f.rows[c.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeContactsRepo) Delete(ctx context.Context, userID string, id int64) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.owned(userID, id)
	if err != nil {
		return nil, err
	}
	delete(f.rows, id)
	return c, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeContactsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Contacts(db dbx.DBTX) contacts.Repository     { return m.c }

// fakeSender records confirmation requests instead of queueing them.
type fakeSender struct {
	mu   sync.Mutex
	reqs []mail.ConfirmationRequest
}

func (s *fakeSender) Enqueue(req mail.ConfirmationRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return true
}

func (s *fakeSender) sent() []mail.ConfirmationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.ConfirmationRequest(nil), s.reqs...)
}
