package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
)

const (
	DefaultListLimit      = 100
	MaxListLimit          = 1000
	DefaultBirthdayWindow = 7
	MaxBirthdayWindow     = 365
)

// ContactFilter selects a page of contacts. Zero Limit means DefaultListLimit.
type ContactFilter struct {
	Name    string
	Surname string
	Email   string
	Skip    int
	Limit   int
}

// ContactService manages the address book of a single owner per call.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ContactService {
	return &ContactService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "contacts"),
		now:         time.Now,
	}
}

func (s *ContactService) Create(ctx context.Context, ownerID string, in ContactInput) (*models.Contact, error) {
	in.Normalize()
	if err := in.validate(s.now()); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Contacts(s.db).Create(ctx, contactFromInput(ownerID, 0, in))
	if err != nil {
		return nil, s.mapError(ctx, "create contact", err)
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context, ownerID string, f ContactFilter) ([]*models.Contact, error) {
	if f.Skip < 0 {
		return nil, common.NewValidationError("skip", "must not be negative")
	}
	switch {
	case f.Limit < 0:
		return nil, common.NewValidationError("limit", "must not be negative")
	case f.Limit == 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}

	list, err := s.repomanager.Contacts(s.db).List(ctx, ownerID, contacts.Filter{
		Name:    f.Name,
		Surname: f.Surname,
		Email:   f.Email,
		Skip:    f.Skip,
		Limit:   f.Limit,
	})
	if err != nil {
		return nil, s.mapError(ctx, "list contacts", err)
	}
	return list, nil
}

func (s *ContactService) Get(ctx context.Context, ownerID string, id int64) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).Get(ctx, ownerID, id)
	if err != nil {
		return nil, s.mapError(ctx, "get contact", err)
	}
	return c, nil
}

// Update replaces the contact's fields. The row is locked for the duration
// of the transaction so concurrent updates apply one after the other.
func (s *ContactService) Update(ctx context.Context, ownerID string, id int64, in ContactInput) (*models.Contact, error) {
	in.Normalize()
	if err := in.validate(s.now()); err != nil {
		return nil, err
	}

	var updated *models.Contact
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contacts(tx)

		if _, err := repo.GetForUpdate(ctx, ownerID, id); err != nil {
			return err
		}

		var err error
		updated, err = repo.Update(ctx, contactFromInput(ownerID, id, in))
		return err
	})
	if err != nil {
		return nil, s.mapError(ctx, "update contact", err)
	}
	return updated, nil
}

// Delete removes the contact and returns what was removed.
func (s *ContactService) Delete(ctx context.Context, ownerID string, id int64) (*models.Contact, error) {
	c, err := s.repomanager.Contacts(s.db).Delete(ctx, ownerID, id)
	if err != nil {
		return nil, s.mapError(ctx, "delete contact", err)
	}
	return c, nil
}

// UpcomingBirthdays returns contacts whose next birthday falls within the
// next days days, today included, ordered by that date.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]*models.Contact, error) {
	if days < 0 || days > MaxBirthdayWindow {
		return nil, common.NewValidationError("days", "must be between 0 and 365")
	}

	all, err := s.repomanager.Contacts(s.db).ListAll(ctx, ownerID)
	if err != nil {
		return nil, s.mapError(ctx, "list contacts", err)
	}

	today := dateOf(s.now())
	last := today.AddDate(0, 0, days)

	type entry struct {
		contact *models.Contact
		next    time.Time
	}
	var upcoming []entry
	for _, c := range all {
		next := nextBirthday(c.Birthday, today)
		if !next.After(last) {
			upcoming = append(upcoming, entry{c, next})
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].next.Before(upcoming[j].next)
	})

	result := make([]*models.Contact, 0, len(upcoming))
	for _, e := range upcoming {
		result = append(result, e.contact)
	}
	return result, nil
}

// nextBirthday is the first anniversary of birthday on or after today.
func nextBirthday(birthday, today time.Time) time.Time {
	next := birthdayIn(birthday, today.Year())
	if next.Before(today) {
		next = birthdayIn(birthday, today.Year()+1)
	}
	return next
}

// birthdayIn places birthday in year; Feb 29 falls on Mar 1 in common years.
func birthdayIn(birthday time.Time, year int) time.Time {
	month, day := birthday.Month(), birthday.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		month, day = time.March, 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func contactFromInput(ownerID string, id int64, in ContactInput) *models.Contact {
	return &models.Contact{
		ID:       id,
		UserID:   ownerID,
		Name:     in.Name,
		Surname:  in.Surname,
		Email:    in.Email,
		Phone:    in.Phone,
		Birthday: in.Birthday,
		Info:     in.Info,
	}
}

func (s *ContactService) mapError(ctx context.Context, op string, err error) error {
	var uv *common.UniqueViolationError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	case errors.As(err, &uv):
		return common.NewConflictError(uv.Field)
	default:
		s.logger.Error(ctx, op, "error", err)
		return common.ErrorInternal
	}
}
