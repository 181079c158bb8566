package contacts

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// Filter narrows List results. Empty strings match everything; the text
// filters are case-insensitive substring matches.
type Filter struct {
	Name    string
	Surname string
	Email   string
	Skip    int
	Limit   int
}

// Repository stores contacts. Every lookup is scoped to the owner; a contact
// owned by somebody else is reported as common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	List(ctx context.Context, userID string, filter Filter) ([]*models.Contact, error)
	ListAll(ctx context.Context, userID string) ([]*models.Contact, error)
	Get(ctx context.Context, userID string, id int64) (*models.Contact, error)
	GetForUpdate(ctx context.Context, userID string, id int64) (*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, userID string, id int64) (*models.Contact, error)
}
