package users

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// Repository is the user store. Lookups return common.ErrorNotFound when no
// row matches; Create returns a *common.UniqueViolationError when the email
// or username is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, userName string) (*models.User, error)
	MarkConfirmed(ctx context.Context, email string) error
}
