package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/mail"
	"github.com/dmitrijs2005/contactbook/internal/server/metrics"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
)

// ConfirmationSender queues a confirmation email. It must not block.
type ConfirmationSender interface {
	Enqueue(req mail.ConfirmationRequest) bool
}

type AccessToken struct {
	AccessToken string
	TokenType   string
}

type ConfirmResult int

const (
	ConfirmConfirmed ConfirmResult = iota
	ConfirmAlreadyConfirmed
)

type ResendResult int

const (
	ResendSent ResendResult = iota
	ResendAlreadyConfirmed
)

// AuthService drives a user through Unregistered -> Registered(unconfirmed)
// -> Confirmed and issues access tokens to confirmed users.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.Hasher
	tokens      *auth.TokenService
	sender      ConfirmationSender
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.Hasher, tokens *auth.TokenService,
	sender ConfirmationSender, logger logging.Logger, mt *metrics.Metrics) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		sender:      sender,
		logger:      logger.With("module", "auth"),
		metrics:     mt,
	}
}

// Register creates an unconfirmed user and schedules the confirmation email.
// The existence checks only produce a friendly error; concurrent registrations
// are settled by the store's unique constraints.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, baseURL string) (*models.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if taken, err := s.exists(ctx, repo.GetByEmail, in.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, common.NewConflictError("email")
	}

	if taken, err := s.exists(ctx, repo.GetByUsername, in.UserName); err != nil {
		return nil, err
	} else if taken {
		return nil, common.NewConflictError("username")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		return nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{
		UserName:       in.UserName,
		Email:          in.Email,
		HashedPassword: hash,
	})
	if err != nil {
		var uv *common.UniqueViolationError
		if errors.As(err, &uv) {
			field := uv.Field
			if field == "" {
				field = "user"
			}
			return nil, common.NewConflictError(field)
		}
		s.logger.Error(ctx, "create user", "error", err)
		return nil, common.ErrorInternal
	}

	s.metrics.AuthEvent(metrics.EventRegistered)
	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName)

	s.sendConfirmation(user, baseURL)

	return user, nil
}

func (s *AuthService) exists(ctx context.Context, get func(context.Context, string) (*models.User, error), key string) (bool, error) {
	_, err := get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		s.logger.Error(ctx, "user lookup", "error", err)
		return false, common.ErrorInternal
	}
}

func (s *AuthService) sendConfirmation(user *models.User, baseURL string) {
	s.sender.Enqueue(mail.ConfirmationRequest{
		Email:    user.Email,
		UserName: user.UserName,
		BaseURL:  baseURL,
	})
}

// Login returns an access token for a confirmed user. An unknown user and a
// wrong password yield the same error.
func (s *AuthService) Login(ctx context.Context, userName, password string) (*AccessToken, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.AuthEvent(metrics.EventLoginFailed)
			return nil, common.ErrAuthentication
		}
		s.logger.Error(ctx, "user lookup", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		s.metrics.AuthEvent(metrics.EventLoginFailed)
		return nil, common.ErrAuthentication
	}

	if !user.Confirmed {
		s.metrics.AuthEvent(metrics.EventLoginUnconfirmed)
		return nil, common.ErrUnconfirmedEmail
	}

	token, err := s.tokens.Issue(auth.PurposeAccess, user.UserName)
	if err != nil {
		s.logger.Error(ctx, "issue access token", "error", err)
		return nil, common.ErrorInternal
	}

	s.metrics.AuthEvent(metrics.EventLoginOK)
	return &AccessToken{AccessToken: token, TokenType: common.TokenTypeBearer}, nil
}

// ConfirmEmail marks the token's user as confirmed. A bad token and an
// unknown user are reported identically. Confirming twice is not an error.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (ConfirmResult, error) {
	email, err := s.tokens.Decode(token, auth.PurposeEmailVerification)
	if err != nil {
		s.logger.Debug(ctx, "confirmation token rejected", "error", err)
		return 0, common.ErrVerification
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrVerification
		}
		s.logger.Error(ctx, "user lookup", "error", err)
		return 0, common.ErrorInternal
	}

	if user.Confirmed {
		return ConfirmAlreadyConfirmed, nil
	}

	if err := repo.MarkConfirmed(ctx, email); err != nil {
		s.logger.Error(ctx, "mark confirmed", "error", err)
		return 0, common.ErrorInternal
	}

	s.metrics.AuthEvent(metrics.EventConfirmed)
	s.logger.Info(ctx, "email confirmed", "user_id", user.ID)
	return ConfirmConfirmed, nil
}

// RequestConfirmation re-sends the confirmation email to an unconfirmed user.
// Unknown addresses get ResendSent too, so the response does not reveal
// whether an email is registered.
func (s *AuthService) RequestConfirmation(ctx context.Context, email, baseURL string) (ResendResult, error) {
	if err := validateEmail(email); err != nil {
		return 0, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ResendSent, nil
		}
		s.logger.Error(ctx, "user lookup", "error", err)
		return 0, common.ErrorInternal
	}

	if user.Confirmed {
		return ResendAlreadyConfirmed, nil
	}

	s.metrics.AuthEvent(metrics.EventResend)
	s.sendConfirmation(user, baseURL)
	return ResendSent, nil
}

// CurrentUser resolves an access token to its user.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	userName, err := s.tokens.Decode(accessToken, auth.PurposeAccess)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, userName)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "user lookup", "error", err)
		}
		return nil, common.ErrorUnauthorized
	}

	return user, nil
}
