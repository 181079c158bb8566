// Package http exposes the auth workflow and the contacts resource as a JSON
// API over gorilla/mux.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/metrics"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// AuthService is the subset of services.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput, baseURL string) (*models.User, error)
	Login(ctx context.Context, userName, password string) (*services.AccessToken, error)
	ConfirmEmail(ctx context.Context, token string) (services.ConfirmResult, error)
	RequestConfirmation(ctx context.Context, email, baseURL string) (services.ResendResult, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// ContactService is the subset of services.ContactService the handlers use.
type ContactService interface {
	Create(ctx context.Context, ownerID string, in services.ContactInput) (*models.Contact, error)
	List(ctx context.Context, ownerID string, f services.ContactFilter) ([]*models.Contact, error)
	Get(ctx context.Context, ownerID string, id int64) (*models.Contact, error)
	Update(ctx context.Context, ownerID string, id int64, in services.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, ownerID string, id int64) (*models.Contact, error)
	UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]*models.Contact, error)
}

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address       string
	publicBaseURL string
	auth          AuthService
	contacts      ContactService
	db            Pinger
	metrics       *metrics.Metrics
	logger        logging.Logger
}

func NewServer(address, publicBaseURL string, a AuthService, c ContactService, db Pinger,
	m *metrics.Metrics, l logging.Logger) *Server {
	return &Server{
		address:       address,
		publicBaseURL: publicBaseURL,
		auth:          a,
		contacts:      c,
		db:            db,
		metrics:       m,
		logger:        l.With("module", "http_server"),
	}
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware, s.metricsMiddleware, s.recoveryMiddleware)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/login", s.login).Methods(http.MethodPost)
	a.HandleFunc("/confirmed_email/{token}", s.confirmEmail).Methods(http.MethodGet)
	a.HandleFunc("/request_email", s.requestEmail).Methods(http.MethodPost)

	p := r.NewRoute().Subrouter()
	p.Use(s.authMiddleware)
	p.HandleFunc("/users/me", s.me).Methods(http.MethodGet)
	p.HandleFunc("/contacts", s.listContacts).Methods(http.MethodGet)
	p.HandleFunc("/contacts", s.createContact).Methods(http.MethodPost)
	p.HandleFunc("/contacts/birthdays", s.birthdays).Methods(http.MethodGet)
	p.HandleFunc("/contacts/{id:[0-9]+}", s.getContact).Methods(http.MethodGet)
	p.HandleFunc("/contacts/{id:[0-9]+}", s.updateContact).Methods(http.MethodPut)
	p.HandleFunc("/contacts/{id:[0-9]+}", s.deleteContact).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully. It returns
// once in-flight requests have completed or the shutdown timeout expired.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Serve returns as soon as Shutdown starts; in-flight requests finish later.
	<-shutdownDone
	return nil
}
