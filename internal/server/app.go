// Package server wires configuration, storage, services and transports into
// a runnable application and manages its lifecycle.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/mail"
	"github.com/dmitrijs2005/contactbook/internal/server/metrics"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/contactbook/internal/server/grpc"
	hs "github.com/dmitrijs2005/contactbook/internal/server/http"
)

const healthCheckInterval = 10 * time.Second

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	metrics        *metrics.Metrics
	mailer         mail.Mailer
	dispatcher     *mail.Dispatcher
	authService    *services.AuthService
	contactService *services.ContactService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "contactbook"),
	)
	m := metrics.New(registry)

	if c.SecretKey == c.EmailSecretKey {
		logger.Warn(context.Background(), "access and email token secrets are identical")
	}
	tokens := auth.NewTokenService(c.SecretKey, c.AccessTokenValidityDuration, c.EmailSecretKey, c.EmailTokenValidityDuration)

	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if c.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom)
	}

	dispatcher := mail.NewDispatcher(mail.NewConfirmationComposer(tokens), mailer,
		c.MailWorkers, c.MailQueueSize, c.MailSendTimeout, logger, m)

	as := services.NewAuthService(db, rm, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens, dispatcher, logger, m)
	cs := services.NewContactService(db, rm, logger)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		repomanager:    rm,
		metrics:        m,
		mailer:         mailer,
		dispatcher:     dispatcher,
		authService:    as,
		contactService: cs,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema, then serves HTTP and gRPC and delivers email
// until a signal arrives or one of the components fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	httpServer := hs.NewServer(app.config.EndpointAddrHTTP, app.config.PublicBaseURL,
		app.authService, app.contactService, app.db, app.metrics, app.logger)
	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db, healthCheckInterval)

	g, gctx := errgroup.WithContext(ctx)

	// The dispatcher outlives the HTTP server so mail enqueued by requests
	// finishing during shutdown is still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g.Go(func() error {
		return app.dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		defer stopDispatch()
		return httpServer.Run(gctx)
	})
	g.Go(func() error {
		return grpcServer.Run(gctx)
	})

	err := g.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return err
}
