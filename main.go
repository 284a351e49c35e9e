package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"socialhub/internal/auth"
	"socialhub/internal/config"
	"socialhub/internal/database"
	"socialhub/internal/handlers"
	"socialhub/internal/middleware"
	"socialhub/internal/repositories"
	"socialhub/internal/services"
	"socialhub/pkg/logger"
	"socialhub/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	srv, err := newServer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}
	defer srv.close()

	// --- Message event consumer ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if srv.mq != nil {
		if err := srv.mq.ConsumeMessageEvents(ctx, rabbitmq.LogMessageEvent(log)); err != nil {
			log.Error().Err(err).Msg("failed to start message event consumer")
		}
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.AppPort).Str("driver", cfg.DBDriver).Msg("starting server")
		if err := srv.app.Listen(cfg.AppPort); err != nil {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("shutting down server")

	if err := srv.app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error during fiber shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}

// server is the wired application plus the resources it must release.
type server struct {
	app     *fiber.App
	mq      *rabbitmq.Client
	log     zerolog.Logger
	closers []func() error
}

// newServer wires stores, token keyring, services and routes from cfg.
func newServer(cfg *config.Config, log zerolog.Logger) (*server, error) {
	srv := &server{log: log}
	checks := map[string]handlers.Check{}

	// --- Stores ---
	var (
		userRepo    repositories.UserRepository
		messageRepo repositories.MessageRepository
	)
	switch cfg.DBDriver {
	case config.DriverMemory:
		users := repositories.NewMemoryUserRepository()
		userRepo = users
		messageRepo = repositories.NewMemoryMessageRepository(users)
	default:
		db, err := database.Open(database.Config{
			Driver:  cfg.DBDriver,
			DSN:     cfg.DatabaseDSN,
			Verbose: logger.ParseLevel(cfg.LogLevel) <= zerolog.DebugLevel,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		srv.closers = append(srv.closers, sqlDB.Close)
		checks["database"] = sqlDB.PingContext
		userRepo = repositories.NewGORMUserRepository(db)
		messageRepo = repositories.NewGORMMessageRepository(db)
	}

	// --- Token keyring ---
	retired := make([]auth.Key, 0, len(cfg.RetiredKeys))
	for _, k := range cfg.RetiredKeys {
		retired = append(retired, auth.Key{ID: k.ID, Secret: []byte(k.Secret)})
	}
	tokens, err := auth.NewTokenManager(auth.Key{ID: cfg.JWTKeyID, Secret: []byte(cfg.JWTSecret)}, retired, cfg.JWTTTL)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("failed to build token keyring: %w", err)
	}

	// --- Events ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			srv.close()
			return nil, err
		}
		srv.mq = mq
		srv.closers = append(srv.closers, mq.Close)
		checks["rabbitmq"] = mq.Ping
		publisher = mq
	}

	// --- Services and handlers ---
	authService := services.NewAuthService(userRepo, auth.NewBcryptHasher(), tokens)
	messageService := services.NewMessageService(messageRepo, userRepo, publisher, log)

	app := fiber.New(fiber.Config{
		AppName:      "socialhub",
		ErrorHandler: handlers.ErrorHandler(log),
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	gate := middleware.AuthRequired(tokens, log)
	handlers.NewHealthHandler(checks).RegisterRoutes(app)
	handlers.NewAuthHandler(authService).RegisterRoutes(app, gate)
	handlers.NewMessageHandler(messageService).RegisterRoutes(app, gate)

	srv.app = app
	return srv, nil
}

// close releases resources in reverse order of acquisition.
func (s *server) close() {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		s.log.Error().Err(err).Msg("error releasing resources")
	}
}
