package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"profiles/internal/config"
	"profiles/internal/database"
	"profiles/internal/handlers"
	"profiles/internal/middleware"
	"profiles/internal/repositories"
	"profiles/internal/services"
	"profiles/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewApp builds the Fiber app with every route registered.
func NewApp(service *services.UserService, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "profiles",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))

	handlers.NewHealthHandler(service).RegisterRoutes(app)
	handlers.NewUserHandler(service, logger).RegisterRoutes(app)

	return app
}

// Server owns the HTTP app and the resources it was built from.
type Server struct {
	cfg    config.Config
	logger *zap.Logger
	app    *fiber.App
	db     *gorm.DB
	mq     *rabbitmq.Client
}

// New connects to the database (and the broker when configured) and builds
// the app. It fails without listening if the database is unreachable.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	repo, err := s.openRepository(ctx)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithPasswordHashing(cfg.HashPasswords),
	}
	if cfg.EventsEnabled() {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.UserEventsQueue}, logger)
		if err != nil {
			s.close()
			return nil, err
		}
		s.mq = mq
		opts = append(opts, services.WithEvents(mq))
	}

	s.app = NewApp(services.NewUserService(repo, opts...), logger)
	return s, nil
}

func (s *Server) openRepository(ctx context.Context) (repositories.UserRepository, error) {
	if s.cfg.DatabaseDriver == config.DriverMemory {
		s.logger.Warn("Using in-memory user storage; data is lost on exit")
		return repositories.NewMockUserRepository(), nil
	}

	db, err := database.Open(ctx, s.cfg.DatabaseDriver, s.cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	s.db = db
	s.logger.Info("Connection Successful.", zap.String("driver", s.cfg.DatabaseDriver))
	return repositories.NewGORMUserRepository(db), nil
}

// Start listens until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	defer s.close()

	listenErr := make(chan error, 1)
	go func() {
		s.logger.Info("App listening", zap.String("addr", s.cfg.AppPort))
		listenErr <- s.app.Listen(s.cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	s.logger.Info("Shutting down server...")
	if err := s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	s.logger.Info("Server gracefully stopped")
	return nil
}

func (s *Server) close() {
	var errs []error
	if s.mq != nil {
		errs = append(errs, s.mq.Close())
	}
	if s.db != nil {
		errs = append(errs, database.Close(s.db))
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Error releasing resources", zap.Error(err))
	}
}
