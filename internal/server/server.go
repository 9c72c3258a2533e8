// Package server
//
// @title Vector Skill Academy API
// @version 1.0
// @description Authentication and account API for the Vector Skill Academy platform
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vector-skill/academy/internal/auth"
	"github.com/vector-skill/academy/internal/config"
	"github.com/vector-skill/academy/internal/models"
	"github.com/vector-skill/academy/internal/phoneauth"
	"github.com/vector-skill/academy/internal/seed"
)

// taskEnqueuer is the slice of the asynq client the handlers need;
// tests substitute a fake so no Redis is required.
type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Server represents the HTTP server
type Server struct {
	router        *gin.Engine
	db            *gorm.DB
	config        *config.Config
	logger        zerolog.Logger
	validator     *validator.Validate
	asynqClient   *asynq.Client
	enqueue       taskEnqueuer
	phoneVerifier phoneauth.Verifier
	version       string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	auth.InitializeJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// First-boot admin accounts, applied only while the users table is empty
	if err := seed.Apply(db, cfg.Server.SeedFile, zlog); err != nil {
		return nil, err
	}

	validate := validator.New()

	// Optional phone field: +, digits, spaces and dashes, 7-15 digits total
	phoneValidation := func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		digits := 0
		for i, char := range value {
			switch {
			case char >= '0' && char <= '9':
				digits++
			case char == '+' && i == 0:
			case char == ' ' || char == '-':
			default:
				return false
			}
		}
		return digits >= 7 && digits <= 15
	}
	if err := validate.RegisterValidation("phone", phoneValidation); err != nil {
		return nil, fmt.Errorf("failed to register phone validation: %w", err)
	}
	// Request binding goes through Gin's validator instance, so the
	// custom tag has to be registered there as well.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("phone", phoneValidation); err != nil {
			return nil, fmt.Errorf("failed to register phone validation: %w", err)
		}
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	var phoneVerifier phoneauth.Verifier = phoneauth.Disabled{}
	if cfg.Phone.ProjectID != "" {
		phoneVerifier = phoneauth.NewGoogleVerifier(cfg.Phone.ProjectID)
	} else {
		zlog.Warn().Msg("FIREBASE_PROJECT_ID not set - phone login disabled")
	}

	server := &Server{
		db:            db,
		config:        cfg,
		logger:        zlog,
		validator:     validate,
		asynqClient:   asynqClient,
		enqueue:       asynqClient,
		phoneVerifier: phoneVerifier,
		version:       version,
	}

	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormlogger.Config{
				LogLevel:                  gormlogger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	}

	isPostgres := strings.HasPrefix(cfg.Database.URL, "postgres://") ||
		strings.HasPrefix(cfg.Database.URL, "postgresql://")

	var db *gorm.DB
	var err error
	if isPostgres {
		db, err = gorm.Open(postgres.Open(cfg.Database.URL), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.Database.URL), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if !isPostgres {
		// WAL first for concurrency, then the rest
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=1",
		}
		for _, pragma := range pragmas {
			if err := db.Exec(pragma).Error; err != nil {
				zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
			}
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(metricsMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metricsHandler())

	// Public auth endpoints (no auth required)
	s.router.POST("/api/auth/register", s.register)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/verify-phone", s.verifyPhone)
	s.router.POST("/api/auth/forgot-password", s.forgotPassword)
	s.router.POST("/api/auth/reset-password", s.resetPassword)

	// Authenticated API routes (bearer token required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.logger))
	{
		api.GET("/auth/me", s.getCurrentUser)

		api.GET("/users/profile", s.getProfile)
		api.PUT("/users/profile", s.updateProfile)

		adminRoutes := api.Group("/admin")
		adminRoutes.Use(AdminOnlyMiddleware(s.logger))
		{
			adminRoutes.GET("/users", s.listUsers)
			adminRoutes.PATCH("/users/:id/activate", s.setUserActive)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "academy-api",
		"version":   s.version,
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Router exposes the underlying handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	addr := ":" + s.config.Server.Port

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close task client")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
