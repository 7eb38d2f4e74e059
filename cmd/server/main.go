package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	auditapp "github.com/medbill/backend/internal/application/audit"
	billingapp "github.com/medbill/backend/internal/application/billing"
	identityapp "github.com/medbill/backend/internal/application/identity"
	"github.com/medbill/backend/internal/infrastructure/auth"
	"github.com/medbill/backend/internal/infrastructure/config"
	"github.com/medbill/backend/internal/infrastructure/export"
	"github.com/medbill/backend/internal/infrastructure/logger"
	"github.com/medbill/backend/internal/infrastructure/mailer"
	"github.com/medbill/backend/internal/infrastructure/persistence"
	"github.com/medbill/backend/internal/infrastructure/storage"
	"github.com/medbill/backend/internal/interfaces/http/handler"
	"github.com/medbill/backend/internal/interfaces/http/middleware"
	"github.com/medbill/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Medical Billing API
//	@version		1.0
//	@description	Billing backend for diagnostic centers: spreadsheet ingest, invoice generation, payments and exports.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Medical Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	billRepo := persistence.NewGormBillRepository(db.DB)
	uploadRepo := persistence.NewGormUploadRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	sequenceStore := persistence.NewPostgresSequenceStore(db.DB)

	// Audit trail
	recorder := auditapp.NewRecorder(auditRepo, log)
	auditQueries := auditapp.NewQueryService(auditRepo, log)

	// Token issuance and revocation
	jwtService := auth.NewJWTService(cfg.JWT)
	var blacklist auth.TokenBlacklist
	if redisBlacklist, err := auth.NewRedisTokenBlacklist(cfg.Redis); err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = redisBlacklist
		log.Info("Redis token blacklist connected",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
	}

	// PDF rendering is optional: without Chrome the API still serves
	// Excel exports and reports PDF endpoints as unavailable.
	var renderer export.PDFRenderer
	if cfg.PDF.Enabled {
		chromeRenderer, err := export.NewChromedpRenderer(&export.ChromedpConfig{
			DefaultTimeout: cfg.PDF.Timeout,
			ExecPath:       cfg.PDF.ChromePath,
			NoSandbox:      true,
			Logger:         log,
		})
		if err != nil {
			log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
		}
		defer chromeRenderer.Close()
		renderer = chromeRenderer
		log.Info("PDF rendering enabled", zap.Duration("timeout", cfg.PDF.Timeout))
	} else {
		renderer = export.NewDisabledRenderer()
	}

	// Archive storage is optional in the same way
	var archive billingapp.ArchiveStorage
	if cfg.Storage.Enabled {
		s3Archive, err := storage.NewS3ArchiveStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize archive storage", zap.Error(err))
		}
		bucketCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := s3Archive.EnsureBucket(bucketCtx); err != nil {
			cancel()
			log.Fatal("Archive bucket is not reachable", zap.Error(err))
		}
		cancel()
		archive = s3Archive
		log.Info("S3 archive storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		archive = storage.NewMemoryArchiveStorage()
	}

	// Mail delivery
	var mail billingapp.Mailer
	if cfg.Mail.Enabled {
		smtpMailer, err := mailer.NewSMTPMailer(&cfg.Mail, mailer.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize mailer", zap.Error(err))
		}
		mail = smtpMailer
		log.Info("SMTP mailer enabled", zap.String("host", cfg.Mail.Host))
	} else {
		mail = mailer.NewNoopMailer(log)
	}

	// Export building blocks
	excelExporter := export.NewExcelExporter()
	invoiceTemplate, err := export.NewInvoiceTemplate()
	if err != nil {
		log.Fatal("Failed to parse invoice template", zap.Error(err))
	}

	// Billing application services
	uploadService := billingapp.NewUploadService(uploadRepo, recorder, cfg.Upload, log)
	generationService := billingapp.NewGenerationService(uploadService, billRepo, sequenceStore, recorder, cfg.Billing, log)
	billService := billingapp.NewBillService(billRepo, log)
	paymentService := billingapp.NewPaymentService(billRepo, recorder, log)
	exportService := billingapp.NewExportService(billRepo, excelExporter, invoiceTemplate, renderer, archive, recorder, log)
	emailService := billingapp.NewEmailService(billRepo, exportService, mail, recorder, log)
	dashboardService := billingapp.NewDashboardService(billRepo, log)

	// Identity application services
	authService := identityapp.NewAuthService(userRepo, roleRepo, jwtService, blacklist, recorder, identityapp.DefaultAuthServiceConfig(), log)
	userService := identityapp.NewUserService(userRepo, roleRepo, blacklist, jwtService, recorder, log)
	roleService := identityapp.NewRoleService(roleRepo, userRepo, recorder, log)

	// HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	uploadHandler := handler.NewUploadHandler(uploadService, generationService)
	billHandler := handler.NewBillHandler(billService, paymentService)
	exportHandler := handler.NewExportHandler(exportService, emailService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	auditHandler := handler.NewAuditHandler(auditQueries)
	systemHandler := handler.NewSystemHandler(db.DB)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	// 8. JWT - Authenticate API requests
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		SkipPaths: []string{
			"/health",
			"/api/v1/health",
			"/api/v1/system/ping",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
		Logger: log,
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Register routes under the versioned API prefix
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(authHandler).
		Register(userHandler).
		Register(roleHandler).
		Register(uploadHandler).
		Register(billHandler).
		Register(exportHandler).
		Register(dashboardHandler).
		Register(auditHandler).
		Register(systemHandler)
	r.Setup()
	systemHandler.RegisterRoot(engine)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
