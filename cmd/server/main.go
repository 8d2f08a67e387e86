package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pointsmill/internal/config"
	"pointsmill/internal/database"
	"pointsmill/internal/handlers"
	"pointsmill/internal/repository"
	"pointsmill/internal/security"
	"pointsmill/internal/service"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	kidRepo := repository.NewKidRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	authService := service.NewAuthService(userRepo, familyRepo, kidRepo, cfg.SessionDuration, cfg.KidTokenSecret, cfg.KidTokenDuration)
	familyService := service.NewFamilyService(familyRepo, kidRepo, goalRepo, invitationRepo, emailService)
	ledgerService := service.NewLedgerService(ledgerRepo, kidRepo, familyRepo)
	exportService := service.NewExportService(ledgerRepo)
	allocationService := service.NewAllocationService(familyRepo, kidRepo, ledgerService, cfg.AllocationHour)

	var googleOAuth *oauth2.Config
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleOAuth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
			RedirectURL:  cfg.OAuthRedirectBaseURL + "/api/auth/google/callback",
		}
	}

	// Initialize handlers
	loginLimiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(authService, loginLimiter)
	authHandler := handlers.NewAuthHandler(authService, familyService, emailService, googleOAuth)
	familyHandler := handlers.NewFamilyHandler(familyService)
	kidHandler := handlers.NewKidHandler(familyService)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, familyService, exportService, allocationService)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/auth/kid-login", middleware.RateLimit(authHandler.KidLogin))
	mux.HandleFunc("GET /api/auth/google/start", authHandler.StartGoogleOAuth)
	mux.HandleFunc("GET /api/auth/google/callback", authHandler.GoogleOAuthCallback)

	// Parent routes
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("GET /api/family", middleware.RequireAuth(familyHandler.GetOverview))
	mux.HandleFunc("PUT /api/family/settings", middleware.RequireAuth(familyHandler.UpdateSettings))
	mux.HandleFunc("GET /api/family/members", middleware.RequireAuth(familyHandler.GetMembers))
	mux.HandleFunc("POST /api/family/invitations", middleware.RequireAuth(familyHandler.Invite))
	mux.HandleFunc("POST /api/family/join", middleware.RequireAuth(familyHandler.Join))

	mux.HandleFunc("POST /api/kids", middleware.RequireAuth(kidHandler.CreateKid))
	mux.HandleFunc("PUT /api/kids/{id}", middleware.RequireAuth(kidHandler.UpdateKid))
	mux.HandleFunc("DELETE /api/kids/{id}", middleware.RequireAuth(kidHandler.DeleteKid))
	mux.HandleFunc("PUT /api/kids/{id}/goal", middleware.RequireAuth(kidHandler.SaveGoal))
	mux.HandleFunc("DELETE /api/kids/{id}/goal", middleware.RequireAuth(kidHandler.DeleteGoal))

	mux.HandleFunc("POST /api/kids/{id}/adjust", middleware.RequireAuth(ledgerHandler.Adjust))
	mux.HandleFunc("POST /api/adjustments/batch", middleware.RequireAuth(ledgerHandler.BatchAdjust))
	mux.HandleFunc("POST /api/allocate", middleware.RequireAuth(ledgerHandler.AllocateNow))
	mux.HandleFunc("GET /api/logs", middleware.RequireAuth(ledgerHandler.GetLogs))
	mux.HandleFunc("GET /api/logs/range", middleware.RequireAuth(ledgerHandler.GetLogsInRange))
	mux.HandleFunc("GET /api/logs/export", middleware.RequireAuth(ledgerHandler.ExportCSV))
	mux.HandleFunc("DELETE /api/logs/{id}", middleware.RequireAuth(ledgerHandler.DeleteLog))

	// Kid routes
	mux.HandleFunc("GET /api/kid/me", middleware.RequireKidAuth(kidHandler.KidDashboard))
	mux.HandleFunc("POST /api/kid/redeem/minutes", middleware.RequireKidAuth(ledgerHandler.KidRedeemMinutes))
	mux.HandleFunc("POST /api/kid/redeem/points", middleware.RequireKidAuth(ledgerHandler.KidRedeemPoints))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background jobs: daily allocation and session cleanup
	allocationService.Start(ctx)
	go cleanupExpiredSessions(ctx, authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpiredSessions periodically removes stale parent sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(); err != nil {
				log.Printf("Failed to cleanup expired sessions: %v", err)
			}
		}
	}
}
