package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/poofware/todo-service/internal/app"
	"github.com/poofware/todo-service/internal/config"
	"github.com/poofware/todo-service/internal/controllers"
	auth_repositories "github.com/poofware/todo-service/internal/repositories"
	"github.com/poofware/todo-service/internal/routes"
	"github.com/poofware/todo-service/internal/services"
	"github.com/poofware/todo-service/shared/go-repositories"
	"github.com/poofware/todo-service/shared/go-utils"
)

const shutdownTimeout = 15 * time.Second

func main() {
	appName := config.AppName
	if appName == "" {
		appName = config.DefaultAppName
	}
	utils.InitLogger(appName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	accountRepo := repositories.NewAccountRepository(application.DB)
	smsRepo := repositories.NewSMSVerificationRepository(application.DB)
	taskRepo := repositories.NewTaskRepository(application.DB)

	tokenRepo := auth_repositories.NewTokenRepository(application.DB)
	pgRateLimitRepo := auth_repositories.NewRateLimitRepository(application.DB)
	rateLimitRepo := pgRateLimitRepo
	if application.Redis != nil {
		tokenRepo = auth_repositories.NewCachedTokenRepository(tokenRepo, application.Redis)
		rateLimitRepo = auth_repositories.NewRedisRateLimitRepository(application.Redis)
	}

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	sender, err := services.NewNotificationSender(cfg)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create notification sender")
	}
	if closer, ok := sender.(io.Closer); ok {
		defer closer.Close()
	}
	notifier := services.NewNotificationService(sender, cfg)

	phoneValidator := services.NewPhoneValidator()
	if cfg.LDFlag_ValidatePhoneWithTwilio {
		phoneValidator = services.NewTwilioPhoneValidator(phoneValidator, services.NewTwilioLookup(cfg), cfg)
	}

	identities := services.NewIdentityStore(accountRepo)
	ledger := services.NewVerificationLedger(smsRepo, cfg)
	credentials := services.NewCredentialManager(identities, services.NewDefaultPasswordPolicy())
	tokenService := services.NewJWTService(cfg, tokenRepo, identities)
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, cfg)

	authService := services.NewAuthService(
		identities,
		ledger,
		credentials,
		tokenService,
		phoneValidator,
		rateLimiterService,
		notifier,
	)
	taskService := services.NewTaskService(taskRepo)

	verificationCleanupService := services.NewVerificationCleanupService(smsRepo, cfg)
	tokenCleanupService := services.NewTokenCleanupService(tokenRepo)
	rateLimitCleanupService := services.NewRateLimitCleanupService(pgRateLimitRepo)

	//----------------------------------------------------------------------
	// Controllers & router
	//----------------------------------------------------------------------
	router := routes.NewRouter(cfg, routes.Controllers{
		Auth:   controllers.NewAuthController(authService),
		Tasks:  controllers.NewTaskController(taskService),
		Health: controllers.NewHealthController(application.DB),
	})

	//----------------------------------------------------------------------
	// Setup daily cleanup via cron
	//----------------------------------------------------------------------
	c := cron.New()

	// verification codes are history; only pruned when a retention is set
	if verificationCleanupService.Enabled() {
		_, schErr1 := c.AddFunc("0 3 * * *", func() {
			if e := verificationCleanupService.CleanupDaily(context.Background()); e != nil {
				utils.Logger.WithError(e).Error("Scheduled verification-codes cleanup failed")
			}
		})
		if schErr1 != nil {
			utils.Logger.WithError(schErr1).Fatal("Failed to schedule verification-codes cleanup job")
		}
	}

	// token cleanup
	_, schErr2 := c.AddFunc("5 3 * * *", func() {
		if e := tokenCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled token cleanup failed")
		}
	})
	if schErr2 != nil {
		utils.Logger.WithError(schErr2).Fatal("Failed to schedule token cleanup job")
	}

	// rate limit counter cleanup
	_, schErr3 := c.AddFunc("10 3 * * *", func() {
		if e := rateLimitCleanupService.CleanupDaily(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled rate limit counter cleanup failed")
		}
	})
	if schErr3 != nil {
		utils.Logger.WithError(schErr3).Fatal("Failed to schedule rate limit counter cleanup job")
	}

	c.Start()

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Error("HTTP server shutdown failed")
	}
	<-c.Stop().Done()
	notifier.Wait()
}
