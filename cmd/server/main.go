package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/internal/app/controller"
	"github.com/storefront/commerce-backend/internal/app/repository"
	"github.com/storefront/commerce-backend/internal/app/service"
	"github.com/storefront/commerce-backend/internal/db"
	"github.com/storefront/commerce-backend/internal/middleware"
	"github.com/storefront/commerce-backend/internal/notify"
	"github.com/storefront/commerce-backend/internal/router"
	"github.com/storefront/commerce-backend/internal/scheduler"
	"github.com/storefront/commerce-backend/internal/storage"
	"github.com/storefront/commerce-backend/internal/websocket"
	"github.com/storefront/commerce-backend/pkg/logger"
	"github.com/storefront/commerce-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
		Service:     "commerce-backend",
	})

	logger.Info("Starting commerce backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs token revocation and OTP throttling; disabled means both
	// fall back to no-ops.
	store, err := redis.NewStore(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", err)
	}
	defer store.Close()

	notifier, err := notify.New(cfg.Notifier)
	if err != nil {
		logger.Fatal("Failed to initialize notifier", err)
	}
	defer notifier.Close()

	blobStore, err := storage.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	gdb := db.GetDB()
	userRepo := repository.NewUserRepository(gdb)
	businessRepo := repository.NewBusinessRepository(gdb)
	customerRepo := repository.NewCustomerRepository(gdb)
	itemRepo := repository.NewItemRepository(gdb)
	cartRepo := repository.NewCartRepository(gdb)
	orderRepo := repository.NewOrderRepository(gdb)
	invoiceRepo := repository.NewInvoiceRepository(gdb)
	sequenceRepo := repository.NewSequenceRepository(gdb)

	// Initialize services
	deps := service.Dependencies{
		Revoker:   store,
		Throttle:  store,
		Notifier:  notifier,
		Publisher: hub,
	}
	otpPolicy := service.OTPPolicy{
		TTL:               cfg.OTP.TTL,
		MaxRequests:       cfg.OTP.MaxRequests,
		RequestWindow:     cfg.OTP.RequestWindow,
		MaxVerifyAttempts: cfg.OTP.MaxVerifyAttempts,
	}
	staffTokens := service.TokenSettings{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshExpiry: cfg.JWT.RefreshTokenExpiry,
	}
	customerTokens := service.TokenSettings{
		Secret:        cfg.JWT.CustomerSecret,
		AccessExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshExpiry: cfg.JWT.RefreshTokenExpiry,
	}

	authService := service.NewAuthService(userRepo, staffTokens, deps)
	passwordResetService := service.NewPasswordResetService(userRepo, otpPolicy, deps)
	customerAuthService := service.NewCustomerAuthService(customerRepo, customerTokens, otpPolicy, deps)
	businessService := service.NewBusinessService(businessRepo, userRepo, gdb)
	customerService := service.NewCustomerService(customerRepo, cartRepo, gdb)
	itemService := service.NewItemService(itemRepo)
	cartService := service.NewCartService(cartRepo, itemRepo, gdb)
	orderService := service.NewOrderService(orderRepo, cartRepo, itemRepo, customerRepo, sequenceRepo, gdb, deps)
	invoiceService := service.NewInvoiceService(invoiceRepo, itemRepo, customerRepo, sequenceRepo, gdb)
	dashboardService := service.NewDashboardService(customerRepo, itemRepo, orderRepo, invoiceRepo)

	// Background jobs
	if cfg.Scheduler.Enabled {
		lowStock := scheduler.NewLowStockScheduler(cfg.Scheduler.LowStockSpec, businessService, itemService, notifier)
		if err := lowStock.Start(); err != nil {
			logger.Fatal("Failed to start low stock scheduler", err)
		}
		defer lowStock.Stop()
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, customerAuthService, businessService)

	// Setup router
	r := router.NewRouter(router.Controllers{
		Auth:         controller.NewAuthController(authService, passwordResetService),
		CustomerAuth: controller.NewCustomerAuthController(customerAuthService, customerService),
		Business:     controller.NewBusinessController(businessService),
		Customer:     controller.NewCustomerController(customerService),
		Item:         controller.NewItemController(itemService),
		Cart:         controller.NewCartController(cartService),
		Order:        controller.NewOrderController(orderService),
		Invoice:      controller.NewInvoiceController(invoiceService),
		Dashboard:    controller.NewDashboardController(dashboardService),
		Upload:       controller.NewUploadController(blobStore, cfg.Storage.MaxFileMB<<20),
		Feed:         controller.NewFeedController(hub),
	}, authMiddleware, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown did not complete", err)
	}
	cancel()

	logger.Info("Server stopped successfully")
}
