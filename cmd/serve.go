package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkpagos/ms-go-paylinks/app/auth"
	"github.com/linkpagos/ms-go-paylinks/app/cache"
	"github.com/linkpagos/ms-go-paylinks/app/controller"
	"github.com/linkpagos/ms-go-paylinks/app/provider"
	"github.com/linkpagos/ms-go-paylinks/app/repository"
	"github.com/linkpagos/ms-go-paylinks/app/service"
	"github.com/linkpagos/ms-go-paylinks/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server exposing link management, checkout, and provider webhook endpoints.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, linkService, cleanup := mustCreateLinkService()
	defer cleanup()

	linkController := controller.NewLinkController(linkService)
	checkoutController := controller.NewCheckoutController(linkService)
	webhookController := controller.NewWebhookController(linkService)

	sessionVerifier := auth.NewHTTPVerifier(cfg.Auth.ServiceBaseURL, cfg.Auth.HTTPTimeout)

	e := setupHTTPServer(linkController, checkoutController, webhookController, sessionVerifier)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	linkController *controller.LinkController,
	checkoutController *controller.CheckoutController,
	webhookController *controller.WebhookController,
	sessionVerifier auth.Verifier,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", linkController.Health)

	pay := e.Group("/api/pay")
	pay.GET("/:linkId", checkoutController.GetCheckoutSession)
	pay.POST("/:linkId", checkoutController.CreateTransaction)
	pay.GET("/:linkId/link", checkoutController.GetPublicLink)

	webhooks := e.Group("/api/webhook")
	webhooks.POST("/:provider", webhookController.HandleProviderWebhook)

	staff := e.Group("/api", auth.RequireSession(sessionVerifier))
	staff.POST("/links", linkController.CreateLink)
	staff.GET("/links", linkController.ListLinks)
	staff.GET("/links/:id", linkController.GetLink)
	staff.PATCH("/links/:id", linkController.UpdateLink)
	staff.DELETE("/links/:id", linkController.DeleteLink)
	staff.GET("/bold/payment-methods", linkController.GetBoldPaymentMethods)

	return e
}

func mustCreateLinkService() (*config.Config, *service.LinkService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	linkRepo := repository.NewPaymentLinkRepository(db)
	webhookRepo := repository.NewWebhookLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	boldProvider := provider.NewBoldProvider(provider.BoldConfig{
		APIURL:                cfg.Bold.APIURL,
		APIKey:                cfg.Bold.APIKey,
		WebhookSecret:         cfg.Bold.WebhookSecret,
		AllowUnsignedWebhooks: cfg.Bold.AllowUnsignedWebhooks,
		HTTPTimeout:           cfg.Bold.HTTPTimeout,
	})
	wompiProvider := provider.NewWompiProvider(provider.WompiConfig{
		APIURL:          cfg.Wompi.APIURL,
		PublicKey:       cfg.Wompi.PublicKey,
		PrivateKey:      cfg.Wompi.PrivateKey,
		IntegritySecret: cfg.Wompi.IntegritySecret,
		EventsSecret:    cfg.Wompi.EventsSecret,
		HTTPTimeout:     cfg.Wompi.HTTPTimeout,
	})

	providerRegistry := provider.NewRegistry(boldProvider, wompiProvider)
	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	if cacheClient.Enabled() {
		if err := cacheClient.Ping(context.Background()); err != nil {
			logrus.WithError(err).Warn("Redis unreachable, continuing without cache")
		}
	}

	linkService := service.NewLinkService(
		linkRepo,
		webhookRepo,
		userRepo,
		providerRegistry,
		wompiProvider,
		boldProvider,
		cacheClient,
		cfg.Links,
		logrus.StandardLogger(),
	)

	cleanup := func() {
		if err := cacheClient.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close cache")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, linkService, cleanup
}
