package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/config"
	"plantcare-billing/database"
	"plantcare-billing/internal/api/billing"
	"plantcare-billing/internal/api/notifications"
	"plantcare-billing/internal/api/plans"
	stripewebhooks "plantcare-billing/internal/api/stripewebhook"
	routes "plantcare-billing/internal/app/http"
	"plantcare-billing/internal/app/http/middleware"
	billingdomain "plantcare-billing/internal/domain/billing"
	"plantcare-billing/internal/domain/garden"
	plansdomain "plantcare-billing/internal/domain/plans"
	"plantcare-billing/internal/infra/auth"
	"plantcare-billing/internal/infra/logging"
	"plantcare-billing/internal/infra/stripe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	gin.DefaultWriter = logging.GinWriter(log)

	db, err := database.Open(cfg.DBURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.Info("connected and migrated")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier middleware.TokenVerifier
	if cfg.JWKSURL != "" {
		verifier = auth.NewJWKSVerifier(ctx, cfg.Issuer, cfg.JWKSURL)
	} else {
		verifier = auth.NewHMACVerifier(cfg.JWTSecret)
	}

	provider := stripe.NewWithLogger(cfg.StripeSecretKey, log)
	planStore := plansdomain.NewStore(db)
	mirror := billingdomain.NewStore(db)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	routes.RegisterRoutes(r, routes.Deps{
		Billing: billing.New(billing.Deps{
			Provider: provider,
			Mirror:   mirror,
			Plans:    planStore,
			Currency: cfg.StripeCurrency,
			Log:      log,
		}),
		Plans: plans.New(planStore, log),
		Webhook: stripewebhooks.New(stripewebhooks.Deps{
			Store:   mirror,
			Plans:   planStore,
			Fetcher: provider,
			Secret:  cfg.StripeWebhookSecret,
			Log:     log,
		}),
		Notifications: notifications.New(garden.NewStore(db), log),
		Verifier:      verifier,
		Log:           log,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.WithField("port", cfg.Port).Info("billing service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// corsConfig answers preflight requests with 200 for the mobile web build.
func corsConfig(origin string) cors.Config {
	c := cors.Config{
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:             []string{"Content-Length"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if origin == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = []string{origin}
		c.AllowCredentials = true
	}
	return c
}
