package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/api/billing"
	"plantcare-billing/internal/api/notifications"
	"plantcare-billing/internal/api/plans"
	stripewebhooks "plantcare-billing/internal/api/stripewebhook"
	"plantcare-billing/internal/app/http/middleware"
)

type Deps struct {
	Billing       *billing.Handler
	Plans         *plans.Handler
	Webhook       *stripewebhooks.Handler
	Notifications *notifications.Handler
	Verifier      middleware.TokenVerifier
	Log           logrus.FieldLogger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.HandleMethodNotAllowed = true

	// The webhook needs the raw body for signature checks
	r.POST("/webhook", d.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware("returnUrl"))

	public.GET("/plans", d.Plans.ListPlans)
	public.POST("/create-subscription", d.Billing.CreateSubscription)
	public.POST("/cancel-subscription", d.Billing.CancelSubscription)
	public.POST("/update-subscription", d.Billing.UpdateSubscription)
	public.POST("/create-payment-intent", d.Billing.CreatePaymentIntent)
	public.POST("/create-subscription-setup", d.Billing.CreateSubscriptionSetup)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(d.Verifier, d.Log), middleware.SanitizeAndCleanInputMiddleware("returnUrl"))
	auth.POST("/create-customer-portal-session", d.Billing.CreateCustomerPortalSession)
	auth.GET("/subscription", d.Billing.GetSubscription)
	auth.GET("/notifications/overdue", d.Notifications.GetOverdue)
}
