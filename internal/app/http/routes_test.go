package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"plantcare-billing/internal/api/billing"
	"plantcare-billing/internal/api/notifications"
	"plantcare-billing/internal/api/plans"
	stripewebhooks "plantcare-billing/internal/api/stripewebhook"
	"plantcare-billing/internal/infra/auth"
	"plantcare-billing/internal/infra/logging"
	"plantcare-billing/internal/testutils"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()
	os.Exit(m.Run())
}

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (auth.Identity, error) {
	return auth.Identity{}, auth.ErrInvalidToken
}

func TestRegisterRoutes(t *testing.T) {
	log := logging.Discard()
	r := testutils.SetupTestRouter()
	RegisterRoutes(r, Deps{
		Billing:       billing.New(billing.Deps{Log: log}),
		Plans:         plans.New(nil, log),
		Webhook:       stripewebhooks.New(stripewebhooks.Deps{Secret: "whsec_test", Log: log}),
		Notifications: notifications.New(nil, log),
		Verifier:      rejectAll{},
		Log:           log,
	})

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/create-subscription", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/create-subscription", "{not json", http.StatusBadRequest},
		{http.MethodPost, "/cancel-subscription", `{}`, http.StatusBadRequest},
		{http.MethodPost, "/create-customer-portal-session", `{"returnUrl":"https://app.example.com"}`, http.StatusUnauthorized},
		{http.MethodGet, "/subscription", "", http.StatusUnauthorized},
		{http.MethodGet, "/notifications/overdue", "", http.StatusUnauthorized},
		{http.MethodPost, "/webhook", `{"id":"evt_1"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, tc.want, resp.Code, "%s %s", tc.method, tc.path)
	}
}
