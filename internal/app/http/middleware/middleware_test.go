package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare-billing/internal/infra/auth"
	"plantcare-billing/internal/infra/logging"
	"plantcare-billing/internal/testutils"
)

func TestMain(m *testing.M) {
	testutils.InitTestMain()
	os.Exit(m.Run())
}

type stubVerifier map[string]auth.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	id, ok := s[token]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

func TestAuthMiddleware(t *testing.T) {
	r := testutils.SetupTestRouter()
	r.GET("/me", AuthMiddleware(stubVerifier{"good": {UserID: "user_1", Email: "u1@example.com"}}, logging.Discard()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserID), "email": c.GetString(CtxEmail)})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"invalid", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		assert.Equal(t, tc.status, resp.Code, tc.name)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.JSONEq(t, `{"user_id":"user_1","email":"u1@example.com"}`, resp.Body.String())
}

func TestSanitizeAndCleanInputMiddleware(t *testing.T) {
	r := testutils.SetupTestRouter()
	var got map[string]interface{}
	r.POST("/echo", SanitizeAndCleanInputMiddleware("returnUrl"), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		c.Status(http.StatusOK)
	})

	body := `{"planId":"<b>monthly</b>","returnUrl":"https://app.example.com/r?a=1&b=2","updates":{"metadata":{"note":"<script>x</script>hi"}},"ts":1700000000}`
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "monthly", got["planId"])
	assert.Equal(t, "https://app.example.com/r?a=1&b=2", got["returnUrl"])
	assert.Equal(t, "hi", got["updates"].(map[string]interface{})["metadata"].(map[string]interface{})["note"])
	assert.Equal(t, float64(1700000000), got["ts"])
}

func TestSanitizeAndCleanInputMiddleware_RejectsMalformed(t *testing.T) {
	r := testutils.SetupTestRouter()
	r.POST("/echo", SanitizeAndCleanInputMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString(`{"planId":`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest(http.MethodPost, "/echo", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
