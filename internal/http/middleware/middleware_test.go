package middleware

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"docmanager/internal/logger"
	"docmanager/internal/model"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestID(c))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, existingID, buf.String())
	})

	t.Run("should replace malformed request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "bad id "+strings.Repeat("x", 200))

		resp, _ := app.Test(req)

		rid := resp.Header.Get(RequestIDHeader)
		assert.Len(t, rid, 36)
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Logger(zap.New(core)))

	app.Get("/test", func(c *fiber.Ctx) error {
		logger.FromContext(c.UserContext(), nil).Info("inside handler")
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "nope")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	resp, _ := app.Test(req)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "inside handler", entries[0].Message)
	assert.Equal(t, "rid-1", entries[0].ContextMap()["request_id"])

	fields := entries[1].ContextMap()
	assert.Equal(t, "http request", entries[1].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "rid-1", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/test", fields["path"])
	assert.EqualValues(t, fiber.StatusAccepted, fields["status"])
	assert.Contains(t, fields, "latency_ms")

	app.Test(httptest.NewRequest("GET", "/fail", nil))
	last := logs.AllUntimed()[logs.Len()-1]
	assert.Equal(t, zapcore.WarnLevel, last.Level)
	assert.EqualValues(t, fiber.StatusBadRequest, last.ContextMap()["status"])
}

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(role string) Claims {
	return Claims{
		Username: "alice",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	app := fiber.New()
	api := app.Group("/api", Authenticate(testSecret))
	api.Get("/read", RequireRole(model.RoleUser, model.RoleAdmin), func(c *fiber.Ctx) error {
		p, _ := PrincipalFrom(c)
		return c.SendString(p.Username + ":" + string(p.Role))
	})
	api.Delete("/write", RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	do := func(method, path, token string) (int, string) {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		return resp.StatusCode, buf.String()
	}

	userTok := "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("ROLE_USER"))
	adminTok := "bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("admin"))

	status, body := do("GET", "/api/read", userTok)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice:USER", body)

	status, _ = do("DELETE", "/api/write", userTok)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = do("DELETE", "/api/write", adminTok)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do("GET", "/api/read", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do("GET", "/api/read", "Basic abc")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	wrongKey := "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("ADMIN"))
	status, _ = do("GET", "/api/read", wrongKey)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	expired := validClaims("ADMIN")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	status, _ = do("GET", "/api/read", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, expired))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	noExp := validClaims("ADMIN")
	noExp.ExpiresAt = nil
	status, _ = do("GET", "/api/read", "Bearer "+signToken(t, jwt.SigningMethodHS256, testSecret, noExp))
	assert.Equal(t, fiber.StatusUnauthorized, status)

	wrongAlg := "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, validClaims("ADMIN"))
	status, _ = do("GET", "/api/read", wrongAlg)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRequireRole_WithoutAuthenticate(t *testing.T) {
	app := fiber.New()
	app.Get("/x", RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error { return nil })

	resp, _ := app.Test(httptest.NewRequest("GET", "/x", nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
