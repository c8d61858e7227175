package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Anan1218/homehealth/internal/config"
	"github.com/Anan1218/homehealth/internal/domain"
	httptransport "github.com/Anan1218/homehealth/internal/http"
	"github.com/Anan1218/homehealth/internal/http/handler"
	"github.com/Anan1218/homehealth/internal/observability"
	"github.com/Anan1218/homehealth/internal/service"
)

func testConfig() config.Config {
	return config.Config{
		Environment:          "development",
		ServiceName:          "homehealth-api",
		ProjectName:          "HomeHealth",
		APIPrefix:            "/api/v1",
		MetricsEnabled:       true,
		CORSAllowedOrigins:   []string{"http://localhost:5173"},
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Authorization", "Content-Type"},
		CORSAllowCredentials: true,
	}
}

func newTestRouter(t *testing.T, auth handler.AuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	authHandler := &handler.AuthHandler{Auth: auth, Logger: zap.NewNop()}
	return httptransport.NewRouter(cfg, zap.NewNop(), authHandler, handler.NewSystemHandler(cfg), observability.NewMetrics())
}

func do(r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRootAndHealth(t *testing.T) {
	r := newTestRouter(t, &stubAuth{})

	w := do(r, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"HomeHealth API is running"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy","service":"homehealth-api"}`, w.Body.String())
}

func TestMeBearerSemantics(t *testing.T) {
	fullName := "Test User"
	auth := &stubAuth{user: &service.User{ID: "user_123", Email: "test@example.com", FullName: &fullName, CreatedAt: "2023-01-01T00:00:00Z"}}
	r := newTestRouter(t, auth)

	w := do(r, http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"detail":"Not authenticated"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/auth/me", "", map[string]string{"Authorization": "Basic abc"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"detail":"Invalid authentication credentials"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/auth/me", "", map[string]string{"Authorization": "Bearer valid_token"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"user_123","email":"test@example.com","full_name":"Test User","created_at":"2023-01-01T00:00:00Z"}`, w.Body.String())
	require.Equal(t, "valid_token", auth.lastToken)
}

func TestMeInvalidToken(t *testing.T) {
	r := newTestRouter(t, &stubAuth{err: domain.ErrInvalidToken})

	w := do(r, http.MethodGet, "/api/v1/auth/me", "", map[string]string{"Authorization": "Bearer invalid_token"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"detail":"Invalid token"}`, w.Body.String())
}

func TestLogout(t *testing.T) {
	auth := &stubAuth{}
	r := newTestRouter(t, auth)

	w := do(r, http.MethodPost, "/api/v1/auth/logout", "", map[string]string{"Authorization": "Bearer user_token"})
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "user_token", auth.lastToken)

	w = do(r, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterValidationThroughRouter(t *testing.T) {
	r := newTestRouter(t, &stubAuth{})

	w := do(r, http.MethodPost, "/api/v1/auth/register", `{"email":"invalid-email","password":"pw"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), `"loc":["body","email"]`)
}

func TestPlaceholderRoutes(t *testing.T) {
	r := newTestRouter(t, &stubAuth{})

	cases := []struct {
		method  string
		path    string
		message string
	}{
		{http.MethodGet, "/api/v1/users/", "User management feature - coming soon"},
		{http.MethodGet, "/api/v1/users/abc", "User abc details - coming soon"},
		{http.MethodGet, "/api/v1/health/", "Health tracking feature - coming soon"},
		{http.MethodPost, "/api/v1/health/", "Health record creation - coming soon"},
	}
	for _, tc := range cases {
		w := do(r, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusOK, w.Code, tc.path)
		require.JSONEq(t, `{"message":"`+tc.message+`"}`, w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, &stubAuth{})

	w := do(r, http.MethodGet, "/api/v1/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"detail":"Not Found"}`, w.Body.String())
}

func TestRequestLogIncludesTraceID(t *testing.T) {
	previous := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})

	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	cfg := testConfig()
	authHandler := &handler.AuthHandler{Auth: &stubAuth{}, Logger: zap.NewNop()}
	r := httptransport.NewRouter(cfg, zap.New(core), authHandler, handler.NewSystemHandler(cfg), observability.NewMetrics())

	w := do(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	traceID, ok := entries[0].ContextMap()["trace_id"].(string)
	require.True(t, ok)
	require.Len(t, traceID, 32)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubAuth{})

	do(r, http.MethodGet, "/health", "", nil)
	w := do(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `homehealth_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCORSPreflightThroughRouter(t *testing.T) {
	r := newTestRouter(t, &stubAuth{})

	w := do(r, http.MethodOptions, "/api/v1/auth/login", "", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": "POST",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

type stubAuth struct {
	token     service.AuthToken
	user      *service.User
	err       error
	lastToken string
}

func (s *stubAuth) Register(context.Context, service.UserCreate) (service.AuthToken, error) {
	return s.token, s.err
}

func (s *stubAuth) Login(context.Context, service.UserLogin) (service.AuthToken, error) {
	return s.token, s.err
}

func (s *stubAuth) Logout(_ context.Context, accessToken string) error {
	s.lastToken = accessToken
	return s.err
}

func (s *stubAuth) GetCurrentUser(_ context.Context, accessToken string) (*service.User, error) {
	s.lastToken = accessToken
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}
