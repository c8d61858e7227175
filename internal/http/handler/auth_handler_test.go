package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Anan1218/homehealth/internal/adapter/baas"
	"github.com/Anan1218/homehealth/internal/config"
	"github.com/Anan1218/homehealth/internal/domain"
	httpHandler "github.com/Anan1218/homehealth/internal/http/handler"
	"github.com/Anan1218/homehealth/internal/http/middleware"
	"github.com/Anan1218/homehealth/internal/service"
)

func TestRegisterSuccess(t *testing.T) {
	fake := &fakeAuthService{token: testToken()}
	h := &httpHandler.AuthHandler{Auth: fake}

	w, c := newJSONContext(http.MethodPost, "/api/v1/auth/register", `{"email":"test@example.com","password":"testpassword123","full_name":"Test User"}`)
	h.Register(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "test_token", body["access_token"])
	require.Equal(t, "bearer", body["token_type"])
	require.Equal(t, "test@example.com", body["user"].(map[string]any)["email"])
	require.Equal(t, "Test User", *fake.lastCreate.FullName)
}

func TestRegisterFailureDetail(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		detail string
	}{
		{name: "no user", err: domain.ErrCreateUser, detail: "Failed to create user"},
		{name: "pending confirmation", err: domain.ErrConfirmationRequired, detail: "Email confirmation required"},
		{name: "auth server", err: &baas.APIError{Status: 422, Message: "User already registered"}, detail: "User already registered"},
		{name: "transport", err: errors.New("dial tcp: connection refused"), detail: "Registration failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &httpHandler.AuthHandler{Auth: &fakeAuthService{err: tc.err}}
			w, c := newJSONContext(http.MethodPost, "/api/v1/auth/register", `{"email":"test@example.com","password":"pw"}`)
			h.Register(c)

			require.Equal(t, http.StatusBadRequest, w.Code)
			require.JSONEq(t, `{"detail":"`+tc.detail+`"}`, w.Body.String())
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		loc   []any
		vtype string
	}{
		{name: "invalid email", body: `{"email":"invalid-email","password":"pw"}`, loc: []any{"body", "email"}, vtype: "value_error"},
		{name: "missing password", body: `{"email":"test@example.com"}`, loc: []any{"body", "password"}, vtype: "missing"},
		{name: "not json", body: `{"email":`, loc: []any{"body"}, vtype: "json_invalid"},
		{name: "empty body", body: ``, loc: []any{"body"}, vtype: "missing"},
		{name: "wrong type", body: `{"email":"test@example.com","password":123}`, loc: []any{"body", "password"}, vtype: "string_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeAuthService{token: testToken()}
			h := &httpHandler.AuthHandler{Auth: fake}
			w, c := newJSONContext(http.MethodPost, "/api/v1/auth/register", tc.body)
			h.Register(c)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			var body struct {
				Detail []map[string]any `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotEmpty(t, body.Detail)
			require.Equal(t, tc.loc, body.Detail[0]["loc"])
			require.Equal(t, tc.vtype, body.Detail[0]["type"])
			require.Zero(t, fake.calls)
		})
	}
}

func TestLoginFailureIsUnauthorized(t *testing.T) {
	h := &httpHandler.AuthHandler{Auth: &fakeAuthService{err: &baas.APIError{Status: 400, Message: "Invalid login credentials"}}}
	w, c := newJSONContext(http.MethodPost, "/api/v1/auth/login", `{"email":"test@example.com","password":"wrongpassword"}`)
	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"detail":"Invalid credentials"}`, w.Body.String())
}

func TestFailureLogCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := &httpHandler.AuthHandler{Auth: &fakeAuthService{err: domain.ErrInvalidCredentials}, Logger: zap.New(core)}
	_, c := newJSONContext(http.MethodPost, "/api/v1/auth/login", `{"email":"test@example.com","password":"pw"}`)
	c.Set(middleware.RequestIDKey, "req-42")
	h.Login(c)

	entries := logs.FilterMessage("login failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
}

func TestLoginSuccess(t *testing.T) {
	fake := &fakeAuthService{token: testToken()}
	h := &httpHandler.AuthHandler{Auth: fake}
	w, c := newJSONContext(http.MethodPost, "/api/v1/auth/login", `{"email":"test@example.com","password":"testpassword123"}`)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "test@example.com", fake.lastLogin.Email)
	require.Contains(t, w.Body.String(), `"expires_at":1234567890`)
}

func TestMeWithoutTokenInContext(t *testing.T) {
	h := &httpHandler.AuthHandler{Auth: &fakeAuthService{}}
	w, c := newJSONContext(http.MethodGet, "/api/v1/auth/me", "")
	h.Me(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestMeInvalidToken(t *testing.T) {
	h := &httpHandler.AuthHandler{Auth: &fakeAuthService{err: domain.ErrInvalidToken}}
	w, c := newJSONContext(http.MethodGet, "/api/v1/auth/me", "")
	c.Set("accessToken", "invalid_token")
	h.Me(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"detail":"Invalid token"}`, w.Body.String())
}

func TestSystemHandlers(t *testing.T) {
	h := httpHandler.NewSystemHandler(config.Config{ProjectName: "HomeHealth", ServiceName: "homehealth-api"})

	w, c := newJSONContext(http.MethodGet, "/", "")
	h.Root(c)
	require.JSONEq(t, `{"message":"HomeHealth API is running"}`, w.Body.String())

	w, c = newJSONContext(http.MethodGet, "/health", "")
	h.Health(c)
	require.JSONEq(t, `{"status":"healthy","service":"homehealth-api"}`, w.Body.String())

	w, c = newJSONContext(http.MethodGet, "/api/v1/users/42", "")
	c.Params = gin.Params{{Key: "user_id", Value: "42"}}
	h.GetUser(c)
	require.JSONEq(t, `{"message":"User 42 details - coming soon"}`, w.Body.String())
}

func newJSONContext(method, target, body string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return w, c
}

func testToken() service.AuthToken {
	fullName := "Test User"
	return service.AuthToken{
		AccessToken: "test_token",
		TokenType:   "bearer",
		ExpiresAt:   1234567890,
		User: service.User{
			ID:        "user_123",
			Email:     "test@example.com",
			FullName:  &fullName,
			CreatedAt: "2023-01-01T00:00:00Z",
		},
	}
}

type fakeAuthService struct {
	token service.AuthToken
	user  *service.User
	err   error

	calls      int
	lastCreate service.UserCreate
	lastLogin  service.UserLogin
	lastToken  string
}

func (f *fakeAuthService) Register(ctx context.Context, in service.UserCreate) (service.AuthToken, error) {
	f.calls++
	f.lastCreate = in
	if f.err != nil {
		return service.AuthToken{}, f.err
	}
	return f.token, nil
}

func (f *fakeAuthService) Login(ctx context.Context, in service.UserLogin) (service.AuthToken, error) {
	f.calls++
	f.lastLogin = in
	if f.err != nil {
		return service.AuthToken{}, f.err
	}
	return f.token, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, accessToken string) error {
	f.calls++
	f.lastToken = accessToken
	return f.err
}

func (f *fakeAuthService) GetCurrentUser(ctx context.Context, accessToken string) (*service.User, error) {
	f.calls++
	f.lastToken = accessToken
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}
