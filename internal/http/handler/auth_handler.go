package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Anan1218/homehealth/internal/adapter/baas"
	"github.com/Anan1218/homehealth/internal/domain"
	"github.com/Anan1218/homehealth/internal/http/middleware"
	"github.com/Anan1218/homehealth/internal/service"
)

// AuthService is the facade the handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.UserCreate) (service.AuthToken, error)
	Login(ctx context.Context, in service.UserLogin) (service.AuthToken, error)
	Logout(ctx context.Context, accessToken string) error
	GetCurrentUser(ctx context.Context, accessToken string) (*service.User, error)
}

var _ AuthService = (*service.AuthService)(nil)

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	Auth   AuthService
	Logger *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

// Register creates an account and returns its first session.
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.UserCreate
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.log(c).Info("registration failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": failureDetail(err, "Registration failed")})
		return
	}
	c.JSON(http.StatusOK, token)
}

// Login exchanges credentials for a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.UserLogin
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		h.log(c).Info("login failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, token)
}

// Logout revokes the caller's sessions.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.GetAccessToken(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not authenticated"})
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		h.log(c).Info("logout failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": failureDetail(err, "Logout failed")})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the user the bearer token belongs to.
func (h *AuthHandler) Me(c *gin.Context) {
	token, ok := middleware.GetAccessToken(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Not authenticated"})
		return
	}

	user, err := h.Auth.GetCurrentUser(c.Request.Context(), token)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) log(c *gin.Context) *zap.Logger {
	logger := h.Logger
	if logger == nil {
		logger = zap.L()
	}
	if requestID := middleware.GetRequestID(c); requestID != "" {
		logger = logger.With(zap.String("request_id", requestID))
	}
	return logger
}

func bindJSON(c *gin.Context, dst any) bool {
	useJSONFieldNames()
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": validationDetails(err)})
		return false
	}
	return true
}

// failureDetail maps a facade error to the message shown to clients.
// Auth server messages pass through; transport errors do not.
func failureDetail(err error, fallback string) string {
	var apiErr *baas.APIError
	switch {
	case errors.Is(err, domain.ErrCreateUser):
		return "Failed to create user"
	case errors.Is(err, domain.ErrConfirmationRequired):
		return "Email confirmation required"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return fallback
	}
}
