package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Anan1218/homehealth/internal/adapter/baas"
	"github.com/Anan1218/homehealth/internal/config"
	"github.com/Anan1218/homehealth/internal/domain"
	"github.com/Anan1218/homehealth/internal/jwt"
	"github.com/Anan1218/homehealth/internal/observability"
	"github.com/Anan1218/homehealth/internal/repository"
)

// Revocation markers outlive unparseable tokens by the BaaS default JWT expiry.
const defaultRevocationTTL = time.Hour

// AuthService forwards authentication calls to the BaaS and reshapes the results.
type AuthService struct {
	client    baas.AuthClient
	cache     repository.SessionCache
	inspector *jwt.Inspector
	snowflake *snowflake.Node
	metrics   *observability.Metrics
	cfg       config.Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(client baas.AuthClient, cache repository.SessionCache, inspector *jwt.Inspector, node *snowflake.Node, metrics *observability.Metrics, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		client:    client,
		cache:     cache,
		inspector: inspector,
		snowflake: node,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/Anan1218/homehealth/internal/service"),
	}
}

// Register signs a new user up and returns the issued session.
func (s *AuthService) Register(ctx context.Context, in UserCreate) (AuthToken, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	var metadata map[string]any
	if in.FullName != nil {
		metadata = map[string]any{"full_name": *in.FullName}
	}

	start := time.Now()
	result, err := s.client.SignUp(ctx, strings.TrimSpace(in.Email), in.Password, metadata)
	s.metrics.ObserveBaaS("sign_up", err, time.Since(start))
	if err != nil {
		recordError(span, err)
		return AuthToken{}, err
	}
	if result == nil || result.User == nil {
		recordError(span, domain.ErrCreateUser)
		return AuthToken{}, domain.ErrCreateUser
	}
	if result.Session == nil {
		recordError(span, domain.ErrConfirmationRequired)
		s.audit("auth.register.pending_confirmation", "user_id", result.User.ID)
		return AuthToken{}, domain.ErrConfirmationRequired
	}

	s.audit("auth.register.success", "user_id", result.User.ID)
	return newAuthToken(result), nil
}

// Login authenticates with email and password.
func (s *AuthService) Login(ctx context.Context, in UserLogin) (AuthToken, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	start := time.Now()
	result, err := s.client.SignInWithPassword(ctx, strings.TrimSpace(in.Email), in.Password)
	s.metrics.ObserveBaaS("sign_in", err, time.Since(start))
	if err != nil {
		recordError(span, err)
		return AuthToken{}, err
	}
	if result == nil || result.User == nil || result.Session == nil {
		recordError(span, domain.ErrInvalidCredentials)
		return AuthToken{}, domain.ErrInvalidCredentials
	}

	s.audit("auth.login.success", "user_id", result.User.ID)
	return newAuthToken(result), nil
}

// Logout ends the user's sessions at the BaaS. Locally the token is marked
// revoked and every cached profile of the user is dropped.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	token := strings.TrimSpace(accessToken)
	start := time.Now()
	err := s.client.SignOut(ctx, token)
	s.metrics.ObserveBaaS("sign_out", err, time.Since(start))
	if err != nil {
		recordError(span, err)
		return err
	}

	ttl := defaultRevocationTTL
	var subject, sessionID string
	if claims, err := s.inspector.Inspect(token); err == nil {
		ttl = s.inspector.TTL(claims)
		subject, sessionID = claims.Subject, claims.SessionID
	}
	if subject == "" {
		if cached, err := s.cache.GetUser(ctx, token); err == nil && cached != nil {
			subject = cached.ID
		}
	}
	if err := s.cache.Revoke(ctx, token, subject, ttl); err != nil {
		s.log().Warn("revoke token in session cache failed", zap.Error(err))
	}

	s.audit("auth.logout.success", "user_id", subject, "session_id", sessionID)
	return nil
}

// GetCurrentUser resolves the token to a user through the BaaS. Every failure
// is reported as domain.ErrInvalidToken; the cause is logged. Local inspection
// only short-circuits expired tokens and failed HS256 signatures; tokens it
// cannot read are still sent to the BaaS but never cached.
func (s *AuthService) GetCurrentUser(ctx context.Context, accessToken string) (*User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.GetCurrentUser")
	defer span.End()

	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	claims, inspectErr := s.inspector.Inspect(token)
	if errors.Is(inspectErr, jwt.ErrTokenExpired) || errors.Is(inspectErr, jwt.ErrTokenSignature) {
		s.log().Debug("access token rejected", zap.Error(inspectErr))
		recordError(span, inspectErr)
		return nil, domain.ErrInvalidToken
	}
	cacheable := inspectErr == nil
	if !cacheable {
		s.log().Debug("access token not inspectable, skipping session cache", zap.Error(inspectErr))
	}

	revoked, err := s.cache.IsRevoked(ctx, token)
	if err != nil {
		s.log().Warn("session cache revocation check failed", zap.Error(err))
	}
	if revoked {
		recordError(span, domain.ErrInvalidToken)
		return nil, domain.ErrInvalidToken
	}

	if cacheable {
		cached, err := s.cache.GetUser(ctx, token)
		if err != nil {
			s.log().Warn("session cache lookup failed", zap.Error(err))
		}
		if cached != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			user := newUser(*cached)
			return &user, nil
		}
	}

	start := time.Now()
	identity, err := s.client.GetUser(ctx, token)
	s.metrics.ObserveBaaS("get_user", err, time.Since(start))
	if err != nil {
		s.log().Info("auth server rejected access token", zap.Error(err))
		recordError(span, err)
		return nil, domain.ErrInvalidToken
	}
	if identity == nil {
		recordError(span, domain.ErrInvalidToken)
		return nil, domain.ErrInvalidToken
	}

	if cacheable {
		if err := s.cache.SaveUser(ctx, token, *identity, s.userCacheTTL(claims)); err != nil {
			s.log().Warn("session cache store failed", zap.Error(err))
		}
	}

	user := newUser(*identity)
	return &user, nil
}

func (s *AuthService) userCacheTTL(claims jwt.Claims) time.Duration {
	ttl := s.cfg.UserCacheTTL
	if remaining := s.inspector.TTL(claims); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	return ttl
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.log()
	fields := make([]zap.Field, 0, len(attrs)/2+3)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	if s.snowflake != nil {
		fields = append(fields, zap.Int64("event_id", s.snowflake.Generate().Int64()))
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
