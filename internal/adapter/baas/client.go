package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Anan1218/homehealth/internal/domain"
)

const maxBodyBytes = 1 << 20

// AuthClient encapsulates outbound calls to the BaaS auth server.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// APIError is a non-2xx response from the auth server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth server request failed with status %d", e.Status)
	}
	return e.Message
}

// HTTPClient is the default AuthClient speaking the GoTrue REST contract.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

var _ AuthClient = (*HTTPClient)(nil)

// Option customises client instantiation.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithClock overrides the time source used to derive session expiry.
func WithClock(now func() time.Time) Option {
	return func(c *HTTPClient) {
		if now != nil {
			c.now = now
		}
	}
}

// NewHTTPClient builds a client for the project at baseURL authenticated with apiKey.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/auth/v1",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignUp creates a user. metadata is stored as user_metadata.
func (c *HTTPClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.AuthResult, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	var raw map[string]any
	if err := c.do(ctx, http.MethodPost, "/signup", body, "", &raw); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return c.parseAuthResponse(raw), nil
}

// SignInWithPassword exchanges email and password for a session.
func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	var raw map[string]any
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", body, "", &raw); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return c.parseAuthResponse(raw), nil
}

// SignOut revokes every session of the token's user.
func (c *HTTPClient) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, "/logout?scope=global", nil, accessToken, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// GetUser loads the user the access token belongs to.
func (c *HTTPClient) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	var raw map[string]any
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, &raw); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return parseIdentity(raw), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, token string, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	bearer := strings.TrimSpace(token)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, payload)
	}
	if v == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(status int, payload []byte) *APIError {
	apiErr := &APIError{Status: status}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return apiErr
	}
	apiErr.Code = stringValue(coalesce(raw["error_code"], raw["error"], raw["code"]))
	apiErr.Message = stringValue(coalesce(raw["msg"], raw["error_description"], raw["message"], raw["error"]))
	return apiErr
}

// parseAuthResponse accepts both a session payload (access_token plus user)
// and a bare user payload.
func (c *HTTPClient) parseAuthResponse(raw map[string]any) *domain.AuthResult {
	result := &domain.AuthResult{}
	if raw == nil {
		return result
	}
	if token := stringValue(raw["access_token"]); token != "" {
		session := &domain.Session{
			AccessToken:  token,
			RefreshToken: stringValue(raw["refresh_token"]),
			TokenType:    stringValue(raw["token_type"]),
			ExpiresIn:    int64Value(raw["expires_in"]),
			ExpiresAt:    int64Value(raw["expires_at"]),
		}
		if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
			session.ExpiresAt = c.now().Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
		}
		result.Session = session
		if user, ok := raw["user"].(map[string]any); ok {
			result.User = parseIdentity(user)
		}
		return result
	}
	if _, ok := raw["id"]; ok {
		result.User = parseIdentity(raw)
	}
	return result
}

func parseIdentity(raw map[string]any) *domain.Identity {
	id := stringValue(raw["id"])
	if id == "" {
		return nil
	}
	identity := &domain.Identity{
		ID:        id,
		Email:     stringValue(raw["email"]),
		Phone:     stringValue(raw["phone"]),
		Role:      stringValue(raw["role"]),
		CreatedAt: stringValue(raw["created_at"]),
		UpdatedAt: stringValue(raw["updated_at"]),
	}
	if meta, ok := raw["user_metadata"].(map[string]any); ok {
		identity.UserMetadata = meta
	}
	return identity
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func int64Value(input any) int64 {
	switch v := input.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func coalesce(values ...any) any {
	for _, v := range values {
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return v
			}
		case nil:
			continue
		default:
			return v
		}
	}
	return nil
}
