package service

import "github.com/Anan1218/homehealth/internal/domain"

const tokenTypeBearer = "bearer"

// UserCreate is the registration payload.
type UserCreate struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
}

// UserLogin is the password login payload.
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// User is the profile returned to clients.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name"`
	CreatedAt string  `json:"created_at"`
}

// AuthToken bundles the BaaS access token with the user profile.
type AuthToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
	User        User   `json:"user"`
}

func newUser(identity domain.Identity) User {
	return User{
		ID:        identity.ID,
		Email:     identity.Email,
		FullName:  identity.FullName(),
		CreatedAt: identity.CreatedAt,
	}
}

func newAuthToken(result *domain.AuthResult) AuthToken {
	return AuthToken{
		AccessToken: result.Session.AccessToken,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   result.Session.ExpiresAt,
		User:        newUser(*result.User),
	}
}
