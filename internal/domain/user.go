package domain

// Identity is a user record as returned by the BaaS auth server.
type Identity struct {
	ID           string
	Email        string
	Phone        string
	Role         string
	UserMetadata map[string]any
	CreatedAt    string
	UpdatedAt    string
}

// FullName reads the full_name entry from user metadata verbatim. It returns
// nil when the entry is absent or not a string.
func (i Identity) FullName() *string {
	if i.UserMetadata == nil {
		return nil
	}
	name, ok := i.UserMetadata["full_name"].(string)
	if !ok {
		return nil
	}
	return &name
}

// Session is a BaaS session issued on sign-up or password sign-in.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	ExpiresAt    int64
}

// AuthResult bundles whatever an auth call returned. Either field may be nil:
// sign-up with pending email confirmation yields a user without a session.
type AuthResult struct {
	User    *Identity
	Session *Session
}
