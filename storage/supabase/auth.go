package supabase

import (
	"context"
	"errors"
	"net/http"
)

// ErrInvalidCredentials is returned when the identity provider rejects an
// email/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials")

type (
	// Session is the token bundle issued by the identity provider.
	Session struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		TokenType    string `json:"token_type"`
	}

	// AuthUser is the identity provider's authentication record, distinct
	// from the stored profile.
	AuthUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	// AuthResult pairs the created/authenticated user with its session.
	// Session is nil when the provider withholds tokens, e.g. while email
	// verification is pending.
	AuthResult struct {
		User    *AuthUser
		Session *Session
	}
)

func (c *Client) anonHeaders() map[string]string {
	return map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + c.anonKey,
	}
}

func (c *Client) adminHeaders() map[string]string {
	return c.restHeaders()
}

// gotrueResponse covers both response shapes: a session envelope with an
// embedded user, or a bare user record.
type gotrueResponse struct {
	Session
	User *AuthUser `json:"user"`

	// bare user shape
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r gotrueResponse) result() AuthResult {
	out := AuthResult{User: r.User}
	if out.User == nil && r.ID != "" {
		out.User = &AuthUser{ID: r.ID, Email: r.Email}
	}
	if r.AccessToken != "" {
		s := r.Session
		out.Session = &s
	}
	return out
}

// SignInWithPassword authenticates against the identity provider using the
// anon key. Also used to re-authenticate before a password change.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (AuthResult, error) {
	url := c.baseURL + "/auth/v1/token?grant_type=password"
	body := map[string]string{"email": email, "password": password}

	var res gotrueResponse
	err := c.do(ctx, c.auth, http.MethodPost, url, c.anonHeaders(), body, &res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	return res.result(), nil
}

// SignUp registers a new identity. The returned session is nil when the
// provider requires email verification first.
func (c *Client) SignUp(ctx context.Context, email, password string) (AuthResult, error) {
	url := c.baseURL + "/auth/v1/signup"
	body := map[string]string{"email": email, "password": password}

	var res gotrueResponse
	if err := c.do(ctx, c.auth, http.MethodPost, url, c.anonHeaders(), body, &res); err != nil {
		return AuthResult{}, err
	}
	return res.result(), nil
}

// AdminCreateUser provisions an identity with a pre-confirmed email, used by
// admins onboarding teachers.
func (c *Client) AdminCreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (AuthResult, error) {
	url := c.baseURL + "/auth/v1/admin/users"
	body := map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	if metadata != nil {
		body["user_metadata"] = metadata
	}

	var res gotrueResponse
	if err := c.do(ctx, c.auth, http.MethodPost, url, c.adminHeaders(), body, &res); err != nil {
		return AuthResult{}, err
	}
	return res.result(), nil
}

// AdminUpdateUserPassword sets a new password for the given identity.
func (c *Client) AdminUpdateUserPassword(ctx context.Context, userID, password string) error {
	url := c.baseURL + "/auth/v1/admin/users/" + userID
	body := map[string]string{"password": password}
	return c.do(ctx, c.auth, http.MethodPut, url, c.adminHeaders(), body, nil)
}
