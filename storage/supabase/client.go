// Package supabase is the client for the managed platform that owns all
// persistence, authentication and file storage. It forwards filtered REST
// queries, auth calls and RPCs; it never retries and never interprets
// upstream failures beyond capturing status and message.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/profile"
)

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string

	http *http.Client
	auth *http.Client // identity provider calls use a short fixed timeout
}

func NewClient(cfg core.SupabaseConfig) *Client {
	return &Client{
		baseURL:    cfg.URL,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceRoleKey,
		http:       &http.Client{Timeout: 30 * time.Second},
		auth:       &http.Client{Timeout: 5 * time.Second},
	}
}

// APIError is an upstream platform failure, surfaced opaquely.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("platform error: status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body, dst interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling platform")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeError(res)
	}
	if dst != nil {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			return errors.Wrap(err, "decoding platform response")
		}
	}
	return nil
}

func (c *Client) restHeaders() map[string]string {
	return map[string]string{
		"apikey":        c.serviceKey,
		"Authorization": "Bearer " + c.serviceKey,
	}
}

func decodeError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Details string `json:"error_description"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err == nil {
		apiErr.Code = payload.Code
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Msg != "":
			apiErr.Message = payload.Msg
		default:
			apiErr.Message = payload.Details
		}
	}

	// a single-object request that matched no rows is a plain not-found
	if res.StatusCode == http.StatusNotAcceptable || res.StatusCode == http.StatusNotFound || apiErr.Code == "PGRST116" {
		return core.ErrNotFound
	}
	return apiErr
}

// Profile columns fetched for authorization decisions and /common/me.
const profileColumns = "id,full_name,email,role,church_id,phone,date_of_birth,avatar_url"

var _ profile.Repository = (*Client)(nil)

// GetProfileByID implements profile.Repository.
func (c *Client) GetProfileByID(ctx context.Context, id string) (profile.Profile, error) {
	var prof profile.Profile
	err := c.From("users").Select(profileColumns).Eq("id", id).Single().Get(ctx, &prof)
	return prof, err
}
