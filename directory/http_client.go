package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPClient talks to the directory service over its REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a directory client for the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) IsMember(ctx context.Context, serverID, userID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/servers/%s/members/%s", c.baseURL,
		url.PathEscape(serverID), url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory membership lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, c.decodeError(resp)
	}
}

func (c *HTTPClient) AddMember(ctx context.Context, serverID, userID, accessToken, roleID string) (*Member, error) {
	endpoint := fmt.Sprintf("%s/servers/%s/members/%s", c.baseURL,
		url.PathEscape(serverID), url.PathEscape(userID))

	payload := struct {
		AccessToken string   `json:"access_token"`
		Roles       []string `json:"roles,omitempty"`
	}{AccessToken: accessToken}
	if roleID != "" {
		payload.Roles = []string{roleID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory add-member call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The directory could not use the delegated token.
		return nil, &Error{Code: CodeUnauthorized, Message: "delegated token rejected"}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.decodeError(resp)
	}

	var member Member
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil, fmt.Errorf("failed to decode add-member response: %w", err)
	}
	return &member, nil
}

func (c *HTTPClient) ServerName(ctx context.Context, serverID string) (string, bool) {
	endpoint := fmt.Sprintf("%s/servers/%s", c.baseURL, url.PathEscape(serverID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("server_id", serverID).Msg("Directory server lookup failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var server struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&server); err != nil {
		return "", false
	}
	return server.Name, true
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bot "+c.apiKey)
	}
}

// decodeError turns a non-success response into a *Error, preserving the
// directory's own code when the body carries one.
func (c *HTTPClient) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var derr Error
	if err := json.Unmarshal(raw, &derr); err == nil && derr.Code != "" {
		return &derr
	}
	return &Error{
		Code:    fmt.Sprintf("http_%d", resp.StatusCode),
		Message: http.StatusText(resp.StatusCode),
	}
}

var _ Directory = (*HTTPClient)(nil)
