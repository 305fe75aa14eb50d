package client

// admin_client.go wraps chatd's /admin HTTP surface for the CLI.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type AdminClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type StatsResponse struct {
	BlockedUsers     int `json:"blockedUsers"`
	RateLimitEntries int `json:"rateLimitEntries"`
}

type SweepResponse struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

type AuditEvent struct {
	ID        int64     `json:"id"`
	Event     string    `json:"event"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewAdminClient(baseURL string) *AdminClient {
	return &AdminClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetToken sets the bearer token used for protected endpoints.
func (c *AdminClient) SetToken(token string) {
	c.token = token
}

// Login exchanges the admin password for a JWT.
func (c *AdminClient) Login(password string) (string, error) {
	jsonData, err := json.Marshal(LoginRequest{Password: password})
	if err != nil {
		return "", err
	}

	response, err := c.httpClient.Post(c.baseURL+"/admin/login", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status: %s", response.Status)
	}

	var result LoginResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// Stats fetches the backend's current security counters.
func (c *AdminClient) Stats() (*StatsResponse, error) {
	var result StatsResponse
	if err := c.do(http.MethodGet, "/admin/stats", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BlockUser adds a username to the backend's block list.
func (c *AdminClient) BlockUser(username string) error {
	return c.do(http.MethodPost, "/admin/blocked/"+username, nil)
}

// UnblockUser removes a username from the block list.
func (c *AdminClient) UnblockUser(username string) error {
	return c.do(http.MethodDelete, "/admin/blocked/"+username, nil)
}

// Events fetches the most recent persisted security events.
func (c *AdminClient) Events() ([]AuditEvent, error) {
	var result []AuditEvent
	if err := c.do(http.MethodGet, "/admin/events", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Sweep forces a retention pass over one channel.
func (c *AdminClient) Sweep(channelKey string) (*SweepResponse, error) {
	var result SweepResponse
	if err := c.do(http.MethodPost, "/admin/sweep/"+channelKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AdminClient) do(method, path string, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status: %s", response.Status)
	}

	if out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
