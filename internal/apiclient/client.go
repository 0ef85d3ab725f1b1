// Package apiclient provides an HTTP client for nexusd nodes.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is an HTTP client for the nexusd API. A bearer token obtained from
// Login is attached to authenticated calls.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client targeting the given base URL (e.g.
// "http://127.0.0.1:5000").
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, 30*time.Second)
}

// NewWithTimeout creates a client with a custom HTTP timeout. Mining can be
// slow at high difficulty, so the default is generous.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetToken sets the bearer token attached to authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// call performs one HTTP request and decodes a JSON response into result.
// If result is nil, the response body is discarded.
func (c *Client) call(method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Register creates an account and its ledger identity.
func (c *Client) Register(username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.call(http.MethodPost, "/api/register", body, nil)
}

// Login verifies credentials, stores the returned token on the client, and
// returns the account role.
func (c *Client) Login(username, password string) (role string, err error) {
	body := map[string]string{"username": username, "password": password}
	var result struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := c.call(http.MethodPost, "/api/login", body, &result); err != nil {
		return "", err
	}
	c.token = result.Token
	return result.Role, nil
}

// Balance returns the confirmed balance of the logged-in user.
func (c *Client) Balance() (float64, error) {
	var result struct {
		Balance float64 `json:"balance"`
	}
	if err := c.call(http.MethodGet, "/api/user/balance", nil, &result); err != nil {
		return 0, err
	}
	return result.Balance, nil
}

// Resource mirrors the server's resource dictionary form.
type Resource struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	SizeGB      float64 `json:"size_gb"`
	Uploader    string  `json:"uploader"`
	Seeds       int     `json:"seeds"`
	Peers       int     `json:"peers"`
	Description string  `json:"description"`
	Owner       string  `json:"owner_address"`
	FileHash    string  `json:"file_hash"`
	Category    string  `json:"category"`
	UploadTime  int64   `json:"upload_time"`
	Active      bool    `json:"is_active"`
	StoragePath string  `json:"storage_path"`
}

// Declare publishes a resource descriptor.
func (c *Client) Declare(res Resource) error {
	body := map[string]any{"file_data": res}
	return c.call(http.MethodPost, "/api/resources/declare", body, nil)
}

// Download pays for a resource owned by another user.
func (c *Client) Download(fileID uint64, fileOwner string) error {
	body := map[string]any{"file_id": fileID, "file_owner": fileOwner}
	return c.call(http.MethodPost, "/api/resources/download", body, nil)
}

// Transfer moves credits to another user.
func (c *Client) Transfer(to string, amount float64) error {
	body := map[string]any{"to": to, "amount": amount}
	return c.call(http.MethodPost, "/api/transfer", body, nil)
}

// MineResult is the outcome of a successful mine.
type MineResult struct {
	Miner        string  `json:"miner"`
	MiningReward float64 `json:"mining_reward"`
	BlockHash    string  `json:"block_hash"`
}

// Mine confirms the pending pool into a new block.
func (c *Client) Mine() (*MineResult, error) {
	var result MineResult
	if err := c.call(http.MethodPost, "/api/mine", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Resources lists every published resource.
func (c *Client) Resources() ([]Resource, error) {
	var result struct {
		Resources []Resource `json:"resources"`
	}
	if err := c.call(http.MethodGet, "/api/resources", nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// SearchQuery bounds a resource search. Nil bounds are unconstrained.
type SearchQuery struct {
	Keyword  string
	Category string
	MinSize  *float64
	MaxSize  *float64
	MinSeeds *int
}

// Search queries active resources.
func (c *Client) Search(q SearchQuery) ([]Resource, error) {
	params := make([]string, 0, 5)
	if q.Keyword != "" {
		params = append(params, "keyword="+q.Keyword)
	}
	if q.Category != "" {
		params = append(params, "category="+q.Category)
	}
	if q.MinSize != nil {
		params = append(params, "min_size="+strconv.FormatFloat(*q.MinSize, 'f', -1, 64))
	}
	if q.MaxSize != nil {
		params = append(params, "max_size="+strconv.FormatFloat(*q.MaxSize, 'f', -1, 64))
	}
	if q.MinSeeds != nil {
		params = append(params, "min_seeds="+strconv.Itoa(*q.MinSeeds))
	}

	path := "/api/resources/search"
	for i, p := range params {
		if i == 0 {
			path += "?" + p
		} else {
			path += "&" + p
		}
	}

	var result struct {
		Results []Resource `json:"results"`
	}
	if err := c.call(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// MyFiles lists the logged-in user's published resources.
func (c *Client) MyFiles() ([]Resource, error) {
	var result struct {
		Files []Resource `json:"files"`
	}
	if err := c.call(http.MethodGet, "/api/user/my-files", nil, &result); err != nil {
		return nil, err
	}
	return result.Files, nil
}

// Report flags a resource for review; the server deactivates it.
func (c *Client) Report(fileID uint64, fileOwner, reason string) error {
	body := map[string]any{"file_id": fileID, "file_owner": fileOwner, "reason": reason}
	return c.call(http.MethodPost, "/api/resources/report", body, nil)
}

// Stats is the system statistics document.
type Stats struct {
	TotalUsers          int   `json:"total_users"`
	BlockchainHeight    int   `json:"blockchain_height"`
	PendingTransactions int   `json:"pending_transactions"`
	CurrentDifficulty   int   `json:"current_difficulty"`
	IsValid             bool  `json:"is_valid"`
	Timestamp           int64 `json:"timestamp"`
}

// Stats fetches the system statistics.
func (c *Client) Stats() (*Stats, error) {
	var result Stats
	if err := c.call(http.MethodGet, "/api/system/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
