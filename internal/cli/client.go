package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Client calls the tournament JSON API
type Client struct {
	baseURL    string
	token      string
	verbose    bool
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// SetVerbose enables logging of each request to stderr
func (c *Client) SetVerbose(verbose bool) {
	c.verbose = verbose
}

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsUnauthenticated reports whether err is a 401 from the server
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Do sends a request with an optional JSON body and decodes a JSON result into result
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.verbose {
		fmt.Fprintf(os.Stderr, "%s %s -> %d\n", method, url, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Error.Code == "" {
			return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) Get(path string, result any) error {
	return c.Do(context.Background(), http.MethodGet, path, nil, result)
}

func (c *Client) Post(path string, body, result any) error {
	return c.Do(context.Background(), http.MethodPost, path, body, result)
}

func (c *Client) Put(path string, body, result any) error {
	return c.Do(context.Background(), http.MethodPut, path, body, result)
}

func (c *Client) Patch(path string, body, result any) error {
	return c.Do(context.Background(), http.MethodPatch, path, body, result)
}

func (c *Client) Delete(path string) error {
	return c.Do(context.Background(), http.MethodDelete, path, nil, nil)
}
