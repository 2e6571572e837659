// Package client is a Go client for the TodoKeeper HTTP API. It keeps the
// session cookie in a jar, so a Client behaves like one logged-in browser.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks to one TodoKeeper server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*http.Client) error

// WithCA trusts the PEM certificate in caFile, for servers using a
// self-signed TLS certificate.
func WithCA(caFile string) Option {
	return func(c *http.Client) error {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return fmt.Errorf("failed to read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return errors.New("failed to parse CA cert")
		}
		c.Transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: caPool}}
		return nil
	}
}

// WithHTTPClient replaces the transport and timeout settings. The cookie
// jar is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *http.Client) error {
		c.Transport = hc.Transport
		c.Timeout = hc.Timeout
		return nil
	}
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	for _, opt := range opts {
		if err := opt(hc); err != nil {
			return nil, err
		}
	}
	return &Client{baseURL: baseURL, http: hc}, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	User models.Identity `json:"user"`
}

// Register creates an account and logs in as it.
func (c *Client) Register(ctx context.Context, username, password string) (models.Identity, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, &resp)
	return resp.User, err
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, username, password string) (models.Identity, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &resp)
	return resp.User, err
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// List returns the caller's tasks in the given order.
func (c *Client) List(ctx context.Context, order models.SortOrder) ([]models.Task, error) {
	var resp struct {
		Todos []models.Task `json:"todos"`
	}
	path := "/api/todos?sort=" + url.QueryEscape(string(order))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Todos, nil
}

type todoResponse struct {
	Todo *models.Task `json:"todo"`
}

// Create adds a task.
func (c *Client) Create(ctx context.Context, nt models.NewTask) (*models.Task, error) {
	body := map[string]any{"title": nt.Title}
	if nt.Description != nil {
		body["description"] = *nt.Description
	}
	if nt.DueAt != nil {
		body["dueAt"] = *nt.DueAt
	}
	var resp todoResponse
	if err := c.do(ctx, http.MethodPost, "/api/todos", body, &resp); err != nil {
		return nil, err
	}
	return resp.Todo, nil
}

// Update sends the supplied fields of p.
func (c *Client) Update(ctx context.Context, id int64, p models.TaskPatch) (*models.Task, error) {
	body := map[string]any{}
	if p.Title.Set {
		body["title"] = p.Title.Value
	}
	if p.Description.Set {
		body["description"] = p.Description.Value
	}
	if p.DueAt.Set {
		body["dueAt"] = p.DueAt.Value
	}
	if p.Completed.Set {
		body["completed"] = p.Completed.Value
	}
	var resp todoResponse
	if err := c.do(ctx, http.MethodPut, "/api/todos/"+strconv.FormatInt(id, 10), body, &resp); err != nil {
		return nil, err
	}
	return resp.Todo, nil
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/todos/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = string(bytes.TrimSpace(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
