// Package webclient talks to the prompt board API and keeps a rendered
// prompt's vote display in step with the server.
package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emilythestrangee/prompt-board/backend/internal/models"
	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is safe for concurrent use. Use WithToken to act as a signed in user.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API rooted at baseURL, e.g. http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that sends token as its bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Authenticated reports whether the client carries a credential.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	body := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	body := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminLogin returns an admin token.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/admin/auth/login", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out struct {
		Categories []models.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) Models(ctx context.Context) ([]models.AIModel, error) {
	var out struct {
		Models []models.AIModel `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// CreateCategory requires an admin token.
func (c *Client) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	var out struct {
		Category models.Category `json:"category"`
	}
	body := models.CatalogEntryRequest{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPost, "/admin/categories", body, &out); err != nil {
		return nil, err
	}
	return &out.Category, nil
}

// CreateModel requires an admin token.
func (c *Client) CreateModel(ctx context.Context, name, description string) (*models.AIModel, error) {
	var out struct {
		Model models.AIModel `json:"model"`
	}
	body := models.CatalogEntryRequest{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPost, "/admin/models", body, &out); err != nil {
		return nil, err
	}
	return &out.Model, nil
}

func (c *Client) CreatePrompt(ctx context.Context, req models.CreatePromptRequest) (*models.Prompt, error) {
	var out struct {
		Prompt models.Prompt `json:"prompt"`
	}
	if err := c.do(ctx, http.MethodPost, "/prompts", req, &out); err != nil {
		return nil, err
	}
	return &out.Prompt, nil
}

// DiscoverQuery filters the discover feed. Zero values are omitted.
type DiscoverQuery struct {
	Page       int
	Limit      int
	CategoryID string
	ModelID    string
	Tag        string
}

func (q DiscoverQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID)
	}
	if q.ModelID != "" {
		v.Set("modelId", q.ModelID)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) Discover(ctx context.Context, q DiscoverQuery) (*models.PromptPage, error) {
	var out models.PromptPage
	if err := c.do(ctx, http.MethodGet, "/discover"+q.encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote submits value for promptID. Re-submitting the current vote removes it.
func (c *Client) Vote(ctx context.Context, promptID string, value int) (*votes.Result, error) {
	var out votes.Result
	body := models.VoteRequest{PromptID: promptID, Value: value}
	if err := c.do(ctx, http.MethodPost, "/votes", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVote returns the caller's vote on promptID, or nil.
func (c *Client) GetVote(ctx context.Context, promptID string) (*models.Vote, error) {
	var out struct {
		Vote *models.Vote `json:"vote"`
	}
	if err := c.do(ctx, http.MethodGet, "/votes/"+url.PathEscape(promptID), nil, &out); err != nil {
		return nil, err
	}
	return out.Vote, nil
}
