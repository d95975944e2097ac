// Package client is a thin wrapper over the finance API. It attaches the
// bearer token of the last login and unwraps the response envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/finance-api/models"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status      int
	Message     string
	Errors      []string
	Requires2FA bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type envelope[T any] struct {
	Success     bool         `json:"success"`
	Count       *int         `json:"count"`
	Data        T            `json:"data"`
	Error       string       `json:"error"`
	Errors      []string     `json:"errors"`
	Message     string       `json:"message"`
	Token       string       `json:"token"`
	User        *models.User `json:"user"`
	Requires2FA bool         `json:"requires_2fa"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the token sent with every request. An empty token
// sends none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func do[T any](ctx context.Context, c *Client, method, path string, body any) (*envelope[T], error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("decode error: %v, body: %s", err, raw)}
	}
	if resp.StatusCode >= 300 || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Error, Errors: env.Errors, Requires2FA: env.Requires2FA}
	}
	return &env, nil
}

// ============================================================================
// AUTH
// ============================================================================

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	env, err := do[json.RawMessage](ctx, c, http.MethodPost, "/api/auth/register", req)
	if err != nil {
		return nil, err
	}
	c.SetToken(env.Token)
	return env.User, nil
}

// Login stores the returned token for later calls.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	env, err := do[json.RawMessage](ctx, c, http.MethodPost, "/api/auth/login", req)
	if err != nil {
		return nil, err
	}
	c.SetToken(env.Token)
	return env.User, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	env, err := do[models.User](ctx, c, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) Logout() {
	c.SetToken("")
}

// ============================================================================
// RESOURCES
// ============================================================================

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	env, err := do[[]T](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func one[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	env, err := do[T](ctx, c, method, path, body)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func remove(ctx context.Context, c *Client, path string) error {
	_, err := do[json.RawMessage](ctx, c, http.MethodDelete, path, nil)
	return err
}

func itemPath(collection, id string) string {
	return "/api/" + collection + "/" + url.PathEscape(id)
}

func (c *Client) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return list[models.Transaction](ctx, c, "/api/transactions")
}

func (c *Client) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return one[models.Transaction](ctx, c, http.MethodGet, itemPath("transactions", id), nil)
}

func (c *Client) CreateTransaction(ctx context.Context, in models.TransactionInput) (*models.Transaction, error) {
	return one[models.Transaction](ctx, c, http.MethodPost, "/api/transactions", in)
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, in models.TransactionInput) (*models.Transaction, error) {
	return one[models.Transaction](ctx, c, http.MethodPut, itemPath("transactions", id), in)
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return remove(ctx, c, itemPath("transactions", id))
}

func (c *Client) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return list[models.Goal](ctx, c, "/api/goals")
}

func (c *Client) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	return one[models.Goal](ctx, c, http.MethodGet, itemPath("goals", id), nil)
}

func (c *Client) CreateGoal(ctx context.Context, in models.GoalInput) (*models.Goal, error) {
	return one[models.Goal](ctx, c, http.MethodPost, "/api/goals", in)
}

func (c *Client) UpdateGoal(ctx context.Context, id string, in models.GoalInput) (*models.Goal, error) {
	return one[models.Goal](ctx, c, http.MethodPut, itemPath("goals", id), in)
}

func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return remove(ctx, c, itemPath("goals", id))
}

func (c *Client) Contribute(ctx context.Context, id string, amount float64) (*models.Goal, error) {
	body := map[string]float64{"amount": amount}
	return one[models.Goal](ctx, c, http.MethodPost, itemPath("goals", id)+"/contribute", body)
}

func (c *Client) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	return list[models.Budget](ctx, c, "/api/budgets")
}

func (c *Client) GetBudget(ctx context.Context, id string) (*models.Budget, error) {
	return one[models.Budget](ctx, c, http.MethodGet, itemPath("budgets", id), nil)
}

func (c *Client) CreateBudget(ctx context.Context, in models.BudgetInput) (*models.Budget, error) {
	return one[models.Budget](ctx, c, http.MethodPost, "/api/budgets", in)
}

func (c *Client) UpdateBudget(ctx context.Context, id string, in models.BudgetInput) (*models.Budget, error) {
	return one[models.Budget](ctx, c, http.MethodPut, itemPath("budgets", id), in)
}

func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	return remove(ctx, c, itemPath("budgets", id))
}

// ============================================================================
// REPORTS
// ============================================================================

func (c *Client) Summary(ctx context.Context) (*models.Summary, error) {
	return one[models.Summary](ctx, c, http.MethodGet, "/api/reports/summary", nil)
}

func (c *Client) Recommendations(ctx context.Context, mode string) (*models.RecommendationSet, error) {
	return one[models.RecommendationSet](ctx, c, http.MethodGet, "/api/reports/recommendations?mode="+url.QueryEscape(mode), nil)
}

func (c *Client) BudgetPlan(ctx context.Context, strategy string) (*models.BudgetPlan, error) {
	return one[models.BudgetPlan](ctx, c, http.MethodGet, "/api/reports/budget-plan?strategy="+url.QueryEscape(strategy), nil)
}
