package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/coa/pkg/models"
)

const chartOfAccountsPath = "/api/accounts/chart-of-accounts"

// Client is the HTTP binding of Service.
type Client struct {
	baseURL    string
	cookie     string
	httpClient *http.Client
	logger     *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to share a cookie jar.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout bounds each request. A client passed to WithHTTPClient is
// copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			h := *c.httpClient
			h.Timeout = d
			c.httpClient = &h
		}
	}
}

// WithSessionCookie sends the given Cookie header on every request.
func WithSessionCookie(cookie string) Option {
	return func(c *Client) { c.cookie = cookie }
}

func NewClient(baseURL string, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Service = (*Client)(nil)

func (c *Client) Accounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := c.get(ctx, "fetch accounts", chartOfAccountsPath, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) Transactions(ctx context.Context, account models.AccountNumber) ([]models.Transaction, error) {
	op := "fetch transactions"
	var txs []models.Transaction
	if err := c.get(ctx, op, chartOfAccountsPath+"/"+account.String(), &txs); err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)}
		}
	}
	return txs, nil
}

func (c *Client) DeleteTransactions(ctx context.Context, token string, txs []models.Transaction) (string, error) {
	return c.post(ctx, "delete transactions", chartOfAccountsPath+"/delete-transactions", token, txs)
}

func (c *Client) DeactivateAccounts(ctx context.Context, token string, accounts []models.Account) (string, error) {
	return c.post(ctx, "deactivate accounts", chartOfAccountsPath+"/deactivate-accounts", token, accounts)
}

// --- helpers ---

func (c *Client) get(ctx context.Context, op, path string, target any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("%w: decode body: %v", ErrUnexpectedResponse, err)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path, token string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%s: encode payload: %w", op, err)
	}

	resp, err := c.do(ctx, op, http.MethodPost, path, token, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.statusError(op, resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	var msg MessageResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &msg); err != nil {
			// The mutation went through; the refresh that follows is authoritative.
			c.logger.Debug("ignoring undecodable confirmation body", "op", op, "status", resp.StatusCode, "err", err)
		}
	}
	return msg.Message, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("X-CSRF-TOKEN", token)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, &TransportError{Op: op, Err: err}
	}
	c.logger.Debug("request done", "op", op, "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))
	return resp, nil
}

// statusError classifies a non-success response.
func (c *Client) statusError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	var msg MessageResponse
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Message != "" {
		return &ServiceError{Op: op, StatusCode: resp.StatusCode, Message: msg.Message}
	}
	return &TransportError{Op: op, Err: fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)}
}
