// Package payrollapi is the HTTP client for the backend payroll preview API.
package payrollapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds payroll API client configuration
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client implements port.PayrollAPI over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	logger     *zap.Logger
}

var _ port.PayrollAPI = (*Client)(nil)

// NewClient creates a new payroll API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithHTTPClient replaces the transport, mainly for tests
func (c *Client) WithHTTPClient(hc HTTPClient) *Client {
	c.httpClient = hc
	return c
}

// LoadPreview fetches the summary rows of month
func (c *Client) LoadPreview(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
	query := url.Values{}
	query.Set("month", month)
	if forceRefresh {
		query.Set("forceRefresh", "true")
	}

	body, err := c.get(ctx, "load preview", "/api/payroll/preview", query)
	if err != nil {
		return nil, err
	}

	page, err := NormalizeListResponse(body)
	if err != nil {
		c.logger.Warn("Unexpected preview response", zap.String("month", month), zap.Error(err))
		return nil, err
	}
	return page, nil
}

// LoadFullDetail fetches the full breakdown of one employee
func (c *Client) LoadFullDetail(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
	query := url.Values{}
	query.Set("month", month)

	path := "/api/payroll/preview/employees/" + url.PathEscape(employeeID)
	body, err := c.get(ctx, "load full detail", path, query)
	if err != nil {
		return nil, err
	}

	record, err := NormalizeDetailResponse(body)
	if err != nil {
		c.logger.Warn("Unexpected detail response",
			zap.String("month", month),
			zap.String("employee_id", employeeID),
			zap.Error(err))
		return nil, err
	}
	return record, nil
}

// get performs a GET and maps failures onto the entity error taxonomy
func (c *Client) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &entity.TransportError{Op: op, Message: "failed to create request", Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Payroll API request failed",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &entity.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &entity.TransportError{Op: op, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	c.logger.Debug("Payroll API response",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s: %w", op, entity.ErrAuthRequired)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s: %w", op, entity.ErrForbidden)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.Warn("Payroll API returned non-2xx status",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return nil, &entity.TransportError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}

	return body, nil
}

// errorMessage pulls a message field out of an error body when there is one
func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(status)
}

// IsAuthError reports whether err should send the user back to login
func IsAuthError(err error) bool {
	return errors.Is(err, entity.ErrAuthRequired)
}
