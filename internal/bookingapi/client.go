package bookingapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nbenliogludev/go-booking-e2e/internal/booking"
	"github.com/nbenliogludev/go-booking-e2e/internal/config"
	"github.com/nbenliogludev/go-booking-e2e/internal/logging"
)

// Observer is told about every finished request. status is 0 when the
// request never got an answer.
type Observer func(operation string, status int)

// Client talks to the restful-booker API.
type Client struct {
	http     *resty.Client
	baseURL  string
	username string
	password string
	limiter  *rate.Limiter
	observe  Observer
	logger   *zap.Logger
}

type Option func(*Client)

// WithTransport swaps the HTTP transport, used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(rt) }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l).Named("bookingapi") }
}

// New builds a client from cfg. Requests are not retried.
func New(cfg config.APIConfig, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})
	return c
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// Authenticate posts the configured credentials and returns the session token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	var out authResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(authRequest{Username: c.username, Password: c.password}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/auth")
	if err := c.check("auth", "/auth", resp, err); err != nil {
		return "", err
	}
	if out.Token == "" {
		if out.Reason != "" {
			return "", fmt.Errorf("%w: %s", ErrAuthFailed, out.Reason)
		}
		return "", ErrAuthFailed
	}
	return out.Token, nil
}

// ListBookings returns every booking id.
func (c *Client) ListBookings(ctx context.Context) ([]int, error) {
	return c.SearchBookings(ctx, booking.Filter{})
}

// SearchBookings returns ids of bookings matching f.
func (c *Client) SearchBookings(ctx context.Context, f booking.Filter) ([]int, error) {
	op := "search"
	if f.Checkin == "" && f.Checkout == "" {
		op = "list"
	}

	var out []booking.Summary
	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		ForceContentType("application/json")
	if f.Checkin != "" {
		req.SetQueryParam("checkin", f.Checkin)
	}
	if f.Checkout != "" {
		req.SetQueryParam("checkout", f.Checkout)
	}

	resp, err := req.Get("/booking")
	if err := c.check(op, "/booking", resp, err); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// GetBooking reads one record. A 404 maps to ErrNotFound.
func (c *Client) GetBooking(ctx context.Context, id int) (*booking.Record, error) {
	var out booking.Record
	path := "/booking/" + strconv.Itoa(id)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		ForceContentType("application/json").
		Get(path)
	if err := c.check("get", path, resp, err); err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	out.ID = id
	return &out, nil
}

// DeleteBooking removes a booking using token as the session cookie. Any
// 2xx is success (restful-booker answers 201).
func (c *Client) DeleteBooking(ctx context.Context, id int, token string) error {
	path := "/booking/" + strconv.Itoa(id)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Cookie", "token="+token).
		Delete(path)
	return c.check("delete", path, resp, err)
}

// FindTestBookings reads every booking and keeps the ids whose record
// carries marker. Records that fail to load are skipped.
func (c *Client) FindTestBookings(ctx context.Context, marker string) ([]int, error) {
	ids, err := c.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	var found []int
	for _, id := range ids {
		rec, err := c.GetBooking(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return found, ctx.Err()
			}
			c.logger.Warn("skip unreadable booking", zap.Int("booking_id", id), zap.Error(err))
			continue
		}
		if rec.HasMarker(marker) {
			found = append(found, id)
		}
	}

	c.logger.Info("test bookings found",
		zap.String("marker", marker),
		zap.Int("scanned", len(ids)),
		zap.Int("matched", len(found)),
	)
	return found, nil
}

// CleanupTestBookings deletes every booking carrying marker and returns how
// many were deleted. Individual delete failures are logged and skipped.
func (c *Client) CleanupTestBookings(ctx context.Context, marker string) (int, error) {
	ids, err := c.FindTestBookings(ctx, marker)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	token, err := c.Authenticate(ctx)
	if err != nil {
		return 0, fmt.Errorf("authenticate for cleanup: %w", err)
	}

	deleted := 0
	for _, id := range ids {
		if err := c.DeleteBooking(ctx, id, token); err != nil {
			if ctx.Err() != nil {
				return deleted, ctx.Err()
			}
			c.logger.Warn("delete test booking failed", zap.Int("booking_id", id), zap.Error(err))
			continue
		}
		c.logger.Info("deleted test booking", zap.Int("booking_id", id))
		deleted++
	}
	return deleted, nil
}

func (c *Client) check(op, path string, resp *resty.Response, err error) error {
	if err != nil {
		c.notify(op, 0)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &NetworkError{Operation: op, URL: c.baseURL + path, Err: err}
	}

	c.notify(op, resp.StatusCode())
	if resp.IsSuccess() {
		return nil
	}
	return &APIError{Operation: op, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 200)}
}

func (c *Client) notify(op string, status int) {
	if c.observe != nil {
		c.observe(op, status)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
