package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Nateight8/neolink-sub000/internal/rules"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

// Client talks to the room API on behalf of one identity.
type Client struct {
	baseURL  string
	identity string
	http     *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL, identity string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		identity:       identity,
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateRoom(ctx context.Context, req roomdto.CreateRoomRequest) (*roomdto.CreateRoomResponse, error) {
	var resp roomdto.CreateRoomResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Join(ctx context.Context, roomID string) (*roomdto.Snapshot, error) {
	var snap roomdto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/join", nil, &snap, true); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (*roomdto.Snapshot, error) {
	var snap roomdto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/rooms/"+roomID, nil, &snap, true); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) SubmitMove(ctx context.Context, roomID string, intent rules.MoveIntent) (*roomdto.Snapshot, error) {
	req := roomdto.MoveRequest{From: intent.From, To: intent.To, Promotion: intent.Promotion}
	var snap roomdto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/moves", req, &snap, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) Resign(ctx context.Context, roomID string) (*roomdto.Snapshot, error) {
	var snap roomdto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/resign", nil, &snap, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) OfferDraw(ctx context.Context, roomID string) (*roomdto.Snapshot, error) {
	var snap roomdto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/draw", nil, &snap, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) Abort(ctx context.Context, roomID string) (*roomdto.Snapshot, error) {
	var snap roomdto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/rooms/"+roomID+"/abort", nil, &snap, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Identity returns the identity this client authenticates as.
func (c *Client) Identity() string { return c.identity }

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-User-Id", c.identity)

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = decodeAPIError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

// decodeAPIError surfaces the server's rejection code so callers can
// branch on roomdto codes instead of parsing messages.
func decodeAPIError(status int, body []byte) error {
	var derr roomdto.DomainError
	if err := json.Unmarshal(body, &derr); err == nil && derr.Code != "" {
		return derr
	}
	return fmt.Errorf("room api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
