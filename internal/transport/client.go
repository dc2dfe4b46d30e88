// Package transport is the HTTP layer every SDK call goes through.
//
// It wires the two interceptor stages around net/http: the request stage
// sets JSON content framing unless the caller supplied a multipart form,
// and the response stage runs the refresh-and-replay protocol for 401s on
// non-exempt endpoints. The session credential is an opaque same-origin
// cookie held in the client's jar; it never appears in bodies or headers
// set here.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/errors"
	"github.com/felixgeelhaar/bizdir/internal/log"
)

// Refresher renews the session credential. Implemented by the session
// manager; the implementation is required to single-flight concurrent
// calls so parallel 401s cannot race a rotating credential.
type Refresher interface {
	// RefreshToken returns true when the credential was renewed and the
	// original request may be replayed.
	RefreshToken(ctx context.Context) bool
}

// Form is a caller-framed request body, typically multipart. The transport
// passes ContentType through untouched so the boundary framing survives.
type Form struct {
	ContentType string
	Body        []byte
}

// Client issues API requests against a single origin.
type Client struct {
	base   *url.URL
	httpc  *http.Client
	logger *log.Logger

	mu        sync.RWMutex
	refresher Refresher
}

// New creates a Client for the given API origin. The cookie jar carrying
// the session credential is created here and lives as long as the client.
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &Client{
		base:   base,
		httpc:  &http.Client{Jar: jar, Timeout: timeout},
		logger: logger,
	}, nil
}

// SetRefresher installs the session refresher. Set once at wiring time,
// after the session manager (which itself needs this client) exists.
func (c *Client) SetRefresher(r Refresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refresher = r
}

func (c *Client) currentRefresher() Refresher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresher
}

// Get issues a GET and decodes the envelope into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with the given body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with the given body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Patch issues a PATCH with the given body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch b := body.(type) {
	case nil:
	case *Form:
		// Caller-supplied framing; leave the content type exactly as given.
		payload = b.Body
		contentType = b.ContentType
	default:
		payload, err = json.Marshal(b)
		if err != nil {
			return errors.Wrap(errors.KindValidation, "encode request body", err)
		}
		contentType = "application/json"
	}

	reqID := uuid.NewString()
	start := time.Now()

	status, respBody, err := c.send(ctx, method, path, payload, contentType, reqID)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "request_id", reqID, "error", err.Error())
		return errors.NewNetwork(err)
	}

	c.logger.Debug("request completed",
		"method", method, "path", path, "status", status,
		"request_id", reqID, "duration_ms", time.Since(start).Milliseconds())

	if status >= 200 && status < 300 {
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errors.Wrap(errors.KindServer, "decode response body", err)
			}
		}
		return nil
	}

	apiErr := errors.FromResponse(status, respBody)

	// Retry-once protocol: a 401 on a non-exempt endpoint triggers a
	// single credential refresh and one replay. The marker travels in the
	// context, so the replayed call can never recurse a second time.
	if apiErr.Kind == errors.KindAuth && !api.RefreshExempt(requestPath(path)) && !wasRetried(ctx) {
		if r := c.currentRefresher(); r != nil {
			if r.RefreshToken(ctx) {
				c.logger.Debug("replaying request after refresh", "method", method, "path", path, "request_id", reqID)
				return c.do(markRetried(ctx), method, path, body, out)
			}
			// Refresh failed; the session manager has already reset the
			// session. Propagate the original failure.
		}
	}
	return apiErr
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType, reqID string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// requestPath strips the query string so exemption matching sees the bare
// endpoint path.
func requestPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
