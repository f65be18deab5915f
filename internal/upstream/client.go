// Package upstream is the authenticated HTTP client against the
// storefront backend. Every outbound call carries the session's access
// token when one is present; a single 401 is resolved transparently by
// refreshing the access token and retrying the request exactly once.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"palantir/internal/errors"
	"palantir/internal/session"

	"go.uber.org/zap"
)

const refreshPath = "/api/token/refresh/"

// Fallback messages used when a failing response carries no decodable
// error body. One per verb, matching the backend's client contract.
const (
	fallbackGet    = "Request failed"
	fallbackPost   = "Post failed"
	fallbackForm   = "Form request failed"
	fallbackUpdate = "Update failed"
	fallbackDelete = "Delete failed"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	store      session.Store
	logger     *zap.Logger

	refreshMu  sync.Mutex
	refreshing *refreshCall
}

// refreshCall is one in-flight token refresh. Concurrent 401s share a
// single call and all wait for its outcome instead of each hitting the
// refresh endpoint.
type refreshCall struct {
	done chan struct{}
	ok   bool
}

// New builds a client against baseURL. store may be nil when the
// session should live only in memory (tests).
func New(baseURL string, timeout time.Duration, sess *session.Session, store session.Store, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		session: sess,
		store:   store,
		logger:  logger,
	}
}

// Session exposes the client's session for callers that need to mutate
// it directly (login, logout).
func (c *Client) Session() *session.Session {
	return c.session
}

// Persist writes the current session to the store, if one is configured.
func (c *Client) Persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, c.session.Current(), c.session.User()); err != nil {
		c.logger.Warn("persisting session failed", zap.Error(err))
	}
}

// Discard clears the session in memory and in the store.
func (c *Client) Discard(ctx context.Context) {
	c.session.Clear()
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx); err != nil {
		c.logger.Warn("deleting stored session failed", zap.Error(err))
	}
}

func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil, "application/json", fallbackGet)
}

func (c *Client) PostJSON(ctx context.Context, path string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, encoded, "application/json", fallbackPost)
}

func (c *Client) PutJSON(ctx context.Context, path string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, encoded, "application/json", fallbackUpdate)
}

// PostForm submits a multipart form. The content type comes from the
// form's own encoder, boundary included; the client never substitutes
// its own. Setting it by hand would corrupt the boundary.
func (c *Client) PostForm(ctx context.Context, path string, form *Form) (json.RawMessage, error) {
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalizing form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, form.Bytes(), form.ContentType(), fallbackForm)
}

// PutForm is the multipart variant of PutJSON, used by update screens
// that carry file uploads.
func (c *Client) PutForm(ctx context.Context, path string, form *Form) (json.RawMessage, error) {
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalizing form: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, form.Bytes(), form.ContentType(), fallbackForm)
}

func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "application/json", fallbackDelete)
}

// FetchDocument retrieves a non-JSON resource (the parcel label PDF)
// with the same auth handling as the JSON verbs. The caller owns the
// returned body.
func (c *Client) FetchDocument(ctx context.Context, path string) (io.ReadCloser, string, error) {
	resp, err := c.attempt(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, "", errors.NewTransportError("fetch document", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.session.Current().Refresh != "" {
		resp.Body.Close()
		if !c.refreshAccess(ctx) {
			return nil, "", errors.NewAPIError(http.StatusUnauthorized, fallbackGet)
		}
		resp, err = c.attempt(ctx, http.MethodGet, path, nil, "")
		if err != nil {
			return nil, "", errors.NewTransportError("fetch document", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := decodeErrorMessage(resp.Body, fallbackGet)
		resp.Body.Close()
		return nil, "", errors.NewAPIError(resp.StatusCode, message)
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// do runs one request with the two-phase auth flow: attempt, and on a
// 401 with a refresh token available, refresh once and retry once.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType, fallback string) (json.RawMessage, error) {
	resp, err := c.attempt(ctx, method, path, body, contentType)
	if err != nil {
		return nil, errors.NewTransportError(strings.ToLower(method)+" request", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.session.Current().Refresh != "" {
		resp.Body.Close()
		if c.refreshAccess(ctx) {
			resp, err = c.attempt(ctx, method, path, body, contentType)
			if err != nil {
				return nil, errors.NewTransportError(strings.ToLower(method)+" request", err)
			}
		} else {
			// Refresh failed; the original 401 stands.
			return nil, errors.NewAPIError(http.StatusUnauthorized, fallback)
		}
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewAPIError(resp.StatusCode, errorMessageFromBody(data, fallback))
	}

	// A 2xx body that is not valid JSON is treated as no data rather
	// than a hard failure.
	if len(data) == 0 || !json.Valid(data) {
		return nil, nil
	}

	return json.RawMessage(data), nil
}

// attempt issues a single request with the current access token
// attached, if any. Unauthenticated calls (signup, login) pass through
// without an Authorization header.
func (c *Client) attempt(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if access := c.session.Current().Access; access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	return c.httpClient.Do(req)
}

// refreshAccess exchanges the refresh token for a new access token,
// collapsing concurrent callers onto one refresh request.
func (c *Client) refreshAccess(ctx context.Context) bool {
	c.refreshMu.Lock()
	if call := c.refreshing; call != nil {
		c.refreshMu.Unlock()
		<-call.done
		return call.ok
	}
	call := &refreshCall{done: make(chan struct{})}
	c.refreshing = call
	c.refreshMu.Unlock()

	call.ok = c.doRefresh(ctx)

	c.refreshMu.Lock()
	c.refreshing = nil
	c.refreshMu.Unlock()
	close(call.done)

	return call.ok
}

// doRefresh performs the actual token exchange. Policy: a transport
// failure leaves the stored tokens untouched so a network blip does not
// log the operator out; a response that rejects the refresh token (or
// omits the access field) wipes the session for good.
func (c *Client) doRefresh(ctx context.Context) bool {
	refresh := c.session.Current().Refresh
	if refresh == "" {
		return false
	}

	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("token refresh unreachable, keeping session", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("refresh token rejected, clearing session", zap.Int("status", resp.StatusCode))
		c.Discard(ctx)
		return false
	}

	var result struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Access == "" {
		c.logger.Info("refresh response missing access token, clearing session")
		c.Discard(ctx)
		return false
	}

	c.session.SetAccess(result.Access)
	c.Persist(ctx)

	if exp, ok := c.session.AccessExpiry(); ok {
		c.logger.Debug("access token refreshed", zap.Time("expiresAt", exp))
	} else {
		c.logger.Debug("access token refreshed")
	}

	return true
}

// errorMessageFromBody pulls the best available message out of a failure
// body: 'error' wins over 'message', and an undecodable body falls back
// to the verb's generic message.
func errorMessageFromBody(data []byte, fallback string) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return fallback
	}
	if body.Error != "" {
		return body.Error
	}
	if body.Message != "" {
		return body.Message
	}
	return fallback
}

func decodeErrorMessage(r io.Reader, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil {
		return fallback
	}
	return errorMessageFromBody(data, fallback)
}
