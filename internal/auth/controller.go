package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
	"palantir/internal/session"

	"go.uber.org/zap"
)

// Gateway is the slice of the upstream client the auth flows need.
type Gateway interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	PostJSON(ctx context.Context, path string, body any) (json.RawMessage, error)
	Session() *session.Session
	Persist(ctx context.Context)
	Discard(ctx context.Context)
}

type Controller struct {
	gateway Gateway
	logger  *zap.Logger
}

func NewController(gateway Gateway, logger *zap.Logger) *Controller {
	return &Controller{
		gateway: gateway,
		logger:  logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *domain.User `json:"user"`
}

// HandleLogin exchanges credentials for a token pair and installs the
// session. The upstream envelope is returned to the caller untouched.
func (c *Controller) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
		return
	}
	if creds.Username == "" || creds.Password == "" {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	data, err := c.gateway.PostJSON(r.Context(), "/api/login/", creds)
	if err != nil {
		c.handleError(w, err)
		return
	}

	var login loginResponse
	if err := json.Unmarshal(data, &login); err != nil || login.Access == "" {
		c.logger.Warn("login response missing access token")
		c.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "unexpected login response"})
		return
	}

	c.gateway.Session().Set(session.Tokens{Access: login.Access, Refresh: login.Refresh}, login.User)
	c.gateway.Persist(r.Context())

	c.logger.Info("admin logged in", zap.String("username", creds.Username))
	c.writeRaw(w, http.StatusOK, data)
}

// HandleSignup is an unauthenticated passthrough; the request goes out
// without a bearer header because no session exists yet.
func (c *Controller) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request body must be valid JSON"})
		return
	}

	data, err := c.gateway.PostJSON(r.Context(), "/api/signup/", body)
	if err != nil {
		c.handleError(w, err)
		return
	}

	c.writeRaw(w, http.StatusOK, data)
}

// HandleLogout wipes the session in memory and in the store.
func (c *Controller) HandleLogout(w http.ResponseWriter, r *http.Request) {
	c.gateway.Discard(r.Context())
	c.logger.Info("admin logged out")
	c.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleCurrentUser verifies the session against the backend. A
// definitive rejection clears the session, the way the original client
// wipes its storage; when the backend is merely unreachable the cached
// user record is served instead.
func (c *Controller) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if !c.gateway.Session().Authenticated() {
		c.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	data, err := c.gateway.Get(r.Context(), "/api/auth/user/")
	if err != nil {
		if _, ok := apperrors.IsTransportError(err); ok {
			if cached := c.gateway.Session().User(); cached != nil {
				c.writeJSON(w, http.StatusOK, map[string]any{"user": cached, "cached": true})
				return
			}
		}
		if ae, ok := apperrors.IsAPIError(err); ok {
			c.gateway.Discard(r.Context())
			c.writeJSON(w, ae.Status, map[string]string{"error": ae.Message})
			return
		}
		c.handleError(w, err)
		return
	}

	var envelope struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.User != nil {
		c.gateway.Session().SetUser(envelope.User)
		c.gateway.Persist(r.Context())
	}

	c.writeRaw(w, http.StatusOK, data)
}

func (c *Controller) handleError(w http.ResponseWriter, err error) {
	if ae, ok := apperrors.IsAPIError(err); ok {
		c.writeJSON(w, ae.Status, map[string]string{"error": ae.Message})
		return
	}
	if _, ok := apperrors.IsTransportError(err); ok {
		c.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backend unreachable"})
		return
	}
	c.logger.Error("unexpected error", zap.Error(err))
	c.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "an unexpected error occurred"})
}

func (c *Controller) writeRaw(w http.ResponseWriter, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		data = json.RawMessage(`{}`)
	}
	if _, err := w.Write(data); err != nil {
		c.logger.Error("failed to write response", zap.Error(err))
	}
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
