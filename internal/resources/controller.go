// Package resources proxies the flat CRUD surface of the admin panel
// through the authenticated upstream client: users, products,
// categories, subcategories, brands, reviews, reports and settings.
// The backend's envelope is forwarded untouched in both directions.
package resources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "palantir/internal/errors"
	"palantir/internal/upstream"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Gateway interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	PostJSON(ctx context.Context, path string, body any) (json.RawMessage, error)
	PutJSON(ctx context.Context, path string, body any) (json.RawMessage, error)
	PostForm(ctx context.Context, path string, form *upstream.Form) (json.RawMessage, error)
	PutForm(ctx context.Context, path string, form *upstream.Form) (json.RawMessage, error)
	Delete(ctx context.Context, path string) (json.RawMessage, error)
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

// get proxies a read. The query string travels along for the report
// endpoints, which filter by date range.
func (c *Controller) get(upstreamPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := expand(upstreamPath, r)
		if q := r.URL.RawQuery; q != "" {
			path += "?" + q
		}

		data, err := c.gateway.Get(r.Context(), path)
		if err != nil {
			c.handleError(w, err)
			return
		}
		c.writeRaw(w, data)
	}
}

func (c *Controller) postJSON(upstreamPath string) http.HandlerFunc {
	return c.writeJSONVerb(upstreamPath, c.gateway.PostJSON)
}

func (c *Controller) putJSON(upstreamPath string) http.HandlerFunc {
	return c.writeJSONVerb(upstreamPath, c.gateway.PutJSON)
}

// postAction proxies an action endpoint that carries no payload, the
// POST itself is the command.
func (c *Controller) postAction(upstreamPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := c.gateway.PostJSON(r.Context(), expand(upstreamPath, r), nil)
		if err != nil {
			c.handleError(w, err)
			return
		}
		c.writeRaw(w, data)
	}
}

func (c *Controller) writeJSONVerb(upstreamPath string, verb func(context.Context, string, any) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil || !json.Valid(body) {
			c.writeError(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}

		data, err := verb(r.Context(), expand(upstreamPath, r), json.RawMessage(body))
		if err != nil {
			c.handleError(w, err)
			return
		}
		c.writeRaw(w, data)
	}
}

// postForm proxies a multipart write. The incoming form is re-encoded
// so the upstream request gets a fresh boundary from its own encoder.
func (c *Controller) postForm(upstreamPath string) http.HandlerFunc {
	return c.formVerb(upstreamPath, c.gateway.PostForm)
}

func (c *Controller) putForm(upstreamPath string) http.HandlerFunc {
	return c.formVerb(upstreamPath, c.gateway.PutForm)
}

func (c *Controller) formVerb(upstreamPath string, verb func(context.Context, string, *upstream.Form) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			c.writeError(w, http.StatusBadRequest, "request body must be multipart form data")
			return
		}

		form := upstream.NewForm()
		for name, values := range r.MultipartForm.Value {
			for _, value := range values {
				if err := form.AddField(name, value); err != nil {
					c.writeError(w, http.StatusInternalServerError, "building upstream form failed")
					return
				}
			}
		}
		for name, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					c.writeError(w, http.StatusBadRequest, "reading uploaded file failed")
					return
				}
				addErr := form.AddFile(name, header.Filename, file)
				file.Close()
				if addErr != nil {
					c.writeError(w, http.StatusInternalServerError, "building upstream form failed")
					return
				}
			}
		}

		data, err := verb(r.Context(), expand(upstreamPath, r), form)
		if err != nil {
			c.handleError(w, err)
			return
		}
		c.writeRaw(w, data)
	}
}

func (c *Controller) delete(upstreamPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := c.gateway.Delete(r.Context(), expand(upstreamPath, r))
		if err != nil {
			c.handleError(w, err)
			return
		}
		c.writeRaw(w, data)
	}
}

// expand substitutes {id} in an upstream path template with the route
// parameter of the same name.
func expand(upstreamPath string, r *http.Request) string {
	if !strings.Contains(upstreamPath, "{id}") {
		return upstreamPath
	}
	return strings.ReplaceAll(upstreamPath, "{id}", chi.URLParam(r, "id"))
}

func (c *Controller) handleError(w http.ResponseWriter, err error) {
	if ae, ok := apperrors.IsAPIError(err); ok {
		c.writeError(w, ae.Status, ae.Message)
		return
	}
	if te, ok := apperrors.IsTransportError(err); ok {
		c.logger.Warn("backend unreachable", zap.Error(te))
		c.writeError(w, http.StatusBadGateway, "backend unreachable")
		return
	}
	c.logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
}

func (c *Controller) writeRaw(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if data == nil {
		data = json.RawMessage(`{}`)
	}
	if _, err := w.Write(data); err != nil {
		c.logger.Error("failed to write response", zap.Error(err))
	}
}

func (c *Controller) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
