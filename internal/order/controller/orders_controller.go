package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
	"palantir/internal/order/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Lifecycle interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	FindOrder(ctx context.Context, id uint) (*domain.Order, error)
	Transition(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error)
	PackWithLabel(ctx context.Context, order domain.Order) (io.ReadCloser, string, domain.Order, error)
}

type OrdersController struct {
	lifecycle Lifecycle
	logger    *zap.Logger
}

func NewOrdersController(lifecycle Lifecycle, logger *zap.Logger) *OrdersController {
	return &OrdersController{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// HandleList serves the order collection. With ?status= the collection
// is partitioned locally; the backend is still fetched once.
func (c *OrdersController) HandleList(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orders, err := c.lifecycle.ListOrders(r.Context())
	if err != nil {
		c.handleError(w, err, logger)
		return
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !status.IsValid() {
			c.writeValidationError(w, "invalid status filter", apperrors.ValidationDetail{
				Field:   "status",
				Message: strconv.Quote(raw) + " is not a known order status",
			})
			return
		}
		orders = service.ListByStatus(orders, status)
	}

	c.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(orders),
		"data":  orders,
	})
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// HandleUpdateStatus moves one order along the lifecycle.
func (c *OrdersController) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseOrderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}
	if req.Status == "" {
		c.writeValidationError(w, "status is required", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status is required",
		})
		return
	}

	order, err := c.lifecycle.FindOrder(r.Context(), orderID)
	if err != nil {
		c.handleError(w, err, logger)
		return
	}

	updated, err := c.lifecycle.Transition(r.Context(), *order, req.Status)
	if err != nil {
		c.handleError(w, err, logger)
		return
	}

	response := map[string]any{
		"data":    updated,
		"message": "Order status updated",
	}
	// Moving to Shipped redirects the admin UI to the shipped tab. The
	// hint travels in the response instead of being hard-wired client
	// side.
	if updated.Status == domain.OrderStatusShipped {
		response["redirect"] = "/admin/orders/shipped"
	}

	c.writeJSON(w, http.StatusOK, response)
}

// HandlePack streams the parcel label and advances the order to Packed.
// Label and status update are independent steps; when the label is
// unavailable the status result is returned as JSON instead.
func (c *OrdersController) HandlePack(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := c.lifecycle.FindOrder(r.Context(), orderID)
	if err != nil {
		c.handleError(w, err, logger)
		return
	}

	label, contentType, updated, transitionErr := c.lifecycle.PackWithLabel(r.Context(), *order)

	if label == nil {
		if transitionErr != nil {
			c.handleError(w, transitionErr, logger)
			return
		}
		c.writeJSON(w, http.StatusOK, map[string]any{
			"data":    updated,
			"message": "Order packed, label unavailable",
		})
		return
	}
	defer label.Close()

	if transitionErr != nil {
		logger.Warn("label fetched but status update failed", zap.Uint("orderId", orderID), zap.Error(transitionErr))
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Order-Status", string(updated.Status))
	if _, err := io.Copy(w, label); err != nil {
		logger.Error("streaming parcel label failed", zap.Error(err))
	}
}

func (c *OrdersController) parseOrderID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "orderId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.writeValidationError(w, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

func (c *OrdersController) handleError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		c.writeJSON(w, http.StatusNotFound, map[string]string{"error": nfe.Message})
		return
	}

	if ce, ok := apperrors.IsConflictError(err); ok {
		c.writeJSON(w, http.StatusConflict, map[string]string{"error": ce.Message})
		return
	}

	if ae, ok := apperrors.IsAPIError(err); ok {
		// Backend rejection passes through with its own status.
		c.writeJSON(w, ae.Status, map[string]string{"error": ae.Message})
		return
	}

	if te, ok := apperrors.IsTransportError(err); ok {
		logger.Warn("backend unreachable", zap.Error(te))
		c.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backend unreachable"})
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "an unexpected error occurred",
	})
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *OrdersController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *OrdersController) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
