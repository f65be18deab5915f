package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"
)

type mockLifecycle struct {
	ListOrdersFunc    func(ctx context.Context) ([]domain.Order, error)
	FindOrderFunc     func(ctx context.Context, id uint) (*domain.Order, error)
	TransitionFunc    func(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error)
	PackWithLabelFunc func(ctx context.Context, order domain.Order) (io.ReadCloser, string, domain.Order, error)
}

func (m *mockLifecycle) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return m.ListOrdersFunc(ctx)
}

func (m *mockLifecycle) FindOrder(ctx context.Context, id uint) (*domain.Order, error) {
	return m.FindOrderFunc(ctx, id)
}

func (m *mockLifecycle) Transition(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error) {
	return m.TransitionFunc(ctx, order, target)
}

func (m *mockLifecycle) PackWithLabel(ctx context.Context, order domain.Order) (io.ReadCloser, string, domain.Order, error) {
	return m.PackWithLabelFunc(ctx, order)
}

func newTestRouter(lifecycle Lifecycle) http.Handler {
	c := NewOrdersController(lifecycle, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/admin/orders", c.HandleList)
	r.Put("/admin/orders/{orderId}/status", c.HandleUpdateStatus)
	r.Post("/admin/orders/{orderId}/pack", c.HandlePack)
	return r
}

func TestHandleList_ReturnsAllOrders(t *testing.T) {
	lifecycle := &mockLifecycle{
		ListOrdersFunc: func(ctx context.Context) ([]domain.Order, error) {
			return []domain.Order{
				{ID: 1, Status: domain.OrderStatusPending},
				{ID: 2, Status: domain.OrderStatusShipped},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int            `json:"count"`
		Data  []domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Data, 2)
}

func TestHandleList_StatusFilter(t *testing.T) {
	lifecycle := &mockLifecycle{
		ListOrdersFunc: func(ctx context.Context) ([]domain.Order, error) {
			return []domain.Order{
				{ID: 1, Status: domain.OrderStatusPending},
				{ID: 2, Status: domain.OrderStatusShipped},
				{ID: 3, Status: domain.OrderStatusPending},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders?status=Pending", nil)
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int            `json:"count"`
		Data  []domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	for _, o := range body.Data {
		assert.Equal(t, domain.OrderStatusPending, o.Status)
	}
}

func TestHandleList_UnknownStatusFilter(t *testing.T) {
	lifecycle := &mockLifecycle{
		ListOrdersFunc: func(ctx context.Context) ([]domain.Order, error) {
			return nil, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders?status=Bogus", nil)
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestHandleUpdateStatus_Success(t *testing.T) {
	var transitionedTo domain.OrderStatus
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
		},
		TransitionFunc: func(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error) {
			transitionedTo = target
			order.Status = target
			return order, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/12/status", strings.NewReader(`{"status":"Accept"}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusAccept, transitionedTo)
	assert.Contains(t, rec.Body.String(), "Order status updated")
	assert.NotContains(t, rec.Body.String(), "redirect")
}

func TestHandleUpdateStatus_ShippedIncludesRedirect(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusAccept}, nil
		},
		TransitionFunc: func(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error) {
			order.Status = target
			return order, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/12/status", strings.NewReader(`{"status":"Shipped"}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/admin/orders/shipped", body["redirect"])
}

func TestHandleUpdateStatus_IllegalTransition(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusDelivered}, nil
		},
		TransitionFunc: func(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error) {
			return order, apperrors.NewConflictError("order cannot move from Delivered to Cancelled")
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/12/status", strings.NewReader(`{"status":"Cancelled"}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot move")
}

func TestHandleUpdateStatus_BadOrderID(t *testing.T) {
	lifecycle := &mockLifecycle{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/abc/status", strings.NewReader(`{"status":"Accept"}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateStatus_MissingStatus(t *testing.T) {
	lifecycle := &mockLifecycle{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/12/status", strings.NewReader(`{}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status is required")
}

func TestHandleUpdateStatus_BackendErrorPassesThrough(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
		},
		TransitionFunc: func(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error) {
			return order, apperrors.NewAPIError(http.StatusForbidden, "Admin role required")
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/12/status", strings.NewReader(`{"status":"Accept"}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Admin role required")
}

func TestHandleUpdateStatus_BackendUnreachable(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return nil, apperrors.NewTransportError("get request", io.ErrUnexpectedEOF)
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/orders/12/status", strings.NewReader(`{"status":"Accept"}`))
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend unreachable")
}

func TestHandlePack_StreamsLabel(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusAccept}, nil
		},
		PackWithLabelFunc: func(ctx context.Context, order domain.Order) (io.ReadCloser, string, domain.Order, error) {
			order.Status = domain.OrderStatusPacked
			return io.NopCloser(strings.NewReader("%PDF-1.4 label")), "application/pdf", order, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/12/pack", nil)
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Packed", rec.Header().Get("X-Order-Status"))
	assert.Contains(t, rec.Body.String(), "%PDF")
}

func TestHandlePack_LabelUnavailableStillAdvances(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusAccept}, nil
		},
		PackWithLabelFunc: func(ctx context.Context, order domain.Order) (io.ReadCloser, string, domain.Order, error) {
			order.Status = domain.OrderStatusPacked
			return nil, "", order, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/12/pack", nil)
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "label unavailable")
}

func TestHandlePack_OrderNotFound(t *testing.T) {
	lifecycle := &mockLifecycle{
		FindOrderFunc: func(ctx context.Context, id uint) (*domain.Order, error) {
			return nil, apperrors.NewNotFoundError("order with id 99 not found")
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/99/pack", nil)
	newTestRouter(lifecycle).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
