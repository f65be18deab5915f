package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"palantir/internal/domain"
	apperrors "palantir/internal/errors"

	"go.uber.org/zap"
)

// Gateway is the slice of the upstream client the lifecycle needs.
type Gateway interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	PutJSON(ctx context.Context, path string, body any) (json.RawMessage, error)
	FetchDocument(ctx context.Context, path string) (io.ReadCloser, string, error)
}

// TransitionEvent is published to registered hooks after a status
// update has been accepted by the backend. Callers use it to react
// (navigate, notify) without the service hard-coding any of that.
type TransitionEvent struct {
	Order domain.Order
	From  domain.OrderStatus
	To    domain.OrderStatus
}

type TransitionHook func(TransitionEvent)

// LifecycleService enforces the order status transition table and
// issues the corresponding writes through the gateway.
type LifecycleService struct {
	gateway Gateway
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[uint]bool
	hooks    []TransitionHook
}

func NewLifecycleService(gateway Gateway, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		gateway:  gateway,
		logger:   logger,
		inFlight: make(map[uint]bool),
	}
}

// RegisterHook adds an observer for accepted transitions. Hooks run
// synchronously, in registration order.
func (s *LifecycleService) RegisterHook(hook TransitionHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// ListOrders fetches the full order collection. Per-status views are
// derived client-side with ListByStatus, so the tabs share one fetch.
func (s *LifecycleService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	data, err := s.gateway.Get(ctx, "/api/orders/")
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data []domain.Order `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}

	return envelope.Data, nil
}

// FindOrder locates one order in the collection by its numeric id.
func (s *LifecycleService) FindOrder(ctx context.Context, id uint) (*domain.Order, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
}

// ListByStatus is a pure, order-preserving partition of orders by
// status. The union over all statuses is the input; the subsets are
// pairwise disjoint.
func ListByStatus(orders []domain.Order, status domain.OrderStatus) []domain.Order {
	filtered := []domain.Order{}
	for _, o := range orders {
		if o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// Transition moves an order to target. The transition table is checked
// locally before any network call; an illegal target never reaches the
// backend. The backend remains the source of truth and may still
// reject. At most one transition per order is in flight at a time.
func (s *LifecycleService) Transition(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, error) {
	if !target.IsValid() {
		return order, apperrors.NewValidationError("unknown order status", apperrors.ValidationDetail{
			Field:   "status",
			Message: fmt.Sprintf("%q is not a known order status", target),
		})
	}

	if !order.Status.CanTransition(target) {
		return order, apperrors.NewConflictError(
			fmt.Sprintf("order %s cannot move from %s to %s", order.OrderID, order.Status, target),
		)
	}

	if err := s.acquire(order.ID); err != nil {
		return order, err
	}
	defer s.release(order.ID)

	path := fmt.Sprintf("/api/orders/%d/status/", order.ID)
	if _, err := s.gateway.PutJSON(ctx, path, map[string]domain.OrderStatus{"status": target}); err != nil {
		s.logger.Warn("order status update rejected",
			zap.Uint("orderId", order.ID),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		return order, err
	}

	from := order.Status
	order.Status = target

	s.logger.Info("order status updated",
		zap.Uint("orderId", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	s.notify(TransitionEvent{Order: order, From: from, To: target})

	return order, nil
}

// PackWithLabel is the ready-to-ship compound step: fetch the parcel
// label document, then advance the order to Packed. The two steps are
// not atomic; a label failure does not stop the status update, and a
// rejected status update does not undo the label fetch.
func (s *LifecycleService) PackWithLabel(ctx context.Context, order domain.Order) (io.ReadCloser, string, domain.Order, error) {
	label, contentType, labelErr := s.gateway.FetchDocument(ctx, fmt.Sprintf("/api/orders/%d/parcel-label/", order.ID))
	if labelErr != nil {
		s.logger.Warn("parcel label fetch failed",
			zap.Uint("orderId", order.ID),
			zap.Error(labelErr),
		)
		label = nil
		contentType = ""
	}

	updated, err := s.Transition(ctx, order, domain.OrderStatusPacked)
	return label, contentType, updated, err
}

func (s *LifecycleService) acquire(orderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[orderID] {
		return apperrors.NewConflictError(fmt.Sprintf("an update for order %d is already in flight", orderID))
	}
	s.inFlight[orderID] = true
	return nil
}

func (s *LifecycleService) release(orderID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderID)
}

func (s *LifecycleService) notify(event TransitionEvent) {
	s.mu.Lock()
	hooks := make([]TransitionHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(event)
	}
}
