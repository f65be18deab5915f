package order

import (
	"palantir/internal/order/controller"
	"palantir/internal/order/service"
	"palantir/internal/upstream"

	"go.uber.org/zap"
)

func NewModule(client *upstream.Client, logger *zap.Logger) *controller.OrdersController {
	svc := service.NewLifecycleService(client, logger)

	svc.RegisterHook(func(e service.TransitionEvent) {
		logger.Info("order transition",
			zap.String("orderId", e.Order.OrderID),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
		)
	})

	return controller.NewOrdersController(svc, logger)
}
