package server

import (
	"net/http"

	"palantir/internal/auth"
	ordercontroller "palantir/internal/order/controller"
	"palantir/internal/resources"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(
	ordersCtrl *ordercontroller.OrdersController,
	authCtrl *auth.Controller,
	resourcesCtrl *resources.Controller,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authCtrl.HandleLogin)
		r.Post("/signup", authCtrl.HandleSignup)
		r.Post("/logout", authCtrl.HandleLogout)
		r.Get("/user", authCtrl.HandleCurrentUser)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", ordersCtrl.HandleList)
		r.Put("/orders/{orderId}/status", ordersCtrl.HandleUpdateStatus)
		r.Post("/orders/{orderId}/pack", ordersCtrl.HandlePack)

		resourcesCtrl.Mount(r)
	})

	return r
}
