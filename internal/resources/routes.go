package resources

import "github.com/go-chi/chi/v5"

// Mount binds the passthrough routes. Upstream paths mirror the
// backend's REST surface; products carry file uploads and therefore go
// out as multipart.
func (c *Controller) Mount(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", c.get("/api/users/list/"))
		r.Post("/", c.postJSON("/api/users/create/"))
		r.Put("/{id}", c.putJSON("/api/users/update/{id}/"))
		r.Delete("/{id}", c.delete("/api/users/delete/{id}/"))
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", c.get("/api/products/"))
		r.Post("/", c.postForm("/api/products/add/"))
		r.Put("/{id}", c.putForm("/api/products/update/{id}/"))
		r.Delete("/{id}", c.delete("/api/products/delete/{id}/"))
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", c.get("/api/categories/"))
		r.Post("/", c.postJSON("/api/add/category/"))
		r.Delete("/{id}", c.delete("/api/category/delete/{id}/"))
	})

	r.Route("/subcategories", func(r chi.Router) {
		r.Get("/", c.get("/api/subcategories/"))
		r.Post("/", c.postJSON("/api/add/subcategories/"))
		r.Delete("/{id}", c.delete("/api/subcategory/delete/{id}/"))
	})

	r.Route("/brands", func(r chi.Router) {
		r.Get("/", c.get("/api/brands/"))
		r.Post("/", c.postJSON("/api/add/brand/"))
		r.Delete("/{id}", c.delete("/api/delete/brand/{id}/"))
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", c.get("/api/admin/reviews/"))
		r.Put("/{id}/status", c.putJSON("/api/admin/reviews/{id}/status/"))
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/general", c.get("/api/settings/general/"))
		r.Put("/general", c.putJSON("/api/settings/general/"))
	})

	r.Route("/payment-gateways", func(r chi.Router) {
		r.Get("/", c.get("/api/payment-gateways/"))
		r.Put("/{id}", c.putJSON("/api/payment-gateways/{id}/"))
		r.Post("/{id}/set-default", c.postAction("/api/payment-gateways/set-default/{id}/"))
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/dashboard", c.get("/api/reports/dashboard/"))
		r.Get("/orders", c.get("/api/reports/orders/dashboard/"))
		r.Get("/accounting", c.get("/api/reports/accounting/dashboard/"))
	})
}
