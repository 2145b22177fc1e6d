package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/franchise-hub/internal/middleware"
	"github.com/mmeshcher/franchise-hub/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса франчайзинга.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/applicant", func(r chi.Router) {
			r.Post("/apply", h.SubmitApplication)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireRole(model.RoleAdmin))

				r.Post("/logout", h.Logout)
				r.Get("/applicants", h.ListApplicants)
				r.Post("/applicants/accept", h.AcceptApplicant)
				r.Post("/applicants/reject", h.RejectApplicant)
				r.Post("/applicants/grant", h.GrantApplicant)
				r.Post("/credentials", h.IssueCredential)
				r.Post("/sales", h.AdminSales)
			})
		})

		r.Route("/franchisee", func(r chi.Router) {
			r.Post("/login", h.FranchiseeLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireRole(model.RoleFranchisee))

				r.Post("/logout", h.Logout)
				r.Get("/profile", h.Profile)
				r.Post("/sales", h.AddSale)
				r.Post("/sales/report", h.FranchiseeSales)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
