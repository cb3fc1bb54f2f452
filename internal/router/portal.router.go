package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"partner-portal/internal/handler"
	"partner-portal/pkg/auth"
)

func SetupRoutes(
	r chi.Router,
	h *handler.PortalHandler,
	apiAuth *auth.APIKeyAuth,
	rdb *redis.Client,
	logger *zap.Logger,
) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Actor-ID"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// ---- Mount all routes under /portal ----
	r.Route("/portal", func(pr chi.Router) {

		// ---- Public routes ----
		pr.Group(func(pub chi.Router) {
			pub.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
		})

		// ---- Back-office routes ----
		pr.Group(func(admin chi.Router) {
			admin.Route("/partners", func(p chi.Router) {
				p.Post("/", h.CreatePartner)
				p.Get("/", h.ListPartners)
				p.Get("/by-email", h.GetPartnerByEmail)

				p.Route("/{id}", func(one chi.Router) {
					one.Get("/", h.GetPartner)
					one.Put("/", h.UpdatePartner)
					one.Delete("/", h.DeletePartner)

					one.Post("/users", h.CreatePartnerUser)
					one.Get("/users", h.ListPartnerUsers)
					one.Put("/users/{userID}", h.UpdatePartnerUser)
					one.Delete("/users/{userID}", h.DeletePartnerUser)

					one.Post("/credentials", h.IssueCredential)
					one.Get("/credentials", h.ListCredentials)
					one.Post("/credentials/{credentialID}/revoke", h.RevokeCredential)

					one.Post("/documents", h.CreateDocument)
					one.Get("/documents", h.ListPartnerDocuments)

					one.Post("/certifications", h.CreateCertification)
					one.Get("/certifications", h.ListPartnerCertifications)

					one.Post("/commissions", h.CreateCommission)
					one.Get("/commissions", h.ListPartnerCommissions)
				})
			})

			admin.Route("/deals", func(d chi.Router) {
				d.Post("/", h.RegisterDeal)
				d.Get("/", h.ListDeals)

				d.Route("/{id}", func(one chi.Router) {
					one.Get("/", h.GetDeal)
					one.Put("/", h.UpdateDeal)
					one.Delete("/", h.DeleteDeal)
					one.Post("/approve", h.ApproveDeal)
					one.Post("/reject", h.RejectDeal)
					one.Post("/close", h.CloseDeal)

					one.Post("/quotes", h.CreateQuote)
					one.Get("/quotes", h.ListQuoteVersions)
					one.Get("/quotes/latest", h.GetLatestQuote)
				})
			})

			admin.Get("/quotes/{quoteID}", h.GetQuote)
			admin.Put("/quotes/{quoteID}/status", h.UpdateQuoteStatus)

			admin.Get("/documents/{documentID}", h.GetDocument)
			admin.Put("/documents/{documentID}/status", h.UpdateDocumentStatus)

			admin.Post("/certifications/{certificationID}/award", h.AwardCertification)
			admin.Put("/commissions/{commissionID}/status", h.UpdateCommissionStatus)

			admin.Route("/courses", func(c chi.Router) {
				c.Post("/", h.CreateCourse)
				c.Get("/", h.ListCourses)

				c.Route("/{id}", func(one chi.Router) {
					one.Get("/", h.GetCourse)
					one.Post("/enroll", h.EnrollUser)
					one.Post("/complete-module", h.CompleteModule)
					one.Get("/progress", h.GetProgress)
					one.Get("/progress/all", h.ListCourseProgress)
				})
			})

			admin.Route("/analytics", func(a chi.Router) {
				a.Get("/overview", h.GetOverview)
				a.Get("/deal-funnel", h.GetDealFunnel)
				a.Get("/courses/{id}/completion", h.GetCourseCompletion)
				a.Get("/commissions/{period}", h.GetCommissionPeriod)
			})

			admin.Route("/audit", func(a chi.Router) {
				a.Get("/entity/{entityType}/{entityID}", h.ListAuditByEntity)
				a.Get("/actor/{actorID}", h.ListAuditByActor)
				a.Get("/action/{action}", h.ListAuditByAction)
			})
		})

		// ---- Partner integration API (key-authenticated, rate limited) ----
		pr.Group(func(api chi.Router) {
			api.Use(apiAuth.RequireAPIKey())
			api.Use(auth.PartnerRateLimit(rdb, logger))

			api.Route("/api/v1", func(v1 chi.Router) {
				v1.Post("/deals", h.RegisterDeal)
				v1.Get("/deals", h.ListDeals)
				v1.Get("/deals/{id}", h.GetDeal)
				v1.Get("/deals/{id}/quotes", h.ListQuoteVersions)
				v1.Get("/deals/{id}/quotes/latest", h.GetLatestQuote)
			})
		})
	})

	return r
}
