package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmeiser/popcorn-sales-manager-sub005/api/controllers"
	"github.com/dmeiser/popcorn-sales-manager-sub005/api/middleware"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/accounts"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/campaigns"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/catalogs"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/invites"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/orders"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/paymentmethods"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/profiles"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/shares"
	"github.com/dmeiser/popcorn-sales-manager-sub005/internal/templates"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/auth/session"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/config"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/logger"
	"github.com/dmeiser/popcorn-sales-manager-sub005/pkg/metrics"
)

const (
	// Window caps for the abuse-prone endpoints: login is pre-auth and keyed
	// by client host, redeem consumes single-use codes.
	loginRateLimit  = 20
	redeemRateLimit = 30
	rateLimitWindow = time.Minute
)

type sessionManager interface {
	session.AccessSessionChecker
	Start(ctx context.Context, accessID string) error
	Revoke(ctx context.Context, accessID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router wires to handlers.
type Services struct {
	Accounts       accounts.Service
	Profiles       profiles.Service
	Shares         shares.Service
	Invites        invites.Service
	Campaigns      campaigns.Service
	Orders         orders.Service
	Catalogs       catalogs.Service
	Templates      templates.Service
	PaymentMethods paymentmethods.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger pinger,
	redisPinger pinger,
	sessions sessionManager,
	limiter middleware.FixedWindowLimiter,
	httpMetrics *metrics.HTTPMetrics,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(limiter, "auth_login", loginRateLimit, rateLimitWindow, logg)).
			Post("/login", controllers.AuthLogin(svcs.Accounts, sessions, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).
			Post("/logout", controllers.AuthLogout(sessions, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/account", func(r chi.Router) {
			r.Get("/", controllers.AccountMe(svcs.Accounts, logg))
			r.Put("/", controllers.AccountUpdateSettings(svcs.Accounts, logg))
			r.Route("/payment-methods", func(r chi.Router) {
				r.Get("/", controllers.PaymentMethodList(svcs.PaymentMethods, logg))
				r.Post("/", controllers.PaymentMethodCreate(svcs.PaymentMethods, logg))
				r.Delete("/", controllers.PaymentMethodDelete(svcs.PaymentMethods, logg))
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Post("/", controllers.ProfileCreate(svcs.Profiles, logg))
			r.Get("/", controllers.ProfileList(svcs.Profiles, logg))
			r.Route("/{profileID}", func(r chi.Router) {
				r.Get("/", controllers.ProfileGet(svcs.Profiles, logg))
				r.Put("/", controllers.ProfileUpdate(svcs.Profiles, logg))
				r.Delete("/", controllers.ProfileDelete(svcs.Profiles, logg))

				r.Route("/shares", func(r chi.Router) {
					r.Post("/", controllers.ShareGrant(svcs.Shares, logg))
					r.Get("/", controllers.ShareList(svcs.Shares, logg))
					r.Delete("/{accountID}", controllers.ShareRevoke(svcs.Shares, logg))
				})

				r.Route("/invites", func(r chi.Router) {
					r.Post("/", controllers.InviteCreate(svcs.Invites, logg))
					r.Get("/", controllers.InviteList(svcs.Invites, logg))
					r.Delete("/{code}", controllers.InviteRevoke(svcs.Invites, logg))
				})

				r.Route("/campaigns", func(r chi.Router) {
					r.Post("/", controllers.CampaignCreate(svcs.Campaigns, logg))
					r.Get("/", controllers.CampaignList(svcs.Campaigns, logg))
				})
			})
		})

		r.With(middleware.RateLimit(limiter, "invite_redeem", redeemRateLimit, rateLimitWindow, logg)).
			Post("/invites/redeem", controllers.InviteRedeem(svcs.Invites, logg))

		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/", controllers.CampaignGet(svcs.Campaigns, logg))
			r.Put("/", controllers.CampaignUpdate(svcs.Campaigns, logg))
			r.Delete("/", controllers.CampaignDelete(svcs.Campaigns, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
				r.Get("/", controllers.OrderList(svcs.Orders, logg))
			})
		})

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", controllers.OrderGet(svcs.Orders, logg))
			r.Put("/", controllers.OrderUpdate(svcs.Orders, logg))
			r.Delete("/", controllers.OrderDelete(svcs.Orders, logg))
		})

		r.Route("/catalogs", func(r chi.Router) {
			r.Post("/", controllers.CatalogCreate(svcs.Catalogs, logg))
			r.Get("/", controllers.CatalogList(svcs.Catalogs, logg))
			r.Route("/{catalogID}", func(r chi.Router) {
				r.Get("/", controllers.CatalogGet(svcs.Catalogs, logg))
				r.Put("/", controllers.CatalogUpdate(svcs.Catalogs, logg))
				r.Delete("/", controllers.CatalogDelete(svcs.Catalogs, logg))
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", controllers.TemplatePublish(svcs.Templates, logg))
			r.Post("/discover", controllers.TemplateDiscover(svcs.Templates, logg))
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", controllers.TemplateGet(svcs.Templates, logg))
				r.Delete("/", controllers.TemplateDeactivate(svcs.Templates, logg))
			})
		})
	})

	return r
}
