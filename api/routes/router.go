package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/assignmentpoint-backend/api/controllers"
	bidcontrollers "github.com/angelmondragon/assignmentpoint-backend/api/controllers/bids"
	ordercontrollers "github.com/angelmondragon/assignmentpoint-backend/api/controllers/orders"
	revenuecontrollers "github.com/angelmondragon/assignmentpoint-backend/api/controllers/revenue"
	walletcontrollers "github.com/angelmondragon/assignmentpoint-backend/api/controllers/wallet"
	webhookcontrollers "github.com/angelmondragon/assignmentpoint-backend/api/controllers/webhooks"
	"github.com/angelmondragon/assignmentpoint-backend/api/middleware"
	"github.com/angelmondragon/assignmentpoint-backend/internal/marketplace"
	"github.com/angelmondragon/assignmentpoint-backend/internal/orders"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

type bidLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	BidRateScope(writerID string) string
}

type requestMetrics interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signingClient interface {
	SigningSecret() string
}

type stripeEventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// Deps carries everything the HTTP surface needs. Nil infrastructure fields disable the
// middleware that depends on them.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Pingers map[string]controllers.Pinger

	Idempotency middleware.ReplayStore
	BidLimiter  bidLimiter
	Metrics     requestMetrics
	Gatherer    prometheus.Gatherer

	Profiles    controllers.ProfileService
	Orders      orders.Service
	Marketplace marketplace.Service
	Accounts    walletcontrollers.Accounts
	Payments    walletcontrollers.Payments
	Revenue     revenuecontrollers.RuleService

	StripeClient  signingClient
	StripeWebhook stripeEventHandler
	WebhookGuard  stripeWebhookGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, logg))
	})

	bidPolicy := middleware.BidRateLimitPolicy{
		Limit:  cfg.Marketplace.BidRateLimit,
		Window: cfg.Marketplace.BidRateWindow,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/customers/me", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
			r.Post("/", controllers.CustomerRegister(deps.Profiles, logg))
			r.Get("/", controllers.CustomerProfile(deps.Profiles, logg))
		})

		r.Route("/writers/me", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleWriter))
			r.Post("/", controllers.WriterRegister(deps.Profiles, logg))
			r.Get("/", controllers.WriterProfile(deps.Profiles, logg))
			r.Put("/availability", controllers.WriterAvailability(deps.Profiles, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.RoleWriter, enums.RoleAdmin)).Get("/available", ordercontrollers.ListAvailable(deps.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				r.Post("/status", ordercontrollers.ChangeStatus(deps.Orders, logg))
				r.Post("/files", ordercontrollers.AttachFile(deps.Orders, logg))
				r.Get("/files", ordercontrollers.ListFiles(deps.Orders, logg))
				r.Get("/bids", bidcontrollers.ListForOrder(deps.Marketplace, logg))
				r.With(
					middleware.RequireRole(logg, enums.RoleWriter),
					middleware.BidRateLimit(bidPolicy, deps.BidLimiter, logg),
				).Post("/bids", bidcontrollers.Submit(deps.Marketplace, logg))
			})
		})

		r.Route("/bids", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleWriter)).Get("/mine", bidcontrollers.ListMine(deps.Marketplace, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).Post("/{bidId}/accept", bidcontrollers.Accept(deps.Marketplace, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin)).Post("/{bidId}/reject", bidcontrollers.Reject(deps.Marketplace, logg))
			r.With(middleware.RequireRole(logg, enums.RoleWriter)).Post("/{bidId}/withdraw", bidcontrollers.Withdraw(deps.Marketplace, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", walletcontrollers.Balance(deps.Accounts, logg))
			r.Get("/entries", walletcontrollers.Entries(deps.Accounts, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/deposits", walletcontrollers.Deposit(deps.Payments, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Get("/deposits", walletcontrollers.ListDeposits(deps.Payments, logg))
			r.Post("/withdrawals", walletcontrollers.Withdraw(deps.Payments, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Post("/orders/{orderId}/assign", ordercontrollers.AdminAssign(deps.Orders, logg))
			r.Get("/disputes", ordercontrollers.AdminDisputes(deps.Orders, logg))
			r.Route("/revenue-rules", func(r chi.Router) {
				r.Get("/", revenuecontrollers.ListRules(deps.Revenue, logg))
				r.Post("/", revenuecontrollers.CreateRule(deps.Revenue, logg))
				r.Delete("/{ruleId}", revenuecontrollers.DeactivateRule(deps.Revenue, logg))
			})
			r.Get("/revenue/summary", revenuecontrollers.Summary(deps.Revenue, logg))
			r.Get("/accounts/{accountId}/audit", walletcontrollers.AdminAudit(deps.Accounts, logg))
			r.Post("/sales-agents", controllers.AdminCreateSalesAgent(deps.Profiles, logg))
		})
	})

	return r
}
