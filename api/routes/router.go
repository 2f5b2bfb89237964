package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sealcard-backend/api/controllers"
	"github.com/angelmondragon/sealcard-backend/api/middleware"
	"github.com/angelmondragon/sealcard-backend/internal/auth"
	"github.com/angelmondragon/sealcard-backend/internal/drafts"
	"github.com/angelmondragon/sealcard-backend/internal/ledgers"
	"github.com/angelmondragon/sealcard-backend/internal/programs"
	"github.com/angelmondragon/sealcard-backend/pkg/auth/session"
	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/enums"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/sealcard-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer depends on.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies bundles everything NewRouter wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Auth     auth.Service
	Register auth.RegisterService
	Programs programs.Service
	Ledgers  ledgers.Service
	Drafts   drafts.Service
	Metrics  prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	publicPolicy := middleware.NewRateLimitPolicy(
		"public",
		cfg.AuthRateLimit.PublicWindow,
		cfg.AuthRateLimit.PublicIPLimit,
		0,
	)

	// route-level so the middleware sees the fully matched pattern
	idem := middleware.Idempotency(deps.Redis, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.RateLimit(publicPolicy, deps.Redis, logg))
		r.Get("/programs/{publicCode}", controllers.PublicProgram(deps.Programs, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(registerPolicy, deps.Redis, logg), idem).
			Post("/register/{role}", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.With(middleware.RateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).
			Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleMerchant))

			r.With(idem).Post("/programs", controllers.ProgramCreate(deps.Programs, logg))
			r.Get("/programs", controllers.ProgramListMine(deps.Programs, logg))
			r.Get("/programs/{programId}", controllers.ProgramGet(deps.Programs, logg))
			r.Patch("/programs/{programId}", controllers.ProgramUpdate(deps.Programs, logg))
			r.Post("/programs/{programId}/deactivate", controllers.ProgramDeactivate(deps.Programs, logg))
			r.Get("/programs/{programId}/ledgers", controllers.ProgramLedgers(deps.Ledgers, logg))

			r.Get("/ledgers/code/{code}", controllers.LedgerByCode(deps.Ledgers, logg))
			r.With(idem).Post("/ledgers/{ledgerId}/seals", controllers.LedgerApplySeals(deps.Ledgers, logg))
			r.With(idem).Post("/ledgers/{ledgerId}/finalize", controllers.LedgerFinalize(deps.Ledgers, logg))
			r.Post("/ledgers/{ledgerId}/deactivate", controllers.LedgerDeactivate(deps.Ledgers, logg))

			r.Route("/drafts/program", func(r chi.Router) {
				r.Get("/", controllers.DraftGet(deps.Drafts, logg))
				r.Delete("/", controllers.DraftDiscard(deps.Drafts, logg))
				r.Put("/steps/{step}", controllers.DraftSetStep(deps.Drafts, logg))
				r.Post("/back", controllers.DraftBack(deps.Drafts, logg))
				r.With(idem).Post("/publish", controllers.DraftPublish(deps.Drafts, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))

			r.With(idem).Post("/programs/{programId}/join", controllers.LedgerJoin(deps.Ledgers, logg))
			r.Get("/me/ledgers", controllers.WalletList(deps.Ledgers, logg))
		})

		// merchant or card holder; the service enforces which one
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleMerchant, enums.UserRoleCustomer))

			r.Get("/ledgers/{ledgerId}", controllers.LedgerGet(deps.Ledgers, logg))
			r.Get("/ledgers/{ledgerId}/transactions", controllers.LedgerTransactions(deps.Ledgers, logg))
		})
	})

	return r
}
