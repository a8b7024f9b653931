// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"crypto/sha256"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/app/blob"
	browsefeature "github.com/dalemusser/souqhub/internal/app/features/browse"
	dashboardfeature "github.com/dalemusser/souqhub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/souqhub/internal/app/features/errors"
	filesfeature "github.com/dalemusser/souqhub/internal/app/features/files"
	healthfeature "github.com/dalemusser/souqhub/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/souqhub/internal/app/features/heartbeat"
	homefeature "github.com/dalemusser/souqhub/internal/app/features/home"
	loginfeature "github.com/dalemusser/souqhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/souqhub/internal/app/features/logout"
	productsfeature "github.com/dalemusser/souqhub/internal/app/features/products"
	profilefeature "github.com/dalemusser/souqhub/internal/app/features/profile"
	settingsfeature "github.com/dalemusser/souqhub/internal/app/features/settings"
	_ "github.com/dalemusser/souqhub/internal/app/features/shared/views"
	systemusersfeature "github.com/dalemusser/souqhub/internal/app/features/systemusers"
	browserstore "github.com/dalemusser/souqhub/internal/app/store/sessions"
	"github.com/dalemusser/souqhub/internal/app/store/signins"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/guard"
	"github.com/dalemusser/souqhub/internal/app/system/ratelimit"
	"github.com/dalemusser/souqhub/internal/app/system/session"
	"github.com/dalemusser/souqhub/internal/app/system/workers"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// routeDeps is everything the router needs. BuildHandler fills it from the
// Mongo-backed services; tests fill it with the in-memory backend.
type routeDeps struct {
	Data     backend.Client
	Registry *auth.Registry
	DB       healthfeature.Pinger
	Blobs    blob.Store
	Browsers heartbeatfeature.Toucher

	// SignIns and Limiter are optional.
	SignIns signInLog
	Limiter *ratelimit.AuthLimiter

	// Files serves locally stored images under FilesPrefix; nil for S3.
	Files       filesfeature.Opener
	FilesPrefix string

	CSRFKey []byte
	Secure  bool
}

// signInLog is the sign-in history: written by the auth page, read by the
// admin overview.
type signInLog interface {
	RecordFrom(ctx context.Context, r *http.Request, userID, email string) error
	Recent(ctx context.Context, limit int64) ([]models.SignInRecord, error)
	CountSince(ctx context.Context, t time.Time) (int64, error)
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. SouqHub boots the template engine, builds
// the browser-session registry, starts the session reaper and mounts the
// feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	browsers := browserstore.New(deps.SouqHubMongoDatabase)
	svc := deps.Backend

	registry, err := auth.NewRegistry(auth.Config{
		SessionKey:   appCfg.SessionKey,
		Name:         appCfg.SessionName,
		Domain:       appCfg.SessionDomain,
		Secure:       secure,
		LoadWait:     appCfg.SessionLoadWait,
		RefreshEvery: appCfg.SessionRefreshEvery,
	}, auth.StoreBrowsers{Store: browsers}, func(st backend.SessionStorage) backend.Client {
		return svc.NewClient(st)
	}, logger, session.WithRedirectTarget(strings.TrimRight(appCfg.BaseURL, "/")+"/"))
	if err != nil {
		logger.Error("session registry init failed", zap.Error(err))
		return nil, err
	}

	reaper := workers.NewSessionReaper(browsers, registry, svc, workers.ReaperConfig{
		Idle: appCfg.SessionIdleTimeout,
	}, logger)
	reaper.Start()
	limiter := ratelimit.NewAuthLimiter()

	if deps.Live != nil {
		deps.Live.Registry = registry
		deps.Live.Reaper = reaper
		deps.Live.Limiter = limiter
	}

	rd := routeDeps{
		Data:     svc.NewClient(nil),
		Registry: registry,
		DB:       healthfeature.MongoPinger(deps.SouqHubMongoClient),
		Blobs:    deps.Blobs,
		Browsers: auth.StoreBrowsers{Store: browsers},
		SignIns:  signins.New(deps.SouqHubMongoDatabase),
		Limiter:  limiter,
		CSRFKey:  deriveKey(appCfg.SessionKey, "csrf"),
		Secure:   secure,
	}
	if o, ok := deps.Blobs.(*blob.Objects); ok && o.Backend() == "local" {
		rd.Files = o
		rd.FilesPrefix = appCfg.StorageLocalURL
	}
	return newRouter(rd, logger), nil
}

// newRouter mounts every feature.
func newRouter(d routeDeps, logger *zap.Logger) http.Handler {
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	var (
		signInRecorder loginfeature.SignInRecorder
		signInHistory  dashboardfeature.SignInHistory
	)
	if d.SignIns != nil {
		signInRecorder, signInHistory = d.SignIns, d.SignIns
	}

	r := chi.NewRouter()

	// Registered before any Mount so subrouters inherit them. The fallbacks
	// still get the session so the navbar renders normally.
	r.NotFound(d.Registry.Load(http.HandlerFunc(errorsHandler.NotFound)).ServeHTTP)
	r.MethodNotAllowed(d.Registry.Load(http.HandlerFunc(errorsHandler.MethodNotAllowed)).ServeHTTP)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(d.DB, d.Blobs, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	if d.Files != nil && d.FilesPrefix != "" {
		filesHandler := filesfeature.NewHandler(d.Files, logger)
		r.Mount(strings.TrimRight(d.FilesPrefix, "/"), filesfeature.Routes(filesHandler))
	}

	r.Group(func(r chi.Router) {
		// One long-lived session manager per browser.
		r.Use(d.Registry.Load)
		r.Use(plaintextUnlessSecure(d.Secure))
		r.Use(csrf.Protect(d.CSRFKey,
			csrf.Secure(d.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.CookieName("souqhub-csrf"),
			csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
		))

		// Public pages
		homeHandler := homefeature.NewHandler(d.Data, logger)
		r.Mount("/", homefeature.Routes(homeHandler))

		browseHandler := browsefeature.NewHandler(d.Data, errLog, logger)
		r.Mount("/search", browsefeature.SearchRoutes(browseHandler))
		r.Mount("/categories", browsefeature.CategoryRoutes(browseHandler))

		productsHandler := productsfeature.NewHandler(d.Data, errLog, logger)
		r.Mount("/product", productsfeature.Routes(productsHandler))
		r.Mount("/my", productsfeature.MineRoutes(productsHandler))

		// Authentication
		loginHandler := loginfeature.NewHandler(signInRecorder, d.Limiter, errLog, logger)
		r.Mount("/auth", loginfeature.Routes(loginHandler))

		logoutHandler := logoutfeature.NewHandler(logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		// Signed-in user pages
		profileHandler := profilefeature.NewHandler(errLog, logger)
		r.Mount("/profile", profilefeature.Routes(profileHandler))

		settingsHandler := settingsfeature.NewHandler(d.Data, errLog, logger)
		r.Mount("/settings", settingsfeature.Routes(settingsHandler))

		// Administration
		dashboardHandler := dashboardfeature.NewHandler(d.Data, signInHistory, errLog, logger)
		usersHandler := systemusersfeature.NewHandler(d.Data, errLog, d.Registry.RefreshUser, logger)
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Require(guard.Administrator))
			r.Mount("/users", systemusersfeature.Routes(usersHandler))
			r.Mount("/", dashboardfeature.Routes(dashboardHandler))
		})

		// Page-side session plumbing: heartbeats and guard re-evaluation.
		heartbeatHandler := heartbeatfeature.NewHandler(d.Browsers, logger)
		r.Mount("/session", heartbeatfeature.Routes(heartbeatHandler))
	})

	return r
}

// plaintextUnlessSecure tells gorilla/csrf that non-TLS requests are
// expected outside production, which relaxes its Referer check.
func plaintextUnlessSecure(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secure && r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	errorsfeature.Render(w, r, http.StatusForbidden, "طلب مرفوض",
		"انتهت صلاحية النموذج. حدّث الصفحة وحاول مرة أخرى", "/")
}

// deriveKey turns the configured session secret into a 32-byte key for a
// second purpose.
func deriveKey(secret, purpose string) []byte {
	sum := sha256.Sum256([]byte(purpose + ":" + secret))
	return sum[:]
}
