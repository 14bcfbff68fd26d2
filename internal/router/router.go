package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditentity "github.com/nextcrm/backoffice-core-go/internal/audit/entity"
	"github.com/nextcrm/backoffice-core-go/internal/auth"
	"github.com/nextcrm/backoffice-core-go/internal/contract"
	"github.com/nextcrm/backoffice-core-go/internal/gdpr"
	"github.com/nextcrm/backoffice-core-go/internal/refdata"
	"github.com/nextcrm/backoffice-core-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP
// security headers on every response. HSTS is skipped in dev mode so local
// plain-HTTP setups keep working.
func SecurityHeadersMiddleware(dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if !dev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionMiddleware resolves the access-token cookie into a request
// identity. An absent or invalid token leaves the request anonymous; the
// per-handler RequireIdentity check decides whether that is acceptable.
func SessionMiddleware(cfg auth.Config, tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.AccessCookieName)
			if err == nil {
				if claims, err := tokens.Validate(cookie.Value); err == nil {
					if uid, err := claims.UserID(); err == nil {
						r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{
							UserID:    uid,
							SessionID: claims.SessionID,
						}))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuditFlushMiddleware arms the per-request audit slot before the handler
// runs and flushes at most one queued event after it returns. Request
// metadata (actor, IP, user agent, session) is stamped here so handlers
// only describe the domain change.
func AuditFlushMiddleware(recorder *audit.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithQueue(r.Context())
			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)

			ev := audit.Take(ctx)
			if ev == nil {
				return
			}
			log := &auditentity.AuditLog{
				UserID:     ev.UserID,
				Action:     ev.Action,
				EntityName: ev.EntityName,
				EntityID:   ev.EntityID,
				EntityRepr: ev.EntityRepr,
				Changes:    ev.Changes,
				UserAgent:  r.UserAgent(),
				Timestamp:  time.Now().UTC(),
			}
			if ip := utilities.ClientIP(r); ip != "" {
				log.IPAddress = &ip
			}
			if ident, ok := auth.IdentityFromContext(ctx); ok {
				if log.UserID == nil {
					uid := ident.UserID
					log.UserID = &uid
				}
				log.SessionKey = ident.SessionID
			}
			recorder.Record(log)
		})
	}
}

// Handlers collects the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth     *auth.Handler
	GDPR     *gdpr.Handler
	Refdata  *refdata.Handler
	Contract *contract.Handler
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
// This keeps the project stdlib-only while keeping wiring simple and testable.
func RegisterRoutes(logger *zap.SugaredLogger, cfg auth.Config, tokens *auth.TokenService, recorder *audit.Recorder, h Handlers, dev bool) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth and account
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("POST /api/auth/token/refresh", h.Auth.Refresh)
	mux.HandleFunc("GET /api/auth/profile", h.Auth.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", h.Auth.UpdateProfile)
	mux.HandleFunc("POST /api/auth/password/change", h.Auth.ChangePassword)
	mux.HandleFunc("DELETE /api/auth/account/delete", h.Auth.DeleteAccount)

	// gdpr
	mux.HandleFunc("GET /api/auth/gdpr/consent", h.GDPR.ListConsent)
	mux.HandleFunc("POST /api/auth/gdpr/consent", h.GDPR.RecordConsent)
	mux.HandleFunc("GET /api/auth/gdpr/export", h.GDPR.Export)

	// reference data
	mux.HandleFunc("POST /api/refdata/counterparties", h.Refdata.CreateCounterparty)
	mux.HandleFunc("GET /api/refdata/counterparties", h.Refdata.ListCounterparties)
	mux.HandleFunc("GET /api/refdata/counterparties/{id}", h.Refdata.GetCounterparty)
	mux.HandleFunc("PUT /api/refdata/counterparties/{id}", h.Refdata.UpdateCounterparty)
	mux.HandleFunc("POST /api/refdata/commodities", h.Refdata.CreateCommodity)
	mux.HandleFunc("GET /api/refdata/commodities", h.Refdata.ListCommodities)
	mux.HandleFunc("GET /api/refdata/commodities/{id}", h.Refdata.GetCommodity)
	mux.HandleFunc("PUT /api/refdata/commodities/{id}", h.Refdata.UpdateCommodity)
	mux.HandleFunc("POST /api/refdata/commodity-groups", h.Refdata.CreateCommodityGroup)
	mux.HandleFunc("GET /api/refdata/commodity-groups", h.Refdata.ListCommodityGroups)
	mux.HandleFunc("POST /api/refdata/commodity-types", h.Refdata.CreateCommodityType)
	mux.HandleFunc("GET /api/refdata/commodity-types", h.Refdata.ListCommodityTypes)
	mux.HandleFunc("POST /api/refdata/traders", h.Refdata.CreateTrader)
	mux.HandleFunc("GET /api/refdata/traders", h.Refdata.ListTraders)
	mux.HandleFunc("POST /api/refdata/sociedades", h.Refdata.CreateSociedad)
	mux.HandleFunc("GET /api/refdata/sociedades", h.Refdata.ListSociedades)
	mux.HandleFunc("POST /api/refdata/cost-centers", h.Refdata.CreateCostCenter)
	mux.HandleFunc("GET /api/refdata/cost-centers", h.Refdata.ListCostCenters)
	mux.HandleFunc("POST /api/refdata/currencies", h.Refdata.CreateCurrency)
	mux.HandleFunc("GET /api/refdata/currencies", h.Refdata.ListCurrencies)
	mux.HandleFunc("POST /api/refdata/exchange-rates", h.Refdata.CreateExchangeRate)
	mux.HandleFunc("GET /api/refdata/exchange-rates", h.Refdata.ListExchangeRates)

	// contracts
	mux.HandleFunc("POST /api/contracts", h.Contract.Create)
	mux.HandleFunc("GET /api/contracts", h.Contract.List)
	mux.HandleFunc("GET /api/contracts/{id}", h.Contract.Get)
	mux.HandleFunc("PUT /api/contracts/{id}", h.Contract.Update)
	mux.HandleFunc("GET /api/contracts/{id}/amendments", h.Contract.Amendments)

	var handler http.Handler = mux
	handler = AuditFlushMiddleware(recorder)(handler)
	handler = SessionMiddleware(cfg, tokens)(handler)
	handler = SecurityHeadersMiddleware(dev)(handler)
	handler = LoggingMiddleware(logger)(handler)
	return handler
}
