package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/rvstore-backend/pkg/enums"
	"github.com/angelmondragon/rvstore-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const ctxRequestIdentity contextKey = "request_identity"

// requestIdentity is filled by Auth further down the chain so the access log
// can name the caller once the handler returns.
type requestIdentity struct {
	userID int64
	role   enums.UserRole
}

func noteIdentity(ctx context.Context, userID int64, role enums.UserRole) {
	if ctx == nil {
		return
	}
	if id, ok := ctx.Value(ctxRequestIdentity).(*requestIdentity); ok {
		id.userID = userID
		id.role = role
	}
}

// Logging writes one access entry per request. Requests to /health and /metrics
// are logged at debug, 4xx at info and 5xx at warn.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := &requestIdentity{}
			ctx := context.WithValue(r.Context(), ctxRequestIdentity, identity)
			ctx = logg.WithFields(ctx, map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			fields := map[string]any{
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
				for _, param := range []string{"barcode", "boxBarcode"} {
					if v := rctx.URLParam(param); v != "" {
						fields["barcode"] = v
					}
				}
			}
			if identity.role != "" {
				fields["actor_role"] = string(identity.role)
			}
			ctx = logg.WithUserID(logg.WithFields(ctx, fields), identity.userID)

			switch {
			case status >= http.StatusInternalServerError:
				logg.Warn(ctx, "request.failed")
			case isQuietPath(r.URL.Path):
				logg.Debug(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

func isQuietPath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics"
}
