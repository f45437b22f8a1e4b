package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

// OriginCheck rejects state-changing browser requests whose Origin (or
// Referer when Origin is absent) is not in the allow list. Requests carrying
// neither header are non-browser clients and pass through.
func OriginCheck(allowed []string, logg *logger.Logger) func(http.Handler) http.Handler {
	allow := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if norm := normalizeOrigin(origin); norm != "" {
			allow[norm] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			norm := normalizeOrigin(origin)
			if _, ok := allow[norm]; !ok {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "origin", origin), "csrf.origin_rejected")
				}
				responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "origin not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func normalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
