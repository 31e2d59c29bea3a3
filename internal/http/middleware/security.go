package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tripdesk/agency-api/internal/config"
)

// SecurityHeaders sets the configured security headers. API routes get a
// locked-down policy and no caching; the Swagger UI gets its own policy.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	hsts := ""
	if cfg.EnableHSTS {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
	}

	static := map[string]string{
		"X-Frame-Options":           cfg.FrameOptions,
		"X-XSS-Protection":          cfg.XSSProtection,
		"Referrer-Policy":           cfg.ReferrerPolicy,
		"Permissions-Policy":        cfg.PermissionsPolicy,
		"Strict-Transport-Security": hsts,
	}
	if cfg.ContentTypeNosniff {
		static["X-Content-Type-Options"] = "nosniff"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range static {
				if value != "" {
					h.Set(name, value)
				}
			}

			csp := cfg.ContentSecurityPolicy
			if strings.HasPrefix(r.URL.Path, "/swagger/") && cfg.DocsContentSecurityPolicy != "" {
				csp = cfg.DocsContentSecurityPolicy
			}
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}

			if cfg.NoStore && strings.HasPrefix(r.URL.Path, "/api/") {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
			}

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}
