package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// SecurityOptions configures SecurityHeaders. An empty CSP sends no
// Content-Security-Policy; a zero HSTSMaxAge sends no Strict-Transport-Security.
type SecurityOptions struct {
	CSP        string
	HSTSMaxAge time.Duration
}

// SecurityHeaders sets the response headers of a JSON-only API: nothing may
// frame, sniff or refer from its responses.
func SecurityHeaders(opts SecurityOptions) func(http.Handler) http.Handler {
	var hsts string
	if opts.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(opts.HSTSMaxAge/time.Second), 10) + "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Resource-Policy", "cross-origin") // composers on other origins read previews
			if opts.CSP != "" {
				h.Set("Content-Security-Policy", opts.CSP)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
