// Package metrics defines and registers all custom Prometheus metrics for the
// ADISA admin API. It is the single source of truth for metric names, labels
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation through promauto and exposed on GET /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adisa"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "pending_2fa", "invalid_credentials", "inactive" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TwoFactorChecksTotal counts TOTP code checks.
// Labels:
//   - operation: "enable" (enrollment) or "authenticate" (login)
//   - result: "accepted", "invalid" or "replayed"
var TwoFactorChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "two_factor_checks_total",
		Help:      "Total number of TOTP code checks, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Invitation metrics ────────────────────────────────────────────────────────

// InvitationsIssuedTotal counts invitations created by admins.
var InvitationsIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invitations_issued_total",
		Help:      "Total number of invitations issued.",
	},
)

// RegistrationsTotal counts invitation-backed registrations.
// Label:
//   - result: "success", "invalid_invitation", "username_taken" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// EmailsTotal counts outbound emails handed to the mail provider.
// Label:
//   - result: "sent", "failed" or "dropped" (queue full)
var EmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Total number of outbound emails, by delivery result.",
	},
	[]string{"result"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// RequestDuration measures request latency.
// Labels:
//   - method: HTTP method
//   - path: the matched route pattern (e.g. "/api/invitation/validate/:token")
//   - code: response status code
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by route and status code.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "code"},
)

// Middleware records RequestDuration for every request. The route pattern is
// used as path label so token-bearing URLs never become label values.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Render now so the recorded status is the one the client sees.
				c.Error(err)
			}

			RequestDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
