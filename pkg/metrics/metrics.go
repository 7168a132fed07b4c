package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "runsum", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "runsum", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "runsum", Name: "upstream_requests_total", Help: "Strava API calls by endpoint and outcome."},
		[]string{"endpoint", "outcome"},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "runsum", Name: "token_refreshes_total", Help: "Access token refresh attempts by outcome."},
		[]string{"outcome"},
	)
	ActivityPages = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "runsum", Name: "activity_pages_fetched_total", Help: "Activity list pages fetched from upstream."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(UpstreamRequests)
	reg.MustRegister(TokenRefreshes)
	reg.MustRegister(ActivityPages)
}
