package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fabriclibrary", Name: "signin_total", Help: "Number of sign-in attempts by outcome."},
		[]string{"outcome"},
	)
	AccessTokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "fabriclibrary", Name: "access_tokens_issued_total", Help: "Number of application access tokens issued."},
	)
)

// Sign-in outcome labels.
const (
	OutcomeCreated      = "created"
	OutcomeReturning    = "returning"
	OutcomeBadRequest   = "bad_request"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SignIns)
	reg.MustRegister(AccessTokensIssued)
}
