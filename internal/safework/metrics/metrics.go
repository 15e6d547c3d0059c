// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeValid              = "valid"
	OutcomeInvalid            = "invalid"
	OutcomeExpired            = "expired"
)

var (
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safework_auth_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	TokenValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safework_token_validations_total",
		Help: "Bearer token validations by outcome",
	}, []string{"outcome"})

	EntityWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safework_entity_writes_total",
		Help: "Successful entity writes by entity and operation",
	}, []string{"entity", "op"})

	AccessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safework_access_denied_total",
		Help: "Requests refused for insufficient role, by entity",
	}, []string{"entity"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
