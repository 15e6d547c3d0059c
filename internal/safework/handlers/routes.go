package handlers

import (
	"net/http"

	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/metrics"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

// PublicPaths are served without a bearer token.
var PublicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/password-reset",
	"/v1/auth/password-reset/confirm",
	"/healthz",
	"/metrics",
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func (h *HTTPHandler) authRoutes() []route {
	return []route{
		{http.MethodPost, "/v1/auth/login", h.login},
		{http.MethodPost, "/v1/auth/password-reset", h.requestPasswordReset},
		{http.MethodGet, "/v1/auth/password-reset/confirm", h.checkPasswordReset},
		{http.MethodPost, "/v1/auth/password-reset/confirm", h.confirmPasswordReset},
		{http.MethodPost, "/v1/auth/password", h.changePassword},
		{http.MethodGet, "/v1/auth/me", h.me},
		{http.MethodGet, "/healthz", h.healthz},
		{http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			metrics.Handler().ServeHTTP(w, r)
		}},
	}
}

func (h *HTTPHandler) registryRoutes() []route {
	reg := h.registry
	return []route{
		{http.MethodPost, "/v1/providers", h.createProvider},
		{http.MethodGet, "/v1/providers", h.listProviders},
		{http.MethodGet, "/v1/providers/{id}", getByID(h, reg.GetProvider)},
		{http.MethodPatch, "/v1/providers/{id}", patchByID(h, reg.UpdateProvider)},
		{http.MethodDelete, "/v1/providers/{id}", h.removeByID(reg.DeactivateProvider)},

		{http.MethodPost, "/v1/clients", h.createClient},
		{http.MethodGet, "/v1/clients", h.listClients},
		{http.MethodGet, "/v1/clients/{id}", getByID(h, reg.GetClient)},
		{http.MethodPatch, "/v1/clients/{id}", patchByID(h, reg.UpdateClient)},
		{http.MethodDelete, "/v1/clients/{id}", h.deactivateClient},

		{http.MethodPost, "/v1/employees", h.createEmployee},
		{http.MethodGet, "/v1/employees", h.listEmployees},
		{http.MethodGet, "/v1/employees/{id}", getByID(h, reg.GetEmployee)},
		{http.MethodPatch, "/v1/employees/{id}", patchByID(h, reg.UpdateEmployee)},
		{http.MethodDelete, "/v1/employees/{id}", h.removeByID(reg.DeactivateEmployee)},

		{http.MethodPost, "/v1/addresses", h.createAddress},
		{http.MethodGet, "/v1/addresses", h.listAddresses},
		{http.MethodGet, "/v1/addresses/{id}", getByID(h, reg.GetAddress)},
		{http.MethodPatch, "/v1/addresses/{id}", patchByID(h, reg.UpdateAddress)},
		{http.MethodDelete, "/v1/addresses/{id}", h.removeByID(reg.DeleteAddress)},

		{http.MethodPost, "/v1/contracts", h.createContract},
		{http.MethodGet, "/v1/contracts", h.listContracts},
		{http.MethodGet, "/v1/contracts/{id}", getByID(h, reg.GetContract)},
		{http.MethodPatch, "/v1/contracts/{id}", patchByID(h, reg.UpdateContract)},
		{http.MethodDelete, "/v1/contracts/{id}", h.removeByID(reg.DeleteContract)},

		{http.MethodPost, "/v1/exams", h.createExam},
		{http.MethodGet, "/v1/exams", h.listExams},
		{http.MethodGet, "/v1/exams/{id}", getByID(h, reg.GetExam)},
		{http.MethodPatch, "/v1/exams/{id}", patchByID(h, reg.UpdateExam)},
		{http.MethodDelete, "/v1/exams/{id}", h.removeByID(reg.DeleteExam)},

		{http.MethodPost, "/v1/profiles", h.createProfile},
		{http.MethodGet, "/v1/profiles", h.listProfiles},
		{http.MethodGet, "/v1/profiles/{id}", getByID(h, reg.GetProfile)},
		{http.MethodDelete, "/v1/profiles/{id}", h.removeByID(reg.DeleteProfile)},

		{http.MethodPost, "/v1/users", h.createUser},
		{http.MethodGet, "/v1/users", h.listUsers},
		{http.MethodGet, "/v1/users/{id}", getByID(h, reg.GetUser)},
		{http.MethodPatch, "/v1/users/{id}", patchByID(h, reg.UpdateUser)},
		{http.MethodDelete, "/v1/users/{id}", h.removeByID(reg.DeleteUser)},
	}
}

// Routes builds the HTTP API on a gateway mux, guarded by bearer token
// authentication for everything outside PublicPaths.
func (h *HTTPHandler) Routes() (http.Handler, error) {
	mux := runtime.NewServeMux()
	routes := h.authRoutes()
	if h.registry != nil {
		routes = append(routes, h.registryRoutes()...)
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return nil, err
		}
	}
	return auth.HTTPMiddleware(mux, h.authn, h.logger, PublicPaths...), nil
}
