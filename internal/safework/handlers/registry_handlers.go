package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

// respond writes v with status, or the mapped error.
func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, status int, v interface{}, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, v)
}

// getByID serves routes that only need the {id} path parameter.
func getByID[T any](h *HTTPHandler, fn func(ctx context.Context, id uuid.UUID) (T, error)) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		v, err := fn(r.Context(), id)
		h.respond(w, r, http.StatusOK, v, err)
	}
}

// removeByID serves DELETE routes, answering 204 on success.
func (h *HTTPHandler) removeByID(fn func(ctx context.Context, id uuid.UUID) error) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := fn(r.Context(), id); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// patchByID decodes a patch body of type P and applies it to {id}.
func patchByID[P any, T any](h *HTTPHandler, fn func(ctx context.Context, id uuid.UUID, patch P) (T, error)) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		var patch P
		if err := decodeJSON(r, &patch); err != nil {
			h.writeError(w, r, err)
			return
		}
		v, err := fn(r.Context(), id, patch)
		h.respond(w, r, http.StatusOK, v, err)
	}
}

func registrantFilter(r *http.Request) (models.RegistrantFilter, error) {
	active, err := queryBool(r, "active")
	return models.RegistrantFilter{Active: active}, err
}

// Service providers.

func (h *HTTPHandler) createProvider(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req registrantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reg, err := req.toRegistrant()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.registry.CreateProvider(r.Context(), &models.ServiceProvider{Registrant: reg})
	h.respond(w, r, http.StatusCreated, p, err)
}

func (h *HTTPHandler) listProviders(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f, err := registrantFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.registry.ListProviders(r.Context(), f)
	h.respond(w, r, http.StatusOK, out, err)
}

// Client companies.

func (h *HTTPHandler) createClient(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req registrantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reg, err := req.toRegistrant()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.registry.CreateClient(r.Context(), &models.ClientCompany{Registrant: reg})
	h.respond(w, r, http.StatusCreated, c, err)
}

func (h *HTTPHandler) listClients(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	f, err := registrantFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	contracted, err := queryBool(r, "contracted")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if contracted != nil && *contracted {
		out, err := h.registry.ContractedClients(r.Context(), f.Active)
		h.respond(w, r, http.StatusOK, out, err)
		return
	}
	out, err := h.registry.ListClients(r.Context(), f)
	h.respond(w, r, http.StatusOK, out, err)
}

func (h *HTTPHandler) deactivateClient(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := pathID(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	policy := models.DeactivationPolicy(r.URL.Query().Get("policy"))
	if policy == "" {
		policy = models.RetainEmployees
	}
	n, err := h.registry.DeactivateClient(r.Context(), id, policy)
	h.respond(w, r, http.StatusOK, deactivateClientResponse{ID: id, Policy: policy, EmployeesDeactivated: n}, err)
}

// Employees.

func (h *HTTPHandler) createEmployee(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	emp, err := req.toModel()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.registry.CreateEmployee(r.Context(), emp)
	h.respond(w, r, http.StatusCreated, created, err)
}

func (h *HTTPHandler) listEmployees(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	active, err := queryBool(r, "active")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.registry.ListEmployees(r.Context(), models.EmployeeFilter{ClientCompanyID: clientID, Active: active})
	h.respond(w, r, http.StatusOK, out, err)
}

// Addresses.

func (h *HTTPHandler) createAddress(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req addressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.registry.CreateAddress(r.Context(), req.toModel())
	h.respond(w, r, http.StatusCreated, created, err)
}

func (h *HTTPHandler) listAddresses(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	out, err := h.registry.ListAddresses(r.Context())
	h.respond(w, r, http.StatusOK, out, err)
}

// Contracts.

func (h *HTTPHandler) createContract(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req contractRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := req.toModel()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.registry.CreateContract(r.Context(), c)
	h.respond(w, r, http.StatusCreated, created, err)
}

func (h *HTTPHandler) listContracts(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var f models.ContractFilter
	var err error
	if f.ClientCompanyID, err = queryUUID(r, "client_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.ServiceProviderID, err = queryUUID(r, "provider_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if f.Active, err = queryBool(r, "active"); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.registry.ListContracts(r.Context(), f)
	h.respond(w, r, http.StatusOK, out, err)
}

// Health exams.

func (h *HTTPHandler) createExam(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req examRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.registry.CreateExam(r.Context(), req.toModel())
	h.respond(w, r, http.StatusCreated, created, err)
}

func (h *HTTPHandler) listExams(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	employeeID, err := queryUUID(r, "employee_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	expired, err := queryBool(r, "expired")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.registry.ListExams(r.Context(), employeeID, clientID)
	if err == nil && expired != nil {
		out = filterExpired(out, *expired, time.Now())
	}
	h.respond(w, r, http.StatusOK, out, err)
}

// filterExpired keeps the exams whose validity at now matches expired.
func filterExpired(exams []models.HealthExam, expired bool, now time.Time) []models.HealthExam {
	out := make([]models.HealthExam, 0, len(exams))
	for i := range exams {
		if exams[i].Expired(now) == expired {
			out = append(out, exams[i])
		}
	}
	return out
}

// Profiles.

func (h *HTTPHandler) createProfile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.registry.CreateProfile(r.Context(), req.toModel())
	h.respond(w, r, http.StatusCreated, created, err)
}

func (h *HTTPHandler) listProfiles(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	out, err := h.registry.ListProfiles(r.Context())
	h.respond(w, r, http.StatusOK, out, err)
}

// Users.

func (h *HTTPHandler) createUser(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in models.NewUser
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.registry.CreateUser(r.Context(), in)
	h.respond(w, r, http.StatusCreated, u, err)
}

func (h *HTTPHandler) listUsers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	providerID, err := queryUUID(r, "provider_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.registry.ListUsers(r.Context(), models.UserFilter{ServiceProviderID: providerID})
	h.respond(w, r, http.StatusOK, out, err)
}
