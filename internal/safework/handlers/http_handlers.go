package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the business logic the cadastral routes invoke.
type Registry interface {
	CreateProvider(ctx context.Context, p *models.ServiceProvider) (*models.ServiceProvider, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error)
	ListProviders(ctx context.Context, f models.RegistrantFilter) ([]models.ServiceProvider, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, patch models.RegistrantPatch) (*models.ServiceProvider, error)
	DeactivateProvider(ctx context.Context, id uuid.UUID) error

	CreateClient(ctx context.Context, c *models.ClientCompany) (*models.ClientCompany, error)
	GetClient(ctx context.Context, id uuid.UUID) (*models.ClientCompany, error)
	ListClients(ctx context.Context, f models.RegistrantFilter) ([]models.ClientCompany, error)
	ContractedClients(ctx context.Context, active *bool) ([]models.ClientCompany, error)
	UpdateClient(ctx context.Context, id uuid.UUID, patch models.RegistrantPatch) (*models.ClientCompany, error)
	DeactivateClient(ctx context.Context, id uuid.UUID, policy models.DeactivationPolicy) (int64, error)

	CreateEmployee(ctx context.Context, emp *models.Employee) (*models.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	ListEmployees(ctx context.Context, f models.EmployeeFilter) ([]models.Employee, error)
	UpdateEmployee(ctx context.Context, id uuid.UUID, patch models.EmployeePatch) (*models.Employee, error)
	DeactivateEmployee(ctx context.Context, id uuid.UUID) error

	CreateAddress(ctx context.Context, a *models.Address) (*models.Address, error)
	GetAddress(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListAddresses(ctx context.Context) ([]models.Address, error)
	UpdateAddress(ctx context.Context, id uuid.UUID, patch models.AddressPatch) (*models.Address, error)
	DeleteAddress(ctx context.Context, id uuid.UUID) error

	CreateContract(ctx context.Context, c *models.Contract) (*models.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	ListContracts(ctx context.Context, f models.ContractFilter) ([]models.Contract, error)
	UpdateContract(ctx context.Context, id uuid.UUID, patch models.ContractPatch) (*models.Contract, error)
	DeleteContract(ctx context.Context, id uuid.UUID) error

	CreateExam(ctx context.Context, h *models.HealthExam) (*models.HealthExam, error)
	GetExam(ctx context.Context, id uuid.UUID) (*models.HealthExam, error)
	ListExams(ctx context.Context, employeeID, clientID *uuid.UUID) ([]models.HealthExam, error)
	UpdateExam(ctx context.Context, id uuid.UUID, patch models.HealthExamPatch) (*models.HealthExam, error)
	DeleteExam(ctx context.Context, id uuid.UUID) error

	CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error

	CreateUser(ctx context.Context, in models.NewUser) (*models.UserProjection, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.UserProjection, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserProjection, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.UserProjection, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Authenticator is the authentication logic behind the /v1/auth routes.
type Authenticator interface {
	auth.Authorizer
	Authenticate(ctx context.Context, email, secret string) (*auth.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newSecret string) error
	CheckResetToken(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, current, newSecret string) error
	Me(ctx context.Context) (*models.UserProjection, error)
}

// HTTPHandler serves the JSON API.
type HTTPHandler struct {
	registry Registry
	authn    Authenticator
	ready    func(ctx context.Context) error
	logger   *zap.Logger
}

// NewHTTPHandler constructs an HTTPHandler. registry may be nil, in which
// case only the authentication routes are served. ready backs /healthz.
func NewHTTPHandler(registry Registry, authn Authenticator, ready func(ctx context.Context) error, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		registry: registry,
		authn:    authn,
		ready:    ready,
		logger:   logger.Named("http_handler"),
	}
}

func (h *HTTPHandler) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) requestPasswordReset(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.authn.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (h *HTTPHandler) confirmPasswordReset(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req resetConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.authn.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkPasswordReset answers 204 while the token in ?token= can still be
// used to reset a password.
func (h *HTTPHandler) checkPasswordReset(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if err := h.authn.CheckResetToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) changePassword(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.authn.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) me(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	me, err := h.authn.Me(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (h *HTTPHandler) healthz(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
