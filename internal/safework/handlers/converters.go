package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// registrantRequest is the wire form of a new registrant. Active is a
// pointer so an omitted status can be told apart from false.
type registrantRequest struct {
	PersonType models.PersonType `json:"person_type"`
	TaxID      string            `json:"tax_id"`
	LegalName  string            `json:"legal_name"`
	TradeName  string            `json:"trade_name"`
	Phone      string            `json:"phone"`
	Mobile     string            `json:"mobile"`
	Email      string            `json:"email"`
	Active     *bool             `json:"active"`
	AddressID  *uuid.UUID        `json:"address_id"`
}

type employeeRequest struct {
	registrantRequest
	JobFunction     string     `json:"job_function"`
	ClientCompanyID uuid.UUID  `json:"client_company_id"`
	AdmissionDate   *time.Time `json:"admission_date"`
}

type contractRequest struct {
	Number            string     `json:"number"`
	ClientCompanyID   uuid.UUID  `json:"client_company_id"`
	ServiceProviderID uuid.UUID  `json:"service_provider_id"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	Active            *bool      `json:"active"`
}

type addressRequest struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	Municipality string `json:"municipality"`
	StateCode    string `json:"state_code"`
	PostalCode   string `json:"postal_code"`
}

type examRequest struct {
	EmployeeID        uuid.UUID         `json:"employee_id"`
	Kind              models.ExamKind   `json:"kind"`
	ExamDate          time.Time         `json:"exam_date"`
	Result            models.ExamResult `json:"result"`
	ValidUntil        *time.Time        `json:"valid_until"`
	PhysicianName     string            `json:"physician_name"`
	PhysicianRegistry string            `json:"physician_registry"`
	Notes             string            `json:"notes"`
}

type profileRequest struct {
	Name string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type deactivateClientResponse struct {
	ID                   uuid.UUID                 `json:"id"`
	Policy               models.DeactivationPolicy `json:"policy"`
	EmployeesDeactivated int64                     `json:"employees_deactivated"`
}

// toRegistrant converts the request into a base record.
func (r *registrantRequest) toRegistrant() (models.Registrant, error) {
	if r.Active == nil {
		return models.Registrant{}, e.Invalid("active", "this field is required")
	}
	reg := models.NewRegistrant(r.PersonType, r.TaxID, r.LegalName, *r.Active)
	reg.TradeName = r.TradeName
	reg.Phone = r.Phone
	reg.Mobile = r.Mobile
	reg.Email = r.Email
	reg.AddressID = r.AddressID
	return reg, nil
}

func (r *employeeRequest) toModel() (*models.Employee, error) {
	reg, err := r.toRegistrant()
	if err != nil {
		return nil, err
	}
	return &models.Employee{
		Registrant:      reg,
		JobFunction:     r.JobFunction,
		ClientCompanyID: r.ClientCompanyID,
		AdmissionDate:   r.AdmissionDate,
	}, nil
}

func (r *contractRequest) toModel() (*models.Contract, error) {
	if r.Active == nil {
		return nil, e.Invalid("active", "this field is required")
	}
	return &models.Contract{
		Number:            r.Number,
		ClientCompanyID:   r.ClientCompanyID,
		ServiceProviderID: r.ServiceProviderID,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		Active:            *r.Active,
	}, nil
}

func (r *addressRequest) toModel() *models.Address {
	return &models.Address{
		Street:       r.Street,
		Number:       r.Number,
		Complement:   r.Complement,
		Neighborhood: r.Neighborhood,
		Municipality: r.Municipality,
		StateCode:    r.StateCode,
		PostalCode:   r.PostalCode,
	}
}

func (r *examRequest) toModel() *models.HealthExam {
	return &models.HealthExam{
		EmployeeID:        r.EmployeeID,
		Kind:              r.Kind,
		ExamDate:          r.ExamDate,
		Result:            r.Result,
		ValidUntil:        r.ValidUntil,
		PhysicianName:     r.PhysicianName,
		PhysicianRegistry: r.PhysicianRegistry,
		Notes:             r.Notes,
	}
}

func (r *profileRequest) toModel() *models.Profile {
	return &models.Profile{Name: r.Name}
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return e.Invalid("body", "malformed JSON: "+err.Error())
	}
	if dec.More() {
		return e.Invalid("body", "unexpected data after JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps a service error to its HTTP status and public message.
func statusFor(err error) (int, errorResponse) {
	var ve *e.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorResponse{Error: e.ErrValidation.Error(), Fields: ve.Fields}
	case errors.Is(err, e.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, e.ErrReferentialIntegrity):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: e.ErrNotFound.Error()}
	case errors.Is(err, e.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: e.ErrInvalidCredentials.Error()}
	case errors.Is(err, e.ErrTokenExpired):
		return http.StatusUnauthorized, errorResponse{Error: e.ErrTokenExpired.Error()}
	case errors.Is(err, e.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: e.ErrInvalidToken.Error()}
	case errors.Is(err, e.ErrAuthorizationDenied):
		return http.StatusForbidden, errorResponse{Error: e.ErrAuthorizationDenied.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

// writeError maps a service error onto the response. Unexpected errors are
// logged and never leak to the client.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Internal server error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
	}
	writeJSON(w, status, body)
}

func pathID(params map[string]string) (uuid.UUID, error) {
	id, err := uuid.Parse(params["id"])
	if err != nil {
		return uuid.Nil, e.Invalid("id", "value must be a valid id")
	}
	return id, nil
}

func queryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, e.Invalid(key, "value must be a valid id")
	}
	return &id, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, e.Invalid(key, fmt.Sprintf("value %q is not a boolean", raw))
	}
	return &b, nil
}
