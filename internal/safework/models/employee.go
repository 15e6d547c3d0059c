package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Employee is a person working for a client company.
type Employee struct {
	Registrant
	JobFunction     string     `json:"job_function" validate:"required,max=100"`
	ClientCompanyID uuid.UUID  `gorm:"type:uuid" json:"client_company_id"`
	AdmissionDate   *time.Time `json:"admission_date,omitempty"`
}

func (Employee) TableName() string { return "employees" }

func (emp *Employee) Validate() error {
	emp.JobFunction = strings.TrimSpace(emp.JobFunction)
	v := validateRegistrar(emp, &emp.Registrant)
	if emp.ClientCompanyID == uuid.Nil {
		v.Add("client_company_id", "this field is required")
	}
	return v.OrNil()
}

func (emp *Employee) IdentityKey() string {
	return "employee:" + emp.TaxID
}

// EmployeePatch is a partial update of an employee.
type EmployeePatch struct {
	RegistrantPatch
	JobFunction     *string    `json:"job_function,omitempty"`
	ClientCompanyID *uuid.UUID `json:"client_company_id,omitempty"`
	AdmissionDate   *time.Time `json:"admission_date,omitempty"`
}

func (p EmployeePatch) Apply(emp *Employee) {
	p.RegistrantPatch.Apply(&emp.Registrant)
	if p.JobFunction != nil {
		emp.JobFunction = *p.JobFunction
	}
	if p.ClientCompanyID != nil {
		emp.ClientCompanyID = *p.ClientCompanyID
	}
	if p.AdmissionDate != nil {
		emp.AdmissionDate = p.AdmissionDate
	}
}

// EmployeeFilter narrows employee listings.
type EmployeeFilter struct {
	ClientCompanyID *uuid.UUID
	// ClientCompanyIDs restricts the listing to these companies when non-nil.
	ClientCompanyIDs []uuid.UUID
	Active           *bool
}
