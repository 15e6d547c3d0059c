package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Contract links one client company to one service provider.
type Contract struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Number            string     `json:"number,omitempty" validate:"max=50"`
	ClientCompanyID   uuid.UUID  `gorm:"type:uuid" json:"client_company_id"`
	ServiceProviderID uuid.UUID  `gorm:"type:uuid" json:"service_provider_id"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

func (c *Contract) Validate() error {
	c.Number = strings.TrimSpace(c.Number)
	v := validateStruct(c)
	if c.ClientCompanyID == uuid.Nil {
		v.Add("client_company_id", "this field is required")
	}
	if c.ServiceProviderID == uuid.Nil {
		v.Add("service_provider_id", "this field is required")
	}
	if c.StartDate.IsZero() {
		v.Add("start_date", "this field is required")
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		v.Add("end_date", "value must not precede start_date")
	}
	return v.OrNil()
}

// ContractPatch is a partial update of a contract.
type ContractPatch struct {
	Number            *string    `json:"number,omitempty"`
	ClientCompanyID   *uuid.UUID `json:"client_company_id,omitempty"`
	ServiceProviderID *uuid.UUID `json:"service_provider_id,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Active            *bool      `json:"active,omitempty"`
}

func (p ContractPatch) Apply(c *Contract) {
	setIf(&c.Number, p.Number)
	setIf(&c.ClientCompanyID, p.ClientCompanyID)
	setIf(&c.ServiceProviderID, p.ServiceProviderID)
	setIf(&c.StartDate, p.StartDate)
	setIf(&c.Active, p.Active)
	if p.EndDate != nil {
		c.EndDate = p.EndDate
	}
}

// ContractFilter narrows contract listings.
type ContractFilter struct {
	ClientCompanyID   *uuid.UUID
	ServiceProviderID *uuid.UUID
	Active            *bool
}
