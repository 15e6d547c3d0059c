package models

import "github.com/google/uuid"

// ServiceProvider is a company that delivers occupational health services.
// It owns users and contracts.
type ServiceProvider struct {
	Registrant
}

func (ServiceProvider) TableName() string { return "service_providers" }

func (p *ServiceProvider) Validate() error {
	return validateRegistrar(p, &p.Registrant).OrNil()
}

func (p *ServiceProvider) IdentityKey() string {
	return "provider:" + p.TaxID
}

// ClientCompany is a company that contracts a provider. It owns employees
// and contracts.
type ClientCompany struct {
	Registrant
}

func (ClientCompany) TableName() string { return "client_companies" }

func (c *ClientCompany) Validate() error {
	return validateRegistrar(c, &c.Registrant).OrNil()
}

func (c *ClientCompany) IdentityKey() string {
	return "client:" + c.TaxID
}

// DeactivationPolicy decides what happens to the employees of a client
// company that is being deactivated. Health exam records are never touched.
type DeactivationPolicy string

const (
	RetainEmployees     DeactivationPolicy = "RETAIN_EMPLOYEES"
	DeactivateEmployees DeactivationPolicy = "DEACTIVATE_EMPLOYEES"
)

func (p DeactivationPolicy) Valid() bool {
	return p == RetainEmployees || p == DeactivateEmployees
}

// RegistrantFilter narrows registrant listings.
type RegistrantFilter struct {
	// Active restricts the listing to active or inactive records when set.
	Active *bool
	// IDs restricts the listing to the given ids when non-nil.
	IDs []uuid.UUID
}
