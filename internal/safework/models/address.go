package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address is a postal address. Registrants reference it without owning it.
type Address struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Street       string    `json:"street" validate:"required,max=150"`
	Number       string    `json:"number" validate:"required,max=20"`
	Complement   string    `json:"complement,omitempty" validate:"max=100"`
	Neighborhood string    `json:"neighborhood" validate:"required,max=100"`
	Municipality string    `json:"municipality" validate:"required,max=100"`
	StateCode    string    `json:"state_code" validate:"required,len=2,alpha"`
	PostalCode   string    `json:"postal_code" validate:"required,len=8,numeric"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Address) TableName() string { return "addresses" }

func (a *Address) Validate() error {
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.Municipality = strings.TrimSpace(a.Municipality)
	a.StateCode = strings.ToUpper(strings.TrimSpace(a.StateCode))
	a.PostalCode = strings.NewReplacer("-", "", ".", "", " ", "").Replace(a.PostalCode)
	return validateStruct(a).OrNil()
}

// AddressPatch is a partial update of an address.
type AddressPatch struct {
	Street       *string `json:"street,omitempty"`
	Number       *string `json:"number,omitempty"`
	Complement   *string `json:"complement,omitempty"`
	Neighborhood *string `json:"neighborhood,omitempty"`
	Municipality *string `json:"municipality,omitempty"`
	StateCode    *string `json:"state_code,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty"`
}

func (p AddressPatch) Apply(a *Address) {
	setIf(&a.Street, p.Street)
	setIf(&a.Number, p.Number)
	setIf(&a.Complement, p.Complement)
	setIf(&a.Neighborhood, p.Neighborhood)
	setIf(&a.Municipality, p.Municipality)
	setIf(&a.StateCode, p.StateCode)
	setIf(&a.PostalCode, p.PostalCode)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
