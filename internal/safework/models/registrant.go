// Package models defines the domain entities of the service: the shared
// Registrant base and its specializations, addresses, contracts, health
// exam records, profiles and users.
package models

import (
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/google/uuid"
)

// PersonType distinguishes individuals from legal entities. It is stored as
// text so the column stays readable.
type PersonType string

const (
	Individual  PersonType = "INDIVIDUAL"
	LegalEntity PersonType = "LEGAL_ENTITY"
)

const (
	IndividualTaxIDLength  = 11
	LegalEntityTaxIDLength = 14
)

// Valid reports whether p is a known person type.
func (p PersonType) Valid() bool {
	return p == Individual || p == LegalEntity
}

// TaxIDLength returns the tax id length required for p, or 0 when p is unknown.
func (p PersonType) TaxIDLength() int {
	switch p {
	case Individual:
		return IndividualTaxIDLength
	case LegalEntity:
		return LegalEntityTaxIDLength
	default:
		return 0
	}
}

var taxIDPunctuation = strings.NewReplacer(".", "", "-", "", "/", "", " ", "")

// NormalizeTaxID removes the punctuation of formatted documents
// ("123.456.789-01", "12.345.678/0001-90") so they compare equal to raw
// ones. Any other character is kept and later fails validation.
func NormalizeTaxID(s string) string {
	return taxIDPunctuation.Replace(strings.TrimSpace(s))
}

// isDigits accepts ASCII digits only, so len counts one byte per digit.
func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CheckTaxID verifies that taxID is all digits and its length matches the
// person type: 11 for individuals and 14 for legal entities.
func CheckTaxID(p PersonType, taxID string) *e.ValidationError {
	v := e.NewValidationError()
	if !p.Valid() {
		v.Add("person_type", "value must be one of: INDIVIDUAL LEGAL_ENTITY")
		return v
	}
	if taxID == "" {
		v.Add("tax_id", "this field is required")
		return v
	}
	if !isDigits(taxID) {
		v.Add("tax_id", "value must contain digits only")
		return v
	}
	if want := p.TaxIDLength(); len(taxID) != want {
		v.Add("tax_id", "tax id of a "+strings.ToLower(string(p))+" must have "+strconv.Itoa(want)+" digits")
	}
	return v
}

// Registrant holds the cadastral fields shared by every person or entity
// record. Specializations embed it by value.
type Registrant struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PersonType PersonType `json:"person_type"`
	TaxID      string     `json:"tax_id"`
	LegalName  string     `json:"legal_name" validate:"required,max=150"`
	TradeName  string     `json:"trade_name,omitempty" validate:"max=150"`
	Phone      string     `json:"phone,omitempty" validate:"max=20"`
	Mobile     string     `json:"mobile,omitempty" validate:"max=20"`
	Email      string     `json:"email,omitempty" validate:"omitempty,email,max=150"`
	Active     bool       `json:"active"`
	AddressID  *uuid.UUID `gorm:"type:uuid" json:"address_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewRegistrant builds a base record. The active flag has no default and
// must be chosen by the caller.
func NewRegistrant(personType PersonType, taxID, legalName string, active bool) Registrant {
	return Registrant{
		PersonType: personType,
		TaxID:      NormalizeTaxID(taxID),
		LegalName:  strings.TrimSpace(legalName),
		Active:     active,
	}
}

// Registrar is implemented by every Registrant specialization.
type Registrar interface {
	// Base exposes the embedded registrant record.
	Base() *Registrant
	// Validate checks the base invariants and the specialization's own fields.
	Validate() error
	// IdentityKey identifies the record within its specialization.
	IdentityKey() string
}

func (r *Registrant) Base() *Registrant {
	return r
}

// normalize trims user supplied text in place.
func (r *Registrant) normalize() {
	r.TaxID = NormalizeTaxID(r.TaxID)
	r.LegalName = strings.TrimSpace(r.LegalName)
	r.TradeName = strings.TrimSpace(r.TradeName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// validateRegistrar runs the struct tags of the whole specialization s,
// which covers the embedded base, and adds the tax id and address checks.
func validateRegistrar(s any, r *Registrant) *e.ValidationError {
	r.normalize()
	v := validateStruct(s)
	v.Merge(CheckTaxID(r.PersonType, r.TaxID))
	if r.AddressID != nil && *r.AddressID == uuid.Nil {
		v.Add("address_id", "value must be a valid id")
	}
	return v
}

// RegistrantPatch carries a partial update of the base fields.
type RegistrantPatch struct {
	PersonType *PersonType `json:"person_type,omitempty"`
	TaxID      *string     `json:"tax_id,omitempty"`
	LegalName  *string     `json:"legal_name,omitempty"`
	TradeName  *string     `json:"trade_name,omitempty"`
	Phone      *string     `json:"phone,omitempty"`
	Mobile     *string     `json:"mobile,omitempty"`
	Email      *string     `json:"email,omitempty"`
	Active     *bool       `json:"active,omitempty"`
	// AddressID set to uuid.Nil detaches the address.
	AddressID *uuid.UUID `json:"address_id,omitempty"`
}

// Apply copies every non-nil field of p onto r.
func (p RegistrantPatch) Apply(r *Registrant) {
	if p.PersonType != nil {
		r.PersonType = *p.PersonType
	}
	if p.TaxID != nil {
		r.TaxID = *p.TaxID
	}
	if p.LegalName != nil {
		r.LegalName = *p.LegalName
	}
	if p.TradeName != nil {
		r.TradeName = *p.TradeName
	}
	if p.Phone != nil {
		r.Phone = *p.Phone
	}
	if p.Mobile != nil {
		r.Mobile = *p.Mobile
	}
	if p.Email != nil {
		r.Email = *p.Email
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.AddressID != nil {
		if *p.AddressID == uuid.Nil {
			r.AddressID = nil
		} else {
			id := *p.AddressID
			r.AddressID = &id
		}
	}
}
