package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Names of the seeded profiles.
const (
	ProfileRoot          = "Root"
	ProfileAdministrator = "Administrator"
	ProfileCollaborator  = "Collaborator"
)

// Fixed identifiers of the seed rows, so repeated seeding is a no-op.
var (
	ProfileRootID          = uuid.MustParse("5a1f0c6e-0000-4000-8000-000000000001")
	ProfileAdministratorID = uuid.MustParse("5a1f0c6e-0000-4000-8000-000000000002")
	ProfileCollaboratorID  = uuid.MustParse("5a1f0c6e-0000-4000-8000-000000000003")
	DefaultProviderID      = uuid.MustParse("5a1f0c6e-0000-4000-8000-0000000000a1")
)

// Role is the permission tier derived from a profile name. Higher values
// include the permissions of lower ones.
type Role int

const (
	RoleCollaborator Role = iota + 1
	RoleAdministrator
	RoleRoot
)

// RoleOf maps a profile name to its role. Profiles other than the seeded
// ones rank as collaborators.
func RoleOf(profileName string) Role {
	switch profileName {
	case ProfileRoot:
		return RoleRoot
	case ProfileAdministrator:
		return RoleAdministrator
	default:
		return RoleCollaborator
	}
}

// AtLeast reports whether r grants at least the permissions of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

func (r Role) String() string {
	switch r {
	case RoleRoot:
		return ProfileRoot
	case RoleAdministrator:
		return ProfileAdministrator
	case RoleCollaborator:
		return ProfileCollaborator
	default:
		return "Unknown"
	}
}

// Profile is a named permission tier.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `json:"name" validate:"required,max=50"`
	CreatedAt time.Time `json:"created_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	return validateStruct(p).OrNil()
}

// Seeded reports whether p is one of the fixed reference profiles.
func (p *Profile) Seeded() bool {
	return IsSeedProfile(p.ID)
}

func IsSeedProfile(id uuid.UUID) bool {
	return id == ProfileRootID || id == ProfileAdministratorID || id == ProfileCollaboratorID
}

// SeedProfiles returns the fixed reference profiles.
func SeedProfiles() []Profile {
	return []Profile{
		{ID: ProfileRootID, Name: ProfileRoot},
		{ID: ProfileAdministratorID, Name: ProfileAdministrator},
		{ID: ProfileCollaboratorID, Name: ProfileCollaborator},
	}
}

// DefaultProvider returns the service provider seeded at first start.
func DefaultProvider() ServiceProvider {
	r := NewRegistrant(LegalEntity, "11222333000181", "SafeWork Saude Ocupacional Ltda", true)
	r.ID = DefaultProviderID
	r.TradeName = "SafeWork"
	r.Email = "contato@safework.com"
	return ServiceProvider{Registrant: r}
}

// User is a login identity bound to one profile and one service provider.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string    `json:"name" validate:"required,max=120"`
	Email             string    `json:"email" validate:"required,email,max=150"`
	PasswordHash      string    `json:"-"`
	ProfileID         uuid.UUID `gorm:"type:uuid" json:"profile_id"`
	ServiceProviderID uuid.UUID `gorm:"type:uuid" json:"service_provider_id"`
	Active            bool      `json:"active"`
	Profile           *Profile  `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// NormalizeEmail lower-cases and trims an email so lookups are case blind.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
	v := validateStruct(u)
	if u.ProfileID == uuid.Nil {
		v.Add("profile_id", "this field is required")
	}
	if u.ServiceProviderID == uuid.Nil {
		v.Add("service_provider_id", "this field is required")
	}
	if u.PasswordHash == "" {
		v.Add("password", "this field is required")
	}
	return v.OrNil()
}

// ProfileName returns the name of the loaded profile, or "" when the
// association was not loaded.
func (u *User) ProfileName() string {
	if u.Profile == nil {
		return ""
	}
	return u.Profile.Name
}

// Projection returns the public view of u.
func (u *User) Projection() UserProjection {
	return UserProjection{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.ProfileName(),
		ServiceProviderID: u.ServiceProviderID,
		Active:            u.Active,
	}
}

// UserProjection is the part of a user that may leave the service.
type UserProjection struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	ServiceProviderID uuid.UUID `json:"service_provider_id"`
	Active            bool      `json:"active"`
}

// NewUser carries the input of a user creation, including the plaintext
// password that is hashed before it reaches storage.
type NewUser struct {
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Password          string    `json:"password"`
	ProfileID         uuid.UUID `json:"profile_id"`
	ServiceProviderID uuid.UUID `json:"service_provider_id"`
	Active            *bool     `json:"active"`
}

// ValidatePassword checks the password rule alone.
func ValidatePassword(password string) error {
	s := struct {
		Password string `json:"password" validate:"required,password"`
	}{Password: password}
	return validateStruct(&s).OrNil()
}

// UserPatch is a partial update of a user. Passwords change through the
// authentication service only.
type UserPatch struct {
	Name              *string    `json:"name,omitempty"`
	Email             *string    `json:"email,omitempty"`
	ProfileID         *uuid.UUID `json:"profile_id,omitempty"`
	ServiceProviderID *uuid.UUID `json:"service_provider_id,omitempty"`
	Active            *bool      `json:"active,omitempty"`
}

func (p UserPatch) Apply(u *User) {
	setIf(&u.Name, p.Name)
	setIf(&u.Email, p.Email)
	setIf(&u.ProfileID, p.ProfileID)
	setIf(&u.ServiceProviderID, p.ServiceProviderID)
	setIf(&u.Active, p.Active)
	if p.ProfileID != nil {
		u.Profile = nil
	}
}

// UserFilter narrows user listings.
type UserFilter struct {
	ServiceProviderID *uuid.UUID
}
