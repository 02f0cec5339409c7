// Package member models the people who appear on permit documents: licensed
// professionals and project team members, each tagged with a closed role.
package member

import (
	"strings"
	"time"
)

// Role tags a required member and forms the prefix of its catalog field keys.
type Role string

const (
	RoleArchitect          Role = "architect"
	RoleStructuralEngineer Role = "structural_engineer"
	RoleSupervisorEngineer Role = "supervisor_engineer"
	RoleExterminator       Role = "exterminator"
	RoleContractor         Role = "contractor"
	RolePermitOwner        Role = "permit_owner"
)

// Roles lists every role the system defines, in a stable order.
var Roles = []Role{
	RoleArchitect,
	RoleStructuralEngineer,
	RoleSupervisorEngineer,
	RoleExterminator,
	RoleContractor,
	RolePermitOwner,
}

// ProfessionalType is the licensed profession of a Professional.
type ProfessionalType string

const (
	TypeArchitect          ProfessionalType = "architect"
	TypeStructuralEngineer ProfessionalType = "structural_engineer"
	TypeSupervisorEngineer ProfessionalType = "supervisor_engineer"
	TypeExterminator       ProfessionalType = "exterminator"
	TypeContractor         ProfessionalType = "contractor"
)

// professionalTypes maps each profession to its role and the Hebrew labels
// that identify it on license documents.
var professionalTypes = map[ProfessionalType]struct {
	role   Role
	labels []string
}{
	TypeSupervisorEngineer: {RoleSupervisorEngineer, []string{"מהנדס אחראי ביקורת", "מהנדס ביקורת"}},
	TypeStructuralEngineer: {RoleStructuralEngineer, []string{"מהנדס אחראי שלד", "מהנדס שלד", "מהנדס בניין"}},
	TypeArchitect:          {RoleArchitect, []string{"אדריכל", "אדריכלית"}},
	TypeExterminator:       {RoleExterminator, []string{"מדביר", "מדביר מוסמך"}},
	TypeContractor:         {RoleContractor, []string{"קבלן רשום", "קבלן בניה", "קבלן בנייה", "קבלן"}},
}

// Role returns the role a professional of this type holds on documents.
func (t ProfessionalType) Role() Role {
	if entry, ok := professionalTypes[t]; ok {
		return entry.role
	}
	return Role(t)
}

// Label returns the primary Hebrew label of the profession.
func (t ProfessionalType) Label() string {
	if entry, ok := professionalTypes[t]; ok {
		return entry.labels[0]
	}
	return string(t)
}

// Valid reports whether t is one of the defined professions.
func (t ProfessionalType) Valid() bool {
	_, ok := professionalTypes[t]
	return ok
}

// ParseProfessionalType resolves a profession code or one of its Hebrew labels.
// Matching is exact after whitespace normalization.
func ParseProfessionalType(s string) (ProfessionalType, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", false
	}
	if t := ProfessionalType(strings.ToLower(s)); t.Valid() {
		return t, true
	}
	for t, entry := range professionalTypes {
		for _, label := range entry.labels {
			if label == s {
				return t, true
			}
		}
	}
	return "", false
}

// Profile is the capability set shared by every required member.
type Profile struct {
	Name              string     `json:"name"`
	NationalID        string     `json:"national_id"`
	Address           string     `json:"address"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email"`
	LicenseNumber     string     `json:"license_number,omitempty"`
	LicenseExpiration *time.Time `json:"license_expiration_date,omitempty"`
}

// RequiredMember is any person who must appear on a document.
type RequiredMember interface {
	MemberRole() Role
	Details() Profile
}

// Professional is a licensed professional registered in the system.
type Professional struct {
	Profile
	Type ProfessionalType `json:"professional_type"`
}

// MemberRole derives the document role from the profession.
func (p *Professional) MemberRole() Role {
	return p.Type.Role()
}

// Details returns the member's shared fields.
func (p *Professional) Details() Profile {
	return p.Profile
}

// TeamMember is a project participant holding an explicit role.
type TeamMember struct {
	Profile
	Role Role `json:"role"`
}

// MemberRole returns the team member's assigned role.
func (m *TeamMember) MemberRole() Role {
	return m.Role
}

// Details returns the member's shared fields.
func (m *TeamMember) Details() Profile {
	return m.Profile
}
