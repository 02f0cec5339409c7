// Package license turns the text of Israeli professional licenses into
// structured records, using label-anchored patterns with an optional
// language-model fallback.
package license

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bonbonpfw/constractbuild/internal/member"
)

// Field names one attribute of a license record.
type Field string

const (
	FieldName           Field = "name"
	FieldIDNumber       Field = "id_number"
	FieldLicenseNumber  Field = "license_number"
	FieldExpirationDate Field = "license_expiration_date"
	FieldAddress        Field = "address"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldProfessionType Field = "professional_type"
)

// Fields lists every license field in the order the language model is asked for them.
var Fields = []Field{
	FieldName,
	FieldIDNumber,
	FieldEmail,
	FieldPhone,
	FieldAddress,
	FieldLicenseNumber,
	FieldExpirationDate,
	FieldProfessionType,
}

// CriticalFields must all be present for an extraction to be conclusive.
var CriticalFields = []Field{FieldLicenseNumber, FieldExpirationDate, FieldIDNumber}

// LicenseData is a best-effort license record. Empty strings and a nil date mean unknown.
type LicenseData struct {
	Name                  string     `json:"name" validate:"omitempty,min=2"`
	IDNumber              string     `json:"id_number" validate:"omitempty,numeric,min=8,max=9"`
	LicenseNumber         string     `json:"license_number" validate:"omitempty,numeric"`
	LicenseExpirationDate *time.Time `json:"license_expiration_date"`
	Address               string     `json:"address"`
	Email                 string     `json:"email" validate:"omitempty,email"`
	Phone                 string     `json:"phone"`
	ProfessionType        string     `json:"professional_type"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Has reports whether the field holds a value.
func (d *LicenseData) Has(f Field) bool {
	if f == FieldExpirationDate {
		return d.LicenseExpirationDate != nil
	}
	return d.get(f) != ""
}

// Missing lists the given fields that hold no value.
func (d *LicenseData) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if !d.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Override copies every set field of other into d. Unset fields of other never
// clear a value in d.
func (d *LicenseData) Override(other *LicenseData) {
	if other == nil {
		return
	}
	for _, f := range Fields {
		if f == FieldExpirationDate {
			if other.LicenseExpirationDate != nil {
				t := *other.LicenseExpirationDate
				d.LicenseExpirationDate = &t
			}
			continue
		}
		if v := other.get(f); v != "" {
			d.set(f, v)
		}
	}
}

// AsMap returns the record keyed the way professional create/update requests
// expect. Unset fields map to nil and the date is formatted YYYY-MM-DD.
func (d *LicenseData) AsMap() map[string]any {
	str := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	var date any
	if d.LicenseExpirationDate != nil {
		date = d.LicenseExpirationDate.Format(time.DateOnly)
	}
	return map[string]any{
		"name":                    str(d.Name),
		"address":                 str(d.Address),
		"phone":                   str(d.Phone),
		"email":                   str(d.Email),
		"professional_type":       str(d.ProfessionType),
		"national_id":             str(d.IDNumber),
		"license_number":          str(d.LicenseNumber),
		"license_expiration_date": date,
	}
}

func (d *LicenseData) String() string {
	date := "-"
	if d.LicenseExpirationDate != nil {
		date = d.LicenseExpirationDate.Format(member.DateLayout)
	}
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	return fmt.Sprintf("Profession: %s\nName: %s\nNational ID: %s\nLicense Number: %s\nExpiration Date: %s\nAddress: %s\n",
		orDash(d.ProfessionType), orDash(d.Name), orDash(d.IDNumber), orDash(d.LicenseNumber), date, orDash(d.Address))
}

// Validate checks the format of the fields that are set.
func (d *LicenseData) Validate() error {
	return validate.Struct(d)
}

// ToProfessional builds a professional from the record. When profType is empty
// it is derived from the extracted profession text.
func (d *LicenseData) ToProfessional(profType member.ProfessionalType) (*member.Professional, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid license data: %w", err)
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("license data has no name")
	}
	if profType == "" {
		parsed, ok := member.ParseProfessionalType(d.ProfessionType)
		if !ok {
			return nil, fmt.Errorf("cannot map profession %q to a professional type", d.ProfessionType)
		}
		profType = parsed
	}
	if !profType.Valid() {
		return nil, fmt.Errorf("unknown professional type %q", profType)
	}

	p := &member.Professional{
		Profile: member.Profile{
			Name:          strings.TrimSpace(d.Name),
			NationalID:    d.IDNumber,
			Address:       d.Address,
			Phone:         member.NormalizePhone(d.Phone),
			Email:         d.Email,
			LicenseNumber: d.LicenseNumber,
		},
		Type: profType,
	}
	if d.LicenseExpirationDate != nil {
		t := *d.LicenseExpirationDate
		p.LicenseExpiration = &t
	}
	return p, nil
}

func (d *LicenseData) get(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldIDNumber:
		return d.IDNumber
	case FieldLicenseNumber:
		return d.LicenseNumber
	case FieldAddress:
		return d.Address
	case FieldEmail:
		return d.Email
	case FieldPhone:
		return d.Phone
	case FieldProfessionType:
		return d.ProfessionType
	}
	return ""
}

func (d *LicenseData) set(f Field, v string) {
	switch f {
	case FieldName:
		d.Name = v
	case FieldIDNumber:
		d.IDNumber = v
	case FieldLicenseNumber:
		d.LicenseNumber = v
	case FieldAddress:
		d.Address = v
	case FieldEmail:
		d.Email = v
	case FieldPhone:
		d.Phone = v
	case FieldProfessionType:
		d.ProfessionType = v
	}
}
