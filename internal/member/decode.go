package member

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Member kinds accepted on the wire.
const (
	KindProfessional = "professional"
	KindTeamMember   = "team_member"
)

// memberInput is the JSON shape of one member in a compose request.
type memberInput struct {
	Kind              string `json:"kind" validate:"required,oneof=professional team_member"`
	Name              string `json:"name" validate:"required"`
	NationalID        string `json:"national_id" validate:"omitempty,numeric,len=9"`
	Address           string `json:"address"`
	Phone             string `json:"phone" validate:"omitempty,phone"`
	Email             string `json:"email" validate:"omitempty,email"`
	LicenseNumber     string `json:"license_number" validate:"omitempty,numeric"`
	LicenseExpiration string `json:"license_expiration_date" validate:"omitempty,isodate"`
	ProfessionalType  string `json:"professional_type" validate:"required_if=Kind professional"`
	Role              string `json:"role" validate:"required_if=Kind team_member"`
}

var (
	validate = newValidator()

	phonePattern   = regexp.MustCompile(`^\+?\d{9,15}$`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// NormalizePhone strips common separators from a phone number.
func NormalizePhone(s string) string {
	return phoneSeparator.Replace(strings.TrimSpace(s))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(NormalizePhone(fl.Field().String()))
	})
	return v
}

// DecodeMembers parses a JSON array of members. Each element carries a "kind"
// of "professional" or "team_member". Roles are not checked here; unknown roles
// surface when the member is resolved.
func DecodeMembers(data []byte) ([]RequiredMember, error) {
	var inputs []memberInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("invalid members JSON: %w", err)
	}

	members := make([]RequiredMember, 0, len(inputs))
	for i, in := range inputs {
		m, err := in.toMember()
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		members = append(members, m)
	}
	return members, nil
}

func (in memberInput) toMember() (RequiredMember, error) {
	in.Kind = strings.ToLower(strings.TrimSpace(in.Kind))
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	profile := Profile{
		Name:          strings.TrimSpace(in.Name),
		NationalID:    in.NationalID,
		Address:       in.Address,
		Phone:         NormalizePhone(in.Phone),
		Email:         in.Email,
		LicenseNumber: in.LicenseNumber,
	}
	if in.LicenseExpiration != "" {
		t, _ := time.Parse(time.DateOnly, in.LicenseExpiration)
		profile.LicenseExpiration = &t
	}

	if in.Kind == KindProfessional {
		pt, ok := ParseProfessionalType(in.ProfessionalType)
		if !ok {
			return nil, fmt.Errorf("unknown professional type %q", in.ProfessionalType)
		}
		return &Professional{Profile: profile, Type: pt}, nil
	}
	return &TeamMember{Profile: profile, Role: Role(strings.ToLower(strings.TrimSpace(in.Role)))}, nil
}
