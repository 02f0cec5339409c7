package member

import (
	"fmt"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
)

// Resolver maps a member's role to the prefix of its catalog field keys.
type Resolver struct {
	prefixes map[Role]string
}

// NewResolver creates a resolver covering every defined role.
func NewResolver() *Resolver {
	prefixes := make(map[Role]string, len(Roles))
	for _, role := range Roles {
		prefixes[role] = string(role)
	}
	return &Resolver{prefixes: prefixes}
}

// ResolveRole returns the member's role once it is known to have a mapping.
func (r *Resolver) ResolveRole(m RequiredMember) (Role, error) {
	if m == nil {
		return "", docerrors.ConfigurationError("nil member")
	}
	role := m.MemberRole()
	if _, ok := r.prefixes[role]; !ok {
		return "", docerrors.ConfigurationError(fmt.Sprintf("no field prefix for role %q", role)).
			WithContext(m.Details().Name)
	}
	return role, nil
}

// Resolve returns the lowercase field-key prefix of the member, e.g. "structural_engineer".
func (r *Resolver) Resolve(m RequiredMember) (string, error) {
	role, err := r.ResolveRole(m)
	if err != nil {
		return "", err
	}
	return r.prefixes[role], nil
}
