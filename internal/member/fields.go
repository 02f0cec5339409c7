package member

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the day-first format used for every date written onto documents.
const DateLayout = "02/01/2006"

// FieldKind enumerates the values a document can receive at a coordinate.
type FieldKind int

const (
	FieldName FieldKind = iota
	FieldID
	FieldAddress
	FieldPhone
	FieldMail
	FieldLicenseNumber
	FieldLicenseExpiration
	FieldNameForSigned
	FieldIDForSigned
	FieldDate
	FieldDateForSigned
)

type kindInfo struct {
	suffix  string
	generic bool
	rtl     bool
}

var kinds = map[FieldKind]kindInfo{
	FieldName:              {suffix: "name", rtl: true},
	FieldID:                {suffix: "id"},
	FieldAddress:           {suffix: "address", rtl: true},
	FieldPhone:             {suffix: "phone"},
	FieldMail:              {suffix: "mail"},
	FieldLicenseNumber:     {suffix: "license_number"},
	FieldLicenseExpiration: {suffix: "license_expiration_date"},
	FieldNameForSigned:     {suffix: "name_for_signed", rtl: true},
	FieldIDForSigned:       {suffix: "id_for_signed"},
	FieldDate:              {suffix: "date", generic: true},
	FieldDateForSigned:     {suffix: "date_for_signed", generic: true},
}

// RoleKinds are the kinds attempted for every member, in render order.
var RoleKinds = []FieldKind{
	FieldName,
	FieldID,
	FieldAddress,
	FieldPhone,
	FieldMail,
	FieldLicenseNumber,
	FieldLicenseExpiration,
	FieldNameForSigned,
	FieldIDForSigned,
}

// GenericKinds are role-independent and rendered once per page.
var GenericKinds = []FieldKind{FieldDate, FieldDateForSigned}

// Suffix returns the catalog key suffix of the kind.
func (k FieldKind) Suffix() string {
	return kinds[k].suffix
}

// Generic reports whether the kind is independent of any role.
func (k FieldKind) Generic() bool {
	return kinds[k].generic
}

// RTL reports whether the kind carries free text that may be right-to-left.
func (k FieldKind) RTL() bool {
	return kinds[k].rtl
}

func (k FieldKind) String() string {
	if info, ok := kinds[k]; ok {
		return info.suffix
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Value returns the text to render for kind from p. Generic kinds render now.
// An empty result means the field must be skipped.
func (k FieldKind) Value(p Profile, now time.Time) string {
	switch k {
	case FieldName, FieldNameForSigned:
		return strings.TrimSpace(p.Name)
	case FieldID, FieldIDForSigned:
		return strings.TrimSpace(p.NationalID)
	case FieldAddress:
		return strings.TrimSpace(p.Address)
	case FieldPhone:
		return strings.TrimSpace(p.Phone)
	case FieldMail:
		return strings.TrimSpace(p.Email)
	case FieldLicenseNumber:
		return strings.TrimSpace(p.LicenseNumber)
	case FieldLicenseExpiration:
		if p.LicenseExpiration == nil || p.LicenseExpiration.IsZero() {
			return ""
		}
		return p.LicenseExpiration.Format(DateLayout)
	case FieldDate, FieldDateForSigned:
		return now.Format(DateLayout)
	}
	return ""
}

// FieldKey identifies one catalog field: a kind, qualified by a role unless generic.
type FieldKey struct {
	Role Role
	Kind FieldKind
}

// Key builds the key of a role-specific field.
func Key(role Role, kind FieldKind) FieldKey {
	return FieldKey{Role: role, Kind: kind}
}

// GenericKey builds the key of a role-independent field.
func GenericKey(kind FieldKind) FieldKey {
	return FieldKey{Kind: kind}
}

// String renders the key in its catalog spelling, e.g. "architect_license_number".
func (k FieldKey) String() string {
	if k.Role == "" {
		return k.Kind.Suffix()
	}
	return string(k.Role) + "_" + k.Kind.Suffix()
}

var keyTable = buildKeyTable()

func buildKeyTable() map[string]FieldKey {
	table := make(map[string]FieldKey, len(Roles)*len(RoleKinds)+len(GenericKinds))
	for _, kind := range GenericKinds {
		key := GenericKey(kind)
		table[key.String()] = key
	}
	for _, role := range Roles {
		for _, kind := range RoleKinds {
			key := Key(role, kind)
			table[key.String()] = key
		}
	}
	return table
}

// ParseFieldKey resolves a catalog key such as "permit_owner_name_for_signed".
func ParseFieldKey(s string) (FieldKey, error) {
	if key, ok := keyTable[strings.TrimSpace(s)]; ok {
		return key, nil
	}
	return FieldKey{}, fmt.Errorf("unknown field key %q", s)
}

// KnownFieldKeys lists every valid catalog key, sorted.
func KnownFieldKeys() []string {
	keys := make([]string, 0, len(keyTable))
	for k := range keyTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
