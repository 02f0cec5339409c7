package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
	"github.com/bonbonpfw/constractbuild/internal/member"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractor_Extract(t *testing.T) {
	text := `רישיון אדריכל
שם: דנה כהן
ת.ז: 512723875
מספר רישיון: 24052
תוקף: 31/12/2026`

	ex := Extractor{}.Extract(text)
	require.NotNil(t, ex.Data)
	assert.Empty(t, ex.Errors)

	assert.Equal(t, "דנה כהן", ex.Data.Name)
	assert.Equal(t, "512723875", ex.Data.IDNumber)
	assert.Equal(t, "24052", ex.Data.LicenseNumber)
	require.NotNil(t, ex.Data.LicenseExpirationDate)
	assert.Equal(t, date(2026, time.December, 31), *ex.Data.LicenseExpirationDate)
	assert.Equal(t, "אדריכל", ex.Data.ProfessionType)
}

func TestExtractor_Fields(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, d *LicenseData)
	}{
		{
			name: "id after short label",
			text: "...ת.ז 512723875...",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "512723875", d.IDNumber)
			},
		},
		{
			name: "id after company label",
			text: "ח.פ/ ת.ז.: 512723875",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "512723875", d.IDNumber)
			},
		},
		{
			name: "id with latin label",
			text: "ID: 123456789",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "123456789", d.IDNumber)
			},
		},
		{
			name: "eight digit date",
			text: "תוקף: 31122026",
			check: func(t *testing.T, d *LicenseData) {
				require.NotNil(t, d.LicenseExpirationDate)
				assert.Equal(t, date(2026, time.December, 31), *d.LicenseExpirationDate)
			},
		},
		{
			name: "expiry label",
			text: "בתוקף עד 01/02/2027",
			check: func(t *testing.T, d *LicenseData) {
				require.NotNil(t, d.LicenseExpirationDate)
				assert.Equal(t, date(2027, time.February, 1), *d.LicenseExpirationDate)
			},
		},
		{
			name: "full name label is not read as first name",
			text: "שם פרטי ושם משפחה: יוסי לוי",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "יוסי לוי", d.Name)
			},
		},
		{
			name: "name fallback to line before id",
			text: "משה ישראלי\nת.ז: 123456789",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "משה ישראלי", d.Name)
			},
		},
		{
			name: "short line before id is not a name",
			text: "אב\nID: 123456789",
			check: func(t *testing.T, d *LicenseData) {
				assert.Empty(t, d.Name)
			},
		},
		{
			name: "license number short label",
			text: "מס' רישיון 1234567",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "1234567", d.LicenseNumber)
			},
		},
		{
			name: "profession type line",
			text: "סוג: קבלן בניה",
			check: func(t *testing.T, d *LicenseData) {
				assert.Equal(t, "קבלן בניה", d.ProfessionType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Extractor{}.Extract(tt.text).Data)
		})
	}
}

func TestExtractor_NoMatches(t *testing.T) {
	for _, text := range []string{"", "   ", "lorem ipsum dolor"} {
		ex := Extractor{}.Extract(text)
		require.NotNil(t, ex.Data)
		assert.Equal(t, &LicenseData{}, ex.Data)
		assert.Empty(t, ex.Errors)
	}
}

func TestExtractor_MalformedDateIsolated(t *testing.T) {
	ex := Extractor{}.Extract("ת.ז: 512723875\nתוקף: 32/13/2026\nמספר רישיון: 24052")

	assert.Nil(t, ex.Data.LicenseExpirationDate)
	require.Contains(t, ex.Errors, FieldExpirationDate)
	assert.ErrorIs(t, ex.Errors[FieldExpirationDate], docerrors.ErrDateParse)

	assert.Equal(t, "512723875", ex.Data.IDNumber)
	assert.Equal(t, "24052", ex.Data.LicenseNumber)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "31/12/2026", want: date(2026, time.December, 31)},
		{in: "1/2/2027", want: date(2027, time.February, 1)},
		{in: "05012004", want: date(2004, time.January, 5)},
		{in: "2026-12-31", want: date(2026, time.December, 31)},
		{in: "31/02/2026", wantErr: true},
		{in: "99999999", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLicenseData_AsMap(t *testing.T) {
	exp := date(2026, time.December, 31)
	d := &LicenseData{Name: "דנה", IDNumber: "512723875", LicenseExpirationDate: &exp}

	m := d.AsMap()
	assert.Equal(t, "דנה", m["name"])
	assert.Equal(t, "512723875", m["national_id"])
	assert.Equal(t, "2026-12-31", m["license_expiration_date"])
	assert.Nil(t, m["email"])
	assert.Len(t, m, 8)

	empty := (&LicenseData{}).AsMap()
	for k, v := range empty {
		assert.Nil(t, v, k)
	}
}

func TestLicenseData_Override(t *testing.T) {
	exp := date(2027, time.March, 1)
	base := &LicenseData{Name: "regex name", IDNumber: "512723875"}
	base.Override(&LicenseData{Name: "", LicenseNumber: "24052", LicenseExpirationDate: &exp, IDNumber: "123456789"})

	assert.Equal(t, "regex name", base.Name, "unset values never overwrite")
	assert.Equal(t, "123456789", base.IDNumber, "set values override")
	assert.Equal(t, "24052", base.LicenseNumber)
	assert.Equal(t, exp, *base.LicenseExpirationDate)
	assert.Empty(t, base.Missing(CriticalFields...))
}

func TestLicenseData_ToProfessional(t *testing.T) {
	exp := date(2027, time.March, 1)
	d := &LicenseData{
		Name:                  "גוטליב אריה",
		IDNumber:              "512723875",
		LicenseNumber:         "24052",
		LicenseExpirationDate: &exp,
		Phone:                 "050-1234567",
		ProfessionType:        "קבלן בניה",
	}

	p, err := d.ToProfessional("")
	require.NoError(t, err)
	assert.Equal(t, member.TypeContractor, p.Type)
	assert.Equal(t, member.RoleContractor, p.MemberRole())
	assert.Equal(t, "0501234567", p.Phone)
	assert.Equal(t, exp, *p.LicenseExpiration)

	p, err = d.ToProfessional(member.TypeArchitect)
	require.NoError(t, err)
	assert.Equal(t, member.TypeArchitect, p.Type)

	_, err = (&LicenseData{Name: "x y", ProfessionType: "שרברב"}).ToProfessional("")
	assert.Error(t, err)

	_, err = (&LicenseData{ProfessionType: "אדריכל"}).ToProfessional("")
	assert.Error(t, err, "name is required")

	_, err = (&LicenseData{Name: "x y", IDNumber: "12"}).ToProfessional(member.TypeArchitect)
	assert.Error(t, err, "malformed id")
}
