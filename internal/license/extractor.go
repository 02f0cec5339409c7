package license

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
)

// Patterns are tried in order; the first match wins. Each captures the value in group 1.
// Longer labels precede their prefixes so "שם פרטי" is not read as "שם".
var (
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:מספר ת"ז|מספר ת\.ז|תעודת זהות|ח\.פ/\s*ת\.ז\.?|ח\.פ|ת\.ז|ת"ז|ID)[\s:.]*(\d{9})`),
	}
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:תאריך תפוגה|בתוקף עד|תוקף|תפוגה)[\s:]*(\d{1,2}/\d{1,2}/\d{4}|\d{8})`),
	}
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)(?:^|\s)(?:שם פרטי ושם משפחה|שם פרטי|שם משפחה|שם)[ \t]*:?[ \t]*((?:\S+[ \t]+)?\S+)`),
	}
	licensePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:מספר רישיון|מס' רישיון|מס רישיון|רישיון מקצועי|רישיון)[\s:]*(\d{4,8})`),
	}
	idLabelSuffix = regexp.MustCompile(`(?:מספר ת"ז|מספר ת\.ז|תעודת זהות|ח\.פ|ת\.ז|ת"ז|ID)[\s:./]*$`)

	professionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`סוג[\s:]+([^\n]+)`),
		regexp.MustCompile(`רישיון\s+(\D\S*)`),
	}
)

// Extraction is the outcome of one extraction pass. Errors holds field-level
// failures; a field missing from both Data and Errors simply did not appear.
type Extraction struct {
	Data   *LicenseData
	Errors map[Field]error
}

// Extractor parses license text with label-anchored patterns. It has no state
// and never fails as a whole.
type Extractor struct{}

// Extract populates every field it can find in text.
func (Extractor) Extract(text string) *Extraction {
	ex := &Extraction{Data: &LicenseData{}, Errors: make(map[Field]error)}
	if strings.TrimSpace(text) == "" {
		return ex
	}

	ex.Data.IDNumber = firstMatch(idPatterns, text)

	if raw := firstMatch(datePatterns, text); raw != "" {
		date, err := ParseDate(raw)
		if err != nil {
			ex.Errors[FieldExpirationDate] = docerrors.DateParseError(string(FieldExpirationDate), raw, err)
		} else {
			ex.Data.LicenseExpirationDate = &date
		}
	}

	ex.Data.Name = firstMatch(namePatterns, text)
	if ex.Data.Name == "" && ex.Data.IDNumber != "" {
		ex.Data.Name = nameBeforeID(text, ex.Data.IDNumber)
	}

	ex.Data.LicenseNumber = firstMatch(licensePatterns, text)
	ex.Data.ProfessionType = firstMatch(professionPatterns, text)

	return ex
}

// ParseDate accepts DD/MM/YYYY, DDMMYYYY and YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"2/1/2006", "02012006", time.DateOnly}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// nameBeforeID returns the last non-empty line preceding the ID, where license
// layouts usually print the holder's name. A trailing ID label is not part of it.
func nameBeforeID(text, id string) string {
	pos := strings.Index(text, id)
	if pos <= 0 {
		return ""
	}
	lines := lo.Map(strings.Split(text[:pos], "\n"), func(l string, _ int) string {
		return strings.TrimSpace(idLabelSuffix.ReplaceAllString(strings.TrimSpace(l), ""))
	})
	lines = lo.Filter(lines, func(l string, _ int) bool { return l != "" })
	if len(lines) == 0 {
		return ""
	}
	candidate := lines[len(lines)-1]
	if utf8.RuneCountInString(candidate) <= 2 {
		return ""
	}
	return candidate
}
