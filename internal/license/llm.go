package license

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
)

// Prompt asks the model for the license fields as a JSON object.
const Prompt = `You are an expert at extracting information from Hebrew professional licenses.
All information must follow Israeli conventions, e.g. phone numbers have 9 or 10 digits.

Extract ONLY the following information from the license. If information is not found, use null.

For example, in this text:
24052 מ"בע בבניה אחריות גוטליב 512723875
05012004 5400804      שמואל  גבעת     1 הערבה
 5 ג   בניה 100 =
33900374 האני ברנסי  1519495 אריה גוטליב
 31 דצמבר 2026 הקבלנים בפנקס  בו שחלו שינויים  או הרשיון תוקף  את לוודא  יש.

we have:
שם: גוטליב אריה
ח.פ/ ת.ז.: 512723875
כתובת: הערבה 1 גבעת שמואל 5400804
רישיון מקצועי: 24052
תוקף: 2026-12-31
סוג: קבלן בניה

Return JSON format:
{
  "name": "<Full name of the professional>",
  "id_number": "<8-9-digit ID number (ת.ז.)>",
  "email": "<Email address>",
  "phone": "<Phone number>",
  "address": "<Full address>",
  "license_number": "<Professional license number>",
  "license_expiration_date": "<Expiration date in YYYY-MM-DD format (e.g., 2025-01-01)>",
  "professional_type": "<Type of profession (e.g., קבלן בניה, אדריכל, etc.)>"
}

IMPORTANT:
- Extract ONLY what appears in the text
- Use null if information is missing
- Format dates as YYYY-MM-DD
- Return ONLY the JSON object`

var (
	codeFence = regexp.MustCompile("```(?:json)?")

	// ErrNoLicenseFields is returned when a model answer holds none of the license fields.
	ErrNoLicenseFields = errors.New("response contains no license fields")
)

// ParseLLMResponse reads a model answer into a record. Code fences are removed
// and the JSON object decoded; when the answer is not valid JSON each field is
// located on its own. null and empty values stay unset.
func ParseLLMResponse(text string) (*Extraction, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	values, err := decodeObject(cleaned)
	if err != nil {
		values = make(map[string]any)
		for _, f := range Fields {
			if v, ok := extractField(cleaned, string(f)); ok {
				values[string(f)] = v
			}
		}
	}

	ex := &Extraction{Data: &LicenseData{}, Errors: make(map[Field]error)}
	found := 0
	for _, f := range Fields {
		raw, ok := values[string(f)]
		if !ok {
			continue
		}
		found++
		s := scalarString(raw)
		if s == "" {
			continue
		}
		if f == FieldExpirationDate {
			date, err := ParseDate(s)
			if err != nil {
				ex.Errors[f] = docerrors.DateParseError(string(f), s, err)
				continue
			}
			ex.Data.LicenseExpirationDate = &date
			continue
		}
		ex.Data.set(f, s)
	}

	if found == 0 {
		return ex, docerrors.Wrap(docerrors.ErrorTypeLLMExtraction, "cannot parse model response", ErrNoLicenseFields)
	}
	return ex, nil
}

func decodeObject(s string) (map[string]any, error) {
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// extractField finds "name": value in malformed JSON-like text.
func extractField(text, name string) (any, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*("(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?|true|false|null)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(m[1]), &v); err != nil {
		return strings.Trim(m[1], `"`), true
	}
	return v, true
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
