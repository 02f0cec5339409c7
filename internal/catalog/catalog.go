// Package catalog holds the field-position catalog: for every document type,
// the page-by-page coordinates at which member data is written.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	docerrors "github.com/bonbonpfw/constractbuild/internal/errors"
	"github.com/bonbonpfw/constractbuild/internal/member"
)

// DocumentType names a blank template the catalog knows how to fill.
type DocumentType string

const (
	TrashInspection     DocumentType = "TRASH_INSPECTION"
	AdapterAgreement    DocumentType = "ADAPTER_AGREEMENT"
	StartWorkRequest    DocumentType = "START_WORK_REQUEST"
	ExecutionLicense    DocumentType = "EXECUTION_LICENSE"
	ExecutionInspection DocumentType = "EXECUTION_INSPECTION"
	PesticidalOwner     DocumentType = "PESTICIDAL_OWNER"
	ContractorOwner     DocumentType = "CONTRACTOR_OWNER"
	ProfessionalList    DocumentType = "PROFESSIONAL_LIST"
	General             DocumentType = "GENERAL"
)

var labels = map[DocumentType]string{
	TrashInspection:     "אחראי לביקורת על הפסולת",
	AdapterAgreement:    "אחראי לתיאום עם מכון בקרה",
	StartWorkRequest:    "בקשה לתחילת עבודות",
	ExecutionLicense:    "מינוי אחראי לביצוע שלד (101)",
	ExecutionInspection: "מינוי אחראי לביקורת על הביצוע",
	PesticidalOwner:     "מינוי מדביר מוסמך",
	ContractorOwner:     "מינוי קבלן רשום",
	ProfessionalList:    "רשימת בעלי תפקידים",
	General:             "כללי",
}

// Label returns the Hebrew display name, or the type itself when none is defined.
func (d DocumentType) Label() string {
	if l, ok := labels[d]; ok {
		return l
	}
	return string(d)
}

// OutputName returns the default file name of a filled document of this type.
func (d DocumentType) OutputName() string {
	return "filled_" + strings.ToLower(string(d)) + ".pdf"
}

// Coordinate is a point in PDF user space, origin bottom-left.
type Coordinate struct {
	X float64
	Y float64
}

// UnmarshalYAML accepts exactly a two-number sequence, e.g. [440, 612.5].
func (c *Coordinate) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: coordinate must be [x, y]", node.Line)
	}
	var xy [2]float64
	for i, n := range node.Content {
		if err := n.Decode(&xy[i]); err != nil {
			return fmt.Errorf("line %d: coordinate must be numeric: %w", n.Line, err)
		}
	}
	c.X, c.Y = xy[0], xy[1]
	return nil
}

// PageFields maps the fields present on one page to their coordinates.
type PageFields map[member.FieldKey]Coordinate

// Catalog is immutable after Load and safe for concurrent readers.
type Catalog struct {
	pages    map[DocumentType]map[int]PageFields
	required map[DocumentType][]member.Role
}

type catalogFile struct {
	Coordinates   map[string]map[int]map[string]Coordinate `yaml:"DOCUMENT_FIELD_COORDINATE_MAP"`
	Professionals map[string][]string                     `yaml:"DOCUMENT_PROFESSIONAL_MAP"`
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, docerrors.RenderingConfigurationError("cannot read field catalog", err).WithFile(path)
	}
	c, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load parses a catalog. Every field key is checked against the known roles and
// field kinds; an unknown key fails the whole load.
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, docerrors.CatalogError("invalid field catalog", err)
	}
	if len(f.Coordinates) == 0 {
		return nil, docerrors.CatalogError("field catalog has no DOCUMENT_FIELD_COORDINATE_MAP entries", nil)
	}

	c := &Catalog{
		pages:    make(map[DocumentType]map[int]PageFields, len(f.Coordinates)),
		required: make(map[DocumentType][]member.Role, len(f.Professionals)),
	}

	for docName, pages := range f.Coordinates {
		docType := DocumentType(docName)
		if len(pages) == 0 {
			return nil, docerrors.CatalogError(fmt.Sprintf("document type %s has no pages", docName), nil)
		}
		parsed := make(map[int]PageFields, len(pages))
		for pageNum, fields := range pages {
			if pageNum < 1 {
				return nil, docerrors.CatalogError(fmt.Sprintf("document type %s: page numbers start at 1, got %d", docName, pageNum), nil)
			}
			pf := make(PageFields, len(fields))
			for rawKey, coord := range fields {
				key, err := member.ParseFieldKey(rawKey)
				if err != nil {
					return nil, docerrors.ConfigurationError(err.Error()).
						WithContext(fmt.Sprintf("%s page %d", docName, pageNum)).
						WithField(rawKey)
				}
				pf[key] = coord
			}
			parsed[pageNum] = pf
		}
		c.pages[docType] = parsed
	}

	for docName, roleNames := range f.Professionals {
		roles := make([]member.Role, 0, len(roleNames))
		for _, name := range roleNames {
			role := member.Role(strings.ToLower(strings.TrimSpace(name)))
			if !lo.Contains(member.Roles, role) {
				return nil, docerrors.ConfigurationError(fmt.Sprintf("unknown role %q", name)).
					WithContext("DOCUMENT_PROFESSIONAL_MAP " + docName)
			}
			roles = append(roles, role)
		}
		c.required[DocumentType(docName)] = lo.Uniq(roles)
	}

	return c, nil
}

// Has reports whether the catalog defines the document type.
func (c *Catalog) Has(docType DocumentType) bool {
	_, ok := c.pages[docType]
	return ok
}

// Page returns the fields of a 1-indexed page. A page without entries is absent.
func (c *Catalog) Page(docType DocumentType, page int) (PageFields, bool) {
	pages, ok := c.pages[docType]
	if !ok {
		return nil, false
	}
	pf, ok := pages[page]
	return pf, ok
}

// Pages lists the page numbers defined for the document type, ascending.
func (c *Catalog) Pages(docType DocumentType) []int {
	nums := lo.Keys(c.pages[docType])
	sort.Ints(nums)
	return nums
}

// DocumentTypes lists every document type in the catalog, sorted.
func (c *Catalog) DocumentTypes() []DocumentType {
	types := lo.Keys(c.pages)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// RequiredRoles lists the roles that must appear on the document type.
func (c *Catalog) RequiredRoles(docType DocumentType) []member.Role {
	return append([]member.Role(nil), c.required[docType]...)
}
