package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Document Tools
	ComposeDocumentDescription = `Fill a blank construction permit form with project team data.

**When to use:** A municipal or control-body form (execution license, contractor appointment, professional list) must be filled for a project.

**Why it's useful:** Every field is written at the position the field catalog defines for that form, Hebrew values are written right-to-left, and the date fields get today's date.

**Examples:**
• Appoint a contractor: "Fill contractor_owner.pdf as CONTRACTOR_OWNER with the registered contractor"
• Structural supervision: "Fill form 101 as EXECUTION_LICENSE with the structural engineer and the permit owner"

**members argument:** JSON array. Each entry has "kind" ("professional" or "team_member"), "name" and optionally
"national_id", "address", "phone", "email", "license_number", "license_expiration_date" (YYYY-MM-DD).
Professionals carry "professional_type" (a code such as "architect" or a Hebrew label such as "קבלן רשום"); team members carry "role"
(for example "permit_owner").

**Common workflows:**
1. list_document_types → validate_source_document → compose_document
2. extract_license_file → build the member entry → compose_document

**Best practices:** Read the warnings in the response: members with an unknown role are skipped and roles the form requires but that were not supplied are reported.`

	ListDocumentTypesDescription = `List the document types the field catalog can fill.

**When to use:** Before compose_document, to find the exact document type name and the roles a form expects.

**Why it's useful:** Shows each type's Hebrew title, the pages that carry fields, the default output file name and the required roles.

**Best practices:** Document type names are matched as written first, then upper-cased.`

	ValidateSourceDocumentDescription = `Verify that a blank form PDF can be used as a compose source.

**When to use:** Before composing, especially for newly scanned or downloaded forms.

**Why it's useful:** Catches missing, empty, oversized and corrupted PDFs before any field is written and reports the page count.

**Best practices:** Compare the page count with the pages listed by list_document_types for that form.`

	// License Tools
	ExtractLicenseTextDescription = `Extract professional license fields from Hebrew license text.

**When to use:** License text was copied from a registry page, an email or an OCR result.

**Why it's useful:** Finds the name, ID number (ת.ז / ח.פ), license number, expiration date and profession type with Hebrew-aware patterns, offline.

**Examples:**
• "Extract the fields from this contractor registry entry"
• "Read the architect license text and give me the expiration date"

**Common workflows:**
1. extract_license_text → check "missing" → retry with use_llm=true when critical fields are missing

**Best practices:** Set use_llm=true to let the language model fill critical fields (license number, expiration date, ID) the patterns could not find. Model values never erase values already found.`

	ExtractLicenseFileDescription = `Extract professional license fields from a license file (PDF, image or text).

**When to use:** A scanned or digital license certificate is available as a file.

**Why it's useful:** Text PDFs and text files go through the offline patterns; scanned PDFs and images are sent to the language model when use_llm=true.

**Best practices:** Use search_source_files to locate license files first; images always need use_llm=true.`

	SearchSourceFilesDescription = `Find form templates and license files in the document directory.

**When to use:** To locate blank forms or license certificates before composing or extracting.

**Why it's useful:** Lists PDF, image and text files with size and modification time, optionally filtered by a name fragment.

**Best practices:** Leave directory empty to search the configured document directory.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"compose_document":         ComposeDocumentDescription,
	"list_document_types":      ListDocumentTypesDescription,
	"validate_source_document": ValidateSourceDocumentDescription,
	"extract_license_text":     ExtractLicenseTextDescription,
	"extract_license_file":     ExtractLicenseFileDescription,
	"search_source_files":      SearchSourceFilesDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all available tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
