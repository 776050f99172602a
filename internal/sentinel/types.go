package sentinel

// Severity grades a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether s is a recognised severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Finding is a single issue the reviewer model identified in a file.
type Finding struct {
	// Name is a succinct label for the issue.
	Name string `json:"name"`

	// Severity is one of info, low, medium, high, critical.
	Severity Severity `json:"severity"`

	// Category classifies the issue (injection, auth, encryption, secrets, ...).
	Category string `json:"category"`

	// CWE lists related CWE identifiers, empty when not applicable.
	CWE []string `json:"cwe"`

	// CVE lists related CVE identifiers, empty when not applicable.
	CVE []string `json:"cve"`

	// OWASP lists related OWASP categories, empty when not applicable.
	OWASP []string `json:"owasp"`

	// Lines is the [start, end] line range of the offending snippet.
	Lines [2]int `json:"lines"`

	// Snippet is the code the finding points at.
	Snippet string `json:"snippet"`

	// Explanation says why this is a problem.
	Explanation string `json:"explanation"`

	// Remediation suggests how to fix it.
	Remediation string `json:"remediation"`

	// ProposedFix is a minimal diff sketch of the fix.
	ProposedFix string `json:"proposed_fix"`

	// References lists relevant documentation links.
	References []string `json:"references"`

	// Confidence is the model's calibrated score in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Report is the structured review of one file.
type Report struct {
	// OK is true when the model found nothing worth reporting.
	OK bool `json:"ok"`

	// Filename is the reviewed file.
	Filename string `json:"filename"`

	// Issues lists the findings, empty when OK.
	Issues []Finding `json:"issues"`
}
