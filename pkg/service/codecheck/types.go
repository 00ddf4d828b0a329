package codecheck

// Severity of a validation issue. Only SeverityError makes code invalid.
type Severity string

const (
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Category groups issues for display
type Category string

const (
	CategoryStructure     Category = "structure"
	CategoryAsync         Category = "async"
	CategoryErrorHandling Category = "error-handling"
	CategoryPermissions   Category = "permissions"
	CategoryRateLimit     Category = "rate-limit"
	CategorySecurity      Category = "security"
	CategoryDocumentation Category = "documentation"
)

// Issue is one finding of a check
type Issue struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// Report is the result of validating one code string
type Report struct {
	IsValid     bool    `json:"isValid"`
	Score       int     `json:"score"`
	Errors      []Issue `json:"errors"`
	Warnings    []Issue `json:"warnings"`
	Suggestions []Issue `json:"suggestions"`
}

// Issues returns all findings ordered by severity
func (r *Report) Issues() []Issue {
	all := make([]Issue, 0, len(r.Errors)+len(r.Warnings)+len(r.Suggestions))
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	return append(all, r.Suggestions...)
}
