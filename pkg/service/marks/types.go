package marks

// ResponseType is the primary classification of one model response
type ResponseType string

const (
	ResponseQuestion       ResponseType = "question"
	ResponseOutOfScope     ResponseType = "out-of-scope"
	ResponseMissingDetails ResponseType = "missing-details"
	ResponseComplexTask    ResponseType = "complex-task"
	ResponsePlugin         ResponseType = "plugin"
)

// String returns the string representation of the response type
func (t ResponseType) String() string {
	return string(t)
}

// HasCode reports whether the classification carries generated code
func (t ResponseType) HasCode() bool {
	return t == ResponsePlugin || t == ResponseComplexTask
}

// Advisory messages shown to the user for non-code classifications
const (
	QuestionMessage       = "The assistant needs more information before it can continue. Please answer the question above."
	OutOfScopeMessage     = "This request is outside the scope of the current plugin. Please start a new chat for unrelated functionality."
	MissingDetailsMessage = "Some details are required before the plugin can be generated."
	InvalidNameMessage    = "Plugin names must be lowercase kebab-case and at most 20 characters."
)

// File is one file of a multi-file plugin
type File struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Response is the parsed form of a model response
type Response struct {
	Type    ResponseType `json:"type"`
	Message string       `json:"message,omitempty"`

	PluginName        string `json:"pluginName,omitempty"`
	PluginNameValid   bool   `json:"pluginNameValid"`
	UsageInstructions string `json:"usageInstructions,omitempty"`

	MissingDetails []string `json:"missingDetails,omitempty"`
	Files          []File   `json:"files,omitempty"`
	Code           string   `json:"code,omitempty"`

	// Fallback is set when no marker matched and the raw text became the message
	Fallback bool `json:"fallback"`
}
