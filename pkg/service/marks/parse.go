// Package marks decodes the numbered annotation protocol embedded in model output.
//
//	[1]            question to the user
//	[1.1]name[1.1] plugin name
//	[2]code[2]     single file plugin
//	[3]detail[3]   required detail, one per pair
//	[4.N]          start of file N of a multi-file plugin
//	[5]            out of scope, or validation issues
//	[6]text[6]     usage instructions
//
// Every element is matched by its own function, evaluated in fixed precedence.
// Markers do not nest and an unterminated pair never matches.
package marks

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
)

const (
	questionMarker   = "[1]"
	pluginNameMarker = "[1.1]"
	outOfScopeMarker = "[5]"
)

var (
	usagePattern      = regexp.MustCompile(`(?s)\[6\](.*?)\[6\]`)
	pluginNamePattern = regexp.MustCompile(`(?s)\[1\.1\](.*?)\[1\.1\]`)
	missingPattern    = regexp.MustCompile(`(?s)\[3\](.*?)\[3\]`)
	filePattern       = regexp.MustCompile(`\[4\.(\d+)\]`)
	pluginPattern     = regexp.MustCompile(`(?s)\[2\](.*?)\[2\]`)
)

// Parse classifies text. It never fails; unmatched input becomes a question with the raw text.
func Parse(text string) *Response {
	if hasBareQuestion(text) {
		return &Response{Type: ResponseQuestion, Message: QuestionMessage}
	}

	if strings.Contains(text, outOfScopeMarker) {
		return &Response{Type: ResponseOutOfScope, Message: OutOfScopeMessage}
	}

	usage := matchUsageInstructions(text)
	name := matchPluginName(text)
	nameValid := name != "" && ValidatePluginName(name)

	if details := matchMissingDetails(text); len(details) > 0 {
		return &Response{
			Type:              ResponseMissingDetails,
			Message:           MissingDetailsMessage,
			MissingDetails:    details,
			PluginName:        name,
			PluginNameValid:   nameValid,
			UsageInstructions: usage,
		}
	}

	if files := matchFiles(text); len(files) > 0 {
		return &Response{
			Type:              ResponseComplexTask,
			Files:             files,
			PluginName:        name,
			PluginNameValid:   nameValid,
			UsageInstructions: usage,
		}
	}

	if code, ok := matchPluginCode(text); ok {
		return &Response{
			Type:              ResponsePlugin,
			Code:              code,
			PluginName:        name,
			PluginNameValid:   nameValid,
			UsageInstructions: usage,
		}
	}

	return &Response{Type: ResponseQuestion, Message: text, Fallback: true}
}

// ParseExpectingCode parses text that should contain code. When only the fallback rule
// matched it returns the response together with ErrParseAmbiguity.
func ParseExpectingCode(text string) (*Response, error) {
	resp := Parse(text)
	if resp.Fallback {
		return resp, goerr.Wrap(ErrParseAmbiguity, "expected code in response", goerr.V("length", len(text)))
	}
	return resp, nil
}

// hasBareQuestion reports whether any "[1]" is not immediately followed by "[1.1]"
func hasBareQuestion(text string) bool {
	for offset := 0; ; {
		idx := strings.Index(text[offset:], questionMarker)
		if idx < 0 {
			return false
		}
		end := offset + idx + len(questionMarker)
		if !strings.HasPrefix(text[end:], pluginNameMarker) {
			return true
		}
		offset = end
	}
}

func matchUsageInstructions(text string) string {
	m := usagePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func matchPluginName(text string) string {
	m := pluginNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func matchMissingDetails(text string) []string {
	var details []string
	for _, m := range missingPattern.FindAllStringSubmatch(text, -1) {
		details = append(details, strings.TrimSpace(m[1]))
	}
	return details
}

// matchFiles splits text at each [4.N] marker. A segment runs to the next marker or end of text;
// its first whitespace-delimited token is the filename.
func matchFiles(text string) []File {
	locs := filePattern.FindAllStringSubmatchIndex(text, -1)
	var files []File

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		index, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}

		segment := strings.TrimSpace(text[loc[1]:end])
		if segment == "" {
			continue
		}

		filename, content := segment, ""
		if sp := strings.IndexFunc(segment, unicode.IsSpace); sp >= 0 {
			filename, content = segment[:sp], strings.TrimSpace(segment[sp:])
		}

		files = append(files, File{
			Index:    index,
			Filename: filename,
			Content:  content,
		})
	}

	return files
}

func matchPluginCode(text string) (string, bool) {
	m := pluginPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
