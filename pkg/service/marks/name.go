package marks

import (
	"regexp"
	"unicode/utf8"
)

// MaxPluginNameLength is the longest accepted plugin name
const MaxPluginNameLength = 20

var kebabCase = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidatePluginName accepts lowercase kebab-case names of at most MaxPluginNameLength characters
func ValidatePluginName(name string) bool {
	return utf8.RuneCountInString(name) <= MaxPluginNameLength && kebabCase.MatchString(name)
}
