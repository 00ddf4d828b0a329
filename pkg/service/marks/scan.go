package marks

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/secmon-lab/cogsmith/pkg/domain/model"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

// Context window around a scanned mark, in characters
const (
	ContextBefore = 50
	ContextAfter  = 150
)

var markPattern = regexp.MustCompile(`\[([1-5])\]`)

// Scan returns every [N] (N = 1..5) found in text, in order of appearance.
// Position is the character offset of the marker. Context is taken from
// ContextBefore characters before the marker up to ContextAfter characters after its start.
func Scan(text string) []model.Mark {
	matches := markPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []model.Mark{}
	}

	runes := []rune(text)
	result := make([]model.Mark, 0, len(matches))

	for _, loc := range matches {
		code, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		markType, ok := types.MarkTypeFromCode(code)
		if !ok {
			continue
		}

		pos := utf8.RuneCountInString(text[:loc[0]])
		from := max(0, pos-ContextBefore)
		to := min(len(runes), pos+ContextAfter)

		result = append(result, model.Mark{
			Type:     markType,
			Code:     code,
			Context:  string(runes[from:to]),
			Resolved: false,
			Position: pos,
		})
	}

	return result
}
