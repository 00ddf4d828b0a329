package codecheck

import (
	"regexp"
	"strings"
)

var (
	loggingImportPattern = regexp.MustCompile(`(?m)^\s*import\s+logging\b`)
	topLevelImport       = regexp.MustCompile(`^(import|from)\s`)
	decoratorLine        = regexp.MustCompile(`^\s*@`)
	asyncDefLine         = regexp.MustCompile(`^(\s*)async\s+def\s+(\w+)\s*\(.*\)\s*(->\s*[^:]+)?:\s*(#.*)?$`)
)

// Enhance returns an improved copy of code. It only touches code that validates:
// it adds "import logging" when missing and wraps command bodies without try/except
// in a try/except scaffold that logs the exception. Multi-line signatures are skipped.
// Enhance(Enhance(code)) == Enhance(code).
func (v *Validator) Enhance(code string) (string, bool) {
	if !v.Validate(code).IsValid {
		return code, false
	}

	enhanced := wrapCommands(addLoggingImport(code))
	return enhanced, enhanced != code
}

func addLoggingImport(code string) string {
	if loggingImportPattern.MatchString(code) {
		return code
	}

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if topLevelImport.MatchString(line) {
			out := make([]string, 0, len(lines)+1)
			out = append(out, lines[:i]...)
			out = append(out, "import logging")
			return strings.Join(append(out, lines[i:]...), "\n")
		}
	}
	return "import logging\n" + code
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// docstringLines returns how many leading lines of body form a docstring, 0 when there is none
func docstringLines(body []string) int {
	trimmed := strings.TrimSpace(body[0])
	for _, q := range []string{`"""`, `'''`} {
		if !strings.HasPrefix(trimmed, q) {
			continue
		}
		if len(trimmed) >= 6 && strings.HasSuffix(trimmed, q) {
			return 1
		}
		for k := 1; k < len(body); k++ {
			if strings.Contains(body[k], q) {
				return k + 1
			}
		}
		// unterminated, leave the body as is
		return len(body)
	}
	return 0
}

func wrapCommands(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if !commandDecorator.MatchString(lines[i]) {
			continue
		}

		// Skip stacked decorators down to the def line
		j := i + 1
		for j < len(lines) && (decoratorLine.MatchString(lines[j]) || isBlank(lines[j])) {
			out = append(out, lines[j])
			j++
		}
		if j >= len(lines) {
			i = j - 1
			continue
		}

		def := asyncDefLine.FindStringSubmatch(lines[j])
		out = append(out, lines[j])
		if def == nil {
			i = j
			continue
		}
		defIndent, name := def[1], def[2]

		body, end := commandBody(lines, j+1, defIndent)
		out = append(out, wrapBody(body, name)...)
		i = end - 1
	}

	return strings.Join(out, "\n")
}

// commandBody returns lines[start:end] that belong to the function body, excluding trailing blanks
func commandBody(lines []string, start int, defIndent string) ([]string, int) {
	end := start
	for end < len(lines) {
		line := lines[end]
		if !isBlank(line) && len(indentOf(line)) <= len(defIndent) {
			break
		}
		end++
	}
	for end > start && isBlank(lines[end-1]) {
		end--
	}
	return lines[start:end], end
}

func wrapBody(body []string, name string) []string {
	first := -1
	for k, line := range body {
		if !isBlank(line) {
			first = k
			break
		}
	}
	if first < 0 {
		return body
	}

	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "try:") || trimmed == "try :" {
			return body
		}
	}

	indent := indentOf(body[first])
	unit := "    "
	if strings.Contains(indent, "\t") {
		unit = "\t"
	}

	out := make([]string, 0, len(body)+3)
	out = append(out, body[:first]...)

	rest := body[first:]
	if n := docstringLines(rest); n > 0 {
		out = append(out, rest[:n]...)
		rest = rest[n:]
		for len(rest) > 0 && isBlank(rest[0]) {
			out = append(out, rest[0])
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return out
		}
	}

	out = append(out, indent+"try:")
	for _, line := range rest {
		if isBlank(line) {
			out = append(out, line)
			continue
		}
		out = append(out, unit+line)
	}
	out = append(out,
		indent+"except Exception:",
		indent+unit+`logging.exception("command `+name+` failed")`,
	)
	return out
}
