package content

import "strings"

// commentPrefixes per language family: shell/python, C-like, SQL,
// VB/batch, markup, lisp/asm, latex/matlab.
var commentPrefixes = []string{
	"#",
	"//", "/*", "*/", "*",
	"--",
	"'", "REM",
	"<!--", "-->",
	";",
	"%",
}

// Fallback counts lines without parsing. A non-blank line is a comment when
// its trimmed text starts with a known comment prefix.
func Fallback(text string) Metrics {
	raw := countLines(text)
	m := Metrics{Method: MethodFallback, ComplexityMethod: MethodFallback}
	raw.apply(&m)
	if m.LOC > 0 {
		m.Complexity = 1
	}
	return m
}

func countLines(text string) rawCounts {
	lines := splitLines(text)
	var r rawCounts
	r.LOC = len(lines)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		r.SLOC++
		if isCommentLine(trimmed) {
			r.Comments++
		}
	}
	r.Blank = r.LOC - r.SLOC
	r.LLOC = r.SLOC - r.Comments
	if r.LLOC < 0 {
		r.LLOC = 0
	}
	return r
}

func isCommentLine(trimmed string) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// splitLines splits on \n, \r\n or \r; a trailing terminator does not start
// a new line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
