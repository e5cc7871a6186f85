// Package content extracts size and complexity metrics from historical file
// content under strict size and time budgets.
package content

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrUnsupportedLanguage is returned when no grammar exists for a file
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNoCGO is returned when structured extraction is unavailable
	ErrNoCGO = errors.New("structured extraction requires CGO (tree-sitter)")
	// ErrDeadlineExceeded is returned when an extraction exceeds its budget
	ErrDeadlineExceeded = errors.New("extraction deadline exceeded")
	// ErrSyntax is returned when the parser reports errors for the input
	ErrSyntax = errors.New("syntax error")
)

// Method records how a metric was produced
type Method string

const (
	MethodNone       Method = ""
	MethodRejected   Method = "rejected"
	MethodTreeSitter Method = "tree-sitter"
	MethodFallback   Method = "fallback"
)

// Rejection is the reason content failed admissibility
type Rejection string

const (
	Admissible        Rejection = ""
	RejectEmpty       Rejection = "empty"
	RejectTooLarge    Rejection = "too_large"
	RejectNulByte     Rejection = "nul_byte"
	RejectBinary      Rejection = "binary"
	RejectBase64      Rejection = "base64"
	RejectHexDump     Rejection = "hex_dump"
	RejectMinified    Rejection = "minified"
	RejectPunctuation Rejection = "punctuation"
)

// Metrics is the result of analyzing one file's content
type Metrics struct {
	LOC        int     `json:"loc" yaml:"loc"`
	SLOC       int     `json:"sloc" yaml:"sloc"`
	LLOC       int     `json:"lloc" yaml:"lloc"`
	Comments   int     `json:"comments" yaml:"comments"`
	Blank      int     `json:"blank" yaml:"blank"`
	Complexity float64 `json:"complexity" yaml:"complexity"`

	Method           Method    `json:"method" yaml:"method"`
	ComplexityMethod Method    `json:"complexity_method" yaml:"complexity_method"`
	Rejection        Rejection `json:"rejection,omitempty" yaml:"rejection,omitempty"`
	TimedOut         bool      `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
}

// Rejected reports whether the content failed admissibility
func (m Metrics) Rejected() bool {
	return m.Method == MethodRejected
}

// rawCounts is the line-level part of Metrics
type rawCounts struct {
	LOC, SLOC, LLOC, Comments, Blank int
}

func (r rawCounts) apply(m *Metrics) {
	m.LOC = r.LOC
	m.SLOC = r.SLOC
	m.LLOC = r.LLOC
	m.Comments = r.Comments
	m.Blank = r.Blank
}

// Language identifies a grammar used for structured extraction
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangRust       Language = "rust"
	LangCSharp     Language = "csharp"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
)

var extensionLanguages = map[string]Language{
	".go":   LangGo,
	".py":   LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTSX,
	".java": LangJava,
	".kt":   LangKotlin,
	".rs":   LangRust,
	".cs":   LangCSharp,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCPP,
	".hpp":  LangCPP,
	".cc":   LangCPP,
	".cxx":  LangCPP,
}

// LanguageFromFilename returns the grammar for a file name, if any
func LanguageFromFilename(filename string) (Language, bool) {
	lang, ok := extensionLanguages[strings.ToLower(path.Ext(filename))]
	return lang, ok
}

// isExpected reports errors that are a normal outcome of trying to parse
// arbitrary historical content and are not worth logging.
func isExpected(err error) bool {
	return errors.Is(err, ErrUnsupportedLanguage) ||
		errors.Is(err, ErrNoCGO) ||
		errors.Is(err, ErrSyntax) ||
		errors.Is(err, ErrDeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
