//go:build cgo

package content

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// StructuredAvailable reports whether tree-sitter extraction is compiled in
func StructuredAvailable() bool {
	return true
}

// treeSitterExtractor parses with a fresh parser per call; parsers are not
// safe for concurrent use and an abandoned worker may still hold one.
type treeSitterExtractor struct{}

func newExtractor() extractor {
	return treeSitterExtractor{}
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangCSharp:
		return csharp.GetLanguage(), nil
	case LangC:
		return c.GetLanguage(), nil
	case LangCPP:
		return cpp.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
}

// parse returns a tree the caller must Close
func parse(ctx context.Context, src []byte, lang Language) (*sitter.Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, fmt.Errorf("%w in %s source", ErrSyntax, lang)
	}
	return tree, nil
}

func (treeSitterExtractor) RawMetrics(ctx context.Context, src []byte, lang Language) (rawCounts, error) {
	tree, err := parse(ctx, src, lang)
	if err != nil {
		return rawCounts{}, err
	}
	defer tree.Close()

	lines := splitLines(string(src))
	r := rawCounts{LOC: len(lines)}

	blank := make([]bool, len(lines))
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			blank[i] = true
			r.Blank++
		}
	}
	r.SLOC = r.LOC - r.Blank

	commentRows := make(map[uint32]bool)
	codeRows := make(map[uint32]bool)

	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if ctx.Err() != nil {
			return false
		}
		typ := n.Type()
		if isCommentNode(typ) {
			markRows(n, commentRows)
			return false
		}
		if isLogicalNode(typ) {
			r.LLOC++
		}
		if n.ChildCount() == 0 {
			markRows(n, codeRows)
		}
		return true
	})
	if err := ctx.Err(); err != nil {
		return rawCounts{}, err
	}

	for row := range commentRows {
		if int(row) < len(lines) && !blank[row] && !codeRows[row] {
			r.Comments++
		}
	}
	return r, nil
}

func (treeSitterExtractor) Complexity(ctx context.Context, src []byte, lang Language) (float64, error) {
	tree, err := parse(ctx, src, lang)
	if err != nil {
		return 0, err
	}
	defer tree.Close()

	functions := findNodes(tree.RootNode(), functionNodeTypes(lang))
	if len(functions) == 0 {
		return 1, nil
	}

	decisions := decisionNodeTypes(lang)
	total := 0
	for _, fn := range functions {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		cc := 1
		for _, dn := range findNodes(fn, decisions) {
			typ := dn.Type()
			if typ == "binary_expression" || typ == "boolean_operator" {
				if isBooleanOperator(dn, src, lang) {
					cc++
				}
				continue
			}
			cc++
		}
		total += cc
	}
	return float64(total) / float64(len(functions)), nil
}

// walk visits nodes depth first; visit returns false to skip children
func walk(root *sitter.Node, visit func(*sitter.Node) bool) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !visit(n) {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
}

func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []*sitter.Node
	walk(root, func(n *sitter.Node) bool {
		if want[n.Type()] {
			out = append(out, n)
		}
		return true
	})
	return out
}

// markRows marks every row a node spans. A node ending at column 0 does
// not occupy its end row.
func markRows(n *sitter.Node, rows map[uint32]bool) {
	start, end := n.StartPoint(), n.EndPoint()
	last := end.Row
	if end.Column == 0 && end.Row > start.Row {
		last--
	}
	for row := start.Row; row <= last; row++ {
		rows[row] = true
	}
}

func isCommentNode(typ string) bool {
	return strings.Contains(typ, "comment")
}

var nonLogicalNodes = map[string]bool{
	"block":                          true,
	"compound_statement":             true,
	"statement_block":                true,
	"decorated_definition":           true,
	"parameter_declaration":          true,
	"variadic_parameter_declaration": true,
}

func isLogicalNode(typ string) bool {
	if nonLogicalNodes[typ] {
		return false
	}
	return strings.HasSuffix(typ, "_statement") ||
		strings.HasSuffix(typ, "_declaration") ||
		strings.HasSuffix(typ, "_definition") ||
		strings.HasSuffix(typ, "_item")
}

func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration", "func_literal"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "function_expression", "arrow_function", "method_definition", "generator_function_declaration"}
	case LangPython:
		return []string{"function_definition", "lambda"}
	case LangRust:
		return []string{"function_item", "closure_expression"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration", "lambda_expression"}
	case LangKotlin:
		return []string{"function_declaration", "lambda_literal", "anonymous_function"}
	case LangCSharp:
		return []string{"method_declaration", "constructor_declaration", "local_function_statement", "lambda_expression"}
	case LangC, LangCPP:
		return []string{"function_definition", "lambda_expression"}
	default:
		return nil
	}
}

func decisionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"if_statement", "for_statement", "range_clause", "expression_case",
			"type_case", "select_statement", "communication_case", "binary_expression"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"if_statement", "for_statement", "for_in_statement", "while_statement",
			"do_statement", "switch_case", "catch_clause", "ternary_expression", "binary_expression"}
	case LangPython:
		return []string{"if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "with_statement", "boolean_operator", "conditional_expression",
			"list_comprehension", "dictionary_comprehension", "set_comprehension", "generator_expression"}
	case LangRust:
		return []string{"if_expression", "match_arm", "while_expression", "loop_expression",
			"for_expression", "binary_expression"}
	case LangJava:
		return []string{"if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_block_statement_group", "catch_clause", "ternary_expression", "binary_expression"}
	case LangKotlin:
		return []string{"if_expression", "when_entry", "for_statement", "while_statement",
			"do_while_statement", "catch_block", "binary_expression", "elvis_expression"}
	case LangCSharp:
		return []string{"if_statement", "for_statement", "foreach_statement", "while_statement",
			"do_statement", "switch_section", "catch_clause", "conditional_expression", "binary_expression"}
	case LangC, LangCPP:
		return []string{"if_statement", "for_statement", "for_range_loop", "while_statement",
			"do_statement", "case_statement", "conditional_expression", "catch_clause", "binary_expression"}
	default:
		return nil
	}
}

func isBooleanOperator(n *sitter.Node, src []byte, lang Language) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if lang == LangPython {
			if child.Type() == "and" || child.Type() == "or" {
				return true
			}
			continue
		}
		op := string(src[child.StartByte():child.EndByte()])
		if op == "&&" || op == "||" {
			return true
		}
	}
	return false
}
