package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Tree-sitter node types for the TypeScript/JavaScript grammar family.
// Classification walks the concrete tree directly rather than going
// through the query language, which keeps control over precedence and
// tolerates grammar differences between the four dialects.
const (
	nodeComment           = "comment"
	nodeHashBang          = "hash_bang_line"
	nodeNumber            = "number"
	nodeString            = "string"
	nodeTemplateString    = "template_string"
	nodeStringFragment    = "string_fragment"
	nodeEscapeSequence    = "escape_sequence"
	nodeTemplateSubst     = "template_substitution"
	nodeRegexPattern      = "regex_pattern"
	nodeRegexFlags        = "regex_flags"
	nodeIdentifier        = "identifier"
	nodePropertyIdent     = "property_identifier"
	nodePrivateProperty   = "private_property_identifier"
	nodeShorthandProperty = "shorthand_property_identifier"
	nodeTypeIdentifier    = "type_identifier"
	nodePredefinedType    = "predefined_type"
	nodeAccessibility     = "accessibility_modifier"
	nodeFunctionDecl      = "function_declaration"
	nodeGeneratorDecl     = "generator_function_declaration"
	nodeMethodDefinition  = "method_definition"
	nodeCallExpression    = "call_expression"
	nodeNewExpression     = "new_expression"
	nodeClassDecl         = "class_declaration"
	nodeDecorator         = "decorator"
	nodeJSXOpeningElement = "jsx_opening_element"
	nodeJSXClosingElement = "jsx_closing_element"
	nodeJSXSelfClosing    = "jsx_self_closing_element"
	nodeJSXAttribute      = "jsx_attribute"
)

// tsKeywords lists the anonymous keyword tokens across all four
// dialects. Entries absent from a particular grammar simply never
// appear in its trees.
var tsKeywords = map[string]struct{}{
	"abstract": {}, "any": {}, "as": {}, "async": {}, "await": {},
	"break": {}, "case": {}, "catch": {}, "class": {}, "const": {},
	"continue": {}, "debugger": {}, "declare": {}, "default": {},
	"delete": {}, "do": {}, "else": {}, "enum": {}, "export": {},
	"extends": {}, "finally": {}, "for": {}, "from": {}, "function": {},
	"get": {}, "if": {}, "implements": {}, "import": {}, "in": {},
	"infer": {}, "instanceof": {}, "interface": {}, "is": {},
	"keyof": {}, "let": {}, "namespace": {}, "new": {}, "of": {},
	"override": {}, "private": {}, "protected": {}, "public": {},
	"readonly": {}, "return": {}, "satisfies": {}, "set": {},
	"static": {}, "switch": {}, "this": {}, "super": {}, "throw": {},
	"try": {}, "type": {}, "typeof": {}, "var": {}, "void": {},
	"while": {}, "with": {}, "yield": {},
}

// tsConstants are the literal value tokens.
var tsConstants = map[string]struct{}{
	"true": {}, "false": {}, "null": {}, "undefined": {},
}

const (
	punctuationChars = "(){}[];,."
	operatorChars    = "+-*/%<>=!&|^~?:."
)

// TreeSitterTokenizer tokenizes the TypeScript/JavaScript family with
// the matching tree-sitter grammar. Each Tokenize call builds its own
// parser, so instances are safe for concurrent use.
type TreeSitterTokenizer struct {
	language string
	grammar  *sitter.Language
}

// NewTreeSitter returns a tokenizer for one of typescript,
// typescriptreact, javascript or javascriptreact.
func NewTreeSitter(languageID string) (*TreeSitterTokenizer, error) {
	var grammar *sitter.Language
	switch languageID {
	case "typescript":
		grammar = typescript.GetLanguage()
	case "typescriptreact":
		grammar = tsx.GetLanguage()
	case "javascript", "javascriptreact":
		grammar = javascript.GetLanguage()
	default:
		return nil, fmt.Errorf("no tree-sitter grammar for language %q", languageID)
	}
	return &TreeSitterTokenizer{language: languageID, grammar: grammar}, nil
}

func (t *TreeSitterTokenizer) Language() string { return t.language }

func (t *TreeSitterTokenizer) Tokenize(ctx context.Context, content string) ([]Token, error) {
	src := []byte(content)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(t.grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", t.language, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}

	var tokens []Token
	collect(root, &tokens)
	return tokens, nil
}

// collect walks the concrete tree in order, emitting one span per
// classified leaf token. Strings are handled a level up so fragments,
// escapes and interpolations come out as separate spans.
func collect(n *sitter.Node, out *[]Token) {
	switch n.Type() {
	case nodeComment, nodeHashBang:
		emit(n, TokenComment, out)
		return
	case nodeString, nodeTemplateString:
		collectString(n, out)
		return
	case nodePredefinedType:
		// One span for the whole node; the wrapped token would
		// otherwise classify as a number or keyword.
		emit(n, TokenTypeName, out)
		return
	}

	count := int(n.ChildCount())
	if count == 0 {
		if typ := classifyLeaf(n); typ != TokenNone {
			emit(n, typ, out)
		}
		return
	}
	for i := 0; i < count; i++ {
		collect(n.Child(i), out)
	}
}

// collectString splits a string or template literal into fragment,
// escape and interpolation spans. Quotes and backticks style as part
// of the string.
func collectString(n *sitter.Node, out *[]Token) {
	count := int(n.ChildCount())
	if count == 0 {
		emit(n, TokenString, out)
		return
	}
	for i := 0; i < count; i++ {
		child := n.Child(i)
		switch child.Type() {
		case nodeEscapeSequence:
			emit(child, TokenEscape, out)
		case nodeTemplateSubst:
			collect(child, out)
		default:
			emit(child, TokenString, out)
		}
	}
}

func emit(n *sitter.Node, typ TokenType, out *[]Token) {
	start, end := int(n.StartByte()), int(n.EndByte())
	if end <= start {
		return
	}
	*out = append(*out, NewToken(start, end, typ))
}

// classifyLeaf assigns a token type to one leaf node. Identifiers are
// classified from their parent so calls, declarations, JSX tags and
// decorators style distinctly; plain identifiers stay unstyled.
func classifyLeaf(n *sitter.Node) TokenType {
	typ := n.Type()

	if _, ok := tsKeywords[typ]; ok {
		return TokenKeyword
	}
	if _, ok := tsConstants[typ]; ok {
		return TokenConstant
	}

	switch typ {
	case nodeNumber:
		return TokenNumber
	case nodeRegexPattern, nodeRegexFlags:
		return TokenRegexp
	case nodeEscapeSequence:
		return TokenEscape
	case nodeStringFragment:
		return TokenString
	case nodeTypeIdentifier:
		return TokenTypeName
	case nodeAccessibility:
		return TokenKeyword
	case nodePrivateProperty, nodeShorthandProperty:
		return TokenProperty
	case nodeIdentifier:
		return classifyIdentifier(n)
	case nodePropertyIdent:
		return classifyProperty(n)
	}

	return classifySymbol(typ)
}

func classifyIdentifier(n *sitter.Node) TokenType {
	parent := n.Parent()
	if parent == nil {
		return TokenNone
	}
	switch parent.Type() {
	case nodeFunctionDecl, nodeGeneratorDecl:
		if isField(parent, "name", n) {
			return TokenFunction
		}
	case nodeCallExpression:
		if isField(parent, "function", n) {
			return TokenFunction
		}
	case nodeNewExpression:
		if isField(parent, "constructor", n) {
			return TokenTypeName
		}
	case nodeClassDecl:
		if isField(parent, "name", n) {
			return TokenTypeName
		}
	case nodeJSXOpeningElement, nodeJSXClosingElement, nodeJSXSelfClosing:
		if isField(parent, "name", n) {
			return TokenTag
		}
	case nodeDecorator:
		return TokenAttribute
	}
	return TokenNone
}

func classifyProperty(n *sitter.Node) TokenType {
	parent := n.Parent()
	if parent == nil {
		return TokenProperty
	}
	switch parent.Type() {
	case nodeMethodDefinition:
		if isField(parent, "name", n) {
			return TokenFunction
		}
	case nodeJSXAttribute:
		return TokenAttribute
	case "member_expression":
		// foo.bar() styles bar as a call, foo.bar as a property.
		if isField(parent, "property", n) {
			if gp := parent.Parent(); gp != nil && gp.Type() == nodeCallExpression && isField(gp, "function", parent) {
				return TokenFunction
			}
		}
	}
	return TokenProperty
}

// isField reports whether child occupies the named field of parent.
// Nodes are matched by span since separate lookups return separate
// handles.
func isField(parent *sitter.Node, field string, child *sitter.Node) bool {
	fc := parent.ChildByFieldName(field)
	return fc != nil && fc.StartByte() == child.StartByte() && fc.EndByte() == child.EndByte()
}

// classifySymbol styles anonymous symbol tokens by character class, so
// the grammar's full operator inventory never needs enumerating.
func classifySymbol(typ string) TokenType {
	if typ == "" {
		return TokenNone
	}
	if isAllOf(typ, punctuationChars) {
		return TokenPunctuation
	}
	if isAllOf(typ, operatorChars) {
		return TokenOperator
	}
	return TokenNone
}

func isAllOf(s, set string) bool {
	for _, r := range s {
		if !strings.ContainsRune(set, r) {
			return false
		}
	}
	return true
}
