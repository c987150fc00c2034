// Package syntax converts buffer text into flat, ordered sequences of
// style-tagged spans for highlighting.
//
// Spans use half-open [Start, End) byte offsets into the tokenized
// content. Gaps between spans carry the default style. Tokenization is
// independent of rendering: consumers read the spans, folio never
// paints.
package syntax

// TokenType classifies a span for styling.
type TokenType uint16

const (
	// TokenNone is an unstyled span; tokenizers do not emit it.
	TokenNone TokenType = iota

	// TokenComment covers line and block comments.
	TokenComment
	// TokenString covers string and template literals.
	TokenString
	// TokenNumber covers numeric literals.
	TokenNumber
	// TokenKeyword covers reserved words.
	TokenKeyword
	// TokenOperator covers operators.
	TokenOperator
	// TokenPunctuation covers brackets, delimiters, and separators.
	TokenPunctuation
	// TokenFunction covers function and method names.
	TokenFunction
	// TokenTypeName covers type, class, and interface names.
	TokenTypeName
	// TokenVariable covers variable names the tokenizer can identify.
	TokenVariable
	// TokenConstant covers named constants and enum members.
	TokenConstant
	// TokenProperty covers object properties and struct fields.
	TokenProperty
	// TokenTag covers markup tag names.
	TokenTag
	// TokenAttribute covers markup attribute names.
	TokenAttribute
	// TokenRegexp covers regular expression literals.
	TokenRegexp
	// TokenEscape covers escape sequences inside literals.
	TokenEscape
	// TokenHeading covers markup headings.
	TokenHeading
	// TokenLink covers markup links.
	TokenLink
	// TokenDiffAdded covers inserted lines in a diff.
	TokenDiffAdded
	// TokenDiffRemoved covers deleted lines in a diff.
	TokenDiffRemoved
	// TokenDiffHunk covers hunk range headers in a diff.
	TokenDiffHunk
	// TokenDiffHeader covers file headers in a diff.
	TokenDiffHeader
	// TokenError covers spans a tokenizer flags as invalid.
	TokenError
)

// tokenStyles maps token types to their style class names. The names
// are stable identifiers consumed by themes.
var tokenStyles = map[TokenType]string{
	TokenComment:     "comment",
	TokenString:      "string",
	TokenNumber:      "number",
	TokenKeyword:     "keyword",
	TokenOperator:    "operator",
	TokenPunctuation: "punctuation",
	TokenFunction:    "function",
	TokenTypeName:    "type",
	TokenVariable:    "variable",
	TokenConstant:    "constant",
	TokenProperty:    "property",
	TokenTag:         "tag",
	TokenAttribute:   "attribute",
	TokenRegexp:      "regexp",
	TokenEscape:      "escape",
	TokenHeading:     "heading",
	TokenLink:        "link",
	TokenDiffAdded:   "diff.added",
	TokenDiffRemoved: "diff.removed",
	TokenDiffHunk:    "diff.hunk",
	TokenDiffHeader:  "diff.header",
	TokenError:       "error",
}

// StyleClass returns the style class name for the token type, or
// "default" for unknown types.
func (t TokenType) StyleClass() string {
	if s, ok := tokenStyles[t]; ok {
		return s
	}
	return "default"
}

// String returns the style class name; it doubles as the debug name.
func (t TokenType) String() string {
	return t.StyleClass()
}

// Token is one styled span over tokenized content.
type Token struct {
	// Start is the inclusive byte offset where the span begins.
	Start int
	// End is the exclusive byte offset where the span ends.
	End int
	// Type classifies the span.
	Type TokenType
	// Style is the style class for the span, derived from Type.
	Style string
}

// NewToken builds a token with its style class filled in.
func NewToken(start, end int, typ TokenType) Token {
	return Token{Start: start, End: end, Type: typ, Style: typ.StyleClass()}
}

// Len returns the span length in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}
