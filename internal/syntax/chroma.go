package syntax

import (
	"context"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// chromaNames maps language ids to chroma lexer names where they
// differ. The react dialects fold into their base lexers; the
// dedicated tree-sitter backends normally shadow them anyway.
var chromaNames = map[string]string{
	"typescriptreact": "typescript",
	"javascriptreact": "javascript",
	"shellscript":     "bash",
}

// ChromaTokenizer adapts a chroma lexer to the Tokenizer interface. It
// serves every language without a dedicated backend.
type ChromaTokenizer struct {
	language string
	lexer    chroma.Lexer
}

// NewChroma returns a tokenizer backed by the chroma lexer for the
// language id, or nil when chroma has no lexer for it. Plaintext is
// deliberately unserved.
func NewChroma(language string) *ChromaTokenizer {
	if language == "" || language == "plaintext" {
		return nil
	}
	name := language
	if mapped, ok := chromaNames[language]; ok {
		name = mapped
	}
	lexer := lexers.Get(name)
	if lexer == nil {
		return nil
	}
	return &ChromaTokenizer{
		language: language,
		lexer:    chroma.Coalesce(lexer),
	}
}

func (c *ChromaTokenizer) Language() string { return c.language }

func (c *ChromaTokenizer) Tokenize(ctx context.Context, content string) ([]Token, error) {
	it, err := c.lexer.Tokenise(nil, content)
	if err != nil {
		return nil, err
	}

	var tokens []Token
	offset := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := len(tok.Value)
		if typ := fromChromaType(tok.Type); typ != TokenNone && n > 0 {
			tokens = append(tokens, NewToken(offset, offset+n, typ))
		}
		offset += n
	}
	return tokens, nil
}

// fromChromaType folds chroma's fine-grained token taxonomy into the
// editor's style classes. Unstyled text maps to TokenNone and is
// dropped by the caller.
func fromChromaType(t chroma.TokenType) TokenType {
	switch {
	case t == chroma.Error, t == chroma.GenericError:
		return TokenError
	case t.InCategory(chroma.Comment):
		return TokenComment
	case t == chroma.LiteralStringEscape:
		return TokenEscape
	case t == chroma.LiteralStringRegex:
		return TokenRegexp
	case t.InSubCategory(chroma.LiteralNumber):
		return TokenNumber
	case t.InCategory(chroma.Literal):
		// Strings plus the leftover literal kinds such as dates.
		return TokenString
	case t == chroma.KeywordType:
		return TokenTypeName
	case t.InCategory(chroma.Keyword):
		return TokenKeyword
	case t == chroma.OperatorWord:
		return TokenKeyword
	case t.InCategory(chroma.Operator):
		return TokenOperator
	case t.InCategory(chroma.Punctuation):
		return TokenPunctuation
	case t == chroma.NameFunction, t == chroma.NameFunctionMagic:
		return TokenFunction
	case t == chroma.NameBuiltin, t == chroma.NameBuiltinPseudo:
		return TokenFunction
	case t == chroma.NameClass, t == chroma.NameNamespace:
		return TokenTypeName
	case t == chroma.NameConstant:
		return TokenConstant
	case t == chroma.NameTag:
		return TokenTag
	case t == chroma.NameAttribute, t == chroma.NameDecorator:
		return TokenAttribute
	case t == chroma.NameProperty:
		return TokenProperty
	case t.InSubCategory(chroma.NameVariable):
		return TokenVariable
	case t == chroma.GenericHeading, t == chroma.GenericSubheading:
		return TokenHeading
	case t == chroma.GenericInserted:
		return TokenDiffAdded
	case t == chroma.GenericDeleted:
		return TokenDiffRemoved
	default:
		return TokenNone
	}
}
