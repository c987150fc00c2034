package syntax

import "testing"

func TestNewToken(t *testing.T) {
	tok := NewToken(3, 9, TokenKeyword)

	if tok.Start != 3 || tok.End != 9 {
		t.Errorf("Expected span [3,9), got [%d,%d)", tok.Start, tok.End)
	}
	if tok.Style != "keyword" {
		t.Errorf("Expected style 'keyword', got %q", tok.Style)
	}
	if tok.Len() != 6 {
		t.Errorf("Expected length 6, got %d", tok.Len())
	}
}

func TestTokenType_StyleClass(t *testing.T) {
	tests := []struct {
		typ  TokenType
		want string
	}{
		{TokenComment, "comment"},
		{TokenString, "string"},
		{TokenKeyword, "keyword"},
		{TokenTypeName, "type"},
		{TokenDiffAdded, "diff.added"},
		{TokenDiffRemoved, "diff.removed"},
		{TokenDiffHunk, "diff.hunk"},
		{TokenNone, "default"},
		{TokenType(999), "default"},
	}

	for _, tt := range tests {
		if got := tt.typ.StyleClass(); got != tt.want {
			t.Errorf("StyleClass(%d): expected %q, got %q", tt.typ, tt.want, got)
		}
	}
}
