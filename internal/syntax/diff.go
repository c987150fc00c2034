package syntax

import (
	"context"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// DiffTokenizer styles unified diff buffers line by line. It never
// fails: malformed lines fall back to unstyled text.
type DiffTokenizer struct{}

func NewDiffTokenizer() *DiffTokenizer { return &DiffTokenizer{} }

func (d *DiffTokenizer) Language() string { return "diff" }

func (d *DiffTokenizer) Tokenize(ctx context.Context, content string) ([]Token, error) {
	var tokens []Token

	lineStart := 0
	for lineStart < len(content) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineEnd := strings.IndexByte(content[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(content)
		} else {
			lineEnd += lineStart
		}

		if typ := classifyDiffLine(content[lineStart:lineEnd]); typ != TokenNone {
			tokens = append(tokens, NewToken(lineStart, lineEnd, typ))
		}

		lineStart = lineEnd + 1
	}
	return tokens, nil
}

func classifyDiffLine(line string) TokenType {
	switch {
	case line == "":
		return TokenNone
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return TokenDiffHeader
	case strings.HasPrefix(line, "@@"):
		return TokenDiffHunk
	case strings.HasPrefix(line, "+"):
		return TokenDiffAdded
	case strings.HasPrefix(line, "-"):
		return TokenDiffRemoved
	case strings.HasPrefix(line, "diff "),
		strings.HasPrefix(line, "index "),
		strings.HasPrefix(line, "new file"),
		strings.HasPrefix(line, "deleted file"),
		strings.HasPrefix(line, "rename "),
		strings.HasPrefix(line, "similarity "),
		strings.HasPrefix(line, "Binary files "):
		return TokenDiffHeader
	default:
		return TokenNone
	}
}

// DiffStat summarizes a unified diff.
type DiffStat struct {
	// Files is the number of file sections in the diff.
	Files int
	// Added is the count of added lines across all hunks.
	Added int
	// Removed is the count of removed lines across all hunks.
	Removed int
}

// Stat parses a unified diff and counts its files and changed lines.
func Stat(unified string) (DiffStat, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(unified)).ReadAllFiles()
	if err != nil {
		return DiffStat{}, err
	}

	stat := DiffStat{Files: len(fileDiffs)}
	for _, fd := range fileDiffs {
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
					stat.Added++
				} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
					stat.Removed++
				}
			}
		}
	}
	return stat, nil
}
