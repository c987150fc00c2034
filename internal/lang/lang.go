// Package lang resolves file names to language identifiers.
//
// The identifiers follow LSP conventions ("typescript",
// "typescriptreact", ...) and are the single source of truth shared by
// the buffer store, the tokenizer registry, and language server
// routing.
package lang

import (
	"path/filepath"
	"strings"
)

// Plaintext is the language id assigned when no mapping exists.
const Plaintext = "plaintext"

// extensions maps a lowercase file extension (without dot) to its
// language id.
var extensions = map[string]string{
	"ts":       "typescript",
	"mts":      "typescript",
	"cts":      "typescript",
	"tsx":      "typescriptreact",
	"js":       "javascript",
	"mjs":      "javascript",
	"cjs":      "javascript",
	"jsx":      "javascriptreact",
	"json":     "json",
	"jsonc":    "json",
	"go":       "go",
	"rs":       "rust",
	"py":       "python",
	"pyi":      "python",
	"c":        "c",
	"h":        "c",
	"cc":       "cpp",
	"cpp":      "cpp",
	"cxx":      "cpp",
	"hpp":      "cpp",
	"java":     "java",
	"rb":       "ruby",
	"php":      "php",
	"lua":      "lua",
	"sh":       "shellscript",
	"bash":     "shellscript",
	"zsh":      "shellscript",
	"md":       "markdown",
	"markdown": "markdown",
	"html":     "html",
	"htm":      "html",
	"css":      "css",
	"scss":     "scss",
	"yaml":     "yaml",
	"yml":      "yaml",
	"toml":     "toml",
	"xml":      "xml",
	"sql":      "sql",
	"diff":     "diff",
	"patch":    "diff",
	"txt":      Plaintext,
}

// filenames maps exact (lowercase) file names with no useful
// extension to their language id.
var filenames = map[string]string{
	"dockerfile":  "dockerfile",
	"makefile":    "makefile",
	"gnumakefile": "makefile",
	"go.mod":      "gomod",
	"go.sum":      "gosum",
	".bashrc":     "shellscript",
	".zshrc":      "shellscript",
}

// FromFilename returns the language id for a file name or path.
// Unknown files resolve to Plaintext.
func FromFilename(name string) string {
	base := strings.ToLower(filepath.Base(name))
	if id, ok := filenames[base]; ok {
		return id
	}
	return FromExtension(filepath.Ext(base))
}

// FromExtension returns the language id for a file extension. The
// extension may be given with or without the leading dot. Unknown
// extensions resolve to Plaintext.
func FromExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if id, ok := extensions[ext]; ok {
		return id
	}
	return Plaintext
}

// Known reports whether the language id is one folio can name, as
// opposed to the Plaintext fallback.
func Known(id string) bool {
	return id != "" && id != Plaintext
}
