package extension

import (
	"fmt"
	"strings"
)

// Descriptor maps a language or file type to its capability
// providers. A descriptor may be known to the registry without its
// binaries being installed locally.
type Descriptor struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Version   string     `yaml:"version,omitempty"`
	Languages []Language `yaml:"languages"`

	// Server describes the LSP server this extension provides, if any.
	Server *Server `yaml:"server,omitempty"`

	// Download locates the installable package, if any.
	Download *DownloadInfo `yaml:"download,omitempty"`
}

// Language is one language contribution: a language id plus the file
// extensions it claims.
type Language struct {
	ID         string   `yaml:"id"`
	Extensions []string `yaml:"extensions"`
}

// Server says how to launch the extension's language server.
type Server struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// DownloadInfo locates and verifies an installable package.
type DownloadInfo struct {
	URL      string `yaml:"url"`
	Checksum string `yaml:"checksum"`
	Size     int64  `yaml:"size,omitempty"`
}

// validate checks required fields and normalizes extension spellings
// so ".go" and "go" both match.
func (d *Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDescriptor)
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if len(d.Languages) == 0 {
		return fmt.Errorf("%w: %s has no language contributions", ErrInvalidDescriptor, d.ID)
	}
	for i := range d.Languages {
		lang := &d.Languages[i]
		if lang.ID == "" {
			return fmt.Errorf("%w: %s has a language without an id", ErrInvalidDescriptor, d.ID)
		}
		if len(lang.Extensions) == 0 {
			return fmt.Errorf("%w: %s language %s claims no extensions", ErrInvalidDescriptor, d.ID, lang.ID)
		}
		for j, ext := range lang.Extensions {
			lang.Extensions[j] = normalizeExt(ext)
		}
	}
	if d.Server != nil && d.Server.Command == "" {
		return fmt.Errorf("%w: %s has a server without a command", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// languageFor returns the language id claiming the extension.
func (d *Descriptor) languageFor(ext string) (string, bool) {
	for _, lang := range d.Languages {
		for _, claimed := range lang.Extensions {
			if claimed == ext {
				return lang.ID, true
			}
		}
	}
	return "", false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Builtins returns descriptors for the language servers the editor
// knows out of the box.
func Builtins() []*Descriptor {
	return []*Descriptor{
		{
			ID:   "gopls",
			Name: "Go Language Support",
			Languages: []Language{
				{ID: "go", Extensions: []string{".go"}},
			},
			Server: &Server{Command: "gopls", Args: []string{"serve"}},
		},
		{
			ID:   "rust-analyzer",
			Name: "Rust Language Support",
			Languages: []Language{
				{ID: "rust", Extensions: []string{".rs"}},
			},
			Server: &Server{Command: "rust-analyzer"},
		},
		{
			ID:   "typescript-language-server",
			Name: "TypeScript and JavaScript Language Support",
			Languages: []Language{
				{ID: "typescript", Extensions: []string{".ts", ".mts", ".cts"}},
				{ID: "typescriptreact", Extensions: []string{".tsx"}},
				{ID: "javascript", Extensions: []string{".js", ".mjs", ".cjs"}},
				{ID: "javascriptreact", Extensions: []string{".jsx"}},
			},
			Server: &Server{Command: "typescript-language-server", Args: []string{"--stdio"}},
		},
		{
			ID:   "pylsp",
			Name: "Python Language Support",
			Languages: []Language{
				{ID: "python", Extensions: []string{".py"}},
			},
			Server: &Server{Command: "pylsp"},
		},
		{
			ID:   "clangd",
			Name: "C and C++ Language Support",
			Languages: []Language{
				{ID: "c", Extensions: []string{".c", ".h"}},
				{ID: "cpp", Extensions: []string{".cc", ".cpp", ".cxx", ".hpp", ".hxx"}},
			},
			Server: &Server{Command: "clangd"},
		},
	}
}
