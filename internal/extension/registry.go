package extension

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/folioedit/folio/internal/log"
	"github.com/folioedit/folio/internal/lsp"
)

// Registry holds known descriptors and answers resolution queries.
// Resolution order is registration order; the first descriptor
// claiming a file's extension wins.
type Registry struct {
	mu          sync.RWMutex
	descriptors []*Descriptor
	byID        map[string]*Descriptor

	// dir is the extensions root; installed packages live under
	// dir/installed/<id>/.
	dir    string
	logger *log.Logger
}

// NewRegistry creates an empty registry rooted at dir.
func NewRegistry(dir string, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Nop()
	}
	return &Registry{
		byID:   make(map[string]*Descriptor),
		dir:    dir,
		logger: logger.WithComponent("extension"),
	}
}

// Register adds a descriptor. Re-registering an id replaces the
// earlier descriptor in place, keeping its resolution position, so
// manifests can override builtins.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[d.ID]; ok {
		for i, known := range r.descriptors {
			if known == existing {
				r.descriptors[i] = d
				break
			}
		}
	} else {
		r.descriptors = append(r.descriptors, d)
	}
	r.byID[d.ID] = d
	return nil
}

// RegisterBuiltins registers the stock language server descriptors.
func (r *Registry) RegisterBuiltins() {
	for _, d := range Builtins() {
		if err := r.Register(d); err != nil {
			r.logger.Warn("builtin descriptor %s rejected: %v", d.ID, err)
		}
	}
}

// LoadDir registers every YAML manifest in dir. A missing directory
// is not an error; malformed manifests are logged and skipped. It
// returns how many descriptors were registered.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := strings.ToLower(filepath.Ext(name)); ext != ".yml" && ext != ".yaml" {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("read manifest %s: %v", path, err)
			continue
		}

		var d Descriptor
		if err := yaml.Unmarshal(data, &d); err != nil {
			r.logger.Warn("parse manifest %s: %v", path, err)
			continue
		}
		if err := r.Register(&d); err != nil {
			r.logger.Warn("manifest %s: %v", path, err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Resolve matches the file's extension against each descriptor's
// language contributions in registration order.
func (r *Registry) Resolve(path string) (*Descriptor, string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.descriptors {
		if lang, ok := d.languageFor(ext); ok {
			return d, lang, true
		}
	}
	return nil, "", false
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

// Descriptors returns the registry contents in resolution order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Installed reports whether the extension's binaries are present:
// either an installed directory exists or the server command is on
// PATH.
func (r *Registry) Installed(id string) bool {
	d, ok := r.Get(id)
	if !ok {
		return false
	}

	if info, err := os.Stat(r.installedDir(id)); err == nil && info.IsDir() {
		return true
	}
	if d.Server != nil {
		if _, err := exec.LookPath(d.Server.Command); err == nil {
			return true
		}
	}
	return false
}

// ServerForFile implements lsp.Resolver: it resolves the descriptor
// for the path and, when its server is installed, returns the launch
// spec and language id.
func (r *Registry) ServerForFile(path string) (lsp.ServerSpec, string, bool) {
	d, lang, ok := r.Resolve(path)
	if !ok || d.Server == nil {
		return lsp.ServerSpec{}, "", false
	}

	command, ok := r.serverCommand(d)
	if !ok {
		return lsp.ServerSpec{}, "", false
	}

	return lsp.ServerSpec{
		Command: command,
		Args:    d.Server.Args,
		Env:     d.Server.Env,
	}, lang, true
}

// serverCommand locates the server binary, preferring one shipped in
// the installed directory over PATH.
func (r *Registry) serverCommand(d *Descriptor) (string, bool) {
	local := filepath.Join(r.installedDir(d.ID), filepath.Base(d.Server.Command))
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local, true
	}
	if path, err := exec.LookPath(d.Server.Command); err == nil {
		return path, true
	}
	return "", false
}

func (r *Registry) installedDir(id string) string {
	return filepath.Join(r.dir, "installed", id)
}
