package lsp

import (
	"sort"
	"sync"
	"time"

	"github.com/folioedit/folio/internal/log"
)

// FileDiagnostics holds the latest diagnostics for one file.
type FileDiagnostics struct {
	Path        string
	Diagnostics []Diagnostic
	UpdatedAt   time.Time

	ErrorCount   int
	WarningCount int
	InfoCount    int
	HintCount    int
}

// Total returns the diagnostic count across severities.
func (fd FileDiagnostics) Total() int {
	return len(fd.Diagnostics)
}

// Diagnostics is the sink all sessions publish into, keyed by
// absolute file path. Publishes are last-write-wins per path, except
// that a publish stamped with a document version older than the last
// version sent to the server is discarded as stale.
type Diagnostics struct {
	mu        sync.RWMutex
	files     map[string]*FileDiagnostics
	committed map[string]int32

	debounce time.Duration
	onUpdate func(path string, fd FileDiagnostics)
	pending  map[string]*time.Timer
	stamps   map[string]uint64
	next     uint64

	logger *log.Logger
}

// NewDiagnostics creates an empty sink. debounce spaces out update
// callbacks per path; zero applies a 100ms default.
func NewDiagnostics(debounce time.Duration, logger *log.Logger) *Diagnostics {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Diagnostics{
		files:     make(map[string]*FileDiagnostics),
		committed: make(map[string]int32),
		debounce:  debounce,
		pending:   make(map[string]*time.Timer),
		stamps:    make(map[string]uint64),
		logger:    logger.WithComponent("diagnostics"),
	}
}

// SetOnUpdate installs the change callback. It runs debounced on a
// timer goroutine; a cleared file reports a zero-count value.
func (d *Diagnostics) SetOnUpdate(fn func(path string, fd FileDiagnostics)) {
	d.mu.Lock()
	d.onUpdate = fn
	d.mu.Unlock()
}

// CommitVersion records the document version last sent to the server
// for the path. Publishes older than this are dropped.
func (d *Diagnostics) CommitVersion(path string, version int) {
	d.mu.Lock()
	d.committed[path] = int32(version)
	d.mu.Unlock()
}

// Publish ingests a server diagnostics push.
func (d *Diagnostics) Publish(p PublishDiagnosticsParams) {
	path := PathFromURI(p.URI)
	if path == "" {
		return
	}

	d.mu.Lock()

	if p.Version != nil {
		if committed, ok := d.committed[path]; ok && *p.Version < committed {
			d.mu.Unlock()
			d.logger.Debug("dropping stale diagnostics for %s (version %d < %d)", path, *p.Version, committed)
			return
		}
	}

	diags := make([]Diagnostic, len(p.Diagnostics))
	copy(diags, p.Diagnostics)
	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Range.Start.Line != diags[j].Range.Start.Line {
			return diags[i].Range.Start.Line < diags[j].Range.Start.Line
		}
		return diags[i].Range.Start.Character < diags[j].Range.Start.Character
	})

	fd := &FileDiagnostics{
		Path:        path,
		Diagnostics: diags,
		UpdatedAt:   time.Now(),
	}
	for _, diag := range diags {
		switch diag.Severity {
		case SeverityError:
			fd.ErrorCount++
		case SeverityWarning:
			fd.WarningCount++
		case SeverityInformation:
			fd.InfoCount++
		case SeverityHint:
			fd.HintCount++
		}
	}

	if len(diags) == 0 {
		delete(d.files, path)
	} else {
		d.files[path] = fd
	}

	d.scheduleUpdateLocked(path, *fd)
	d.mu.Unlock()
}

// scheduleUpdateLocked arms the debounced callback for a path. A
// stamp per path invalidates timers superseded by newer publishes.
func (d *Diagnostics) scheduleUpdateLocked(path string, fd FileDiagnostics) {
	if d.onUpdate == nil {
		return
	}

	if timer, ok := d.pending[path]; ok {
		timer.Stop()
	}

	d.next++
	stamp := d.next
	d.stamps[path] = stamp

	d.pending[path] = time.AfterFunc(d.debounce, func() {
		d.mu.Lock()
		if d.stamps[path] != stamp {
			d.mu.Unlock()
			return
		}
		delete(d.pending, path)
		handler := d.onUpdate
		d.mu.Unlock()

		if handler != nil {
			handler(path, fd)
		}
	})
}

// DropFile forgets all state for a path, canceling any pending
// callback. Call when the file's buffer closes.
func (d *Diagnostics) DropFile(path string) {
	d.mu.Lock()
	delete(d.files, path)
	delete(d.committed, path)
	if timer, ok := d.pending[path]; ok {
		timer.Stop()
		delete(d.pending, path)
	}
	delete(d.stamps, path)
	d.mu.Unlock()
}

// ForPath returns a copy of the diagnostics for a file.
func (d *Diagnostics) ForPath(path string) []Diagnostic {
	d.mu.RLock()
	defer d.mu.RUnlock()

	fd, ok := d.files[path]
	if !ok {
		return nil
	}
	out := make([]Diagnostic, len(fd.Diagnostics))
	copy(out, fd.Diagnostics)
	return out
}

// File returns the full diagnostic record for a path.
func (d *Diagnostics) File(path string) (FileDiagnostics, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	fd, ok := d.files[path]
	if !ok {
		return FileDiagnostics{}, false
	}

	out := *fd
	out.Diagnostics = make([]Diagnostic, len(fd.Diagnostics))
	copy(out.Diagnostics, fd.Diagnostics)
	return out, true
}

// Paths returns every file currently holding diagnostics.
func (d *Diagnostics) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	paths := make([]string, 0, len(d.files))
	for path := range d.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Summary aggregates counts across all files.
type Summary struct {
	Files    int
	Errors   int
	Warnings int
	Infos    int
	Hints    int
}

// Summarize totals diagnostics across the workspace.
func (d *Diagnostics) Summarize() Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var s Summary
	s.Files = len(d.files)
	for _, fd := range d.files {
		s.Errors += fd.ErrorCount
		s.Warnings += fd.WarningCount
		s.Infos += fd.InfoCount
		s.Hints += fd.HintCount
	}
	return s
}
