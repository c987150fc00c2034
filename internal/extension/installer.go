package extension

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/folioedit/folio/internal/log"
)

// InstallState is one step of an installation.
type InstallState int

const (
	InstallDownloading InstallState = iota
	InstallVerifying
	InstallInstalling
	InstallCompleted
	InstallFailed
)

func (s InstallState) String() string {
	switch s {
	case InstallDownloading:
		return "downloading"
	case InstallVerifying:
		return "verifying"
	case InstallInstalling:
		return "installing"
	case InstallCompleted:
		return "completed"
	case InstallFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress reports installation advancement to the UI.
type Progress struct {
	ExtensionID string
	State       InstallState
	Fraction    float64
	Message     string
}

// ProgressFunc receives progress updates. It runs on the installing
// goroutine and must not block.
type ProgressFunc func(Progress)

// Metadata records an installed extension.
type Metadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installedAt"`
	Enabled     bool      `json:"enabled"`
}

const metadataFile = "metadata.json"

// Installer downloads and places extension packages under the
// extensions directory: staging in dir/downloads/, final layout
// dir/installed/<id>/.
type Installer struct {
	registry   *Registry
	dir        string
	client     *http.Client
	onProgress ProgressFunc
	logger     *log.Logger
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) InstallerOption {
	return func(i *Installer) {
		if c != nil {
			i.client = c
		}
	}
}

// WithProgress installs the progress callback.
func WithProgress(fn ProgressFunc) InstallerOption {
	return func(i *Installer) {
		i.onProgress = fn
	}
}

// WithInstallerLogger sets the logger.
func WithInstallerLogger(logger *log.Logger) InstallerOption {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewInstaller creates an installer rooted at dir, resolving
// descriptors through registry.
func NewInstaller(registry *Registry, dir string, opts ...InstallerOption) *Installer {
	inst := &Installer{
		registry: registry,
		dir:      dir,
		client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   log.Nop(),
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.logger = inst.logger.WithComponent("installer")
	return inst
}

// Install downloads the extension's package, verifies its checksum,
// and moves it into the installed directory. Failures leave no
// partial install behind and are retryable.
func (i *Installer) Install(ctx context.Context, id string) error {
	d, ok := i.registry.Get(id)
	if !ok {
		return fmt.Errorf("install %s: %w", id, ErrUnknownExtension)
	}
	if d.Download == nil {
		return fmt.Errorf("install %s: %w", id, ErrNoDownload)
	}

	i.logger.Info("installing extension %s from %s", id, d.Download.URL)
	i.report(id, InstallDownloading, 0, "Starting download")

	data, err := i.download(ctx, d.Download.URL)
	if err != nil {
		return i.fail(id, fmt.Errorf("install %s: %w", id, err))
	}

	i.report(id, InstallVerifying, 0.9, "Verifying checksum")
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != d.Download.Checksum {
		err := fmt.Errorf("install %s: %w: expected %s, got %s", id, ErrChecksumMismatch, d.Download.Checksum, got)
		return i.fail(id, err)
	}

	i.report(id, InstallInstalling, 0.95, "Installing files")
	if err := i.place(d, data); err != nil {
		return i.fail(id, fmt.Errorf("install %s: %w", id, err))
	}

	i.report(id, InstallCompleted, 1, "Installation completed")
	i.logger.Info("extension %s installed", id)
	return nil
}

func (i *Installer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return data, nil
}

// place stages the verified package and moves it into the installed
// directory, replacing any older version.
func (i *Installer) place(d *Descriptor, data []byte) error {
	downloadDir := filepath.Join(i.dir, "downloads")
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return err
	}
	staged := filepath.Join(downloadDir, d.ID+".pkg")
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return err
	}

	target := i.registry.installedDir(d.ID)
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}

	name := "package.bin"
	if d.Server != nil && d.Server.Command != "" {
		name = filepath.Base(d.Server.Command)
	}
	installed := filepath.Join(target, name)
	if err := os.Rename(staged, installed); err != nil {
		return err
	}
	if err := os.Chmod(installed, 0o755); err != nil {
		return err
	}

	meta := Metadata{
		ID:          d.ID,
		Name:        d.Name,
		Version:     d.Version,
		InstalledAt: time.Now().UTC(),
		Enabled:     true,
	}
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(target, metadataFile), encoded, 0o644)
}

// Uninstall removes the extension's installed directory.
func (i *Installer) Uninstall(id string) error {
	target := i.registry.installedDir(id)
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("uninstall %s: %w", id, ErrNotInstalled)
		}
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("uninstall %s: %w", id, err)
	}
	i.logger.Info("extension %s uninstalled", id)
	return nil
}

// List returns metadata for every installed extension, ordered by id.
// Directories without readable metadata are reported with defaults.
func (i *Installer) List() ([]Metadata, error) {
	installedRoot := filepath.Join(i.dir, "installed")
	entries, err := os.ReadDir(installedRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Metadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()

		meta := Metadata{ID: id, Name: id, Enabled: true}
		if data, err := os.ReadFile(filepath.Join(installedRoot, id, metadataFile)); err == nil {
			if err := json.Unmarshal(data, &meta); err != nil {
				i.logger.Warn("bad metadata for %s: %v", id, err)
			}
		}
		out = append(out, meta)
	}

	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (i *Installer) report(id string, state InstallState, fraction float64, message string) {
	if i.onProgress == nil {
		return
	}
	i.onProgress(Progress{ExtensionID: id, State: state, Fraction: fraction, Message: message})
}

// fail reports the failure through the progress callback and passes
// the error through.
func (i *Installer) fail(id string, err error) error {
	i.logger.Error("extension install failed: %v", err)
	i.report(id, InstallFailed, 0, err.Error())
	return err
}
