package extension

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kernel/lecturecap/internal/bridge"
)

// ManifestFile is the file every unpacked extension carries at its root.
const ManifestFile = "manifest.json"

var extensionIDPattern = regexp.MustCompile(`^[a-p]{32}$`)

// Manifest is the subset of manifest.json we read.
type Manifest struct {
	ManifestVersion int        `json:"manifest_version"`
	Name            string     `json:"name"`
	Version         string     `json:"version"`
	Background      Background `json:"background"`
}

type Background struct {
	ServiceWorker string   `json:"service_worker,omitempty"`
	Scripts       []string `json:"scripts,omitempty"`
}

// HasBackground reports whether the extension declares a background context.
func (m Manifest) HasBackground() bool {
	return m.Background.ServiceWorker != "" || len(m.Background.Scripts) > 0
}

// ReadManifest reads and validates the manifest in dir. The extension must
// declare a background context and a version new enough to answer the
// capture messages.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ManifestFile, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%s has no name", ManifestFile)
	}
	if !m.HasBackground() {
		return nil, fmt.Errorf("extension %q declares no background script", m.Name)
	}
	if err := bridge.CheckVersion(m.Version); err != nil {
		return nil, err
	}
	return &m, nil
}
