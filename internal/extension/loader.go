package extension

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kernel/kernel-go-sdk"
	"github.com/kernel/kernel-go-sdk/option"
	"github.com/kernel/lecturecap/internal/remote"
	"github.com/kernel/lecturecap/pkg/util"
	"github.com/pterm/pterm"
)

// BrowserService defines the subset of the Kernel SDK browser client that we use.
type BrowserService interface {
	LoadExtensions(ctx context.Context, id string, body kernel.BrowserLoadExtensionsParams, opts ...option.RequestOption) error
}

// NewBrowserService builds the SDK browser client for the given API key.
func NewBrowserService(apiKey string) BrowserService {
	client := kernel.NewClient(option.WithAPIKey(apiKey))
	svc := client.Browsers
	return &svc
}

// discoverScript lists the extension ids behind the browser's service
// workers and background pages, paired with their manifest names.
const discoverScript = `
const urls = [
	...context.serviceWorkers().map(w => w.url()),
	...context.backgroundPages().map(p => p.url()),
];
const seen = new Set();
const out = [];
for (const url of urls) {
	const m = /^chrome-extension:\/\/([a-p]{32})\//.exec(url);
	if (!m || seen.has(m[1])) continue;
	seen.add(m[1]);
	let name = '';
	const page = await context.newPage();
	try {
		await page.goto('chrome-extension://' + m[1] + '/manifest.json', { timeout: 5000 });
		name = JSON.parse(await page.evaluate(() => document.body.innerText)).name ?? '';
	} catch (e) {
		name = '';
	} finally {
		await page.close();
	}
	out.push({ id: m[1], name });
}
return { extensions: out };
`

type discovered struct {
	Extensions []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"extensions"`
}

// Installed describes an extension loaded into a browser.
type Installed struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Loader installs an unpacked extension into a Kernel browser.
type Loader struct {
	Browsers   BrowserService
	Playwright remote.PlaywrightService
	Timeout    time.Duration
}

// Load packages dir, uploads it to browserID and returns the id Chrome
// assigned to it.
func (l *Loader) Load(ctx context.Context, browserID, dir string) (*Installed, error) {
	if l.Browsers == nil {
		return nil, fmt.Errorf("kernel browser service is not configured")
	}

	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	zipPath, err := createTempZip(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create extension zip: %w", err)
	}
	defer os.Remove(zipPath)

	zipFile, err := os.Open(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open extension zip: %w", err)
	}
	defer zipFile.Close()

	// LoadExtensions restarts the browser.
	if err := l.Browsers.LoadExtensions(ctx, browserID, kernel.BrowserLoadExtensionsParams{
		Extensions: []kernel.BrowserLoadExtensionsParamsExtension{
			{
				Name:    manifest.Name,
				ZipFile: zipFile,
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to load extension: %w", err)
	}

	id, err := l.discoverID(ctx, browserID, manifest.Name)
	if err != nil {
		return nil, err
	}
	return &Installed{ID: id, Name: manifest.Name, Version: manifest.Version}, nil
}

func (l *Loader) discoverID(ctx context.Context, browserID, name string) (string, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var found discovered
	if err := remote.Run(ctx, l.Playwright, browserID, discoverScript, timeout, &found); err != nil {
		return "", fmt.Errorf("failed to discover extension id: %w", err)
	}

	var unnamed []string
	for _, ext := range found.Extensions {
		if !ValidID(ext.ID) {
			continue
		}
		if ext.Name == name {
			return ext.ID, nil
		}
		if ext.Name == "" {
			unnamed = append(unnamed, ext.ID)
		}
	}
	if len(unnamed) == 1 {
		pterm.Debug.Printf("Manifest name unreadable, assuming extension %s\n", unnamed[0])
		return unnamed[0], nil
	}
	return "", fmt.Errorf("extension %q is not running in browser %s", name, browserID)
}

func createTempZip(srcDir string) (string, error) {
	tmpFile, err := os.CreateTemp("", "lecturecap-extension-*.zip")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	stats, err := util.ZipDirectory(srcDir, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	pterm.Debug.Printf("Packed %d files (%d bytes), skipped %d\n", stats.FilesIncluded, stats.BytesIncluded, stats.FilesExcluded)
	return tmpPath, nil
}
