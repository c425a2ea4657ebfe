// Package extension locates, packages and installs the browser extension that
// hosts the lecture capture background service.
package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultProfile is the Chrome profile used when none is given.
const DefaultProfile = "Default"

// ChromeUserDataDir returns the Chrome user data directory for the current OS.
func ChromeUserDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	var userDataDir string
	switch runtime.GOOS {
	case "darwin":
		userDataDir = filepath.Join(homeDir, "Library", "Application Support", "Google", "Chrome")
	case "linux":
		userDataDir = filepath.Join(homeDir, ".config", "google-chrome")
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		userDataDir = filepath.Join(localAppData, "Google", "Chrome", "User Data")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if _, err := os.Stat(userDataDir); os.IsNotExist(err) {
		return "", fmt.Errorf("Chrome user data directory not found at %s", userDataDir)
	}
	return userDataDir, nil
}

// InstalledPath returns the unpacked directory of the newest installed
// version of extensionID in the given profile.
func InstalledPath(userDataDir, profile, extensionID string) (string, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if !ValidID(extensionID) {
		return "", fmt.Errorf("invalid extension id %q", extensionID)
	}

	extDir := filepath.Join(userDataDir, profile, "Extensions", extensionID)
	if _, err := os.Stat(extDir); os.IsNotExist(err) {
		return "", fmt.Errorf("extension %s not found at %s", extensionID, extDir)
	}

	versionDir, err := latestVersionDir(extDir)
	if err != nil {
		return "", fmt.Errorf("failed to find extension version: %w", err)
	}
	return versionDir, nil
}

// ValidID reports whether id has the shape of a Chrome extension id.
func ValidID(id string) bool {
	return extensionIDPattern.MatchString(id)
}

// latestVersionDir picks the highest version directory. Chrome names them
// "<version>_<n>"; names that do not parse sort below those that do.
func latestVersionDir(extDir string) (string, error) {
	entries, err := os.ReadDir(extDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extension directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no version directories found in %s", extDir)
	}

	sort.Slice(names, func(i, j int) bool {
		vi, ei := dirVersion(names[i])
		vj, ej := dirVersion(names[j])
		switch {
		case ei == nil && ej == nil:
			if !vi.Equal(vj) {
				return vi.LessThan(vj)
			}
		case ei == nil:
			return false
		case ej == nil:
			return true
		}
		return names[i] < names[j]
	})
	return filepath.Join(extDir, names[len(names)-1]), nil
}

func dirVersion(name string) (*semver.Version, error) {
	if i := strings.LastIndex(name, "_"); i > 0 {
		name = name[:i]
	}
	return semver.NewVersion(name)
}
