package util

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/boyter/gocodewalker"
)

// ExtensionExclusions lists what is left out of an extension archive.
var ExtensionExclusions = struct {
	// Directories are matched by exact name.
	Directories []string
	// FilePatterns are filepath.Match patterns applied to base names.
	FilePatterns []string
}{
	Directories:  []string{"node_modules", ".git", "__tests__", "coverage"},
	FilePatterns: []string{"*.test.js", "*.test.ts", "*.spec.js", "*.spec.ts", "*.log", "*.map", "*.swp"},
}

// ZipStats summarises an archive.
type ZipStats struct {
	FilesIncluded int
	FilesExcluded int
	BytesIncluded int64
}

// ZipDirectory writes the files under srcDir to destZip with paths relative to
// srcDir, skipping ExtensionExclusions.
func ZipDirectory(srcDir, destZip string) (*ZipStats, error) {
	stats := &ZipStats{}

	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", srcDir)
	}

	zipFile, err := os.Create(destZip)
	if err != nil {
		return nil, err
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	fileQueue := make(chan *gocodewalker.File, 256)
	walker := gocodewalker.NewFileWalker(srcDir, fileQueue)
	walker.IncludeHidden = true
	walker.ExcludeDirectory = append(walker.ExcludeDirectory, ExtensionExclusions.Directories...)

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
	}()

	var addErr error
	for f := range fileQueue {
		if addErr != nil {
			continue
		}
		if excludedFile(filepath.Base(f.Location)) {
			stats.FilesExcluded++
			continue
		}
		addErr = addZipEntry(zipWriter, srcDir, f.Location, stats)
	}

	if err := <-errChan; err != nil {
		return stats, fmt.Errorf("directory walk failed: %w", err)
	}
	if addErr != nil {
		return stats, addErr
	}
	if err := zipWriter.Close(); err != nil {
		return stats, err
	}
	return stats, nil
}

func excludedFile(name string) bool {
	for _, pattern := range ExtensionExclusions.FilePatterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

func addZipEntry(zw *zip.Writer, srcDir, path string, stats *ZipStats) error {
	relPath, err := filepath.Rel(srcDir, path)
	if err != nil {
		return err
	}
	relPath = filepath.ToSlash(relPath)
	if strings.HasPrefix(relPath, "../") {
		return fmt.Errorf("%s is outside %s", path, srcDir)
	}

	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		// Only regular files are archived.
		stats.FilesExcluded++
		return nil
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = relPath
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	written, err := io.Copy(w, file)
	if err != nil {
		return err
	}
	stats.FilesIncluded++
	stats.BytesIncluded += written
	return nil
}
