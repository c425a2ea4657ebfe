package util

import (
	"sort"

	"github.com/boyter/gocodewalker"
)

// HTMLExtensions are the file extensions treated as saved pages.
var HTMLExtensions = []string{"html", "htm", "xhtml"}

// FindHTMLFiles returns the saved pages under dir in lexical order. Ignore
// files (.gitignore, .ignore) are honoured.
func FindHTMLFiles(dir string) ([]string, error) {
	fileQueue := make(chan *gocodewalker.File, 256)
	walker := gocodewalker.NewFileWalker(dir, fileQueue)
	walker.AllowListExtensions = HTMLExtensions

	errChan := make(chan error, 1)
	go func() {
		errChan <- walker.Start()
	}()

	var files []string
	for f := range fileQueue {
		files = append(files, f.Location)
	}
	if err := <-errChan; err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
