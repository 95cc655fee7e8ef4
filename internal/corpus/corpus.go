// Package corpus discovers and reads the text documents fed to the
// analysis engine.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Collect resolves an input path into the ordered list of documents to
// analyze. A regular file is returned as-is; a directory is walked
// recursively for *.txt files, sorted by path so downstream record order
// is reproducible.
func Collect(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: input path %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".txt") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: walk %s: %w", path, err)
	}

	sort.Strings(files)
	return files, nil
}

// ReadDocument reads a document as UTF-8 text, dropping invalid byte
// sequences rather than failing on them.
func ReadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("corpus: read %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
