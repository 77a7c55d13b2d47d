// Package scanner finds instance documents below a directory.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DocumentExtensions are the extensions of markup documents a template can
// have produced.
var DocumentExtensions = []string{".html", ".htm", ".xhtml", ".xml"}

type FileInfo struct {
	Path string
	Size int64
}

type Scanner struct {
	rootDir    string
	extensions []string
	skip       func(path string) bool
}

type Option func(*Scanner)

// WithSkip excludes every path for which skip returns true. A skipped
// directory is not descended into.
func WithSkip(skip func(path string) bool) Option {
	return func(s *Scanner) {
		s.skip = skip
	}
}

// WithExtensions replaces the accepted extensions. An empty list accepts
// every file.
func WithExtensions(extensions ...string) Option {
	return func(s *Scanner) {
		s.extensions = extensions
	}
}

func New(rootDir string, opts ...Option) *Scanner {
	s := &Scanner{
		rootDir:    rootDir,
		extensions: DocumentExtensions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the matching files in lexical order.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.Walk(s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if s.skip != nil && s.skip(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() && s.IsTarget(path) {
			files = append(files, FileInfo{Path: path, Size: info.Size()})
		}
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

// IsTarget reports whether path has one of the accepted extensions.
func (s *Scanner) IsTarget(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, targetExt := range s.extensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}
