// Package scanner expands command-line paths into the source files to analyze.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/decomplex/pkg/config"
	"github.com/panbanda/decomplex/pkg/parser"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config   *config.Config
	matchers []matcher
}

// matcher applies gitignore patterns to paths relative to base.
type matcher struct {
	base string
	m    gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns builds the matchers for root: config patterns and
// directories, parsed as gitignore syntax, plus the repository's .gitignore files.
func (s *Scanner) loadExcludePatterns(absRoot string) {
	s.matchers = s.matchers[:0]

	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(strings.TrimSuffix(dir, "/")+"/", nil))
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, matcher{base: absRoot, m: gitignore.NewMatcher(patterns)})
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	gitRoot := findGitRoot(absRoot)
	if gitRoot == "" {
		return
	}
	// ReadPatterns recursively reads every .gitignore below the repository root.
	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil && len(gitPatterns) > 0 {
		s.matchers = append(s.matchers, matcher{base: gitRoot, m: gitignore.NewMatcher(gitPatterns)})
	}
}

// isExcluded checks if an absolute path matches any exclusion pattern.
func (s *Scanner) isExcluded(absPath string, isDir bool) bool {
	return excluded(s.matchers, absPath, isDir)
}

func excluded(matchers []matcher, absPath string, isDir bool) bool {
	for _, m := range matchers {
		rel, err := filepath.Rel(m.base, absPath)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if m.m.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir) {
			return true
		}
	}
	return false
}

func resolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(absRoot)
}

// Filter returns a predicate reporting whether a path below root would be
// picked up by ScanDir(root): directories that are not excluded and source
// files in a supported language. Paths are interpreted like those ScanDir
// returns, relative to the working directory or joined onto root.
func (s *Scanner) Filter(root string) (func(path string, isDir bool) bool, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	s.loadExcludePatterns(absRoot)
	matchers := append([]matcher(nil), s.matchers...)

	return func(path string, isDir bool) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return false
		}
		if rel == "." {
			return isDir
		}
		if excluded(matchers, filepath.Join(absRoot, rel), isDir) {
			return false
		}
		return isDir || parser.Supported(path)
	}, nil
}

// ScanDir recursively scans a directory for source files in a supported language.
// Paths are returned joined onto root, in lexical order.
// Symlinks resolving outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		abs := filepath.Join(absRoot, rel)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if rel != "." && s.isExcluded(abs, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(abs, false) {
			return nil
		}
		if parser.Supported(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// Expand turns command-line arguments into the list of files to analyze.
// Directories are scanned; files and missing paths are kept so the analysis
// reports them. Paths are cleaned and deduplicated, order is preserved.
func (s *Scanner) Expand(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		files = append(files, p)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			add(p)
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// FilterBySize drops files larger than maxSize bytes and returns the count
// skipped. Files that cannot be stat'ed are kept for the analysis to report.
// A maxSize of 0 returns the list unchanged.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, skipped
}
