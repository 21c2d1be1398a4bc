package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-apitrace/internal/util"
)

// DefaultExtension is the file suffix of trace files.
const DefaultExtension = ".trace"

// FileScanner finds trace files below a directory.
type FileScanner struct {
	baseDir   string
	extension string
	logger    util.LoggerInterface
}

// NewFileScanner creates a scanner for baseDir matching DefaultExtension.
func NewFileScanner(baseDir string, logger util.LoggerInterface) *FileScanner {
	return &FileScanner{
		baseDir:   baseDir,
		extension: DefaultExtension,
		logger:    util.OrNop(logger),
	}
}

// WithExtension changes the matched suffix. Matching ignores case.
func (s *FileScanner) WithExtension(ext string) *FileScanner {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	s.extension = strings.ToLower(ext)
	return s
}

// Scan walks the directory and returns matching file paths in lexical
// order. Unreadable entries are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	s.logger.Debug("scanning directory", util.F("dir", s.baseDir))

	if _, err := os.Stat(s.baseDir); err != nil {
		return nil, err
	}

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Debug("skip entry", util.F("path", path), util.F("error", err))
			return nil
		}
		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if strings.HasSuffix(strings.ToLower(path), s.extension) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	s.logger.Debug("scan completed",
		util.F("duration", time.Since(start).String()),
		util.F("dirs", dirCount),
		util.F("files", totalCount),
		util.F("traces", len(files)))

	return files, err
}
