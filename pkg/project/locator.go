package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// DefaultPatterns matches the project files of the supported environment
// versions (.ap15, .ap16, .ap17, ...).
var DefaultPatterns = []string{"*.ap*"}

// quoteCutset is trimmed from both ends of user-supplied paths. Paths pasted
// from a file manager often arrive quoted.
const quoteCutset = " \t\r\n\"'"

// Locator resolves user input to a project file path.
type Locator struct {
	logger   *telemetry.Logger
	patterns []string
}

// NewLocator creates a locator matching directory entries against patterns.
// An empty pattern list falls back to DefaultPatterns.
func NewLocator(logger *telemetry.Logger, patterns []string) *Locator {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if logger == nil {
		logger = telemetry.Nop()
	}
	return &Locator{
		logger:   logger.NewComponentLogger("locator"),
		patterns: patterns,
	}
}

// Patterns returns the configured project file patterns.
func (l *Locator) Patterns() []string {
	return l.patterns
}

// Resolve turns raw user input into a project file path.
//
// A path to an existing file is returned as given, minus surrounding quotes
// and whitespace. For a directory, the first top-level entry matching one of
// the patterns is returned, in the order the directory listing reports them.
// That order depends on the platform and filesystem; when several entries
// match, a warning naming all of them is logged.
func (l *Locator) Resolve(raw string) (string, error) {
	path := strings.Trim(raw, quoteCutset)
	if path == "" {
		return "", l.reject(engine.NewInvalidArgumentError("project path is empty", nil).
			WithOperation("project.resolve").
			WithCode(engine.ErrCodeValidation))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", l.reject(engine.NewNotFoundError("project path does not exist", err).
				WithPath(path).
				WithOperation("project.resolve").
				WithCode(engine.ErrCodeNotFound))
		}
		return "", l.reject(engine.NewNotFoundError("project path is not accessible", err).
			WithPath(path).
			WithOperation("project.resolve"))
	}

	switch {
	case info.Mode().IsRegular():
		return path, nil
	case info.IsDir():
		return l.resolveDir(path)
	default:
		return "", l.reject(engine.NewNotFoundError("project path is neither a file nor a directory", nil).
			WithPath(path).
			WithOperation("project.resolve"))
	}
}

func (l *Locator) resolveDir(dir string) (string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return "", l.reject(engine.NewNotFoundError("cannot read project directory", err).
			WithPath(dir).
			WithOperation("project.resolve"))
	}
	defer f.Close()

	// File.ReadDir keeps the directory order; os.ReadDir would sort by name.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return "", l.reject(engine.NewNotFoundError("cannot read project directory", err).
			WithPath(dir).
			WithOperation("project.resolve"))
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if l.matches(entry.Name()) {
			candidates = append(candidates, entry.Name())
		}
	}

	if len(candidates) == 0 {
		return "", l.reject(engine.NewNotFoundError(
			fmt.Sprintf("no project file matching %s", strings.Join(l.patterns, ", ")), nil).
			WithPath(dir).
			WithOperation("project.resolve").
			WithCode(engine.ErrCodeNotFound))
	}

	if len(candidates) > 1 {
		l.logger.WithFields(map[string]interface{}{
			"directory":  dir,
			"candidates": candidates,
			"selected":   candidates[0],
		}).Warn("several project files found, using the first one listed")
	}

	return filepath.Join(dir, candidates[0]), nil
}

// reject logs a resolution failure where it is detected and returns it.
func (l *Locator) reject(err *engine.EngineError) error {
	l.logger.WithError(err).Error("failed to resolve project path")
	return err
}

func (l *Locator) matches(name string) bool {
	for _, pattern := range l.patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
