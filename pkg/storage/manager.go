package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
)

// IndexPlaceholder is replaced by the 1-based list position in file names
const IndexPlaceholder = "{index}"

// DefaultFileNamePattern names images by their position in the candidate list
const DefaultFileNamePattern = "image_{index}.jpg"

// Manager handles the destination directory and positional file writes
type Manager struct {
	outputDir string
	pattern   string
	saved     int64
}

// NewManager creates the output directory (with parents) if it does not
// exist and returns a manager writing into it.
func NewManager(outputDir, pattern string) (*Manager, error) {
	if pattern == "" {
		pattern = DefaultFileNamePattern
	}
	if !strings.Contains(pattern, IndexPlaceholder) {
		return nil, fmt.Errorf("file name pattern %q must contain %s", pattern, IndexPlaceholder)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		pattern:   pattern,
	}, nil
}

// FileName returns the file name for the image at 1-based position index
func (m *Manager) FileName(index int) string {
	return strings.ReplaceAll(m.pattern, IndexPlaceholder, strconv.Itoa(index))
}

// Path returns the destination path for the image at position index
func (m *Manager) Path(index int) string {
	return filepath.Join(m.outputDir, m.FileName(index))
}

// Save writes r to the destination for index, replacing any previous file
// at that name. The write goes to a temporary file that is renamed into
// place, so readers never observe a partial image.
func (m *Manager) Save(r io.Reader, index int) (int64, error) {
	filename := m.Path(index)

	out, err := os.CreateTemp(m.outputDir, ".download-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to save image data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to set file mode: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	atomic.AddInt64(&m.saved, 1)
	return n, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of files written by this manager
func (m *Manager) GetSavedCount() int {
	return int(atomic.LoadInt64(&m.saved))
}
