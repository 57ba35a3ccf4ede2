package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"pinscraper/pkg/config"
)

// TestConfig returns a configuration pointed at server with fast retries
// and rendering disabled.
func TestConfig(t *testing.T, server *MockPinterestServer) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Pinterest.BaseURL = server.URL()
	cfg.Pinterest.UserAgent = "TestBot/1.0"
	cfg.Search.Render = false
	cfg.HTTP.MaxRetries = 0
	cfg.HTTP.BackoffFactor = 0
	cfg.Download.BackoffFactor = 0
	cfg.Output.Directory = filepath.Join(t.TempDir(), "images")
	return cfg
}

// AssertDirContainsFiles checks that dir holds exactly expected regular files
func AssertDirContainsFiles(t *testing.T, dir string, expected int) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Errorf("Failed to read directory %s: %v", dir, err)
		return
	}

	actual := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			actual++
		}
	}
	if actual != expected {
		t.Errorf("Directory %s contains %d files, expected %d", dir, actual, expected)
	}
}

// AssertFileContains checks that path holds exactly expected
func AssertFileContains(t *testing.T, path string, expected string) {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("Failed to read file %s: %v", path, err)
		return
	}
	if string(content) != expected {
		t.Errorf("File content mismatch. Expected: %q, Got: %q", expected, string(content))
	}
}
