package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TempSuffix marks partially written files
const TempSuffix = ".tmp"

// DefaultChunkSize is used when Save is given no chunk size
const DefaultChunkSize = 32 * 1024

// Manager handles the files of one output directory
type Manager struct {
	outputDir string
	known     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed and indexes the files
// already in it
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		known:     make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasSuffix(entry.Name(), TempSuffix) {
			m.known[entry.Name()] = true
		}
	}

	return nil
}

// PurgeTemp removes partial files left in the output directory and
// returns how many were removed
func (m *Manager) PurgeTemp() (int, error) {
	matches, err := filepath.Glob(filepath.Join(m.outputDir, "*"+TempSuffix))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// Path returns the final path of a file name in the output directory
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Exists checks whether a file with the given name is already stored
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	known := m.known[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.Path(name)); err == nil {
		m.mu.Lock()
		m.known[name] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// Save streams r into the output directory under name, writing chunkSize
// bytes at a time to <name>.tmp and renaming it into place. If the final
// file appeared in the meantime the existing file wins and Save succeeds.
func (m *Manager) Save(r io.Reader, name string, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	filename := m.Path(name)

	tempFile := filename + TempSuffix
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.CopyBuffer(onlyWriter{out}, onlyReader{r}, make([]byte, chunkSize))
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write file data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if _, err := os.Stat(filename); err == nil {
		os.Remove(tempFile)
		m.markKnown(name)
		return filename, nil
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.markKnown(name)
	return filename, nil
}

func (m *Manager) markKnown(name string) {
	m.mu.Lock()
	m.known[name] = true
	m.mu.Unlock()
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of files known to be stored
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.known)
}

// onlyWriter and onlyReader hide ReadFrom and WriteTo so CopyBuffer
// honours the chunk size
type onlyWriter struct {
	io.Writer
}

type onlyReader struct {
	io.Reader
}
