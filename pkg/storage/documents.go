package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStore persists uploaded supporting documents on disk.
type DocumentStore struct {
	baseDir    string
	allowedExt map[string]struct{}
}

// NewDocumentStore ensures the base directory exists and returns a handle.
// allowedExtensions entries are lowercase and include the leading dot.
func NewDocumentStore(baseDir string, allowedExtensions []string) (*DocumentStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return &DocumentStore{baseDir: baseDir, allowedExt: allowed}, nil
}

// Allowed reports whether the original filename carries an accepted extension.
func (s *DocumentStore) Allowed(originalName string) bool {
	if len(s.allowedExt) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	_, ok := s.allowedExt[ext]
	return ok
}

// Save streams an uploaded document to disk under a generated unique name
// and returns the stored filename reference.
func (s *DocumentStore) Save(originalName string, r io.Reader) (string, error) {
	if !s.Allowed(originalName) {
		return "", fmt.Errorf("file type not allowed: %s", filepath.Ext(originalName))
	}
	name := generateName(filepath.Ext(originalName))
	path := s.resolve(name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return name, nil
}

// Open returns a read-only handle for a stored document.
func (s *DocumentStore) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return file, nil
}

// Remove deletes a stored document; missing files are not an error.
func (s *DocumentStore) Remove(filename string) error {
	err := os.Remove(s.resolve(filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove document: %w", err)
	}
	return nil
}

func (s *DocumentStore) resolve(filename string) string {
	// Base name only so a crafted reference cannot escape the upload dir.
	return filepath.Join(s.baseDir, filepath.Base(filename))
}

func generateName(ext string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("documents-%d%s", time.Now().UnixNano(), ext)
	}
	return fmt.Sprintf("documents-%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext)
}
