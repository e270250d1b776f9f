package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore(t.TempDir(), []string{".pdf", ".jpg"})
	require.NoError(t, err)
	return store
}

func TestDocumentStoreSaveAndOpen(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("transcript.pdf", bytes.NewBufferString("%PDF-1.4"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, "documents-"))
	require.Equal(t, ".pdf", filepath.Ext(name))

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(content))
}

func TestDocumentStoreRejectsDisallowedExtension(t *testing.T) {
	store := newTestStore(t)

	require.False(t, store.Allowed("malware.exe"))
	_, err := store.Save("malware.exe", bytes.NewBufferString("MZ"))
	require.Error(t, err)
}

func TestDocumentStoreResolveIgnoresPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDocumentStore(dir, nil)
	require.NoError(t, err)

	name, err := store.Save("notes.txt", bytes.NewBufferString("hello"))
	require.NoError(t, err)

	_, err = store.Open("../" + name)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDocumentStoreRemoveMissingFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Remove("documents-does-not-exist.pdf"))
}
