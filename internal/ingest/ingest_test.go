package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lab-interpreter/internal/extract"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cbc.txt"), "Hb 6.0 g/dL")
	writeFile(t, filepath.Join(dir, "notes.docx"), "x")

	in := NewIngestor(nil)
	doc, err := in.ReadPath(filepath.Join(dir, "cbc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "cbc.txt", doc.Name)
	assert.Equal(t, "Hb 6.0 g/dL", string(doc.Data))

	_, err = in.ReadPath(filepath.Join(dir, "notes.docx"))
	assert.ErrorIs(t, err, ErrUnsupportedExt)

	in.MaxBytes = 4
	_, err = in.ReadPath(filepath.Join(dir, "cbc.txt"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "report a")
	writeFile(t, filepath.Join(root, "nested", "b.pdf"), "report b")
	writeFile(t, filepath.Join(root, "nested", "copy-of-a.txt"), "report a")
	writeFile(t, filepath.Join(root, "fail.png"), "report c")
	writeFile(t, filepath.Join(root, "skip.docx"), "ignored")
	writeFile(t, filepath.Join(root, ".hidden", "c.txt"), "hidden")

	var handled []string
	handle := func(_ context.Context, path string, doc extract.Document) error {
		if doc.Name == "fail.png" {
			return errors.New("boom")
		}
		handled = append(handled, doc.Name)
		return nil
	}

	results, stats, err := NewIngestor(nil).IngestDirectory(context.Background(), root, true, handle)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.txt", "b.pdf"}, handled)
	assert.EqualValues(t, 4, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.EqualValues(t, 1, stats.Failed)
	assert.Len(t, results, 4)
}

func TestIngestDirectory_RequiresRoot(t *testing.T) {
	_, _, err := NewIngestor(nil).IngestDirectory(context.Background(), " ", true, nil)
	assert.Error(t, err)
}

func TestWatch_InitialScanAndCreate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.txt"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := NewIngestor(nil).Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	assert.Equal(t, filepath.Join(root, "existing.txt"), next())

	writeFile(t, filepath.Join(root, "new.txt"), "new")
	assert.Equal(t, filepath.Join(root, "new.txt"), next())

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	_, _, err := NewIngestor(nil).Watch(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
