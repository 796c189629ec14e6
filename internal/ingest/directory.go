package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// IngestDirectory walks root, filters by extension, skips hidden entries if
// requested, and passes each new document to handle. Files whose content was
// already seen in this walk are reported as deduplicated and not handled.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, skipHidden bool, handle Handler) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !i.Allowed(path) {
			return nil
		}
		stats.Matched++

		doc, err := i.ReadPath(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		hash := doc.Hash()
		if _, dup := seen[hash]; dup {
			i.logger.Info("ingest.deduplicated", "path", path, "hash", hash)
			results = append(results, FileResult{Path: path, HashHex: hash, Deduplicated: true})
			stats.Deduplicated++
			stats.Succeeded++
			return nil
		}
		seen[hash] = struct{}{}

		if err := handle(ctx, path, doc); err != nil {
			results = append(results, FileResult{Path: path, HashHex: hash, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{Path: path, HashHex: hash})
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
