// Package ingest collects documents from the local filesystem for a batch.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/tradedocs-extractor/constants"
	"github.com/joseph-ayodele/tradedocs-extractor/internal/entity"
)

type FileResult struct {
	Path         string
	DocumentID   string
	Deduplicated bool
	HashHex      string
	Err          string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Batch is the outcome of loading a set of paths.
type Batch struct {
	Documents []entity.Document
	Results   []FileResult
	Stats     DirStats
}

// Loader reads documents, skipping byte-identical duplicates within one batch.
type Loader struct {
	SkipHidden bool
	logger     *slog.Logger
	seen       map[string]string // sha256 hex -> document id
}

func NewLoader(skipHidden bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{SkipHidden: skipHidden, logger: logger, seen: map[string]string{}}
}

// LoadPaths loads files in the order given. Directories are walked in lexical order.
func (l *Loader) LoadPaths(ctx context.Context, paths []string) (Batch, error) {
	var b Batch
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		if err := l.walk(ctx, p, &b); err != nil {
			return b, err
		}
	}
	l.logger.Info("ingest.batch.ok",
		"scanned", b.Stats.Scanned,
		"matched", b.Stats.Matched,
		"succeeded", b.Stats.Succeeded,
		"deduplicated", b.Stats.Deduplicated,
		"failed", b.Stats.Failed,
	)
	return b, nil
}

func (l *Loader) walk(ctx context.Context, root string, b *Batch) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("path is required")
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		b.Stats.Scanned++
		if walkErr != nil {
			b.Results = append(b.Results, FileResult{Path: path, Err: walkErr.Error()})
			b.Stats.Failed++
			return nil // continue walking
		}
		// the root itself is never treated as hidden
		if path != root && l.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if constants.KindFromName(path) == constants.UNSUPPORTED {
			// an explicitly named file is kept so the pipeline can report it
			if path != root {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk: %w", err)
	}
	sort.Strings(files)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.load(path, b)
	}
	return nil
}

func (l *Loader) load(path string, b *Batch) {
	b.Stats.Matched++
	doc, err := entity.LoadDocument(path)
	if err != nil {
		l.logger.Warn("ingest.file.failed", "path", path, "error", err)
		b.Results = append(b.Results, FileResult{Path: path, Err: err.Error()})
		b.Stats.Failed++
		return
	}
	sum := sha256.Sum256(doc.Content)
	hexHash := hex.EncodeToString(sum[:])
	if id, dup := l.seen[hexHash]; dup {
		l.logger.Info("ingest.file.deduplicated", "path", path, "document_id", id)
		b.Results = append(b.Results, FileResult{Path: path, DocumentID: id, Deduplicated: true, HashHex: hexHash})
		b.Stats.Deduplicated++
		b.Stats.Succeeded++
		return
	}
	l.seen[hexHash] = doc.ID
	b.Documents = append(b.Documents, doc)
	b.Results = append(b.Results, FileResult{Path: path, DocumentID: doc.ID, HashHex: hexHash})
	b.Stats.Succeeded++
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
