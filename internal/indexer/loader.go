package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/models"
)

// TextExtractor turns a file into text.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// LoadDocuments walks dir recursively and loads each regular file whose extension
// is in allowedExts (all files when empty), in lexical path order. Sources are
// slash-separated paths relative to dir.
func LoadDocuments(ctx context.Context, dir string, allowedExts []string, extractor TextExtractor) ([]*models.Document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var docs []*models.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are loaded.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}

		text, err := extractor.Extract(path)
		if err != nil {
			return fmt.Errorf("extract %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		source := filepath.ToSlash(rel)
		docs = append(docs, &models.Document{
			ID:      fileid.DocID(source),
			Source:  source,
			Content: text,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ExtensionAllowed reports whether ext (with or without the dot) is in allowed, case-insensitively.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
