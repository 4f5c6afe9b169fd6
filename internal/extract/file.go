// Package extract turns document sources into raw text.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docsearch/internal/domain"
)

var _ domain.Extractor = (*FileExtractor)(nil)

// FileExtractor reads plain-text sources. A file path yields its contents;
// a directory path yields the concatenation of its .txt files in name order,
// covering multi-page exports where each page is a separate file.
type FileExtractor struct{}

// NewFileExtractor creates a file-based extractor.
func NewFileExtractor() *FileExtractor { return &FileExtractor{} }

// ExtractText returns the full text of the document source.
func (e *FileExtractor) ExtractText(_ context.Context, doc domain.Document) (string, error) {
	info, err := os.Stat(doc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", doc.Path, domain.ErrDocumentNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", doc.Path, err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", doc.Path, err)
		}
		return string(data), nil
	}

	entries, err := os.ReadDir(doc.Path)
	if err != nil {
		return "", fmt.Errorf("read dir %s: %w", doc.Path, err)
	}
	var pages []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		pages = append(pages, entry.Name())
	}
	sort.Strings(pages)

	var text strings.Builder
	for _, page := range pages {
		data, err := os.ReadFile(filepath.Join(doc.Path, page))
		if err != nil {
			return "", fmt.Errorf("read page %s: %w", page, err)
		}
		text.Write(data)
	}
	return text.String(), nil
}
