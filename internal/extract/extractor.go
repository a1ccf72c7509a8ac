package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/studyforge/examgen/internal/exam"
)

const defaultMaxBytes = 4 << 20 // 4 MiB of source text is plenty for one exam

// FileExtractor reads plain-text study documents (txt, md) from a root
// directory. Anything unreadable or empty is an extraction error: file
// problems indicate misconfigured input, never something worth retrying.
type FileExtractor struct {
	root     string
	maxBytes int64
	logger   zerolog.Logger
}

var _ exam.TextExtractor = (*FileExtractor)(nil)

func NewFileExtractor(root string, maxBytes int64, logger zerolog.Logger) *FileExtractor {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &FileExtractor{
		root:     root,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract returns the file's text and word count.
func (e *FileExtractor) Extract(ctx context.Context, fileName string) (*exam.SourceText, error) {
	if err := ctx.Err(); err != nil {
		return nil, &exam.ExtractionError{FileName: fileName, Err: err}
	}

	path, err := e.resolve(fileName)
	if err != nil {
		return nil, &exam.ExtractionError{FileName: fileName, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &exam.ExtractionError{FileName: fileName, Err: err}
	}
	if info.Size() > e.maxBytes {
		return nil, &exam.ExtractionError{FileName: fileName, Err: fmt.Errorf("file is %d bytes, limit is %d", info.Size(), e.maxBytes)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &exam.ExtractionError{FileName: fileName, Err: err}
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, &exam.ExtractionError{FileName: fileName, Err: errors.New("file contains no text")}
	}

	words := len(strings.Fields(text))
	e.logger.Debug().Str("file", fileName).Int("words", words).Msg("extracted source text")
	return &exam.SourceText{Text: text, WordCount: words}, nil
}

// resolve confines lookups to the extractor root.
func (e *FileExtractor) resolve(fileName string) (string, error) {
	if e.root == "" {
		return fileName, nil
	}
	clean := filepath.Clean(fileName)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("file name %q escapes the upload root", fileName)
	}
	return filepath.Join(e.root, clean), nil
}
