package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/studyforge/examgen/internal/exam"
)

func newTestExtractor(t *testing.T, maxBytes int64) (*FileExtractor, string) {
	t.Helper()
	root := t.TempDir()
	return NewFileExtractor(root, maxBytes, zerolog.New(io.Discard)), root
}

func TestExtractReadsText(t *testing.T) {
	e, root := newTestExtractor(t, 0)
	content := "Osmosis moves water across a membrane.\n\nDiffusion moves solutes.\n"
	assert.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte(content), 0o644))

	src, err := e.Extract(context.Background(), "notes.txt")

	assert.NoError(t, err)
	assert.Equal(t, 9, src.WordCount)
	assert.Contains(t, src.Text, "Diffusion")
}

func TestExtractMissingFile(t *testing.T) {
	e, _ := newTestExtractor(t, 0)

	_, err := e.Extract(context.Background(), "absent.txt")

	var ee *exam.ExtractionError
	assert.ErrorAs(t, err, &ee)
	assert.Equal(t, "absent.txt", ee.FileName)
}

func TestExtractEmptyFile(t *testing.T) {
	e, root := newTestExtractor(t, 0)
	assert.NoError(t, os.WriteFile(filepath.Join(root, "blank.txt"), []byte("  \n\t"), 0o644))

	_, err := e.Extract(context.Background(), "blank.txt")

	var ee *exam.ExtractionError
	assert.ErrorAs(t, err, &ee)
}

func TestExtractSizeLimit(t *testing.T) {
	e, root := newTestExtractor(t, 8)
	assert.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte("well over eight bytes"), 0o644))

	_, err := e.Extract(context.Background(), "big.txt")

	var ee *exam.ExtractionError
	assert.ErrorAs(t, err, &ee)
}

func TestExtractRejectsEscapingPaths(t *testing.T) {
	e, _ := newTestExtractor(t, 0)

	for _, name := range []string{"../secrets.txt", "/etc/passwd"} {
		_, err := e.Extract(context.Background(), name)
		var ee *exam.ExtractionError
		assert.ErrorAs(t, err, &ee, name)
	}
}
