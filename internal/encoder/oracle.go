package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"deckforge/internal/logging"
)

// PDFOracle converts every slide at the requested quality and assembles the
// PDF at Output, reporting its size. Each call overwrites the previous
// artifact, so the file on disk always reflects the last quality measured.
type PDFOracle struct {
	Slides    []string
	WorkDir   string
	Output    string
	Converter Converter
	Assembler Assembler
	Logger    *slog.Logger
}

// EncodeAndMeasure implements sizesearch.Oracle.
func (o *PDFOracle) EncodeAndMeasure(ctx context.Context, quality int) (int64, error) {
	if err := os.MkdirAll(o.WorkDir, 0o755); err != nil {
		return 0, fmt.Errorf("create work dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(o.Output), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	jpegs := make([]string, 0, len(o.Slides))
	for idx, slide := range o.Slides {
		dst := filepath.Join(o.WorkDir, fmt.Sprintf("%02d.jpg", idx+1))
		if err := o.Converter.Convert(ctx, slide, dst, quality); err != nil {
			return 0, err
		}
		jpegs = append(jpegs, dst)
	}
	size, err := o.Assembler.Assemble(ctx, jpegs, o.Output)
	if err != nil {
		return 0, err
	}
	logging.NewComponentLogger(o.Logger, "encoder").Debug("pdf measured",
		logging.Int("quality", quality),
		logging.Int64("size_bytes", size))
	return size, nil
}
