package writer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

// Config controls serialization.
type Config struct {
	Logger observability.Logger
}

// Writer serializes a raw.Document: header, body in ascending
// identifier order, classic xref table, trailer.
type Writer interface {
	Write(ctx context.Context, doc *raw.Document, w io.Writer) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte
}

func NewWriter(cfg Config) Writer {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &impl{cfg: cfg}
}

// Save writes doc to path. Failures carry the destination path.
func Save(ctx context.Context, doc *raw.Document, path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write output file %s: %w", path, err)
	}
	w := NewWriter(cfg)
	if err := w.Write(ctx, doc, f); err != nil {
		f.Close()
		return fmt.Errorf("write output file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output file %s: %w", path, err)
	}
	return nil
}
