package optimize

import (
	"context"
	"fmt"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

// Config selects compression passes. Every pass preserves references
// and never increases the object count.
type Config struct {
	// CompressStreams flate-encodes streams that carry no filter yet.
	CompressStreams bool
	// CompressionLevel is the zlib level for CompressStreams (1-9).
	CompressionLevel int
	// CombineIdenticalObjects collapses structurally identical
	// indirect objects onto the lowest identifier.
	CombineIdenticalObjects bool
	// ImageQuality, when 1-100, re-encodes oversized JPEG images at
	// that quality. 0 disables the image pass.
	ImageQuality int
	// ImageMaxDimension caps the longer image side in pixels when the
	// image pass runs. 0 leaves dimensions alone.
	ImageMaxDimension int

	Logger observability.Logger
}

// DefaultConfig mirrors a plain "compress" invocation: flate streams
// and collapse duplicates, leave image payloads untouched.
func DefaultConfig() Config {
	return Config{
		CompressStreams:         true,
		CompressionLevel:        9,
		CombineIdenticalObjects: true,
	}
}

type Optimizer struct {
	cfg Config
}

func New(cfg Config) *Optimizer {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Optimizer{cfg: cfg}
}

// Optimize runs the configured passes over doc in place.
func (o *Optimizer) Optimize(ctx context.Context, doc *raw.Document) error {
	if o.cfg.CombineIdenticalObjects {
		if err := o.combineIdenticalObjects(ctx, doc); err != nil {
			return fmt.Errorf("combine identical objects: %w", err)
		}
	}
	if o.cfg.CompressStreams {
		if err := o.compressStreams(ctx, doc); err != nil {
			return fmt.Errorf("compress streams: %w", err)
		}
	}
	if o.cfg.ImageQuality > 0 {
		if err := o.optimizeImages(ctx, doc); err != nil {
			return fmt.Errorf("optimize images: %w", err)
		}
	}
	return nil
}

// Compress applies the default passes, the reference-preserving
// transform handed documents before serialization.
func Compress(ctx context.Context, doc *raw.Document) error {
	return New(DefaultConfig()).Optimize(ctx, doc)
}
