package optimize

import (
	"context"

	"github.com/stijn577/pdft/filters"
	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

// compressStreams flate-encodes every stream that declares no filter
// and re-encodes already-flated streams at the configured level.
// Streams with other filters, filter chains, or decode parameters are
// left alone; a result that is not smaller is discarded so the pass
// never grows the document.
func (o *Optimizer) compressStreams(ctx context.Context, doc *raw.Document) error {
	pipe := filters.NewPipeline([]filters.Decoder{filters.NewFlateDecoder()}, filters.Limits{})
	compressed := 0
	var saved int64
	for _, ref := range sortedRefs(doc.Objects) {
		if err := ctx.Err(); err != nil {
			return err
		}
		stream, ok := doc.Objects[ref].(*raw.StreamObj)
		if !ok {
			continue
		}

		payload := stream.Data
		if _, filtered := stream.Dict.Get(raw.NameLiteral("Filter")); filtered {
			if !isBareFlate(stream.Dict) {
				continue
			}
			decoded, err := pipe.Decode(ctx, stream.Data, []string{"FlateDecode"}, nil)
			if err != nil {
				o.cfg.Logger.Warn("stream decode failed",
					observability.Int("obj", ref.Num), observability.Error("err", err))
				continue
			}
			payload = decoded
		}

		encoded, err := filters.FlateEncode(payload, o.cfg.CompressionLevel)
		if err != nil {
			o.cfg.Logger.Warn("stream compression failed",
				observability.Int("obj", ref.Num), observability.Error("err", err))
			continue
		}
		if len(encoded) >= len(stream.Data) {
			continue
		}
		saved += int64(len(stream.Data) - len(encoded))
		stream.Data = encoded
		stream.Dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))
		stream.Dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(encoded))))
		stream.Dict.Delete(raw.NameLiteral("DecodeParms"))
		compressed++
	}
	o.cfg.Logger.Debug("streams compressed",
		observability.Int("count", compressed),
		observability.Int64("bytes_saved", saved))
	return nil
}

// isBareFlate reports whether the stream declares exactly FlateDecode
// with no decode parameters, the only filtered form this pass can
// decode and faithfully re-encode.
func isBareFlate(dict *raw.DictObj) bool {
	if _, ok := dict.Get(raw.NameLiteral("DecodeParms")); ok {
		return false
	}
	filter, ok := dict.Get(raw.NameLiteral("Filter"))
	if !ok {
		return false
	}
	switch f := filter.(type) {
	case raw.Name:
		return f.Value() == "FlateDecode"
	case raw.Array:
		if f.Len() != 1 {
			return false
		}
		item, _ := f.Get(0)
		name, ok := item.(raw.Name)
		return ok && name.Value() == "FlateDecode"
	}
	return false
}
