package optimize

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

// optimizeImages re-encodes DCT (JPEG) image XObjects at the
// configured quality, downscaling any whose longer side exceeds
// ImageMaxDimension. A re-encoded payload only replaces the original
// when it is smaller. The stream dictionary is rewritten to describe
// the new payload: Width, Height, Length, BitsPerComponent, and a
// ColorSpace matching the components the encoder actually produced.
func (o *Optimizer) optimizeImages(ctx context.Context, doc *raw.Document) error {
	processed := 0
	for _, ref := range sortedRefs(doc.Objects) {
		if err := ctx.Err(); err != nil {
			return err
		}
		stream, ok := doc.Objects[ref].(*raw.StreamObj)
		if !ok || !isDCTImage(stream.Dict) {
			continue
		}
		img, err := jpeg.Decode(bytes.NewReader(stream.Data))
		if err != nil {
			o.cfg.Logger.Warn("undecodable image skipped",
				observability.Int("obj", ref.Num), observability.Error("err", err))
			continue
		}
		if _, cmyk := img.(*image.CMYK); cmyk {
			// 4-component JPEGs cannot be re-encoded without a model
			// change; leave them untouched.
			continue
		}
		img = o.downscale(img)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.cfg.ImageQuality}); err != nil {
			continue
		}
		if buf.Len() >= len(stream.Data) {
			continue
		}
		bounds := img.Bounds()
		stream.Data = buf.Bytes()
		stream.Dict.Set(raw.NameLiteral("Width"), raw.NumberInt(int64(bounds.Dx())))
		stream.Dict.Set(raw.NameLiteral("Height"), raw.NumberInt(int64(bounds.Dy())))
		stream.Dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(buf.Len())))
		stream.Dict.Set(raw.NameLiteral("BitsPerComponent"), raw.NumberInt(8))
		if isGray(img) {
			stream.Dict.Set(raw.NameLiteral("ColorSpace"), raw.NameLiteral("DeviceGray"))
		} else {
			stream.Dict.Set(raw.NameLiteral("ColorSpace"), raw.NameLiteral("DeviceRGB"))
		}
		processed++
	}
	o.cfg.Logger.Debug("images re-encoded", observability.Int("count", processed))
	return nil
}

// downscale keeps the source's color model so grayscale input yields a
// single-component JPEG again.
func (o *Optimizer) downscale(img image.Image) image.Image {
	max := o.cfg.ImageMaxDimension
	if max <= 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longer := w
	if h > longer {
		longer = h
	}
	if longer <= max {
		return img
	}
	scale := float64(max) / float64(longer)
	rect := image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale))
	var dst draw.Image
	if isGray(img) {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewRGBA(rect)
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

func isDCTImage(dict *raw.DictObj) bool {
	sub, ok := dict.Get(raw.NameLiteral("Subtype"))
	if !ok {
		return false
	}
	if name, ok := sub.(raw.Name); !ok || name.Value() != "Image" {
		return false
	}
	filter, ok := dict.Get(raw.NameLiteral("Filter"))
	if !ok {
		return false
	}
	switch f := filter.(type) {
	case raw.Name:
		return f.Value() == "DCTDecode"
	case raw.Array:
		// Only a bare DCT chain can be round-tripped here.
		if f.Len() != 1 {
			return false
		}
		item, _ := f.Get(0)
		name, ok := item.(raw.Name)
		return ok && name.Value() == "DCTDecode"
	}
	return false
}
