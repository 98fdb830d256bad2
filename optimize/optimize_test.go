package optimize

import (
	"bytes"
	"compress/zlib"
	"context"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stijn577/pdft/filters"
	"github.com/stijn577/pdft/ir/raw"
)

func TestCompressStreamsEncodesUnfiltered(t *testing.T) {
	doc := raw.NewDocument("1.5")
	payload := []byte(strings.Repeat("q 1 0 0 1 0 0 cm Q\n", 50))
	stream := raw.NewStream(raw.Dict(), append([]byte(nil), payload...))
	ref := doc.Add(stream)

	o := New(Config{CompressStreams: true, CompressionLevel: 9})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	got := doc.Objects[ref].(*raw.StreamObj)
	filterObj, ok := got.Dict.Get(raw.NameLiteral("Filter"))
	if !ok || filterObj.(raw.Name).Value() != "FlateDecode" {
		t.Fatalf("Filter = %v", filterObj)
	}
	lenObj, _ := got.Dict.Get(raw.NameLiteral("Length"))
	if lenObj.(raw.Number).Int() != int64(len(got.Data)) {
		t.Errorf("Length %v does not match payload %d", lenObj, len(got.Data))
	}
	if len(got.Data) >= len(payload) {
		t.Errorf("payload did not shrink: %d -> %d", len(payload), len(got.Data))
	}

	pipe := filters.NewPipeline([]filters.Decoder{filters.NewFlateDecoder()}, filters.Limits{})
	decoded, err := pipe.Decode(context.Background(), got.Data, []string{"FlateDecode"}, nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip lost data")
	}
}

func TestCompressStreamsSkipsFiltered(t *testing.T) {
	doc := raw.NewDocument("1.5")
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("DCTDecode"))
	original := []byte("jpeg bytes")
	ref := doc.Add(raw.NewStream(dict, append([]byte(nil), original...)))

	o := New(Config{CompressStreams: true, CompressionLevel: 9})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if !bytes.Equal(doc.Objects[ref].(*raw.StreamObj).Data, original) {
		t.Error("filtered stream must be left alone")
	}
}

func TestCompressStreamsNeverGrows(t *testing.T) {
	// Tiny incompressible payload: the flate result is bigger and must
	// be discarded.
	doc := raw.NewDocument("1.5")
	ref := doc.Add(raw.NewStream(raw.Dict(), []byte{0x01}))

	o := New(Config{CompressStreams: true, CompressionLevel: 9})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	got := doc.Objects[ref].(*raw.StreamObj)
	if len(got.Data) != 1 {
		t.Errorf("payload grew to %d bytes", len(got.Data))
	}
	if _, ok := got.Dict.Get(raw.NameLiteral("Filter")); ok {
		t.Error("no filter should be set when the encoding is discarded")
	}
}

func TestRecompressFlatedStreamAtConfiguredLevel(t *testing.T) {
	payload := []byte(strings.Repeat("0 0 612 792 re W n\n", 200))
	// Stored (uncompressed) zlib blocks, as a weak producer would emit.
	var enc bytes.Buffer
	zw, err := zlib.NewWriterLevel(&enc, zlib.NoCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	doc := raw.NewDocument("1.5")
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))
	dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(enc.Len())))
	ref := doc.Add(raw.NewStream(dict, enc.Bytes()))

	o := New(Config{CompressStreams: true, CompressionLevel: 9})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	got := doc.Objects[ref].(*raw.StreamObj)
	if len(got.Data) >= enc.Len() {
		t.Fatalf("flated stream not recompressed: %d -> %d", enc.Len(), len(got.Data))
	}
	filterObj, _ := got.Dict.Get(raw.NameLiteral("Filter"))
	if filterObj.(raw.Name).Value() != "FlateDecode" {
		t.Errorf("Filter = %v", filterObj)
	}
	pipe := filters.NewPipeline([]filters.Decoder{filters.NewFlateDecoder()}, filters.Limits{})
	decoded, err := pipe.Decode(context.Background(), got.Data, []string{"FlateDecode"}, nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("recompression lost data")
	}
}

func TestRecompressLeavesDecodeParmsAlone(t *testing.T) {
	encoded, err := filters.FlateEncode([]byte("predicted rows"), 9)
	if err != nil {
		t.Fatal(err)
	}
	doc := raw.NewDocument("1.5")
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))
	parms := raw.Dict()
	parms.Set(raw.NameLiteral("Predictor"), raw.NumberInt(12))
	dict.Set(raw.NameLiteral("DecodeParms"), parms)
	ref := doc.Add(raw.NewStream(dict, append([]byte(nil), encoded...)))

	o := New(Config{CompressStreams: true, CompressionLevel: 9})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	got := doc.Objects[ref].(*raw.StreamObj)
	if !bytes.Equal(got.Data, encoded) {
		t.Error("stream with decode parameters must be left alone")
	}
	if _, ok := got.Dict.Get(raw.NameLiteral("DecodeParms")); !ok {
		t.Error("DecodeParms dropped from an untouched stream")
	}
}

// grayImageDoc wraps a JPEG-encoded grayscale gradient in an image
// XObject stream declaring DeviceGray.
func grayImageDoc(t *testing.T, size int) (*raw.Document, raw.ObjectRef) {
	t.Helper()
	src := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			src.Pix[y*src.Stride+x] = uint8((x + y) % 251)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}

	doc := raw.NewDocument("1.5")
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("Image"))
	dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("DCTDecode"))
	dict.Set(raw.NameLiteral("ColorSpace"), raw.NameLiteral("DeviceGray"))
	dict.Set(raw.NameLiteral("BitsPerComponent"), raw.NumberInt(8))
	dict.Set(raw.NameLiteral("Width"), raw.NumberInt(int64(size)))
	dict.Set(raw.NameLiteral("Height"), raw.NumberInt(int64(size)))
	dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(buf.Len())))
	ref := doc.Add(raw.NewStream(dict, buf.Bytes()))
	return doc, ref
}

func TestOptimizeImagesKeepsGrayscaleThroughDownscale(t *testing.T) {
	doc, ref := grayImageDoc(t, 400)

	o := New(Config{ImageQuality: 40, ImageMaxDimension: 64})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	got := doc.Objects[ref].(*raw.StreamObj)
	reencoded, err := jpeg.Decode(bytes.NewReader(got.Data))
	if err != nil {
		t.Fatalf("re-encoded payload undecodable: %v", err)
	}
	if _, ok := reencoded.(*image.Gray); !ok {
		t.Fatalf("payload re-encoded as %T, want single-component grayscale", reencoded)
	}
	csObj, _ := got.Dict.Get(raw.NameLiteral("ColorSpace"))
	if csObj.(raw.Name).Value() != "DeviceGray" {
		t.Errorf("ColorSpace = %v, does not match payload", csObj)
	}
	wObj, _ := got.Dict.Get(raw.NameLiteral("Width"))
	hObj, _ := got.Dict.Get(raw.NameLiteral("Height"))
	if wObj.(raw.Number).Int() != 64 || hObj.(raw.Number).Int() != 64 {
		t.Errorf("dimensions %vx%v, want 64x64", wObj, hObj)
	}
	lenObj, _ := got.Dict.Get(raw.NameLiteral("Length"))
	if lenObj.(raw.Number).Int() != int64(len(got.Data)) {
		t.Errorf("Length %v does not match payload %d", lenObj, len(got.Data))
	}
}

func TestOptimizeImagesColorDeclaresRGB(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			i := y*src.Stride + x*4
			src.Pix[i] = uint8(x % 256)
			src.Pix[i+1] = uint8(y % 256)
			src.Pix[i+2] = uint8((x * y) % 256)
			src.Pix[i+3] = 0xFF
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	doc := raw.NewDocument("1.5")
	dict := raw.Dict()
	dict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("Image"))
	dict.Set(raw.NameLiteral("Filter"), raw.NameLiteral("DCTDecode"))
	dict.Set(raw.NameLiteral("ColorSpace"), raw.NameLiteral("DeviceRGB"))
	dict.Set(raw.NameLiteral("Width"), raw.NumberInt(400))
	dict.Set(raw.NameLiteral("Height"), raw.NumberInt(400))
	ref := doc.Add(raw.NewStream(dict, buf.Bytes()))

	o := New(Config{ImageQuality: 40, ImageMaxDimension: 64})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	got := doc.Objects[ref].(*raw.StreamObj)
	reencoded, err := jpeg.Decode(bytes.NewReader(got.Data))
	if err != nil {
		t.Fatalf("re-encoded payload undecodable: %v", err)
	}
	if _, ok := reencoded.(*image.Gray); ok {
		t.Fatal("color image collapsed to grayscale")
	}
	csObj, _ := got.Dict.Get(raw.NameLiteral("ColorSpace"))
	if csObj.(raw.Name).Value() != "DeviceRGB" {
		t.Errorf("ColorSpace = %v", csObj)
	}
}

func TestCombineIdenticalObjects(t *testing.T) {
	doc := raw.NewDocument("1.5")
	font := func() *raw.DictObj {
		d := raw.Dict()
		d.Set(raw.NameLiteral("Type"), raw.NameLiteral("Font"))
		d.Set(raw.NameLiteral("BaseFont"), raw.NameLiteral("Helvetica"))
		return d
	}
	a := doc.Add(font())
	b := doc.Add(font())

	holder := raw.Dict()
	holder.Set(raw.NameLiteral("F1"), raw.RefObj{R: a})
	holder.Set(raw.NameLiteral("F2"), raw.RefObj{R: b})
	holderRef := doc.Add(holder)

	o := New(Config{CombineIdenticalObjects: true})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if _, ok := doc.Objects[b]; ok {
		t.Error("duplicate object survived")
	}
	got := doc.Objects[holderRef].(*raw.DictObj)
	f2, _ := got.Get(raw.NameLiteral("F2"))
	if f2.(raw.Reference).Ref() != a {
		t.Errorf("F2 not redirected: %v", f2)
	}
}

func TestCombineIteratesToFixpoint(t *testing.T) {
	// Two parents each pointing at their own copy of the same child.
	// Collapsing the children makes the parents identical too.
	doc := raw.NewDocument("1.5")
	child := func() *raw.DictObj {
		d := raw.Dict()
		d.Set(raw.NameLiteral("V"), raw.NumberInt(7))
		return d
	}
	c1 := doc.Add(child())
	c2 := doc.Add(child())
	parent := func(c raw.ObjectRef) *raw.DictObj {
		d := raw.Dict()
		d.Set(raw.NameLiteral("Kid"), raw.RefObj{R: c})
		return d
	}
	doc.Add(parent(c1))
	doc.Add(parent(c2))

	o := New(Config{CombineIdenticalObjects: true})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(doc.Objects) != 2 {
		t.Errorf("expected 2 objects after fixpoint, got %d", len(doc.Objects))
	}
}

func TestCombineDistinguishesDifferentObjects(t *testing.T) {
	doc := raw.NewDocument("1.5")
	a := raw.Dict()
	a.Set(raw.NameLiteral("V"), raw.NumberInt(1))
	b := raw.Dict()
	b.Set(raw.NameLiteral("V"), raw.NumberInt(2))
	doc.Add(a)
	doc.Add(b)

	o := New(Config{CombineIdenticalObjects: true})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(doc.Objects) != 2 {
		t.Errorf("distinct objects collapsed: %d left", len(doc.Objects))
	}
}

func TestCombineRewritesTrailer(t *testing.T) {
	doc := raw.NewDocument("1.5")
	cat := func() *raw.DictObj {
		d := raw.Dict()
		d.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
		return d
	}
	a := doc.Add(cat())
	b := doc.Add(cat())
	doc.Trailer.Set(raw.NameLiteral("Root"), raw.RefObj{R: b})

	o := New(Config{CombineIdenticalObjects: true})
	if err := o.Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	rootObj, _ := doc.Trailer.Get(raw.NameLiteral("Root"))
	if rootObj.(raw.Reference).Ref() != a {
		t.Errorf("trailer Root not redirected: %v", rootObj)
	}
}

func TestOptimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := raw.NewDocument("1.5")
	doc.Add(raw.NewStream(raw.Dict(), []byte("data")))
	if err := New(DefaultConfig()).Optimize(ctx, doc); err == nil {
		t.Fatal("expected context error")
	}
}
