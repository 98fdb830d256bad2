package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
	"github.com/stijn577/pdft/recovery"
	"github.com/stijn577/pdft/scanner"
	"github.com/stijn577/pdft/xref"
)

var (
	// ErrNotFound reports a missing or unreadable input file.
	ErrNotFound = errors.New("input file not found")
	// ErrMalformed reports a structurally invalid document.
	ErrMalformed = errors.New("malformed document")
)

// Config controls document loading.
type Config struct {
	// Recovery, when set, may downgrade per-object parse failures to
	// skips. The default (nil) fails the whole load.
	Recovery recovery.Strategy
	Logger   observability.Logger
}

// DocumentParser builds a raw.Document from serialized bytes using the
// xref table and the token scanner.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &DocumentParser{cfg: cfg}
}

// Load reads and parses the document at path.
func (p *DocumentParser) Load(ctx context.Context, path string) (*raw.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := p.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

var headerRe = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

// Parse builds a document from in-memory bytes.
func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	version := "1.5"
	if m := headerRe.FindSubmatch(data); m != nil {
		version = string(m[1])
	} else {
		return nil, fmt.Errorf("%w: missing %%PDF header", ErrMalformed)
	}

	resolved, err := xref.Resolve(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := raw.NewDocument(version)

	trailer, err := p.parseTrailer(data, resolved.TrailerPos)
	if err != nil {
		return nil, fmt.Errorf("%w: trailer: %v", ErrMalformed, err)
	}
	doc.Trailer = trailer

	for _, objNum := range resolved.Table.Objects() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if objNum == 0 {
			continue // free list head
		}
		offset, gen, found := resolved.Table.Lookup(objNum)
		if !found {
			continue
		}
		obj, err := p.parseIndirectObject(data, offset, objNum, gen)
		if err != nil {
			loc := recovery.Location{ByteOffset: offset, ObjectNum: objNum, ObjectGen: gen, Component: "parser"}
			if p.cfg.Recovery != nil && p.cfg.Recovery.OnError(err, loc) != recovery.ActionFail {
				p.cfg.Logger.Warn("skipping unparseable object",
					observability.Int("obj", objNum), observability.Error("err", err))
				continue
			}
			return nil, fmt.Errorf("%w: object %d: %v", ErrMalformed, objNum, err)
		}
		doc.Objects[raw.ObjectRef{Num: objNum, Gen: gen}] = obj
	}

	doc.MaxID = declaredMax(doc)
	p.cfg.Logger.Debug("document loaded",
		observability.Int("objects", len(doc.Objects)),
		observability.Int("max_id", doc.MaxID))
	return doc, nil
}

// declaredMax prefers the trailer Size entry (Size = highest object
// number + 1); a document whose Size undercounts its objects keeps the
// undercount, matching the declared-maximum offset policy.
func declaredMax(doc *raw.Document) int {
	if doc.Trailer != nil {
		if sizeObj, ok := doc.Trailer.Get(raw.NameLiteral("Size")); ok {
			if n, ok := sizeObj.(raw.Number); ok && n.IsInteger() && n.Int() > 0 {
				return int(n.Int()) - 1
			}
		}
	}
	max := 0
	for ref := range doc.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

func (p *DocumentParser) parseTrailer(data []byte, pos int64) (*raw.DictObj, error) {
	sc := scanner.New(data)
	if err := sc.Seek(pos); err != nil {
		return nil, err
	}
	obj, err := newObjectParser(sc).next()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(*raw.DictObj)
	if !ok {
		return nil, errors.New("trailer is not a dictionary")
	}
	return dict, nil
}

func (p *DocumentParser) parseIndirectObject(data []byte, offset int64, num, gen int) (raw.Object, error) {
	sc := scanner.New(data)
	if err := sc.Seek(offset); err != nil {
		return nil, err
	}
	op := newObjectParser(sc)

	gotNum, err := op.expectInteger()
	if err != nil {
		return nil, fmt.Errorf("object header: %w", err)
	}
	gotGen, err := op.expectInteger()
	if err != nil {
		return nil, fmt.Errorf("object header: %w", err)
	}
	if err := op.expectKeyword("obj"); err != nil {
		return nil, err
	}
	if int(gotNum) != num || int(gotGen) != gen {
		return nil, fmt.Errorf("object header mismatch: want %d %d, got %d %d", num, gen, gotNum, gotGen)
	}
	return op.next()
}
