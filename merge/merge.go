package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

var (
	// ErrNoInputs reports a merge invoked with nothing to merge.
	ErrNoInputs = errors.New("no documents to merge")
	// ErrNoPagesRoot reports that no page-tree root exists in any input.
	ErrNoPagesRoot = errors.New("no Pages root found in any input")
	// ErrNoCatalog reports that no catalog exists in any input.
	ErrNoCatalog = errors.New("no Catalog found in any input")
)

// Config controls merging.
type Config struct {
	// Version is the composite document's header version.
	// Defaults to "1.5".
	Version string
	// BookmarkColor is the display color of generated bookmarks.
	BookmarkColor [3]float64
	Logger        observability.Logger
}

// DefaultBookmarkColor is the blue used for per-document bookmarks.
var DefaultBookmarkColor = [3]float64{0.0, 0.0, 1.0}

// Merger combines the object graphs of independently numbered
// documents into one composite document.
type Merger struct {
	cfg Config
}

func NewMerger(cfg Config) *Merger {
	if cfg.Version == "" {
		cfg.Version = "1.5"
	}
	if cfg.BookmarkColor == ([3]float64{}) {
		cfg.BookmarkColor = DefaultBookmarkColor
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Merger{cfg: cfg}
}

// accumulator is the running state threaded through the sequential
// fold over input documents.
type accumulator struct {
	offset   int // identifier space high-water mark
	docLabel int // increments once per input document with pages
	pages    []PageEntry
	objects  map[raw.ObjectRef]raw.Object
	forest   Forest
}

// rootCandidate is a root-equivalent object surviving consolidation.
type rootCandidate struct {
	ref  raw.ObjectRef
	dict *raw.DictObj
}

// Merge consumes docs in order and returns the composite document.
// Inputs are renumbered in place and must not be reused afterwards.
func (m *Merger) Merge(ctx context.Context, docs []*raw.Document) (*raw.Document, error) {
	if len(docs) == 0 {
		return nil, ErrNoInputs
	}

	acc := &accumulator{objects: make(map[raw.ObjectRef]raw.Object)}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.accumulate(acc, doc)
		m.cfg.Logger.Debug("input accumulated",
			observability.Int("index", i),
			observability.Int("max_id", acc.offset),
			observability.Int("pages", len(acc.pages)))
	}

	out, err := m.assemble(ctx, acc)
	if err != nil {
		return nil, err
	}
	m.cfg.Logger.Info("merge complete",
		observability.Int("documents", len(docs)),
		observability.Int("pages", len(acc.pages)),
		observability.Int("objects", len(out.Objects)))
	return out, nil
}

// accumulate shifts doc into a fresh identifier range, walks its
// pages, contributes its bookmark, and unions its objects into the
// accumulator.
func (m *Merger) accumulate(acc *accumulator, doc *raw.Document) {
	acc.offset = Shift(doc, acc.offset)

	pages := Pages(doc)
	if len(pages) > 0 {
		acc.docLabel++
		acc.forest.Add(&Bookmark{
			Title:  fmt.Sprintf("Page_%d", acc.docLabel),
			Color:  m.cfg.BookmarkColor,
			Target: pages[0].Ref,
		}, nil)
	}
	acc.pages = append(acc.pages, pages...)

	for ref, obj := range doc.Objects {
		acc.objects[ref] = obj
	}
}

// consolidateRoots folds over the accumulated objects in ascending
// identifier order (input order by construction) and reduces the
// root-equivalent objects to one catalog and one page-tree root. Pages
// are reinserted separately; source outlines are dropped outright.
func (m *Merger) consolidateRoots(acc *accumulator, out *raw.Document) (catalog, pagesRoot *rootCandidate) {
	for _, ref := range sortedRefs(acc.objects) {
		obj := acc.objects[ref]
		switch classify(obj) {
		case classCatalog:
			catalog = keepFirstIdentityLatestContent(catalog, ref, dictOf(obj))
		case classPages:
			pagesRoot = keepFirstIdentityEarliestFields(pagesRoot, ref, dictOf(obj))
		case classPage, classOutlines, classOutline:
			// Pages are reparented later; navigation trees never
			// survive a merge.
		default:
			out.Objects[ref] = obj
		}
	}
	return catalog, pagesRoot
}

// keepFirstIdentityLatestContent: the retained identifier is the first
// one encountered, the retained content is the last. The composite's
// catalog metadata therefore mirrors the final input.
func keepFirstIdentityLatestContent(prev *rootCandidate, ref raw.ObjectRef, dict *raw.DictObj) *rootCandidate {
	if dict == nil {
		return prev
	}
	if prev == nil {
		return &rootCandidate{ref: ref, dict: dict.Clone()}
	}
	return &rootCandidate{ref: prev.ref, dict: dict.Clone()}
}

// keepFirstIdentityEarliestFields: the retained identifier is the
// first one encountered and fields from later candidates are added
// only when absent, so earlier inputs win field conflicts. Count and
// Kids are overwritten wholesale during assembly regardless.
func keepFirstIdentityEarliestFields(prev *rootCandidate, ref raw.ObjectRef, dict *raw.DictObj) *rootCandidate {
	if dict == nil {
		return prev
	}
	merged := dict.Clone()
	if prev == nil {
		return &rootCandidate{ref: ref, dict: merged}
	}
	for _, key := range prev.dict.Keys() {
		v, _ := prev.dict.Get(key)
		merged.Set(key, v)
	}
	return &rootCandidate{ref: prev.ref, dict: merged}
}

// assemble re-parents pages under the consolidated page-tree root,
// finalizes the root objects and trailer, compacts identifiers, and
// materializes the bookmark forest.
func (m *Merger) assemble(ctx context.Context, acc *accumulator) (*raw.Document, error) {
	out := raw.NewDocument(m.cfg.Version)

	catalog, pagesRoot := m.consolidateRoots(acc, out)
	if pagesRoot == nil {
		return nil, ErrNoPagesRoot
	}

	for _, page := range acc.pages {
		dict := page.Dict.Clone()
		dict.Set(raw.NameLiteral("Parent"), raw.RefObj{R: pagesRoot.ref})
		out.Objects[page.Ref] = dict
	}

	if catalog == nil {
		return nil, ErrNoCatalog
	}

	kids := raw.NewArray()
	for _, page := range acc.pages {
		kids.Append(raw.RefObj{R: page.Ref})
	}
	pagesRoot.dict.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(len(acc.pages))))
	pagesRoot.dict.Set(raw.NameLiteral("Kids"), kids)
	out.Objects[pagesRoot.ref] = pagesRoot.dict

	catalog.dict.Set(raw.NameLiteral("Pages"), raw.RefObj{R: pagesRoot.ref})
	catalog.dict.Delete(raw.NameLiteral("Outlines"))
	out.Objects[catalog.ref] = catalog.dict

	out.Trailer.Set(raw.NameLiteral("Root"), raw.RefObj{R: catalog.ref})

	// Coarse upper bound; the compaction below assigns the real range.
	out.MaxID = len(out.Objects)

	mapping := Compact(out)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !acc.forest.Empty() {
		acc.forest.Remap(mapping)
		acc.forest.Resolve(func(ref raw.ObjectRef) bool {
			obj, ok := out.Objects[ref]
			return ok && classify(obj) == classPage
		})
	}
	if !acc.forest.Empty() {
		outlinesRef := acc.forest.Materialize(out)
		catalogRef := mapping[catalog.ref]
		if catalogDict := dictOf(out.Objects[catalogRef]); catalogDict != nil {
			catalogDict.Set(raw.NameLiteral("Outlines"), raw.RefObj{R: outlinesRef})
		}
	}

	return out, nil
}
