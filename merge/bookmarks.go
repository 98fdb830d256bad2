package merge

import "github.com/stijn577/pdft/ir/raw"

// Bookmark is a transient navigation entry created during merge and
// materialized as outline objects just before serialization.
type Bookmark struct {
	Title    string
	Color    [3]float64
	Format   int
	Target   raw.ObjectRef
	Children []*Bookmark
}

// Forest holds top-level bookmarks in insertion order.
type Forest struct {
	roots []*Bookmark
}

// Add appends b under parent, or at the top level when parent is nil.
func (f *Forest) Add(b *Bookmark, parent *Bookmark) {
	if parent != nil {
		parent.Children = append(parent.Children, b)
		return
	}
	f.roots = append(f.roots, b)
}

func (f *Forest) Empty() bool { return len(f.roots) == 0 }

// Remap routes every bookmark target through mapping. Targets absent
// from the mapping are left as they are and caught by Resolve.
func (f *Forest) Remap(mapping map[raw.ObjectRef]raw.ObjectRef) {
	var visit func(items []*Bookmark)
	visit = func(items []*Bookmark) {
		for _, b := range items {
			if to, ok := mapping[b.Target]; ok {
				b.Target = to
			}
			visit(b.Children)
		}
	}
	visit(f.roots)
}

// Resolve repairs bookmarks whose target no longer names a valid page:
// the next sibling's target is tried first, then the parent's, and a
// bookmark with neither is dropped together with its subtree.
func (f *Forest) Resolve(valid func(raw.ObjectRef) bool) {
	f.roots = resolveSiblings(f.roots, nil, valid)
}

func resolveSiblings(items []*Bookmark, parent *Bookmark, valid func(raw.ObjectRef) bool) []*Bookmark {
	// Fix up right-to-left so a repaired next sibling can donate its
	// target to the one before it.
	kept := make([]*Bookmark, 0, len(items))
	var nextValid *Bookmark
	for i := len(items) - 1; i >= 0; i-- {
		b := items[i]
		if !valid(b.Target) {
			switch {
			case nextValid != nil:
				b.Target = nextValid.Target
			case parent != nil && valid(parent.Target):
				b.Target = parent.Target
			default:
				continue // drop
			}
		}
		b.Children = resolveSiblings(b.Children, b, valid)
		nextValid = b
		kept = append(kept, b)
	}
	// Undo the reverse walk.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// Materialize converts the forest into linked outline-item objects
// under a fresh Outlines root added to doc, returning the root's
// identifier. The forest must be non-empty.
func (f *Forest) Materialize(doc *raw.Document) raw.ObjectRef {
	rootRef := doc.Add(raw.Dict()) // placeholder, filled below
	first, last, count := materializeSiblings(doc, f.roots, rootRef)

	root := raw.Dict()
	root.Set(raw.NameLiteral("Type"), raw.NameLiteral("Outlines"))
	root.Set(raw.NameLiteral("First"), raw.RefObj{R: first})
	root.Set(raw.NameLiteral("Last"), raw.RefObj{R: last})
	root.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(count)))
	doc.Objects[rootRef] = root
	return rootRef
}

func materializeSiblings(doc *raw.Document, items []*Bookmark, parent raw.ObjectRef) (first, last raw.ObjectRef, count int) {
	refs := make([]raw.ObjectRef, len(items))
	for i := range items {
		refs[i] = doc.Add(raw.Dict())
	}
	total := len(items)
	for i, b := range items {
		item := raw.Dict()
		item.Set(raw.NameLiteral("Title"), raw.Str([]byte(b.Title)))
		item.Set(raw.NameLiteral("Parent"), raw.RefObj{R: parent})
		if i > 0 {
			item.Set(raw.NameLiteral("Prev"), raw.RefObj{R: refs[i-1]})
		}
		if i < len(items)-1 {
			item.Set(raw.NameLiteral("Next"), raw.RefObj{R: refs[i+1]})
		}
		if len(b.Children) > 0 {
			f, l, c := materializeSiblings(doc, b.Children, refs[i])
			item.Set(raw.NameLiteral("First"), raw.RefObj{R: f})
			item.Set(raw.NameLiteral("Last"), raw.RefObj{R: l})
			item.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(c)))
			total += c
		}
		item.Set(raw.NameLiteral("C"), raw.NewArray(
			raw.NumberFloat(b.Color[0]),
			raw.NumberFloat(b.Color[1]),
			raw.NumberFloat(b.Color[2]),
		))
		item.Set(raw.NameLiteral("F"), raw.NumberInt(int64(b.Format)))
		item.Set(raw.NameLiteral("Dest"), raw.NewArray(
			raw.RefObj{R: b.Target},
			raw.NameLiteral("Fit"),
		))
		doc.Objects[refs[i]] = item
	}
	return refs[0], refs[len(refs)-1], total
}
