package merge

import (
	"sort"

	"github.com/stijn577/pdft/ir/raw"
)

// Shift moves every identifier in doc upward by offset and rewrites
// all references to match. Generations are normalized to 0. It returns
// the document's new declared maximum identifier; when the document
// declares a maximum smaller than identifiers actually present, the
// declared value still drives the result, so malformed inputs may
// produce colliding spaces downstream.
func Shift(doc *raw.Document, offset int) int {
	if offset != 0 {
		rewriteDocument(doc, func(r raw.ObjectRef) raw.ObjectRef {
			return raw.ObjectRef{Num: r.Num + offset, Gen: 0}
		})
	} else {
		// Offset 0 still normalizes generations.
		rewriteDocument(doc, func(r raw.ObjectRef) raw.ObjectRef {
			return raw.ObjectRef{Num: r.Num, Gen: 0}
		})
	}
	doc.MaxID += offset
	return doc.MaxID
}

// Compact reassigns every identifier to the dense range [1, count],
// preserving ascending identifier order, and rewrites all references.
// It returns the old-to-new mapping so callers can retarget anything
// held outside the graph. References to identifiers absent from the
// graph are left untouched.
func Compact(doc *raw.Document) map[raw.ObjectRef]raw.ObjectRef {
	ordered := sortedRefs(doc.Objects)
	mapping := make(map[raw.ObjectRef]raw.ObjectRef, len(ordered))
	for i, ref := range ordered {
		mapping[ref] = raw.ObjectRef{Num: i + 1, Gen: 0}
	}
	rewriteDocument(doc, func(r raw.ObjectRef) raw.ObjectRef {
		if to, ok := mapping[r]; ok {
			return to
		}
		return r
	})
	doc.MaxID = len(ordered)
	return mapping
}

func sortedRefs(objects map[raw.ObjectRef]raw.Object) []raw.ObjectRef {
	refs := make([]raw.ObjectRef, 0, len(objects))
	for ref := range objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}
