package merge

import "github.com/stijn577/pdft/ir/raw"

// PageEntry is one page node in document order.
type PageEntry struct {
	Ref  raw.ObjectRef
	Dict *raw.DictObj
}

// Pages enumerates every page reachable from doc's page-tree root in
// left-to-right document order, recursing through intermediate
// page-tree nodes. Kids are walked by reference only; Parent links are
// never followed, and revisits are cut off so reference cycles cannot
// loop.
func Pages(doc *raw.Document) []PageEntry {
	_, catalog, ok := doc.Root()
	if !ok {
		return nil
	}
	pagesObj, ok := catalog.Get(raw.NameLiteral("Pages"))
	if !ok {
		return nil
	}
	rootRef, ok := pagesObj.(raw.Reference)
	if !ok {
		return nil
	}

	var out []PageEntry
	visited := make(map[raw.ObjectRef]bool)
	var walk func(ref raw.ObjectRef)
	walk = func(ref raw.ObjectRef) {
		if visited[ref] {
			return
		}
		visited[ref] = true
		obj, ok := doc.Objects[ref]
		if !ok {
			return
		}
		dict := dictOf(obj)
		if dict == nil {
			return
		}
		switch classify(obj) {
		case classPage:
			out = append(out, PageEntry{Ref: ref, Dict: dict})
		case classPages:
			kidsObj, ok := dict.Get(raw.NameLiteral("Kids"))
			if !ok {
				return
			}
			kids, ok := kidsObj.(raw.Array)
			if !ok {
				return
			}
			for i := 0; i < kids.Len(); i++ {
				kid, _ := kids.Get(i)
				if kidRef, ok := kid.(raw.Reference); ok {
					walk(kidRef.Ref())
				}
			}
		}
	}
	walk(rootRef.Ref())
	return out
}
