package optimize

import (
	"context"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

// combineIdenticalObjects collapses structurally identical indirect
// objects onto the lowest identifier and rewrites every reference to
// the removed duplicates. Collapsing can make further objects
// identical, so the pass iterates to a fixpoint.
func (o *Optimizer) combineIdenticalObjects(ctx context.Context, doc *raw.Document) error {
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen := make(map[string]raw.ObjectRef)
		replacements := make(map[raw.ObjectRef]raw.ObjectRef)
		for _, ref := range sortedRefs(doc.Objects) {
			h := hashObject(doc.Objects[ref])
			if original, ok := seen[h]; ok {
				replacements[ref] = original
			} else {
				seen[h] = ref
			}
		}
		if len(replacements) == 0 {
			break
		}
		applyReplacements(doc, replacements)
		for dup := range replacements {
			delete(doc.Objects, dup)
		}
		removed += len(replacements)
	}
	o.cfg.Logger.Debug("identical objects combined", observability.Int("removed", removed))
	return nil
}

func applyReplacements(doc *raw.Document, replacements map[raw.ObjectRef]raw.ObjectRef) {
	for _, obj := range doc.Objects {
		replaceRefs(obj, replacements)
	}
	if doc.Trailer != nil {
		replaceRefs(doc.Trailer, replacements)
	}
}

func replaceRefs(obj raw.Object, replacements map[raw.ObjectRef]raw.ObjectRef) raw.Object {
	switch v := obj.(type) {
	case raw.RefObj:
		if to, ok := replacements[v.R]; ok {
			return raw.RefObj{R: to}
		}
		return v
	case *raw.ArrayObj:
		for i, item := range v.Items {
			v.Items[i] = replaceRefs(item, replacements)
		}
		return v
	case *raw.DictObj:
		for _, key := range v.Keys() {
			val, _ := v.Get(key)
			v.Set(key, replaceRefs(val, replacements))
		}
		return v
	case *raw.StreamObj:
		replaceRefs(v.Dict, replacements)
		return v
	default:
		return obj
	}
}
