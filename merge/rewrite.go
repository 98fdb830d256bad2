package merge

import "github.com/stijn577/pdft/ir/raw"

// rewriteRefs walks obj and maps every reference through fn, however
// deeply nested in arrays, dictionaries, or stream dictionaries.
// Containers are mutated in place; the (possibly replaced) object is
// returned. Only references are followed as values, never resolved,
// so parent/child reference cycles are safe.
func rewriteRefs(obj raw.Object, fn func(raw.ObjectRef) raw.ObjectRef) raw.Object {
	switch v := obj.(type) {
	case raw.RefObj:
		return raw.RefObj{R: fn(v.R)}
	case *raw.ArrayObj:
		for i, item := range v.Items {
			v.Items[i] = rewriteRefs(item, fn)
		}
		return v
	case *raw.DictObj:
		for _, key := range v.Keys() {
			val, _ := v.Get(key)
			v.Set(key, rewriteRefs(val, fn))
		}
		return v
	case *raw.StreamObj:
		rewriteRefs(v.Dict, fn)
		return v
	default:
		return obj
	}
}

// rewriteDocument applies fn to every identifier in the document: the
// object map keys, all reference values, and the trailer.
func rewriteDocument(doc *raw.Document, fn func(raw.ObjectRef) raw.ObjectRef) {
	rebuilt := make(map[raw.ObjectRef]raw.Object, len(doc.Objects))
	for ref, obj := range doc.Objects {
		rebuilt[fn(ref)] = rewriteRefs(obj, fn)
	}
	doc.Objects = rebuilt
	if doc.Trailer != nil {
		rewriteRefs(doc.Trailer, fn)
	}
}
