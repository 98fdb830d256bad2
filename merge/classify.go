package merge

import "github.com/stijn577/pdft/ir/raw"

// objectClass is the closed classification used during consolidation.
type objectClass int

const (
	classOther    objectClass = iota // opaque passthrough
	classCatalog                     // document root
	classPages                       // page-tree root or intermediate node
	classPage                        // leaf page
	classOutlines                    // navigation root, never carried over
	classOutline                     // navigation item, never carried over
)

// classify inspects the /Type tag of dictionary-shaped objects.
// Anything without a recognized tag is passed through verbatim.
func classify(obj raw.Object) objectClass {
	dict := dictOf(obj)
	if dict == nil {
		return classOther
	}
	typeObj, ok := dict.Get(raw.NameLiteral("Type"))
	if !ok {
		return classOther
	}
	name, ok := typeObj.(raw.Name)
	if !ok {
		return classOther
	}
	switch name.Value() {
	case "Catalog":
		return classCatalog
	case "Pages":
		return classPages
	case "Page":
		return classPage
	case "Outlines":
		return classOutlines
	case "Outline":
		return classOutline
	}
	return classOther
}

// dictOf extracts the dictionary carried by obj: the object itself for
// dictionaries, the attached dictionary for streams, nil otherwise.
func dictOf(obj raw.Object) *raw.DictObj {
	switch v := obj.(type) {
	case *raw.DictObj:
		return v
	case *raw.StreamObj:
		return v.Dict
	}
	return nil
}
