package raw

// Document is the root container for raw PDF objects: the object map,
// the trailer dictionary, and the next-free-identifier counter.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g. "1.5"

	// MaxID is the highest object number the document declares. New
	// objects are allocated above it. It may undercount a malformed
	// document; callers that need an exact bound must recompute it.
	MaxID int
}

// NewDocument returns an empty document with the given header version.
func NewDocument(version string) *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: version,
	}
}

// Add inserts obj under a freshly allocated identifier and returns it.
func (d *Document) Add(obj Object) ObjectRef {
	d.MaxID++
	ref := ObjectRef{Num: d.MaxID, Gen: 0}
	d.Objects[ref] = obj
	return ref
}

// Get resolves ref, following reference chains until a non-reference
// object is reached. Returns false for dangling references.
func (d *Document) Get(ref ObjectRef) (Object, bool) {
	seen := make(map[ObjectRef]bool)
	for {
		if seen[ref] {
			return nil, false
		}
		seen[ref] = true
		obj, ok := d.Objects[ref]
		if !ok {
			return nil, false
		}
		r, isRef := obj.(Reference)
		if !isRef {
			return obj, true
		}
		ref = r.Ref()
	}
}

// Root resolves the trailer's Root reference to the catalog dictionary.
func (d *Document) Root() (ObjectRef, Dictionary, bool) {
	if d.Trailer == nil {
		return ObjectRef{}, nil, false
	}
	obj, ok := d.Trailer.Get(NameLiteral("Root"))
	if !ok {
		return ObjectRef{}, nil, false
	}
	ref, ok := obj.(Reference)
	if !ok {
		return ObjectRef{}, nil, false
	}
	resolved, ok := d.Get(ref.Ref())
	if !ok {
		return ObjectRef{}, nil, false
	}
	dict, ok := resolved.(Dictionary)
	if !ok {
		return ObjectRef{}, nil, false
	}
	return ref.Ref(), dict, true
}
