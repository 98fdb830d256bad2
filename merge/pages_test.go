package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stijn577/pdft/ir/raw"
)

func tagOf(t *testing.T, entry PageEntry) string {
	t.Helper()
	obj, ok := entry.Dict.Get(raw.NameLiteral("TestTag"))
	require.True(t, ok)
	return string(obj.(raw.String).Value())
}

func TestPagesFlatTree(t *testing.T) {
	doc := sampleDoc("A", 3)
	pages := Pages(doc)
	require.Len(t, pages, 3)
	assert.Equal(t, "A-p1", tagOf(t, pages[0]))
	assert.Equal(t, "A-p3", tagOf(t, pages[2]))
}

func TestPagesNestedTree(t *testing.T) {
	// Pages root with one direct page and one intermediate node
	// holding two more: order must be left-to-right depth-first.
	doc := raw.NewDocument("1.5")

	rootDict := raw.Dict()
	rootDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	rootRef := doc.Add(rootDict)

	newPage := func(tag string, parent raw.ObjectRef) raw.ObjectRef {
		page := raw.Dict()
		page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		page.Set(raw.NameLiteral("Parent"), raw.RefObj{R: parent})
		page.Set(raw.NameLiteral("TestTag"), raw.Str([]byte(tag)))
		return doc.Add(page)
	}

	p1 := newPage("p1", rootRef)

	midDict := raw.Dict()
	midDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	midDict.Set(raw.NameLiteral("Parent"), raw.RefObj{R: rootRef})
	midRef := doc.Add(midDict)
	p2 := newPage("p2", midRef)
	p3 := newPage("p3", midRef)
	midDict.Set(raw.NameLiteral("Kids"), raw.NewArray(raw.RefObj{R: p2}, raw.RefObj{R: p3}))
	midDict.Set(raw.NameLiteral("Count"), raw.NumberInt(2))

	rootDict.Set(raw.NameLiteral("Kids"), raw.NewArray(raw.RefObj{R: p1}, raw.RefObj{R: midRef}))
	rootDict.Set(raw.NameLiteral("Count"), raw.NumberInt(3))

	catalog := raw.Dict()
	catalog.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	catalog.Set(raw.NameLiteral("Pages"), raw.RefObj{R: rootRef})
	catalogRef := doc.Add(catalog)
	doc.Trailer.Set(raw.NameLiteral("Root"), raw.RefObj{R: catalogRef})

	pages := Pages(doc)
	require.Len(t, pages, 3)
	assert.Equal(t, "p1", tagOf(t, pages[0]))
	assert.Equal(t, "p2", tagOf(t, pages[1]))
	assert.Equal(t, "p3", tagOf(t, pages[2]))
}

func TestPagesCycleSafe(t *testing.T) {
	doc := sampleDoc("A", 1)
	_, pagesDict := mergedPagesRoot(t, doc)
	kidsObj, _ := pagesDict.Get(raw.NameLiteral("Kids"))
	// Point the tree back at its own root.
	kidsObj.(*raw.ArrayObj).Append(raw.Ref(1, 0))

	pages := Pages(doc)
	assert.Len(t, pages, 1)
}

func TestPagesMissingRoot(t *testing.T) {
	doc := raw.NewDocument("1.5")
	assert.Empty(t, Pages(doc))
}
