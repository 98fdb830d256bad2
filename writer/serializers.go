package writer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/observability"
)

type impl struct{ cfg Config }

// xrefEntry is one in-use row of the emitted cross-reference table.
type xrefEntry struct {
	offset int64
	gen    int
}

func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

func (w *impl) Write(ctx context.Context, doc *raw.Document, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	version := doc.Version
	if version == "" {
		version = "1.5"
	}
	buf.WriteString("%PDF-" + version + "\n%\xE2\xE3\xCF\xD3\n")

	ordered := make([]raw.ObjectRef, 0, len(doc.Objects))
	for ref := range doc.Objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	entries := make(map[int]xrefEntry, len(ordered))
	for _, ref := range ordered {
		entries[ref.Num] = xrefEntry{offset: int64(buf.Len()), gen: ref.Gen}
		buf.Write(w.SerializeObject(ref, doc.Objects[ref]))
	}

	maxObjNum := 0
	if len(ordered) > 0 {
		maxObjNum = ordered[len(ordered)-1].Num
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if e, ok := entries[i]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", e.offset, e.gen)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := trailerDict(doc, maxObjNum+1)
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := out.Write(buf.Bytes())
	if err != nil {
		return err
	}
	w.cfg.Logger.Debug("document written",
		observability.Int("objects", len(doc.Objects)),
		observability.Int("bytes", n))
	return nil
}

// trailerDict copies the document trailer, forcing Size and dropping
// entries that only make sense for the source file's xref chain.
func trailerDict(doc *raw.Document, size int) *raw.DictObj {
	out := raw.Dict()
	out.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(size)))
	if doc.Trailer == nil {
		return out
	}
	for _, key := range doc.Trailer.Keys() {
		switch key.Value() {
		case "Size", "Prev", "XRefStm":
			continue
		}
		if v, ok := doc.Trailer.Get(key); ok {
			out.Set(key, v)
		}
	}
	return out
}

func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte("/" + escapeName(v.Value()))
	case raw.NumberObj:
		if v.IsInteger() {
			return []byte(strconv.FormatInt(v.Int(), 10))
		}
		return []byte(strconv.FormatFloat(v.Float(), 'f', -1, 64))
	case raw.BoolObj:
		if v.Value() {
			return []byte("true")
		}
		return []byte("false")
	case raw.NullObj:
		return []byte("null")
	case raw.StringObj:
		if v.IsHex() {
			return []byte("<" + hex.EncodeToString(v.Value()) + ">")
		}
		return []byte("(" + escapeString(v.Value()) + ")")
	case *raw.ArrayObj:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.Write(serializePrimitive(it))
		}
		b.WriteByte(']')
		return b.Bytes()
	case *raw.DictObj:
		return serializeDict(v)
	case *raw.StreamObj:
		// Force Length to the actual payload size; an inherited
		// indirect Length may no longer match after rewriting.
		dict := v.Dict.Clone()
		dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(v.Data))))
		var b bytes.Buffer
		b.Write(serializeDict(dict))
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes()
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.Ref().Num, v.Ref().Gen))
	default:
		return []byte("null")
	}
}

func serializeDict(d *raw.DictObj) []byte {
	var b bytes.Buffer
	b.WriteString("<<")
	for _, key := range d.Keys() {
		b.WriteString("/" + escapeName(key.Value()) + " ")
		v, _ := d.Get(key)
		b.Write(serializePrimitive(v))
	}
	b.WriteString(">>")
	return b.Bytes()
}

func escapeString(s []byte) string {
	var b bytes.Buffer
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString("\\r")
		case '\n':
			b.WriteString("\\n")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func escapeName(s string) string {
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		c := s[i]
		needsEscape := c < 0x21 || c > 0x7E || c == '#'
		switch c {
		case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
			needsEscape = true
		}
		if needsEscape {
			fmt.Fprintf(&b, "#%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}
