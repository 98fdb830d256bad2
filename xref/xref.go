package xref

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table holds object offsets for a classic cross-reference table.
type Table interface {
	Lookup(objNum int) (offset int64, gen int, found bool)
	Objects() []int
}

// Result carries the parsed table plus the byte offset of the trailer
// dictionary, which the caller parses with its own object parser.
type Result struct {
	Table      Table
	TrailerPos int64
	StartXRef  int64
}

// Resolve locates the startxref pointer in data and parses the classic
// xref table it points at.
func Resolve(data []byte) (*Result, error) {
	startxref := bytes.LastIndex(data, []byte("startxref"))
	if startxref < 0 {
		return nil, errors.New("startxref not found")
	}
	rest := string(data[startxref+len("startxref"):])
	var offset int64 = -1
	for _, line := range strings.Split(rest, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse startxref: %w", err)
		}
		offset = val
		break
	}
	if offset <= 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("xref offset out of range: %d", offset)
	}

	entries, trailerPos, err := parseTable(data, offset)
	if err != nil {
		return nil, err
	}
	return &Result{
		Table:      &table{entries: entries},
		TrailerPos: trailerPos,
		StartXRef:  offset,
	}, nil
}

func parseTable(data []byte, offset int64) (map[int]entry, int64, error) {
	body := data[offset:]
	if !bytes.HasPrefix(bytes.TrimLeft(body, " \r\n\t"), []byte("xref")) {
		return nil, 0, errors.New("xref keyword not found at offset")
	}
	pos := offset + int64(bytes.Index(body, []byte("xref"))) + 4

	entries := make(map[int]entry)
	for {
		lineStart := pos
		line, next := readLine(data, pos)
		pos = next
		text := strings.TrimSpace(line)
		if text == "" {
			if pos >= int64(len(data)) {
				return nil, 0, errors.New("unexpected end of xref section")
			}
			continue
		}
		if strings.HasPrefix(text, "trailer") {
			at := strings.Index(line, "trailer")
			return entries, lineStart + int64(at+len("trailer")), nil
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			return nil, 0, fmt.Errorf("invalid xref subsection header: %q", text)
		}
		startObj, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, 0, fmt.Errorf("parse xref start: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, 0, fmt.Errorf("parse xref count: %w", err)
		}
		for i := 0; i < count; i++ {
			entryLine, next := readLine(data, pos)
			pos = next
			fields := strings.Fields(strings.TrimSpace(entryLine))
			if len(fields) < 3 {
				return nil, 0, fmt.Errorf("invalid xref entry: %q", entryLine)
			}
			off, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("parse xref offset: %w", err)
			}
			gen, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, 0, fmt.Errorf("parse xref gen: %w", err)
			}
			if fields[2] != "n" {
				continue // free entry
			}
			entries[startObj+i] = entry{offset: off, gen: gen}
		}
	}
}

func readLine(data []byte, pos int64) (string, int64) {
	if pos >= int64(len(data)) {
		return "", pos
	}
	end := pos
	for end < int64(len(data)) && data[end] != '\n' && data[end] != '\r' {
		end++
	}
	line := string(data[pos:end])
	for end < int64(len(data)) && (data[end] == '\n' || data[end] == '\r') {
		end++
	}
	return line, end
}

type entry struct {
	offset int64
	gen    int
}

type table struct {
	entries map[int]entry
}

func (t *table) Lookup(objNum int) (int64, int, bool) {
	e, ok := t.entries[objNum]
	if !ok {
		return 0, 0, false
	}
	return e.offset, e.gen, true
}

func (t *table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
