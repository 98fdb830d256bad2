package scanner

import (
	"bytes"
	"io"
	"testing"
)

func mustNext(t *testing.T, s Scanner) Token {
	t.Helper()
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	return tok
}

func TestScanBasicTokens(t *testing.T) {
	s := New([]byte("<< /Name 42 3.14 true false null [ ] >>"))

	if tok := mustNext(t, s); tok.Type != TokenDictStart {
		t.Fatalf("expected dict start, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenName || tok.Value != "Name" {
		t.Fatalf("expected /Name, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenInteger || tok.Value.(int64) != 42 {
		t.Fatalf("expected 42, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenReal || tok.Value.(float64) != 3.14 {
		t.Fatalf("expected 3.14, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenBoolean || tok.Value != true {
		t.Fatalf("expected true, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenBoolean || tok.Value != false {
		t.Fatalf("expected false, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenNull {
		t.Fatalf("expected null, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenArrayStart {
		t.Fatalf("expected array start, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenArrayEnd {
		t.Fatalf("expected array end, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenDictEnd {
		t.Fatalf("expected dict end, got %v", tok)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScanNameHexEscape(t *testing.T) {
	s := New([]byte("/A#20B"))
	tok := mustNext(t, s)
	if tok.Type != TokenName || tok.Value != "A B" {
		t.Fatalf("expected name 'A B', got %v", tok.Value)
	}
}

func TestScanLiteralString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`(hello)`, "hello"},
		{`(nested (parens) ok)`, "nested (parens) ok"},
		{`(esc \( \) \\ \n)`, "esc ( ) \\ \n"},
		{`(\101)`, "A"}, // octal escape
	}
	for _, tc := range cases {
		s := New([]byte(tc.in))
		tok := mustNext(t, s)
		if tok.Type != TokenString {
			t.Fatalf("%q: expected string token, got %v", tc.in, tok.Type)
		}
		if got := string(tok.Value.([]byte)); got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScanHexString(t *testing.T) {
	s := New([]byte("<48 65 6C6C 6F>"))
	tok := mustNext(t, s)
	if tok.Type != TokenHexString {
		t.Fatalf("expected hex string, got %v", tok.Type)
	}
	if got := string(tok.Value.([]byte)); got != "Hello" {
		t.Errorf("got %q, want Hello", got)
	}

	// Odd digit count pads the final nibble with zero.
	s = New([]byte("<485>"))
	tok = mustNext(t, s)
	if !bytes.Equal(tok.Value.([]byte), []byte{0x48, 0x50}) {
		t.Errorf("odd hex: got % x", tok.Value.([]byte))
	}
}

func TestScanComments(t *testing.T) {
	s := New([]byte("% a comment\n7"))
	tok := mustNext(t, s)
	if tok.Type != TokenInteger || tok.Value.(int64) != 7 {
		t.Fatalf("expected 7 after comment, got %v", tok)
	}
}

func TestScanStreamWithLength(t *testing.T) {
	data := []byte("stream\nhello worldendstream")
	s := New(data)
	s.SetNextStreamLength(11)
	tok := mustNext(t, s)
	if tok.Type != TokenStream {
		t.Fatalf("expected stream token, got %v", tok.Type)
	}
	if got := string(tok.Value.([]byte)); got != "hello world" {
		t.Errorf("payload %q", got)
	}
}

func TestScanStreamWithoutLength(t *testing.T) {
	data := []byte("stream\npayload bytes\nendstream")
	s := New(data)
	tok := mustNext(t, s)
	if tok.Type != TokenStream {
		t.Fatalf("expected stream token, got %v", tok.Type)
	}
	if got := string(tok.Value.([]byte)); got != "payload bytes" {
		t.Errorf("payload %q", got)
	}
}

func TestSeek(t *testing.T) {
	s := New([]byte("1 2 3"))
	if err := s.Seek(2); err != nil {
		t.Fatal(err)
	}
	tok := mustNext(t, s)
	if tok.Value.(int64) != 2 {
		t.Fatalf("expected 2 after seek, got %v", tok.Value)
	}
	if err := s.Seek(-1); err == nil {
		t.Fatal("negative seek must fail")
	}
}

func TestScanKeywords(t *testing.T) {
	s := New([]byte("12 0 obj endobj"))
	mustNext(t, s)
	mustNext(t, s)
	if tok := mustNext(t, s); tok.Type != TokenKeyword || tok.Value != "obj" {
		t.Fatalf("expected obj keyword, got %v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenKeyword || tok.Value != "endobj" {
		t.Fatalf("expected endobj keyword, got %v", tok)
	}
}
