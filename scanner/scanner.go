package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

type TokenType int

const (
	TokenDictStart  TokenType = iota // '<<'
	TokenDictEnd                     // '>>'
	TokenArrayStart                  // '['
	TokenArrayEnd                    // ']'
	TokenName                        // '/Name'
	TokenString                      // literal string, Value []byte
	TokenHexString                   // hex string, Value []byte
	TokenInteger                     // Value int64
	TokenReal                        // Value float64
	TokenBoolean                     // Value bool
	TokenNull                        // 'null'
	TokenStream                      // stream payload, Value []byte
	TokenKeyword                     // obj, endobj, R, xref, trailer, ...
)

type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int64
}

// Scanner tokenizes PDF syntax from an in-memory byte slice.
type Scanner interface {
	Next() (Token, error)
	Position() int64
	Seek(offset int64) error
	// SetNextStreamLength tells the scanner how many payload bytes the
	// next 'stream' keyword carries. Negative means unknown; the
	// scanner then searches for the 'endstream' keyword.
	SetNextStreamLength(n int64)
}

type pdfScanner struct {
	data          []byte
	pos           int64
	nextStreamLen int64
}

// New returns a scanner over data.
func New(data []byte) Scanner {
	return &pdfScanner{data: data, nextStreamLen: -1}
}

func (s *pdfScanner) Position() int64 { return s.pos }

func (s *pdfScanner) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}

func (s *pdfScanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func (s *pdfScanner) Next() (Token, error) {
	s.skipWSAndComments()
	if s.pos >= int64(len(s.data)) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peek(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDictStart, Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peek(1) == '>' {
			s.pos += 2
			return Token{Type: TokenDictEnd, Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Value: ">", Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArrayStart, Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenArrayEnd, Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isNumberStart(c) {
		return s.scanNumber()
	}
	if isRegular(c) {
		return s.scanKeyword()
	}
	s.pos++
	return Token{Type: TokenKeyword, Value: string(c), Pos: start}, nil
}

func (s *pdfScanner) skipWSAndComments() {
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < int64(len(s.data)) && !isEOL(s.data[s.pos]) {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *pdfScanner) peek(n int64) byte {
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // '/'
	var out bytes.Buffer
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && s.pos+2 < int64(len(s.data)) {
			hi, okHi := fromHex(s.data[s.pos+1])
			lo, okLo := fromHex(s.data[s.pos+2])
			if okHi && okLo {
				out.WriteByte(hi<<4 | lo)
				s.pos += 3
				continue
			}
		}
		out.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Value: out.String(), Pos: start}, nil
}

func (s *pdfScanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // '('
	var out bytes.Buffer
	depth := 1
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		switch c {
		case '\\':
			s.pos++
			if s.pos >= int64(len(s.data)) {
				return Token{}, errors.New("unterminated string escape")
			}
			e := s.data[s.pos]
			switch e {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case 'b':
				out.WriteByte('\b')
			case 'f':
				out.WriteByte('\f')
			case '(', ')', '\\':
				out.WriteByte(e)
			case '\r':
				if s.peek(1) == '\n' {
					s.pos++
				}
			case '\n':
				// line continuation, emit nothing
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.peek(1) >= '0' && s.peek(1) <= '7'; i++ {
						s.pos++
						v = v*8 + int(s.data[s.pos]-'0')
					}
					out.WriteByte(byte(v))
				} else {
					out.WriteByte(e)
				}
			}
			s.pos++
		case '(':
			depth++
			out.WriteByte(c)
			s.pos++
		case ')':
			depth--
			s.pos++
			if depth == 0 {
				return Token{Type: TokenString, Value: out.Bytes(), Pos: start}, nil
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
			s.pos++
		}
	}
	return Token{}, errors.New("unterminated literal string")
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // '<'
	var out bytes.Buffer
	var hi byte
	haveHi := false
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			if haveHi {
				out.WriteByte(hi << 4) // odd digit count, low nibble 0
			}
			return Token{Type: TokenHexString, Value: out.Bytes(), Pos: start}, nil
		}
		if isWhitespace(c) {
			continue
		}
		v, ok := fromHex(c)
		if !ok {
			return Token{}, errors.New("invalid hex string digit")
		}
		if haveHi {
			out.WriteByte(hi<<4 | v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	return Token{}, errors.New("unterminated hex string")
}

func (s *pdfScanner) scanNumber() (Token, error) {
	start := s.pos
	real := false
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '.' {
			real = true
			s.pos++
			continue
		}
		if c == '+' || c == '-' || (c >= '0' && c <= '9') {
			s.pos++
			continue
		}
		break
	}
	text := string(s.data[start:s.pos])
	if real {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, errors.New("malformed real: " + text)
		}
		return Token{Type: TokenReal, Value: f, Pos: start}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, errors.New("malformed integer: " + text)
	}
	return Token{Type: TokenInteger, Value: i, Pos: start}, nil
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	for s.pos < int64(len(s.data)) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	word := string(s.data[start:s.pos])
	switch word {
	case "true":
		return Token{Type: TokenBoolean, Value: true, Pos: start}, nil
	case "false":
		return Token{Type: TokenBoolean, Value: false, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	}
	return Token{Type: TokenKeyword, Value: word, Pos: start}, nil
}

// scanStream consumes the payload following the 'stream' keyword. The
// keyword itself has already been consumed. Per PDF 7.3.8 the keyword
// is followed by CRLF or LF, then exactly Length bytes.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
		s.pos++
	}
	n := s.nextStreamLen
	s.nextStreamLen = -1
	var payload []byte
	if n >= 0 && s.pos+n <= int64(len(s.data)) {
		payload = s.data[s.pos : s.pos+n]
		s.pos += n
	} else {
		end := bytes.Index(s.data[s.pos:], []byte("endstream"))
		if end < 0 {
			return Token{}, errors.New("unterminated stream")
		}
		payload = s.data[s.pos : s.pos+int64(end)]
		// trim the EOL that precedes 'endstream'
		payload = bytes.TrimRight(payload, "\r\n")
		s.pos += int64(end)
	}
	return Token{Type: TokenStream, Value: payload, Pos: start}, nil
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isEOL(c byte) bool { return c == '\r' || c == '\n' }

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isWhitespace(c) && !isDelimiter(c) }

func isNumberStart(c byte) bool {
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
