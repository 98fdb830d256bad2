package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/stijn577/pdft/ir/raw"
	"github.com/stijn577/pdft/scanner"
)

// objectParser turns a token stream into raw objects. It keeps a small
// lookahead buffer so "N G R" reference triples can be recognized.
type objectParser struct {
	sc  scanner.Scanner
	buf []scanner.Token
}

func newObjectParser(sc scanner.Scanner) *objectParser {
	return &objectParser{sc: sc}
}

func (p *objectParser) peek(i int) (scanner.Token, error) {
	for len(p.buf) <= i {
		tok, err := p.sc.Next()
		if err != nil {
			return scanner.Token{}, err
		}
		p.buf = append(p.buf, tok)
	}
	return p.buf[i], nil
}

func (p *objectParser) read() (scanner.Token, error) {
	if len(p.buf) > 0 {
		tok := p.buf[0]
		p.buf = p.buf[1:]
		return tok, nil
	}
	return p.sc.Next()
}

func (p *objectParser) next() (raw.Object, error) {
	tok, err := p.read()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenBoolean:
		return raw.Bool(tok.Value.(bool)), nil
	case scanner.TokenReal:
		return raw.NumberFloat(tok.Value.(float64)), nil
	case scanner.TokenInteger:
		return p.numberOrRef(tok)
	case scanner.TokenName:
		return raw.NameLiteral(tok.Value.(string)), nil
	case scanner.TokenString:
		return raw.Str(tok.Value.([]byte)), nil
	case scanner.TokenHexString:
		return raw.StringObj{Bytes: tok.Value.([]byte), Hex: true}, nil
	case scanner.TokenArrayStart:
		return p.parseArray()
	case scanner.TokenDictStart:
		return p.parseDictOrStream()
	default:
		return nil, fmt.Errorf("unexpected token %v at offset %d", tok.Value, tok.Pos)
	}
}

// numberOrRef disambiguates a bare integer from the first element of
// an "N G R" indirect reference.
func (p *objectParser) numberOrRef(first scanner.Token) (raw.Object, error) {
	t1, err := p.peek(0)
	if err != nil || t1.Type != scanner.TokenInteger {
		return raw.NumberInt(first.Value.(int64)), nil
	}
	t2, err := p.peek(1)
	if err != nil || t2.Type != scanner.TokenKeyword || t2.Value != "R" {
		return raw.NumberInt(first.Value.(int64)), nil
	}
	p.read()
	p.read()
	return raw.Ref(int(first.Value.(int64)), int(t1.Value.(int64))), nil
}

func (p *objectParser) parseArray() (raw.Object, error) {
	arr := raw.NewArray()
	for {
		tok, err := p.peek(0)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("unterminated array")
			}
			return nil, err
		}
		if tok.Type == scanner.TokenArrayEnd {
			p.read()
			return arr, nil
		}
		item, err := p.next()
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (p *objectParser) parseDictOrStream() (raw.Object, error) {
	dict := raw.Dict()
	for {
		tok, err := p.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("unterminated dictionary")
			}
			return nil, err
		}
		if tok.Type == scanner.TokenDictEnd {
			break
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("dictionary key must be a name, got %v at offset %d", tok.Value, tok.Pos)
		}
		value, err := p.next()
		if err != nil {
			return nil, err
		}
		dict.Set(raw.NameLiteral(tok.Value.(string)), value)
	}

	// A stream keyword directly after the dictionary turns it into a
	// stream object. The declared Length drives payload extraction; an
	// indirect Length falls back to an endstream search.
	p.sc.SetNextStreamLength(streamLength(dict))
	tok, err := p.peek(0)
	if err != nil || tok.Type != scanner.TokenStream {
		p.sc.SetNextStreamLength(-1)
		return dict, nil
	}
	p.read()
	return raw.NewStream(dict, tok.Value.([]byte)), nil
}

func streamLength(dict *raw.DictObj) int64 {
	obj, ok := dict.Get(raw.NameLiteral("Length"))
	if !ok {
		return -1
	}
	n, ok := obj.(raw.Number)
	if !ok || !n.IsInteger() {
		return -1
	}
	return n.Int()
}

func (p *objectParser) expectInteger() (int64, error) {
	tok, err := p.read()
	if err != nil {
		return 0, err
	}
	if tok.Type != scanner.TokenInteger {
		return 0, fmt.Errorf("expected integer, got %v at offset %d", tok.Value, tok.Pos)
	}
	return tok.Value.(int64), nil
}

func (p *objectParser) expectKeyword(word string) error {
	tok, err := p.read()
	if err != nil {
		return err
	}
	if tok.Type != scanner.TokenKeyword || tok.Value != word {
		return fmt.Errorf("expected %q, got %v at offset %d", word, tok.Value, tok.Pos)
	}
	return nil
}
