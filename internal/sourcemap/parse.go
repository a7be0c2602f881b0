package sourcemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"sarifnav/internal/sarif"
	"sarifnav/internal/source"
)

// Parse indexes raw and decodes it into the typed tree. A leading UTF-8 BOM
// is dropped before anything else; offsets refer to the remaining text.
func Parse(uri string, raw []byte) (*Index, error) {
	content, hadBOM := source.StripBOM(raw)
	flags := source.FileVirtual
	if hadBOM {
		flags |= source.FileHadBOM
	}
	return ParseFile(uri, source.NewFile(uri, content, flags))
}

// ParseFile indexes an already loaded text.
func ParseFile(uri string, file *source.File) (*Index, error) {
	p := &parser{
		file:    file,
		dec:     json.NewDecoder(bytes.NewReader(file.Content)),
		entries: make(map[string]Entry),
	}
	p.dec.UseNumber()
	if err := p.parseValue("", logType); err != nil {
		return nil, p.fail(uri, err)
	}
	if tok, err := p.dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected %v after top-level value", tok)
		}
		return nil, p.fail(uri, err)
	}

	tree, err := sarif.Decode(file.Content)
	if err != nil {
		return nil, p.fail(uri, err)
	}
	return &Index{uri: uri, file: file, tree: tree, entries: p.entries}, nil
}

type parser struct {
	file    *source.File
	dec     *json.Decoder
	entries map[string]Entry
	cur     Pointer
}

func (p *parser) parseValue(path string, typ reflect.Type) error {
	start := p.pointer(p.skipSeparators(int(p.dec.InputOffset())))
	tok, err := p.dec.Token()
	if err != nil {
		return err
	}

	switch tok {
	case json.Delim('{'):
		for p.dec.More() {
			keyTok, err := p.dec.Token()
			if err != nil {
				return err
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("object key is %T", keyTok)
			}
			childType, err := memberType(typ, key)
			if err != nil {
				return err
			}
			child := Join(path, EscapeKey(key))
			if _, dup := p.entries[child]; dup {
				// повторный ключ: побеждает последний, как при декодировании
				p.dropSubtree(child)
			}
			if err := p.parseValue(child, childType); err != nil {
				return err
			}
		}
		if _, err := p.dec.Token(); err != nil {
			return err
		}
	case json.Delim('['):
		elem := elementType(typ)
		for i := 0; p.dec.More(); i++ {
			if err := p.parseValue(index(path, i), elem); err != nil {
				return err
			}
		}
		if _, err := p.dec.Token(); err != nil {
			return err
		}
	}

	end := p.pointer(int(p.dec.InputOffset()))
	p.entries[path] = Entry{Value: start, ValueEnd: end}
	return nil
}

func (p *parser) skipSeparators(off int) int {
	content := p.file.Content
	for off < len(content) {
		switch content[off] {
		case ' ', '\t', '\r', '\n', ',', ':':
			off++
		default:
			return off
		}
	}
	return off
}

// pointer advances the cursor to off. Offsets requested during a parse never
// decrease, so every byte is scanned once.
func (p *parser) pointer(off int) Pointer {
	if off < p.cur.TextOffset {
		pos := p.file.Position(uint32(off)) // #nosec G115 -- off is within content
		return Pointer{Line: pos.Line, Column: pos.Character, TextOffset: off}
	}
	content := p.file.Content
	for p.cur.TextOffset < off {
		b := content[p.cur.TextOffset]
		if b == '\n' {
			p.cur.Line++
			p.cur.Column = 0
			p.cur.TextOffset++
			continue
		}
		if b < utf8.RuneSelf {
			p.cur.Column++
			p.cur.TextOffset++
			continue
		}
		r, size := utf8.DecodeRune(content[p.cur.TextOffset:])
		if r >= 0x10000 {
			p.cur.Column += 2
		} else {
			p.cur.Column++
		}
		p.cur.TextOffset += size
	}
	return p.cur
}

func (p *parser) dropSubtree(path string) {
	prefix := path + "/"
	for k := range p.entries {
		if strings.HasPrefix(k, prefix) {
			delete(p.entries, k)
		}
	}
}

func (p *parser) fail(uri string, err error) error {
	off := p.dec.InputOffset()
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		off = syn.Offset
	case errors.As(err, &typ):
		off = typ.Offset
	}
	if n := int64(len(p.file.Content)); off > n {
		off = n
	}
	pos := p.file.Position(uint32(off)) // #nosec G115 -- clamped to content length
	return &ParseError{
		URI:    uri,
		Offset: off,
		Line:   pos.Line + 1,
		Column: pos.Character + 1,
		Err:    err,
	}
}
