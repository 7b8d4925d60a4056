package csdl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/csdlc/pkg/domain"
)

// Parser converts EDMX documents (or bare Schema fragments) into the schema model.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses the document at path.
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(data, path)
}

// Parse decodes data. source is recorded as the document path and used in errors.
// Failures are returned as *domain.ParseError.
func (p *Parser) Parse(data []byte, source string) (*Document, error) {
	doc, err := p.decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ParseError{Source: source, Err: err}
	}
	doc.Path = source
	return doc, nil
}

func (p *Parser) decode(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("document has no root element")
			}
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Edmx":
			var doc Document
			if err := dec.DecodeElement(&doc, &se); err != nil {
				return nil, err
			}
			return &doc, nil
		case "Schema":
			var s Schema
			if err := dec.DecodeElement(&s, &se); err != nil {
				return nil, err
			}
			return &Document{Schemas: []*Schema{&s}}, nil
		default:
			return nil, fmt.Errorf("unexpected root element <%s>", se.Name.Local)
		}
	}
}
