package listing

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Kind int

const (
	KindText Kind = iota
	KindAttribute
	KindNumericPrefix
)

// Field addresses one value on a page: a CSS selector path and how to read
// the first node it matches.
type Field struct {
	Path string
	Kind Kind
	Attr string // only for KindAttribute
}

func TextField(path string) Field {
	return Field{Path: path, Kind: KindText}
}

func AttributeField(path, name string) Field {
	return Field{Path: path, Kind: KindAttribute, Attr: name}
}

func NumericField(path string) Field {
	return Field{Path: path, Kind: KindNumericPrefix}
}

type Value struct {
	Text   string
	Number float64
}

// Extractor reads typed values out of a parsed page. It never mutates the document.
type Extractor struct {
	doc *goquery.Document
}

func NewExtractor(doc *goquery.Document) *Extractor {
	return &Extractor{doc: doc}
}

func (e *Extractor) Extract(field Field) (Value, error) {
	sel := e.doc.Find(field.Path).First()
	if sel.Length() == 0 {
		return Value{}, &ExtractionError{Reason: ReasonNoMatch, Path: field.Path}
	}

	switch field.Kind {
	case KindAttribute:
		attr, ok := sel.Attr(field.Attr)
		if !ok {
			return Value{}, &ExtractionError{Reason: ReasonMissingAttribute, Path: field.Path, Detail: field.Attr}
		}
		return Value{Text: attr}, nil

	case KindNumericPrefix:
		text := strings.TrimSpace(sel.Text())
		tokens := strings.Fields(text)
		if len(tokens) == 0 {
			return Value{}, &ExtractionError{Reason: ReasonNumericParse, Path: field.Path, Detail: "empty value"}
		}
		n, err := strconv.ParseFloat(strings.Replace(tokens[0], ",", ".", 1), 64)
		if err != nil {
			return Value{}, &ExtractionError{Reason: ReasonNumericParse, Path: field.Path, Detail: tokens[0], Err: err}
		}
		return Value{Text: text, Number: n}, nil

	default:
		return Value{Text: strings.TrimSpace(sel.Text())}, nil
	}
}

func (e *Extractor) Text(path string) (string, error) {
	v, err := e.Extract(TextField(path))
	return v.Text, err
}

func (e *Extractor) Attribute(path, name string) (string, error) {
	v, err := e.Extract(AttributeField(path, name))
	return v.Text, err
}

func (e *Extractor) NumericPrefix(path string) (float64, error) {
	v, err := e.Extract(NumericField(path))
	return v.Number, err
}
